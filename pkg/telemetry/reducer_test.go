package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func oneChannel(threshold float64) Layout {
	return Layout{Channels: []Channel{{Name: "temp", Threshold: threshold, Decimals: 2}}}
}

func sampleAt(ms int, values ...Value) Frame {
	return Frame{Elapsed: time.Duration(ms) * time.Millisecond, Values: values}
}

func TestReducerEmission(t *testing.T) {
	testCases := []struct {
		name      string
		threshold float64
		samples   []Frame
		emitted   []bool
	}{
		{
			name:      "compares against last sent value",
			threshold: 0.25,
			samples: []Frame{
				sampleAt(0, Num(20.0)),
				sampleAt(100, Num(20.1)),
				sampleAt(200, Num(20.3)),
			},
			emitted: []bool{true, false, true},
		},
		{
			name:      "slow drift accumulates",
			threshold: 0.25,
			samples: []Frame{
				sampleAt(0, Num(20.0)),
				sampleAt(100, Num(20.1)),
				sampleAt(200, Num(20.2)),
				sampleAt(300, Num(20.25)),
				sampleAt(400, Num(20.3)),
			},
			emitted: []bool{true, false, false, true, false},
		},
		{
			name:      "heartbeat forces a frame",
			threshold: 0.25,
			samples: []Frame{
				sampleAt(0, Num(20.0)),
				sampleAt(500, Num(20.0)),
				sampleAt(999, Num(20.0)),
				sampleAt(1000, Num(20.0)),
				sampleAt(1500, Num(20.0)),
				sampleAt(2000, Num(20.0)),
			},
			emitted: []bool{true, false, false, true, false, true},
		},
		{
			name:      "missing threshold always sends",
			threshold: 0,
			samples: []Frame{
				sampleAt(0, Num(1)),
				sampleAt(100, Num(1)),
				sampleAt(200, Num(1)),
			},
			emitted: []bool{true, true, true},
		},
		{
			name:      "faults alone never force a frame",
			threshold: 0.25,
			samples: []Frame{
				sampleAt(0, Num(20.0)),
				sampleAt(100, Fault("")),
				sampleAt(200, Fault("")),
				sampleAt(300, Num(20.0)),
			},
			emitted: []bool{true, false, false, false},
		},
		{
			name:      "flapping sensor stays below threshold",
			threshold: 100,
			samples: []Frame{
				sampleAt(0, Num(20.0)),
				sampleAt(100, Fault("")),
				sampleAt(200, Num(20.0)),
			},
			emitted: []bool{true, false, false},
		},
		{
			name:      "fault rides in the heartbeat frame",
			threshold: 0.25,
			samples: []Frame{
				sampleAt(0, Num(20.0)),
				sampleAt(500, Fault("")),
				sampleAt(1000, Fault("")),
				sampleAt(1500, Num(25.0)),
				sampleAt(2000, Num(25.0)),
			},
			emitted: []bool{true, false, true, false, true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReducer(oneChannel(tc.threshold))
			for n, sample := range tc.samples {
				frame, ok := r.Reduce(sample)
				require.Equalf(t, tc.emitted[n], ok, "sample %d", n)
				if ok {
					require.Equal(t, sample.Values, frame.Values)
				}
			}
		})
	}
}

func TestReducerBaselineResetsAllChannels(t *testing.T) {
	layout := Layout{Channels: []Channel{
		{Name: "a", Threshold: 1},
		{Name: "b", Threshold: 1},
	}}
	r := NewReducer(layout)
	_, ok := r.Reduce(sampleAt(0, Num(0), Num(0)))
	require.True(t, ok)
	// a moves enough, b moved 0.6 and becomes the new baseline.
	_, ok = r.Reduce(sampleAt(10, Num(1), Num(0.6)))
	require.True(t, ok)
	// b moved 0.6 since last sent, below threshold.
	_, ok = r.Reduce(sampleAt(20, Num(1), Num(1.2)))
	require.False(t, ok)
}

func TestReducerStatsTrackEverySample(t *testing.T) {
	r := NewReducer(oneChannel(0.25))
	for _, v := range []Value{Num(20.0), Num(20.1), Fault(""), Num(20.3)} {
		r.Reduce(Frame{Values: []Value{v}})
	}
	stats := r.Stats()
	require.Len(t, stats, 1)
	require.Equal(t, 3, stats[0].Count)
	require.InDelta(t, 20.0, stats[0].Min, 1e-9)
	require.InDelta(t, 20.3, stats[0].Max, 1e-9)
	require.InDelta(t, 60.4, stats[0].Sum, 1e-9)
	require.InDelta(t, 60.4/3, stats[0].Avg(), 1e-9)

	r.ResetStats()
	require.Equal(t, 0, r.Stats()[0].Count)
}
