package motor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Actuator drives a PWM output.
type Actuator interface {
	SetPulseWidth(channel int, us int) error
}

// DefaultPeriod is the ESC refresh period (50Hz).
const DefaultPeriod = 20 * time.Millisecond

// SysfsPWM drives a PWM chip through the Linux sysfs interface.
type SysfsPWM struct {
	Chip   string
	Period time.Duration

	lock     sync.Mutex
	exported map[int]bool
}

// NewSysfsPWM creates a SysfsPWM for chip, e.g. /sys/class/pwm/pwmchip0.
func NewSysfsPWM(chip string) *SysfsPWM {
	return &SysfsPWM{Chip: chip, Period: DefaultPeriod, exported: make(map[int]bool)}
}

// SetPulseWidth implements Actuator.
func (p *SysfsPWM) SetPulseWidth(channel int, us int) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.exported[channel] {
		if err := p.export(channel); err != nil {
			return err
		}
		p.exported[channel] = true
	}
	ns := int64(us) * int64(time.Microsecond)
	return p.write(channel, "duty_cycle", strconv.FormatInt(ns, 10))
}

// Close disables and unexports all used channels.
func (p *SysfsPWM) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	var firstErr error
	for channel := range p.exported {
		if err := p.write(channel, "enable", "0"); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := writeFile(filepath.Join(p.Chip, "unexport"), strconv.Itoa(channel)); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.exported, channel)
	}
	return firstErr
}

func (p *SysfsPWM) export(channel int) error {
	dir := p.channelDir(channel)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err = writeFile(filepath.Join(p.Chip, "export"), strconv.Itoa(channel)); err != nil {
			return fmt.Errorf("export pwm%d: %w", channel, err)
		}
	}
	period := p.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	if err := p.write(channel, "period", strconv.FormatInt(int64(period), 10)); err != nil {
		return err
	}
	return p.write(channel, "enable", "1")
}

func (p *SysfsPWM) channelDir(channel int) string {
	return filepath.Join(p.Chip, "pwm"+strconv.Itoa(channel))
}

func (p *SysfsPWM) write(channel int, attr, val string) error {
	if err := writeFile(filepath.Join(p.channelDir(channel), attr), val); err != nil {
		return fmt.Errorf("pwm%d %s: %w", channel, attr, err)
	}
	return nil
}

func writeFile(path, val string) error {
	return os.WriteFile(path, []byte(val), 0644)
}

// SimActuator logs pulse width changes instead of driving hardware.
type SimActuator struct {
	lock sync.Mutex
	last map[int]int
}

// NewSimActuator creates a SimActuator.
func NewSimActuator() *SimActuator {
	return &SimActuator{last: make(map[int]int)}
}

// SetPulseWidth implements Actuator.
func (a *SimActuator) SetPulseWidth(channel int, us int) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if prev, ok := a.last[channel]; !ok || prev != us {
		glog.Infof("[sim] pwm%d = %dus", channel, us)
		a.last[channel] = us
	}
	return nil
}

// PulseWidth returns the last pulse width set on channel.
func (a *SimActuator) PulseWidth(channel int) (int, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	us, ok := a.last[channel]
	return us, ok
}
