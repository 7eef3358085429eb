// Package radiosim simulates the radio pair over websockets. Every line
// written by one endpoint is delivered to all other endpoints, unless
// it's lost in the air.
package radiosim

import (
	"bytes"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Relay forwards lines between websocket endpoints.
type Relay struct {
	// DropRate is the probability a line is lost.
	DropRate float64
	// Latency delays every delivered line.
	Latency time.Duration

	lock   sync.Mutex
	rnd    *rand.Rand
	nextID int
	peers  map[int]*peer
}

type peer struct {
	name string
	conn *websocket.Conn
	lock sync.Mutex
}

func (p *peer) send(line []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return websocket.Message.Send(p.conn, line)
}

// NewRelay creates a Relay.
func NewRelay(seed int64) *Relay {
	return &Relay{
		rnd:   rand.New(rand.NewSource(seed)),
		peers: make(map[int]*peer),
	}
}

// Handler returns the websocket endpoint. The request path names the
// endpoint in logs.
func (r *Relay) Handler() http.Handler {
	return websocket.Handler(r.serve)
}

// Peers returns the number of connected endpoints.
func (r *Relay) Peers() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.peers)
}

func (r *Relay) serve(conn *websocket.Conn) {
	p := &peer{name: conn.Request().URL.Path, conn: conn}
	r.lock.Lock()
	r.nextID++
	id := r.nextID
	r.peers[id] = p
	r.lock.Unlock()
	glog.Infof("radio %s connected", p.name)

	defer func() {
		r.lock.Lock()
		delete(r.peers, id)
		r.lock.Unlock()
		conn.Close()
		glog.Infof("radio %s disconnected", p.name)
	}()

	var pending []byte
	for {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			return
		}
		pending = append(pending, data...)
		for {
			pos := bytes.IndexByte(pending, '\n')
			if pos < 0 {
				break
			}
			line := append([]byte(nil), pending[:pos+1]...)
			pending = pending[pos+1:]
			r.forward(id, p.name, line)
		}
	}
}

func (r *Relay) forward(from int, name string, line []byte) {
	r.lock.Lock()
	if r.DropRate > 0 && r.rnd.Float64() < r.DropRate {
		r.lock.Unlock()
		glog.V(2).Infof("radio %s dropped %q", name, line)
		return
	}
	targets := make([]*peer, 0, len(r.peers))
	for id, p := range r.peers {
		if id != from {
			targets = append(targets, p)
		}
	}
	r.lock.Unlock()

	if r.Latency > 0 {
		time.Sleep(r.Latency)
	}
	for _, p := range targets {
		if err := p.send(line); err != nil {
			glog.Warningf("radio %s send: %v", p.name, err)
		}
	}
}
