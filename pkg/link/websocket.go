package link

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/websocket"
)

type websocketPort struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// DialWebsocket connects to a radio simulator relay.
func DialWebsocket(url string, readTimeout time.Duration) (Port, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.PayloadType = websocket.BinaryFrame
	return NewWebsocketPort(conn, readTimeout), nil
}

// NewWebsocketPort wraps an established websocket connection.
func NewWebsocketPort(conn *websocket.Conn, readTimeout time.Duration) Port {
	return &websocketPort{conn: conn, timeout: readTimeout}
}

// Read implements io.Reader with the port read timeout.
func (p *websocketPort) Read(b []byte) (int, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
		return 0, err
	}
	n, err := p.conn.Read(b)
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return n, nil
	}
	return n, err
}

func (p *websocketPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

func (p *websocketPort) Close() error {
	return p.conn.Close()
}
