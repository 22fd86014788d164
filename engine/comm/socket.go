// Package comm implements the Socket Sender (§4.J): a long-lived, framed
// TCP sender with reset-after-use semantics, wrapped in a circuit breaker
// so a dead downstream aggregator fails fast instead of retrying forever.
package comm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/Gawain27/PubScraper/pkg/resilience"
)

const (
	dialTimeout     = 30 * time.Second
	sendBufferBytes = 50 * 1024 * 1024
	abortRetryWait  = 3 * time.Second
	newline         = byte('\n')
)

// SocketSender sends length-implicit, newline-framed JSON documents to the
// downstream aggregator over TCP, opening and closing a connection per
// message (§4.J's reset-after-use policy).
type SocketSender struct {
	addr    string
	log     *slog.Logger
	breaker *resilience.Breaker
}

// New creates a SocketSender targeting host:port.
func New(host string, port int, log *slog.Logger) *SocketSender {
	if log == nil {
		log = slog.Default()
	}
	return &SocketSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		log:  log,
		breaker: resilience.NewBreaker(resilience.BreakerOpts{
			FailThreshold: 5,
			Timeout:       30 * time.Second,
			HalfOpenMax:   1,
		}),
	}
}

// Send transmits data followed by a newline delimiter. data must not
// contain a raw 0x0A byte; the Compress stage's JSON encoding guarantees
// this.
func (s *SocketSender) Send(ctx context.Context, data []byte) error {
	return s.breaker.Call(ctx, func(ctx context.Context) error {
		return s.sendOnce(ctx, data)
	})
}

func (s *SocketSender) sendOnce(ctx context.Context, data []byte) error {
	conn, err := net.DialTimeout("tcp", s.addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("comm: dial %s: %w", s.addr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetWriteBuffer(sendBufferBytes)
	}

	framed := make([]byte, 0, len(data)+1)
	framed = append(framed, data...)
	framed = append(framed, newline)

	_, err = conn.Write(framed)
	if err == nil {
		return conn.Close()
	}

	conn.Close()

	if isConnectionAborted(err) {
		s.log.Warn("comm: connection aborted, retrying", "addr", s.addr)
		select {
		case <-time.After(abortRetryWait):
		case <-ctx.Done():
			return ctx.Err()
		}
		return s.sendOnce(ctx, data)
	}

	return fmt.Errorf("comm: send to %s: %w", s.addr, err)
}

func isConnectionAborted(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "write" || opErr.Op == "read"
	}
	return false
}

// BreakerState exposes the circuit breaker state for the status surface.
func (s *SocketSender) BreakerState() resilience.State {
	return s.breaker.State()
}
