// Package transmit delivers weight assignments to the external scheduler.
//
// The wire format is a single JSON object mapping function name to weight,
// written over one TCP connection. Closing the connection marks the end of
// the message; the scheduler sends nothing back.
package transmit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/phobologic/callrank/internal/ctxlog"
	"github.com/phobologic/callrank/internal/model"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 65432
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second

	// maxPayload bounds what Receive will read from one connection.
	maxPayload = 64 << 20
)

// Addr joins host and port into a dial address.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// TransmissionError reports a failed delivery. Op is the step that failed:
// "dial", "write" or "close".
type TransmissionError struct {
	Addr string
	Op   string
	Err  error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("transmit to %s: %s: %v", e.Addr, e.Op, e.Err)
}

func (e *TransmissionError) Unwrap() error { return e.Err }

// Deliverer sends one encoded payload.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte) error
}

// Encode serializes wa as a JSON object with keys in sorted order.
func Encode(wa model.WeightAssignment) ([]byte, error) {
	if wa == nil {
		wa = model.WeightAssignment{}
	}
	return json.Marshal(map[string]int(wa))
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (model.WeightAssignment, error) {
	var wa map[string]int
	if err := json.Unmarshal(data, &wa); err != nil {
		return nil, fmt.Errorf("decoding weight assignment: %w", err)
	}
	if wa == nil {
		return nil, errors.New("decoding weight assignment: not a JSON object")
	}
	return model.WeightAssignment(wa), nil
}

// Send encodes wa and hands it to d. Nothing is sent if encoding fails.
func Send(ctx context.Context, d Deliverer, wa model.WeightAssignment) error {
	payload, err := Encode(wa)
	if err != nil {
		return fmt.Errorf("encoding weight assignment: %w", err)
	}
	if err := d.Deliver(ctx, payload); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("weights delivered", "functions", len(wa), "bytes", len(payload))
	return nil
}

// Client delivers payloads over a fresh TCP connection each time.
type Client struct {
	Addr         string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewClient returns a Client for addr with default timeouts.
func NewClient(addr string) *Client {
	return &Client{
		Addr:         addr,
		DialTimeout:  DefaultDialTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Deliver implements Deliverer. Every failure is a *TransmissionError.
func (c *Client) Deliver(ctx context.Context, payload []byte) error {
	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return &TransmissionError{Addr: c.Addr, Op: "dial", Err: err}
	}

	if c.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout)); err != nil {
			conn.Close()
			return &TransmissionError{Addr: c.Addr, Op: "write", Err: err}
		}
	}
	if _, err := conn.Write(payload); err != nil {
		conn.Close()
		return &TransmissionError{Addr: c.Addr, Op: "write", Err: err}
	}
	if err := conn.Close(); err != nil {
		return &TransmissionError{Addr: c.Addr, Op: "close", Err: err}
	}
	return nil
}

// Receive accepts one connection from ln, reads until the peer closes it and
// decodes the payload. Cancelling ctx closes ln.
func Receive(ctx context.Context, ln net.Listener) (model.WeightAssignment, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		accepted <- result{conn, err}
	}()

	var conn net.Conn
	select {
	case <-ctx.Done():
		ln.Close()
		return nil, ctx.Err()
	case r := <-accepted:
		if r.err != nil {
			return nil, fmt.Errorf("accepting connection: %w", r.err)
		}
		conn = r.conn
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("setting read deadline: %w", err)
		}
	}
	data, err := io.ReadAll(io.LimitReader(conn, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("reading from %s: %w", conn.RemoteAddr(), err)
	}
	return Decode(data)
}
