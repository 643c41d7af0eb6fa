// Package transport is the socket wrapper: a kcp session carrying
// scope-labeled frames, plus a mux fanning incoming frames out to per-scope
// channels. It moves bytes and measures ping; it holds no game logic.
package transport

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtaci/kcp-go/v5"
	"golang.org/x/crypto/pbkdf2"

	"brawl/internal/protocol"
)

var ErrClosed = errors.New("use of closed connection")

const (
	dataShards   = 10
	parityShards = 3

	// Frame layout on the kcp stream: uint16 payload length, scope byte,
	// body. Length covers scope + body.
	frameHeaderSize = 2
	maxFrameSize    = 16 * 1024

	pingInterval = time.Second
)

func blockCrypt() kcp.BlockCrypt {
	key := pbkdf2.Key([]byte("brawl arena"), []byte("brawl salt"), 1024, 32, sha1.New)
	block, err := kcp.NewAESBlockCrypt(key)
	if err != nil {
		panic(err)
	}
	return block
}

type Conn struct {
	sess *kcp.UDPSession

	writeLock sync.Mutex
	rttNanos  atomic.Int64

	die     chan struct{}
	dieOnce sync.Once
}

// Dial connects to the server. The context bounds the handshake only.
func Dial(ctx context.Context, raddr string) (*Conn, error) {
	sess, err := kcp.DialWithOptions(raddr, blockCrypt(), dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("dialing kcp %q: %w", raddr, err)
	}
	sess.SetStreamMode(true)
	sess.SetNoDelay(1, 10, 2, 1)

	if deadline, ok := ctx.Deadline(); ok {
		_ = sess.SetDeadline(deadline)
		defer func() { _ = sess.SetDeadline(time.Time{}) }()
	}

	return newConn(sess), nil
}

func newConn(sess *kcp.UDPSession) *Conn {
	return &Conn{
		sess: sess,
		die:  make(chan struct{}),
	}
}

// Send frames body under scope and writes it out. Safe for concurrent use.
func (c *Conn) Send(scope protocol.Scope, body []byte) error {
	if len(body)+1 > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", len(body)+1)
	}

	frame := make([]byte, frameHeaderSize+1+len(body))
	binary.BigEndian.PutUint16(frame, uint16(1+len(body)))
	frame[frameHeaderSize] = scope
	copy(frame[frameHeaderSize+1:], body)

	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	select {
	case <-c.die:
		return ErrClosed
	default:
	}
	_, err := c.sess.Write(frame)
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Receive blocks for the next frame.
func (c *Conn) Receive() (protocol.Scope, []byte, error) {
	var header [frameHeaderSize]byte
	_, err := io.ReadFull(c.sess, header[:])
	if err != nil {
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}
	size := binary.BigEndian.Uint16(header[:])
	if size < 1 || size > maxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes out of bounds", size)
	}

	payload := make([]byte, size)
	_, err = io.ReadFull(c.sess, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload[0], payload[1:], nil
}

// PingLoop sends a timestamped ping every interval until the context ends.
// Pongs are folded into RTT by the mux.
func (c *Conn) PingLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		ping := protocol.Ping{SentAt: time.Now().UnixNano()}
		body, err := ping.MarshalBinary()
		if err != nil {
			return err
		}
		err = c.Send(protocol.ScopePing, body)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("sending ping: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.die:
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Conn) observePong(body []byte) {
	var ping protocol.Ping
	if err := ping.UnmarshalBinary(body); err != nil {
		return
	}
	c.rttNanos.Store(time.Now().UnixNano() - ping.SentAt)
}

// RTT is the most recent measured round trip, zero before the first pong.
func (c *Conn) RTT() time.Duration {
	return time.Duration(c.rttNanos.Load())
}

func (c *Conn) Close() error {
	ran := false
	c.dieOnce.Do(func() {
		close(c.die)
		ran = true
	})
	if !ran {
		return ErrClosed
	}
	return c.sess.Close()
}

// Mux routes incoming frames to per-scope subscriber channels. Delivery is
// last-write-wins: when a subscriber's channel is full the oldest queued
// frame is dropped, which is the behavior snapshots want (latest is always
// freshest) and is harmless for the rest.
type Mux struct {
	conn     *Conn
	channels map[protocol.Scope]chan []byte
	running  atomic.Bool
}

func NewMux(conn *Conn) *Mux {
	return &Mux{
		conn:     conn,
		channels: map[protocol.Scope]chan []byte{},
	}
}

// Subscribe registers a channel for scope. Must happen before Run.
func (mux *Mux) Subscribe(scope protocol.Scope, queueSize int) <-chan []byte {
	if mux.running.Load() {
		panic("transport: cannot subscribe to scopes while mux is running")
	}
	ch := make(chan []byte, queueSize)
	mux.channels[scope] = ch
	return ch
}

// Run reads frames until the connection closes, then closes every
// subscriber channel. Pongs are consumed here.
func (mux *Mux) Run(logWarn func(msg string, args ...any)) {
	mux.running.Store(true)
	defer func() {
		for _, ch := range mux.channels {
			close(ch)
		}
		mux.running.Store(false)
	}()

	for {
		scope, body, err := mux.conn.Receive()
		if err != nil {
			select {
			case <-mux.conn.die:
			default:
				logWarn("failed to receive frame", "error", err)
			}
			return
		}

		if scope == protocol.ScopePong {
			mux.conn.observePong(body)
			continue
		}

		ch, exists := mux.channels[scope]
		if !exists {
			logWarn("no subscriber for scope, dropping frame", "scope", scope)
			continue
		}
		select {
		case ch <- body:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- body:
			default:
			}
		}
	}
}

// Listener accepts kcp sessions with the same crypt and framing as Dial.
// The client itself never listens; tests and local tooling stand up fake
// servers with it.
type Listener struct {
	ln *kcp.Listener
}

func Listen(laddr string) (*Listener, error) {
	ln, err := kcp.ListenWithOptions(laddr, blockCrypt(), dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("listening kcp %q: %w", laddr, err)
	}
	return &Listener{ln: ln}, nil
}

func (l *Listener) Addr() string { return l.ln.Addr().String() }

func (l *Listener) Accept() (*Conn, error) {
	sess, err := l.ln.AcceptKCP()
	if err != nil {
		return nil, fmt.Errorf("accepting kcp session: %w", err)
	}
	sess.SetStreamMode(true)
	sess.SetNoDelay(1, 10, 2, 1)
	return newConn(sess), nil
}

func (l *Listener) Close() error {
	return l.ln.Close()
}
