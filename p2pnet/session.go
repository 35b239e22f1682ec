// Package p2pnet implements the peer session protocol of spec.md §4.4: a
// framed-TCP session with request/response correlation, a bounded
// outbound queue, and the Connecting → Handshaking → Ready → Closed state
// machine. Grounded on the teacher's probe/peer.go (per-peer read/write
// loops, queued outbound writes) and probe/handler.go (handshake then
// dispatch), generalized from devp2p's RLPx framing to this protocol's
// wire/ codec.
package p2pnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/snap-coin/snap-coin-node/wire"
)

// State is a session's position in the lifecycle diagram of spec.md §4.4.
type State int32

const (
	StateConnecting State = iota
	StateHandshaking
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler is implemented by the node coordinator to receive unmatched
// (server-side) inbound commands and session lifecycle notifications.
// Keeping this as a narrow interface, rather than an import of package
// node, avoids an import cycle between p2pnet and node — the same
// layering the teacher keeps between probe/peer.go and probe/handler.go.
type Handler interface {
	HandleCommand(p *PeerHandle, msgID uint64, cmd *wire.Command)
	OnClose(p *PeerHandle, err error)
}

// PeerHandle represents one live session, per spec.md §4.4's PeerHandle.
type PeerHandle struct {
	RemoteAddr net.Addr
	IsClient   bool // true iff we dialed them, false iff they dialed us

	conn  net.Conn
	state int32 // atomic State

	outbound chan *wire.Message

	waitersMu sync.Mutex
	waiters   map[uint64]chan waiterResult

	nextMsgID uint64 // atomic, session-unique monotonic counter

	handler Handler
	log     nodelog.Logger

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

type waiterResult struct {
	cmd *wire.Command
	err error
}

// NewPeerHandle wraps an established TCP connection. Call Handshake, then
// Run, to bring the session to Ready and begin serving it.
func NewPeerHandle(conn net.Conn, isClient bool, handler Handler, log nodelog.Logger) *PeerHandle {
	return &PeerHandle{
		RemoteAddr: conn.RemoteAddr(),
		IsClient:   isClient,
		conn:       conn,
		state:      int32(StateConnecting),
		outbound:   make(chan *wire.Message, common.OutboundQueueSize),
		waiters:    make(map[uint64]chan waiterResult),
		handler:    handler,
		log:        log,
		done:       make(chan struct{}),
	}
}

func (p *PeerHandle) State() State { return State(atomic.LoadInt32(&p.state)) }

func (p *PeerHandle) setState(s State) { atomic.StoreInt32(&p.state, int32(s)) }

// Handshake exchanges a Ping carrying localHeight within
// common.HandshakeTimeout, per spec.md §4.4. Both sides send their own
// Ping and await the peer's Pong; failure at any step closes the session
// and returns an error, matching the "timeout -> Closed" transition.
func (p *PeerHandle) Handshake(ctx context.Context, localHeight uint64) (remoteHeight uint64, err error) {
	p.setState(StateHandshaking)

	hctx, cancel := context.WithTimeout(ctx, common.HandshakeTimeout)
	defer cancel()
	if dl, ok := hctx.Deadline(); ok {
		_ = p.conn.SetDeadline(dl)
		defer p.conn.SetDeadline(time.Time{})
	}

	id := p.allocMsgID()

	frame := wire.EncodeFrame(&wire.Message{ID: id, Command: &wire.Command{Tag: wire.TagPing, PingHeight: localHeight}})
	if _, err := p.conn.Write(frame); err != nil {
		p.Close(err)
		return 0, err
	}

	// The inbound pump isn't running yet, so the handshake reads the wire
	// directly rather than going through the waiter table: first the
	// peer's own Ping, then its Pong reply to ours (both sides run this
	// same sequence, so the two frames arrive in that order on this
	// single TCP stream). Draining our Pong here keeps it from reaching
	// readLoop once Run starts, where it would find no registered waiter
	// and fall through to HandleCommand as an unmatched command.
	msg, err := wire.ReadFrame(p.conn)
	if err != nil {
		p.Close(err)
		return 0, err
	}
	if msg.Command.Tag != wire.TagPing {
		err := fmt.Errorf("%w: expected Ping during handshake, got %s", common.ErrMalformedFrame, msg.Command.Tag)
		p.Close(err)
		return 0, err
	}
	remoteHeight = msg.Command.PingHeight

	pong := wire.EncodeFrame(&wire.Message{ID: msg.ID, Command: &wire.Command{Tag: wire.TagPong, PingHeight: localHeight}})
	if _, err := p.conn.Write(pong); err != nil {
		p.Close(err)
		return 0, err
	}

	reply, err := wire.ReadFrame(p.conn)
	if err != nil {
		p.Close(err)
		return 0, err
	}
	if reply.Command.Tag != wire.TagPong || reply.ID != id {
		err := fmt.Errorf("%w: expected Pong during handshake, got %s", common.ErrMalformedFrame, reply.Command.Tag)
		p.Close(err)
		return 0, err
	}

	select {
	case <-hctx.Done():
		err := fmt.Errorf("handshake: %w", hctx.Err())
		p.Close(err)
		return 0, err
	default:
	}

	p.setState(StateReady)
	return remoteHeight, nil
}

// Run starts the session's inbound and outbound pumps. It blocks until the
// session closes; callers typically invoke it in its own goroutine.
func (p *PeerHandle) Run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); p.readLoop() }()
	go func() { defer wg.Done(); p.writeLoop() }()
	wg.Wait()
}

func (p *PeerHandle) readLoop() {
	for {
		msg, err := wire.ReadFrame(p.conn)
		if err != nil {
			p.Close(err)
			return
		}
		if ch, ok := p.takeWaiter(msg.ID); ok {
			ch <- waiterResult{cmd: msg.Command}
			continue
		}
		p.handler.HandleCommand(p, msg.ID, msg.Command)
	}
}

func (p *PeerHandle) writeLoop() {
	for {
		select {
		case msg, ok := <-p.outbound:
			if !ok {
				return
			}
			if err := wire.WriteFrame(p.conn, msg); err != nil {
				p.Close(err)
				return
			}
		case <-p.done:
			return
		}
	}
}

// Send enqueues a fire-and-forget command (no reply expected). It never
// blocks on the socket: a full outbound queue returns ErrWriteQueueFull
// immediately, per spec.md §4.4 "the write is queued via the bounded
// outbound channel."
func (p *PeerHandle) Send(cmd *wire.Command) error {
	msg := &wire.Message{ID: p.allocMsgID(), Command: cmd}
	select {
	case p.outbound <- msg:
		return nil
	default:
		return common.ErrWriteQueueFull
	}
}

// Reply sends cmd tagged with the message_id of the request it answers.
func (p *PeerHandle) Reply(requestID uint64, cmd *wire.Command) error {
	msg := &wire.Message{ID: requestID, Command: cmd}
	select {
	case p.outbound <- msg:
		return nil
	default:
		return common.ErrWriteQueueFull
	}
}

// Request sends cmd and awaits its correlated response, racing against
// common.RequestTimeout (or ctx, whichever fires first) and PeerClosed.
func (p *PeerHandle) Request(ctx context.Context, cmd *wire.Command) (*wire.Command, error) {
	id := p.allocMsgID()
	ch := make(chan waiterResult, 1)
	p.registerWaiter(id, ch)
	defer p.removeWaiter(id)

	msg := &wire.Message{ID: id, Command: cmd}
	select {
	case p.outbound <- msg:
	default:
		return nil, common.ErrWriteQueueFull
	}

	rctx, cancel := context.WithTimeout(ctx, common.RequestTimeout)
	defer cancel()

	select {
	case res := <-ch:
		return res.cmd, res.err
	case <-rctx.Done():
		return nil, common.ErrRequestTimeout
	case <-p.done:
		return nil, common.ErrPeerClosed
	}
}

func (p *PeerHandle) allocMsgID() uint64 {
	return atomic.AddUint64(&p.nextMsgID, 1)
}

func (p *PeerHandle) registerWaiter(id uint64, ch chan waiterResult) {
	p.waitersMu.Lock()
	defer p.waitersMu.Unlock()
	p.waiters[id] = ch
}

func (p *PeerHandle) removeWaiter(id uint64) {
	p.waitersMu.Lock()
	defer p.waitersMu.Unlock()
	delete(p.waiters, id)
}

func (p *PeerHandle) takeWaiter(id uint64) (chan waiterResult, bool) {
	p.waitersMu.Lock()
	defer p.waitersMu.Unlock()
	ch, ok := p.waiters[id]
	if ok {
		delete(p.waiters, id)
	}
	return ch, ok
}

// Close tears the session down: it marks the state Closed, wakes every
// outstanding waiter with PeerClosed, and closes the underlying
// connection. It is safe to call more than once and from any goroutine.
func (p *PeerHandle) Close(cause error) error {
	p.closeOnce.Do(func() {
		p.setState(StateClosed)
		p.closeErr = cause
		close(p.done)

		p.waitersMu.Lock()
		for id, ch := range p.waiters {
			ch <- waiterResult{err: common.ErrPeerClosed}
			delete(p.waiters, id)
		}
		p.waitersMu.Unlock()

		_ = p.conn.Close()
		if p.log != nil {
			p.log.Debug("peer session closed", "remote", p.RemoteAddr, "cause", cause)
		}
		if p.handler != nil {
			p.handler.OnClose(p, cause)
		}
	})
	return p.closeErr
}

// Done returns a channel closed when the session has been torn down.
func (p *PeerHandle) Done() <-chan struct{} { return p.done }
