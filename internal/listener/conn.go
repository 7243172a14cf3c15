// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/dax8it/openclaw-bridge/internal/authcheck"
	"github.com/dax8it/openclaw-bridge/internal/connmgr"
	"github.com/dax8it/openclaw-bridge/internal/envelope"
	"github.com/dax8it/openclaw-bridge/internal/eventring"
	"github.com/dax8it/openclaw-bridge/internal/queuestore"
	"github.com/dax8it/openclaw-bridge/internal/registry"
	"github.com/dax8it/openclaw-bridge/internal/router"
	"github.com/dax8it/openclaw-bridge/lib/clock"
	"github.com/dax8it/openclaw-bridge/lib/netutil"
)

// authState is a tagged variant of the connection's authentication
// state — {Unauth, Authed{clientId}} rather than a boolean flag, so an
// authed dispatch can never run against a zero-value client id.
// unauthState and authedState are the only implementations.
type authState interface {
	isAuthState()
}

type unauthState struct{}

func (unauthState) isAuthState() {}

type authedState struct {
	clientID string
}

func (authedState) isAuthState() {}

// outboundDeliveryQueueSize bounds the per-connection outbound queue
// used for fanned-out message frames (see router.Router and
// DESIGN.md). It is deliberately independent of the queuestore
// recipient-offline limit: this bounds in-memory backlog for one live
// socket, not the in-memory per-recipient offline backlog.
const outboundDeliveryQueueSize = 256

// outboundAckQueueSize bounds direct responses to the connection's own
// requests (auth_ok, pong, whoami, sent, error), plus the backlog
// replayed on auth, which handleAuth feeds in with blocking sends.
// Responses are never dropped silently; a full ack queue on a response
// means the client is not reading its socket, and the connection is
// treated as dead.
const outboundAckQueueSize = 64

// conn is one accepted stream connection and its protocol state
// machine. Exactly one goroutine runs readLoop and exactly one runs
// writeLoop; they communicate only through the outbound channels and
// the closed channel, never by sharing conn.state without the mutex.
type conn struct {
	netConn net.Conn
	logger  *slog.Logger
	clk     clock.Clock

	maxFrameBytes int
	reg           *registry.Registry
	conns         *connmgr.Manager
	queue         *queuestore.Store
	route         *router.Router
	ring          *eventring.Ring

	mu    sync.Mutex
	state authState

	deliveries chan []byte
	acks       chan []byte
	closed     chan struct{}
	closeOnce  sync.Once
}

// newConn constructs a conn in the initial unauth state.
func newConn(nc net.Conn, logger *slog.Logger, clk clock.Clock, maxFrameBytes int, reg *registry.Registry, conns *connmgr.Manager, queue *queuestore.Store, route *router.Router, ring *eventring.Ring) *conn {
	return &conn{
		netConn:       nc,
		logger:        logger,
		clk:           clk,
		maxFrameBytes: maxFrameBytes,
		reg:           reg,
		conns:         conns,
		queue:         queue,
		route:         route,
		ring:          ring,
		state:         unauthState{},
		deliveries:    make(chan []byte, outboundDeliveryQueueSize),
		acks:          make(chan []byte, outboundAckQueueSize),
		closed:        make(chan struct{}),
	}
}

// Deliver implements connmgr.Connection. It never blocks: a full
// outbound delivery queue drops this one envelope and the caller
// (router) is responsible for logging it.
func (c *conn) Deliver(env envelope.Envelope) bool {
	frame, err := json.Marshal(messageFrame{Action: actionMessage, Envelope: env})
	if err != nil {
		return false
	}
	select {
	case c.deliveries <- frame:
		return true
	default:
		return false
	}
}

// serve runs the connection to completion: it starts the write loop,
// runs the read loop on the calling goroutine, then tears down
// registration and closes the socket. serve returns once both loops
// have stopped.
func (c *conn) serve() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	c.readLoop()
	c.shutdown()
	wg.Wait()
}

// shutdown unregisters the connection (if authed) and closes the
// underlying socket exactly once, unblocking the write loop.
func (c *conn) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		st := c.state
		c.mu.Unlock()
		if authed, ok := st.(authedState); ok {
			c.conns.Unregister(authed.clientID, c)
		}
		close(c.closed)
		_ = c.netConn.Close()
	})
}

// writeLoop is the connection's single writer: every frame, whether a
// direct ack or a fanned-out delivery, is serialized onto the socket
// here so the two producers never interleave partial writes. The one
// exception is auth_failed, which handleAuth writes directly just
// before closing the connection.
//
// Acks are always drained ahead of deliveries (the first select below
// checks acks alone, non-blocking, before falling into the combined
// select). Together with handleAuth enqueueing the replayed backlog
// on the ack channel before registering the connection for live
// fanout, queued envelopes drained on auth are written before any
// further delivery to that connection.
func (c *conn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.acks:
			if !c.write(frame) {
				return
			}
			continue
		default:
		}

		select {
		case <-c.closed:
			return
		case frame := <-c.acks:
			if !c.write(frame) {
				return
			}
		case frame := <-c.deliveries:
			if !c.write(frame) {
				return
			}
		}
	}
}

func (c *conn) write(frame []byte) bool {
	if _, err := c.netConn.Write(append(frame, '\n')); err != nil {
		if !netutil.IsExpectedCloseError(err) {
			c.logger.Warn("connection write failed", "error", err)
		}
		c.shutdown()
		return false
	}
	return true
}

// readLoop scans newline-delimited frames until the connection closes
// or a buffer_exceeded violation forces it closed. It dispatches each
// parsed frame according to the current auth state.
func (c *conn) readLoop() {
	scanner := bufio.NewScanner(c.netConn)
	scanner.Buffer(make([]byte, 0, 4096), 2*c.maxFrameBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) > c.maxFrameBytes {
			c.sendAck(errorFrame{Action: actionError, Error: errMessageTooBig})
			continue
		}

		var in inboundFrame
		if err := json.Unmarshal(bytes.TrimSpace(line), &in); err != nil {
			c.sendAck(errorFrame{Action: actionError, Error: errInvalidJSON})
			continue
		}
		c.dispatch(in)
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			c.ring.Warn("connection_buffer_exceeded", "connection exceeded max buffered frame size, closing", nil)
		} else if !netutil.IsExpectedCloseError(err) {
			c.logger.Warn("connection read failed", "error", err)
		}
	}
}

// sendAck enqueues a direct-response frame. Ack frames are never
// dropped on a healthy connection; if the ack queue is ever full the
// connection is treated as unresponsive and torn down rather than
// silently discarding a reply to the client's own request.
func (c *conn) sendAck(v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.acks <- frame:
	case <-c.closed:
	default:
		c.ring.Warn("connection_ack_queue_full", "client not draining its socket, closing", nil)
		c.shutdown()
	}
}

// dispatch routes one parsed inbound frame according to the current
// auth state.
func (c *conn) dispatch(in inboundFrame) {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	if _, ok := st.(unauthState); ok {
		if in.Action != actionAuth {
			c.sendAck(errorFrame{Action: actionError, Error: errAuthRequired})
			return
		}
		c.handleAuth(in)
		return
	}

	authed := st.(authedState)
	switch in.Action {
	case actionPing:
		c.sendAck(pongFrame{Action: actionPong, Ts: c.clk.Now().UTC()})
	case actionWhoami:
		c.handleWhoami(authed)
	case actionSend:
		c.handleSend(authed, in)
	default:
		c.sendAck(errorFrame{Action: actionError, Error: errUnknownAction})
	}
}

// handleAuth processes an auth frame while unauth. On success it
// transitions to authedState, registers the connection, and drains
// any envelopes queued for this client while it was offline. On
// failure it replies auth_failed and closes the connection: a failed
// auth attempt is itself the terminal event for this connection's
// lifetime.
func (c *conn) handleAuth(in inboundFrame) {
	client, exists := c.reg.Lookup(in.ClientID)
	storedHash := ""
	if exists {
		storedHash = client.KeyHash
	}
	if !authcheck.Verify(in.APIKey, storedHash) {
		// auth_failed is written straight to the socket rather than
		// queued for writeLoop: shutdown closes the socket right after,
		// and a queued frame could be discarded before writeLoop
		// reaches it.
		if frame, err := json.Marshal(authFailedFrame{Action: actionAuthFailed}); err == nil {
			_, _ = c.netConn.Write(append(frame, '\n'))
		}
		c.ring.Warn("auth_failed", "client authentication failed", map[string]any{"clientId": in.ClientID})
		c.shutdown()
		return
	}

	c.mu.Lock()
	c.state = authedState{clientID: client.ID}
	c.mu.Unlock()

	// The drained backlog is replayed on the same ack channel as
	// auth_ok, not handed through Deliver, and the connection is only
	// registered for live fanout once every replayed frame is already
	// queued on that channel: this is what lets writeLoop's ack-first
	// priority (see writeLoop) guarantee the backlog is written before
	// any envelope delivered after this point.
	queued := c.queue.Drain(client.ID)
	c.sendAck(authOkFrame{Action: actionAuthOk, ClientID: client.ID, Queued: len(queued), Ts: c.clk.Now().UTC()})
	for _, env := range queued {
		frame, err := json.Marshal(messageFrame{Action: actionMessage, Envelope: env})
		if err != nil {
			continue
		}
		// Blocking send: the backlog can be longer than the ack queue,
		// and writeLoop drains that queue concurrently.
		select {
		case c.acks <- frame:
		case <-c.closed:
			return
		}
	}
	c.ring.Info("auth_ok", "client authenticated", map[string]any{"clientId": client.ID, "queued": len(queued)})

	c.conns.Register(client.ID, c)
}

func (c *conn) handleWhoami(authed authedState) {
	client, _ := c.reg.Lookup(authed.clientID)
	c.sendAck(whoamiFrame{
		Action:    actionWhoami,
		ClientID:  client.ID,
		CanSendTo: append([]string(nil), client.DestAllowlist...),
		Ts:        c.clk.Now().UTC(),
	})
}

// handleSend validates a send frame against the registry and the
// sender's allowlist, builds the server-assigned envelope, and routes
// it, replying with a sent ack.
func (c *conn) handleSend(authed authedState, in inboundFrame) {
	if in.To == "" {
		c.sendAck(errorFrame{Action: actionError, Error: errMissingTo})
		return
	}
	if !c.reg.Exists(in.To) {
		c.sendAck(errorFrame{Action: actionError, Error: errUnknownTarget})
		return
	}
	sender, _ := c.reg.Lookup(authed.clientID)
	if !sender.CanSendTo(in.To) {
		c.sendAck(errorFrame{Action: actionError, Error: errRouteNotAllow})
		return
	}

	env := envelope.Build(c.clk, authed.clientID, envelope.Request{
		To:            in.To,
		Type:          in.Type,
		Payload:       in.Payload,
		ID:            in.ID,
		CorrelationID: in.CorrelationID,
	})
	result := c.route.Route(env)
	c.sendAck(sentFrame{
		Action:      actionSent,
		ID:          env.ID,
		DeliveredTo: result.DeliveredTo,
		Queued:      result.Queued,
		Ts:          env.Timestamp,
	})
}
