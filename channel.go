package amqpchannel

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"amqpchannel/internal/metrics"
)

type channelState int32

const (
	channelOpening channelState = iota
	channelOpen
	channelClosing
	channelClosed
)

// partialMessage is the single in-flight inbound content assembly slot. A
// basic.deliver, basic.get-ok or basic.return method opens it, the HEADER
// frame that follows sets its properties and body size, BODY frames append
// to it, and the slot is cleared and dispatched once BodySize bytes have
// accumulated. Only one can be open at a time per channel — a second
// content-bearing method or a second HEADER before the first is finished
// is a protocol error.
type partialMessage struct {
	kind          partialKind
	header        *contentHeader
	body          []byte
	deliver       BasicDeliver
	getOk         BasicGetOk
	pendingReturn *BasicReturn
}

type partialKind int

const (
	partialNone partialKind = iota
	partialDeliver
	partialGetOk
	partialReturn
)

// publishFuture settles when a publish under confirm mode is acked or
// nacked by the broker.
type publishFuture struct {
	done    chan struct{}
	err     error
	started time.Time
}

func (f *publishFuture) resolve(err error) {
	f.err = err
	metrics.ConfirmDuration.Observe(time.Since(f.started).Seconds())
	close(f.done)
}

// Channel is one AMQP channel: a logical, independently-sequenced stream of
// methods and content multiplexed over a shared Connection. Its lifecycle
// runs Opening -> Open -> Closing -> Closed and never reopens.
type Channel struct {
	id   uint16
	conn Connection
	log  *slog.Logger

	mu          sync.Mutex
	state       channelState
	closeErr    error
	closed      chan struct{}
	closeOnce   sync.Once

	pending pendingRPCQueue

	consumersMu sync.Mutex
	consumers   map[string]*Consumer

	confirmMu       sync.Mutex
	confirmMode     bool
	nextDeliveryTag uint64
	unconfirmed     *unconfirmedSet

	returnHandler func(*PublishReturned)

	partial *partialMessage

	scratch bytes.Buffer
}

func newChannel(id uint16, conn Connection, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		id:          id,
		conn:        conn,
		log:         log.With("component", "amqpchannel", "channel", id),
		state:       channelOpening,
		closed:      make(chan struct{}),
		consumers:   make(map[string]*Consumer),
		unconfirmed: newUnconfirmedSet(),
	}
}

// OpenChannel performs the channel.open/open-ok handshake over conn and
// returns a ready-to-use Channel. Callers are expected to have already
// allocated a unique id for this connection.
func OpenChannel(id uint16, conn Connection, log *slog.Logger) (*Channel, error) {
	ch := newChannel(id, conn, log)
	res, err := ch.sendRPC(methodChannelOpenT{})
	if err != nil {
		return nil, err
	}
	if _, ok := res.(methodChannelOpenOkT); !ok {
		return nil, newProtocolError("unexpected reply to channel.open: %T", res)
	}
	ch.mu.Lock()
	ch.state = channelOpen
	ch.mu.Unlock()
	metrics.ChannelsOpen.Inc()
	ch.log.Debug("channel open")
	return ch, nil
}

// SetReturnHandler installs the callback invoked for basic.return. Publishes
// made with mandatory=true that the broker could not route arrive here,
// never through the publish call's own return value.
func (ch *Channel) SetReturnHandler(fn func(*PublishReturned)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.returnHandler = fn
}

func (ch *Channel) isClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state == channelClosed
}

// Done returns a channel closed once this Channel has transitioned to
// Closed, for callers that want to select on channel lifetime.
func (ch *Channel) Done() <-chan struct{} {
	return ch.closed
}

// Err returns the reason the channel closed, or nil if it is still open.
func (ch *Channel) Err() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closeErr
}

// Close performs a graceful client-initiated channel.close/close-ok
// handshake. Idempotent: closing an already-closed channel is a no-op.
func (ch *Channel) Close() error {
	return ch.closeWithReason(&ChannelClosedError{}, true)
}

func (ch *Channel) closeWithReason(reason error, sendClose bool) error {
	ch.mu.Lock()
	if ch.state == channelClosed {
		ch.mu.Unlock()
		return nil
	}
	wasOpen := ch.state == channelOpen
	ch.state = channelClosing
	ch.mu.Unlock()

	if sendClose && wasOpen {
		_, err := ch.sendRPC(ChannelClose{ReplyCode: replySuccess, ReplyText: "Normal shutdown"})
		if err != nil {
			ch.log.Warn("channel.close rpc failed", "error", err)
		}
	}

	ch.finalize(reason)
	return nil
}

// finalize transitions to Closed, fails every pending RPC and unconfirmed
// publish, and releases the channel id back to the connection. Safe to call
// more than once; only the first call has effect.
func (ch *Channel) finalize(reason error) {
	ch.closeOnce.Do(func() {
		ch.mu.Lock()
		wasOpen := ch.state == channelOpen || ch.state == channelClosing
		ch.state = channelClosed
		ch.closeErr = reason
		ch.mu.Unlock()
		if wasOpen {
			metrics.ChannelsOpen.Dec()
		}

		ch.pending.failAll(reason)
		ch.unconfirmed.failAll(reason)

		ch.consumersMu.Lock()
		for _, c := range ch.consumers {
			c.cancel(reason)
		}
		ch.consumersMu.Unlock()

		ch.conn.ReleaseChannel(ch.id)
		close(ch.closed)
		ch.log.Debug("channel closed", "reason", reason)
	})
}

// deliver routes one inbound frame addressed to this channel. It is called
// by whatever demultiplexes frames off the underlying connection.
func (ch *Channel) deliver(f *Frame) {
	switch f.Type {
	case FrameMethod:
		ch.handleMethodFrame(f.Payload)
	case FrameHeader:
		ch.handleHeaderFrame(f.Payload)
	case FrameBody:
		ch.handleBodyFrame(f.Payload)
	case FrameHeartbeat:
		// nothing to do at the channel layer
	default:
		ch.protocolViolation(newProtocolError("unexpected frame type %d on channel", f.Type))
	}
}

func (ch *Channel) handleMethodFrame(payload []byte) {
	m, err := decodeMethod(payload)
	if err != nil {
		ch.protocolViolation(err)
		return
	}
	ch.dispatchMethod(m)
}

// protocolViolation is raised on malformed or out-of-sequence inbound
// frames; it tears the channel down rather than trying to resynchronize.
// Per the protocol, the peer is told via channel.close(505) before the
// channel is finalized locally — otherwise the broker is left believing the
// channel is still open.
func (ch *Channel) protocolViolation(err error) {
	ch.log.Error("protocol violation", "error", err)
	if werr := ch.writeMethod(ChannelClose{ReplyCode: replyUnexpectedFrame, ReplyText: err.Error()}); werr != nil {
		ch.log.Warn("failed to send channel.close for protocol violation", "error", werr)
	}
	ch.finalize(err)
}

// writeMethod encodes and writes a single METHOD frame.
func (ch *Channel) writeMethod(m method) error {
	ch.scratch.Reset()
	if err := writeMethodFrame(&ch.scratch, m); err != nil {
		return err
	}
	payload := append([]byte(nil), ch.scratch.Bytes()...)
	return ch.conn.WriteFrames(EncodeFrame(FrameMethod, ch.id, payload))
}
