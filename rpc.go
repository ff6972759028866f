package amqpchannel

import (
	"fmt"
	"sync"
	"time"

	"amqpchannel/internal/metrics"
)

// pendingRPC is one outstanding synchronous method call awaiting its reply.
// AMQP lets a channel have at most one conversation in flight at a time per
// class of call, but a client is free to pipeline calls of different
// classes; replies always come back in the order the requests were sent,
// so a strict FIFO is enough to match them up without tagging frames.
type pendingRPC struct {
	result chan rpcResult
}

type rpcResult struct {
	method any
	err    error
}

type pendingRPCQueue struct {
	mu    sync.Mutex
	queue []*pendingRPC
}

func (q *pendingRPCQueue) push(p *pendingRPC) {
	q.mu.Lock()
	q.queue = append(q.queue, p)
	q.mu.Unlock()
}

// popFront removes and returns the oldest pending RPC, or nil if none is
// outstanding — the latter means a reply arrived with nothing to match it.
func (q *pendingRPCQueue) popFront() *pendingRPC {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return nil
	}
	p := q.queue[0]
	q.queue = q.queue[1:]
	return p
}

func (q *pendingRPCQueue) failAll(err error) {
	q.mu.Lock()
	pending := q.queue
	q.queue = nil
	q.mu.Unlock()
	for _, p := range pending {
		p.result <- rpcResult{err: err}
	}
}

// sendRPC writes a synchronous method and blocks until its reply (or the
// channel closing) settles it. Calling it after the channel has already
// closed fails immediately without touching the wire.
func (ch *Channel) sendRPC(m method) (any, error) {
	if ch.isClosed() {
		return nil, ErrChannelClosed
	}

	p := &pendingRPC{result: make(chan rpcResult, 1)}
	ch.pending.push(p)

	start := time.Now()
	if err := ch.writeMethod(m); err != nil {
		return nil, err
	}

	res := <-p.result
	metrics.RPCDuration.WithLabelValues(fmt.Sprintf("%T", m)).Observe(time.Since(start).Seconds())
	return res.method, res.err
}

// dispatchMethod routes one decoded inbound method: synchronous replies go
// to the head of the pending-RPC FIFO, everything else (deliveries,
// returns, flow control, server-initiated close) is handled directly.
func (ch *Channel) dispatchMethod(m method) {
	switch v := m.(type) {
	case ChannelClose:
		ch.handleServerClose(v)
		return
	case ChannelFlow:
		ch.handleFlow(v)
		return
	case BasicCancel:
		ch.handleServerCancel(v)
		return
	case BasicDeliver:
		ch.beginPartial(partialDeliver, v, BasicGetOk{})
		return
	case BasicGetOk:
		ch.beginPartial(partialGetOk, BasicDeliver{}, v)
		return
	case BasicGetEmpty:
		ch.resolveRPC(m, nil)
		return
	case BasicReturn:
		ch.beginPartial(partialReturn, BasicDeliver{}, BasicGetOk{})
		ch.partial.pendingReturn = &v
		return
	case BasicAck:
		if !ch.unconfirmed.resolve(v.DeliveryTag, v.Multiple, nil) {
			ch.protocolViolation(newProtocolError("basic.ack for unknown delivery tag %d", v.DeliveryTag))
		}
		return
	case BasicNack:
		if !ch.unconfirmed.resolve(v.DeliveryTag, v.Multiple, &PublishNacked{DeliveryTag: v.DeliveryTag}) {
			ch.protocolViolation(newProtocolError("basic.nack for unknown delivery tag %d", v.DeliveryTag))
		}
		return
	}

	// everything else is a reply to whatever RPC is at the head of the queue
	ch.resolveRPC(m, nil)
}

func (ch *Channel) resolveRPC(m any, err error) {
	p := ch.pending.popFront()
	if p == nil {
		ch.log.Warn("reply with no matching pending call", "method", m)
		return
	}
	p.result <- rpcResult{method: m, err: err}
}

func (ch *Channel) handleFlow(f ChannelFlow) {
	// Nothing upstream currently throttles publishing on flow=false; we
	// still ack it so the broker's flow-control handshake completes.
	if err := ch.writeMethod(ChannelFlowOk{Active: f.Active}); err != nil {
		ch.log.Warn("failed to ack channel.flow", "error", err)
	}
}

// handleServerCancel handles a broker-initiated basic.cancel: the consumer
// is gone (queue deleted out from under it, for instance). The callback is
// notified exactly once via onCancel and never replayed as a fake message.
func (ch *Channel) handleServerCancel(c BasicCancel) {
	ch.consumersMu.Lock()
	cons, ok := ch.consumers[c.ConsumerTag]
	delete(ch.consumers, c.ConsumerTag)
	ch.consumersMu.Unlock()

	if !c.NoWait {
		if err := ch.writeMethod(BasicCancelOk{ConsumerTag: c.ConsumerTag}); err != nil {
			ch.log.Warn("failed to ack server-initiated basic.cancel", "error", err)
		}
	}
	if ok {
		cons.cancel(nil)
	}
}

func (ch *Channel) handleServerClose(c ChannelClose) {
	_ = ch.writeMethod(ChannelCloseOk{})
	ch.finalize(&ChannelError{Code: c.ReplyCode, Text: c.ReplyText, ClassID: c.ClassID, MethodID: c.MethodID})
}
