package amqpchannel

import "amqpchannel/internal/metrics"

// beginPartial opens the single in-flight content-assembly slot. A second
// METHOD that should start content (basic.deliver/get-ok/return) while one
// is already open is a protocol violation — the broker never interleaves
// content for the same channel.
func (ch *Channel) beginPartial(kind partialKind, deliver BasicDeliver, getOk BasicGetOk) {
	if ch.partial != nil {
		ch.protocolViolation(newProtocolError("content-bearing method arrived before previous message finished"))
		return
	}
	ch.partial = &partialMessage{kind: kind, deliver: deliver, getOk: getOk}
}

func (ch *Channel) handleHeaderFrame(payload []byte) {
	if ch.partial == nil {
		ch.protocolViolation(newProtocolError("header frame with no preceding deliver/get-ok/return"))
		return
	}
	if ch.partial.header != nil {
		ch.protocolViolation(newProtocolError("header frame while previous message still expects body"))
		return
	}
	h, err := readContentHeader(payload)
	if err != nil {
		ch.protocolViolation(err)
		return
	}
	ch.partial.header = h
	if h.BodySize == 0 {
		ch.finishPartial()
	}
}

func (ch *Channel) handleBodyFrame(payload []byte) {
	p := ch.partial
	if p == nil || p.header == nil {
		ch.protocolViolation(newProtocolError("body frame with no open header"))
		return
	}
	p.body = append(p.body, payload...)
	if uint64(len(p.body)) > p.header.BodySize {
		ch.protocolViolation(newProtocolError("body exceeds declared size: got %d want %d", len(p.body), p.header.BodySize))
		return
	}
	if uint64(len(p.body)) == p.header.BodySize {
		ch.finishPartial()
	}
}

// finishPartial assembles the completed Message and routes it to whichever
// consumer is waiting for it, then clears the slot.
func (ch *Channel) finishPartial() {
	p := ch.partial
	ch.partial = nil

	var props Properties
	if p.header != nil && p.header.Properties != nil {
		props = *p.header.Properties
	}

	switch p.kind {
	case partialDeliver:
		msg := Message{
			Exchange:    p.deliver.Exchange,
			RoutingKey:  p.deliver.RoutingKey,
			Properties:  props,
			Body:        p.body,
			ConsumerTag: p.deliver.ConsumerTag,
			DeliveryTag: p.deliver.DeliveryTag,
			Redelivered: p.deliver.Redelivered,
		}
		ch.dispatchDelivery(msg)

	case partialGetOk:
		msg := Message{
			Exchange:    p.getOk.Exchange,
			RoutingKey:  p.getOk.RoutingKey,
			Properties:  props,
			Body:        p.body,
			DeliveryTag: p.getOk.DeliveryTag,
			Redelivered: p.getOk.Redelivered,
		}
		ch.resolveRPC(getResult{message: &msg, count: p.getOk.MessageCount}, nil)

	case partialReturn:
		r := p.pendingReturn
		msg := Message{
			Exchange:   r.Exchange,
			RoutingKey: r.RoutingKey,
			Properties: props,
			Body:       p.body,
		}
		ch.dispatchReturn(&PublishReturned{
			ReplyCode:  r.ReplyCode,
			ReplyText:  r.ReplyText,
			Exchange:   r.Exchange,
			RoutingKey: r.RoutingKey,
			Message:    &msg,
		})
	}
}

// getResult wraps the outcome of a basic.get RPC so the caller can tell a
// hit from an empty queue without a second return-path.
type getResult struct {
	message *Message
	count   uint32
}

func (ch *Channel) dispatchDelivery(msg Message) {
	ch.consumersMu.Lock()
	c, ok := ch.consumers[msg.ConsumerTag]
	ch.consumersMu.Unlock()
	if !ok {
		ch.protocolViolation(newProtocolError("delivery for unknown consumer tag %q", msg.ConsumerTag))
		return
	}
	metrics.DeliveriesTotal.WithLabelValues(msg.ConsumerTag).Inc()
	c.deliver(Delivery{Message: msg, channel: ch})
}

func (ch *Channel) dispatchReturn(r *PublishReturned) {
	ch.mu.Lock()
	handler := ch.returnHandler
	ch.mu.Unlock()
	if handler == nil {
		ch.log.Warn("basic.return with no handler installed", "exchange", r.Exchange, "routingKey", r.RoutingKey)
		return
	}
	handler(r)
}
