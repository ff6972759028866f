package amqpchannel

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"amqpchannel/internal/metrics"

	"github.com/google/uuid"
)

// LoopbackBroker is a minimal in-process AMQP peer: just enough exchange
// routing, queue storage, and consumer delivery to drive a Channel end to
// end without a socket. It exists for the example commands and for tests;
// it is not a substitute for a real broker and does not persist anything
// or enforce most of the arguments it accepts.
type LoopbackBroker struct {
	frameMax uint32
	log      *slog.Logger

	mu        sync.Mutex
	queues    map[string]*brokerQueue
	exchanges map[string]*brokerExchange
	channels  map[uint16]*brokerChannel
	live      map[uint16]*Channel
}

type brokerQueue struct {
	name      string
	messages  []Message
	consumers []*brokerConsumer
	round     int
}

type brokerConsumer struct {
	tag       string
	channelID uint16
	noAck     bool
}

type brokerExchange struct {
	kind     string
	bindings []brokerBinding
}

type brokerBinding struct {
	queue      string
	routingKey string
}

// brokerChannel is the broker's own view of one channel: its inbound
// content-assembly slot (for publishes arriving from the client) and
// whether it has selected confirm mode.
type brokerChannel struct {
	id          uint16
	confirmMode bool
	deliveryTag uint64
	partial     *brokerPartial
}

type brokerPartial struct {
	publish BasicPublish
	header  *contentHeader
	body    []byte
}

// NewLoopbackBroker creates a broker advertising the given frame_max and
// pre-populates the built-in unnamed direct exchange, which routes by
// routing key interpreted as a queue name.
func NewLoopbackBroker(frameMax uint32, log *slog.Logger) *LoopbackBroker {
	if log == nil {
		log = slog.Default()
	}
	b := &LoopbackBroker{
		frameMax:  frameMax,
		log:       log.With("component", "loopback-broker"),
		queues:    make(map[string]*brokerQueue),
		exchanges: make(map[string]*brokerExchange),
		channels:  make(map[uint16]*brokerChannel),
		live:      make(map[uint16]*Channel),
	}
	b.exchanges[""] = &brokerExchange{kind: "direct"}
	return b
}

// connHandle adapts one channel's view of the broker to the Connection
// interface; every OpenChannel call gets its own so ReleaseChannel knows
// which id to free.
type connHandle struct {
	broker *LoopbackBroker
	id     uint16
}

func (h *connHandle) FrameMax() uint32 { return h.broker.frameMax }

func (h *connHandle) ReleaseChannel(id uint16) {
	h.broker.mu.Lock()
	delete(h.broker.channels, id)
	h.broker.mu.Unlock()
}

func (h *connHandle) WriteFrames(payloads ...[]byte) error {
	for _, p := range payloads {
		f, _, err := DecodeFrame(p)
		if err != nil {
			return err
		}
		h.broker.handleFrame(h.id, f)
	}
	return nil
}

// OpenChannel performs the open handshake for a new channel id against this
// broker and returns the ready-to-use Channel. The handshake itself is the
// same one any real Connection goes through; see the package-level
// OpenChannel.
func (b *LoopbackBroker) OpenChannel(id uint16, log *slog.Logger) (*Channel, error) {
	handle := &connHandle{broker: b, id: id}

	b.mu.Lock()
	b.channels[id] = &brokerChannel{id: id}
	b.mu.Unlock()

	// live must be populated before the handshake RPC, since the broker
	// replies to channel.open by looking the channel up here.
	ch := newChannel(id, handle, log)
	b.mu.Lock()
	b.live[id] = ch
	b.mu.Unlock()

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
	return ch, nil
}

func (b *LoopbackBroker) handleFrame(channelID uint16, f *Frame) {
	b.mu.Lock()
	live := b.live[channelID]
	b.mu.Unlock()
	if live == nil {
		return
	}

	switch f.Type {
	case FrameMethod:
		m, err := decodeMethod(f.Payload)
		if err != nil {
			b.log.Error("undecodable method from client", "error", err)
			return
		}
		b.handleMethod(channelID, live, m)
	case FrameHeader:
		b.handleHeader(channelID, live, f.Payload)
	case FrameBody:
		b.handleBody(channelID, live, f.Payload)
	}
}

func (b *LoopbackBroker) reply(channelID uint16, target *Channel, m method) {
	buf := &bytes.Buffer{}
	if err := writeMethodFrame(buf, m); err != nil {
		b.log.Error("failed to encode broker reply", "error", err)
		return
	}
	frame, _, err := DecodeFrame(EncodeFrame(FrameMethod, channelID, buf.Bytes()))
	if err != nil {
		b.log.Error("failed to round-trip broker reply frame", "error", err)
		return
	}
	target.deliver(frame)
}

func (b *LoopbackBroker) handleMethod(channelID uint16, target *Channel, m method) {
	b.mu.Lock()
	bc := b.channels[channelID]
	b.mu.Unlock()

	switch v := m.(type) {
	case methodChannelOpenT:
		b.reply(channelID, target, methodChannelOpenOkT{})

	case ChannelClose:
		b.reply(channelID, target, ChannelCloseOk{})

	case ExchangeDeclare:
		b.mu.Lock()
		if _, ok := b.exchanges[v.Exchange]; !ok {
			kind := v.Type
			if kind == "" {
				kind = "direct"
			}
			b.exchanges[v.Exchange] = &brokerExchange{kind: kind}
		}
		b.mu.Unlock()
		b.reply(channelID, target, ExchangeDeclareOk{})

	case ExchangeDelete:
		b.mu.Lock()
		delete(b.exchanges, v.Exchange)
		b.mu.Unlock()
		b.reply(channelID, target, ExchangeDeleteOk{})

	case ExchangeBind:
		b.mu.Lock()
		ex := b.exchanges[v.Destination]
		if ex != nil {
			ex.bindings = append(ex.bindings, brokerBinding{queue: v.Source, routingKey: v.RoutingKey})
		}
		b.mu.Unlock()
		b.reply(channelID, target, ExchangeBindOk{})

	case ExchangeUnbind:
		b.reply(channelID, target, ExchangeUnbindOk{})

	case QueueDeclare:
		b.mu.Lock()
		name := v.Queue
		if name == "" {
			name = "amq.gen-" + uuid.NewString()
		}
		q, ok := b.queues[name]
		if !ok {
			q = &brokerQueue{name: name}
			b.queues[name] = q
		}
		count := uint32(len(q.messages))
		consumers := uint32(len(q.consumers))
		b.mu.Unlock()
		b.reply(channelID, target, QueueDeclareOk{Queue: name, MessageCount: count, ConsumerCount: consumers})

	case QueueBind:
		b.mu.Lock()
		ex, ok := b.exchanges[v.Exchange]
		if !ok {
			ex = &brokerExchange{kind: "direct"}
			b.exchanges[v.Exchange] = ex
		}
		ex.bindings = append(ex.bindings, brokerBinding{queue: v.Queue, routingKey: v.RoutingKey})
		b.mu.Unlock()
		b.reply(channelID, target, QueueBindOk{})

	case QueueUnbind:
		b.mu.Lock()
		if ex, ok := b.exchanges[v.Exchange]; ok {
			kept := ex.bindings[:0]
			for _, bind := range ex.bindings {
				if bind.queue != v.Queue || bind.routingKey != v.RoutingKey {
					kept = append(kept, bind)
				}
			}
			ex.bindings = kept
		}
		b.mu.Unlock()
		b.reply(channelID, target, QueueUnbindOk{})

	case QueuePurge:
		b.mu.Lock()
		var n uint32
		if q, ok := b.queues[v.Queue]; ok {
			n = uint32(len(q.messages))
			q.messages = nil
		}
		b.mu.Unlock()
		b.reply(channelID, target, QueuePurgeOk{MessageCount: n})

	case QueueDelete:
		b.mu.Lock()
		var n uint32
		if q, ok := b.queues[v.Queue]; ok {
			n = uint32(len(q.messages))
			delete(b.queues, v.Queue)
		}
		b.mu.Unlock()
		b.reply(channelID, target, QueueDeleteOk{MessageCount: n})

	case BasicPublish:
		b.startPublish(channelID, v)

	case BasicQos:
		b.reply(channelID, target, BasicQosOk{})

	case BasicConsume:
		tag := v.ConsumerTag
		if tag == "" {
			tag = "ctag-" + uuid.NewString()
		}
		b.mu.Lock()
		q, ok := b.queues[v.Queue]
		if !ok {
			q = &brokerQueue{name: v.Queue}
			b.queues[v.Queue] = q
		}
		q.consumers = append(q.consumers, &brokerConsumer{tag: tag, channelID: channelID, noAck: v.NoAck})
		b.mu.Unlock()
		b.reply(channelID, target, BasicConsumeOk{ConsumerTag: tag})
		b.drainQueue(v.Queue)

	case BasicCancel:
		b.mu.Lock()
		for _, q := range b.queues {
			kept := q.consumers[:0]
			for _, c := range q.consumers {
				if c.tag != v.ConsumerTag {
					kept = append(kept, c)
				}
			}
			q.consumers = kept
		}
		b.mu.Unlock()
		b.reply(channelID, target, BasicCancelOk{ConsumerTag: v.ConsumerTag})

	case BasicGet:
		b.mu.Lock()
		q, ok := b.queues[v.Queue]
		var msg Message
		var hasMsg bool
		if ok && len(q.messages) > 0 {
			msg = q.messages[0]
			q.messages = q.messages[1:]
			hasMsg = true
		}
		remaining := 0
		if ok {
			remaining = len(q.messages)
		}
		b.mu.Unlock()
		if !hasMsg {
			b.reply(channelID, target, BasicGetEmpty{})
			return
		}
		b.deliverAsGetOk(channelID, target, msg, uint32(remaining))

	case BasicAck, BasicNack, BasicReject:
		// Unacked tracking is not modeled; the loopback always considers
		// a delivery settled once handed to the client.

	case BasicRecover:
		b.reply(channelID, target, BasicRecoverOk{})

	case ConfirmSelect:
		if bc != nil {
			bc.confirmMode = true
		}
		b.reply(channelID, target, ConfirmSelectOk{})

	case TxSelect:
		b.reply(channelID, target, TxSelectOk{})
	case TxCommit:
		b.reply(channelID, target, TxCommitOk{})
	case TxRollback:
		b.reply(channelID, target, TxRollbackOk{})

	default:
		b.log.Warn("loopback broker received unhandled method", "method", fmt.Sprintf("%T", v))
	}
}

func (b *LoopbackBroker) handleHeader(channelID uint16, target *Channel, payload []byte) {
	h, err := readContentHeader(payload)
	if err != nil {
		b.log.Error("bad content header from client", "error", err)
		return
	}
	b.mu.Lock()
	bc := b.channels[channelID]
	if bc != nil && bc.partial != nil {
		bc.partial.header = h
	}
	finishNow := bc != nil && bc.partial != nil && h.BodySize == 0
	b.mu.Unlock()
	if finishNow {
		b.finishPublish(channelID, target)
	}
}

func (b *LoopbackBroker) handleBody(channelID uint16, target *Channel, payload []byte) {
	b.mu.Lock()
	bc := b.channels[channelID]
	var finish bool
	if bc != nil && bc.partial != nil {
		bc.partial.body = append(bc.partial.body, payload...)
		if bc.partial.header != nil && uint64(len(bc.partial.body)) >= bc.partial.header.BodySize {
			finish = true
		}
	}
	b.mu.Unlock()
	if finish {
		b.finishPublish(channelID, target)
	}
}

// basic.publish itself just opens the broker's own partial slot; routing
// happens once the header and body have both arrived.
func (b *LoopbackBroker) startPublish(channelID uint16, pub BasicPublish) {
	b.mu.Lock()
	if bc, ok := b.channels[channelID]; ok {
		bc.partial = &brokerPartial{publish: pub}
	}
	b.mu.Unlock()
}

func (b *LoopbackBroker) finishPublish(channelID uint16, target *Channel) {
	b.mu.Lock()
	bc := b.channels[channelID]
	if bc == nil || bc.partial == nil {
		b.mu.Unlock()
		return
	}
	p := bc.partial
	bc.partial = nil
	var props Properties
	if p.header != nil && p.header.Properties != nil {
		props = *p.header.Properties
	}
	msg := Message{Exchange: p.publish.Exchange, RoutingKey: p.publish.RoutingKey, Mandatory: p.publish.Mandatory, Properties: props, Body: p.body}

	var confirmTag uint64
	confirming := bc.confirmMode
	if confirming {
		bc.deliveryTag++
		confirmTag = bc.deliveryTag
	}
	b.mu.Unlock()

	routed := b.route(msg)
	if !routed && msg.Mandatory {
		b.reply(channelID, target, BasicReturn{ReplyCode: 312, ReplyText: "NO_ROUTE", Exchange: msg.Exchange, RoutingKey: msg.RoutingKey})
		// a return still carries its own content frames
		b.sendContent(channelID, target, classBasic, &props, msg.Body)
	}
	if confirming {
		b.reply(channelID, target, BasicAck{DeliveryTag: confirmTag, Multiple: false})
	}
}

// route delivers msg to every queue bound to its exchange/routing key,
// enqueuing for later pickup if nothing is consuming yet. Returns whether
// at least one queue matched.
func (b *LoopbackBroker) route(msg Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	var targets []string
	if msg.Exchange == "" {
		targets = []string{msg.RoutingKey}
	} else if ex, ok := b.exchanges[msg.Exchange]; ok {
		for _, bind := range ex.bindings {
			if matchRoutingKey(ex.kind, bind.routingKey, msg.RoutingKey) {
				targets = append(targets, bind.queue)
			}
		}
	}

	matched := false
	for _, qname := range targets {
		q, ok := b.queues[qname]
		if !ok {
			continue
		}
		matched = true
		q.messages = append(q.messages, msg)
	}
	for _, qname := range targets {
		go b.drainQueue(qname)
	}
	return matched
}

func matchRoutingKey(kind, bindingKey, routingKey string) bool {
	switch kind {
	case "fanout":
		return true
	case "topic":
		return matchTopic(bindingKey, routingKey)
	default: // direct
		return bindingKey == routingKey
	}
}

func matchTopic(pattern, key string) bool {
	pp := strings.Split(pattern, ".")
	kp := strings.Split(key, ".")
	i, j := 0, 0
	for i < len(pp) {
		switch pp[i] {
		case "#":
			if i == len(pp)-1 {
				return true
			}
			for j <= len(kp) {
				if matchTopic(strings.Join(pp[i+1:], "."), strings.Join(kp[j:], ".")) {
					return true
				}
				j++
			}
			return false
		case "*":
			if j >= len(kp) {
				return false
			}
			i++
			j++
		default:
			if j >= len(kp) || kp[j] != pp[i] {
				return false
			}
			i++
			j++
		}
	}
	return j == len(kp)
}

// drainQueue hands queued messages to consumers round-robin while both
// exist.
func (b *LoopbackBroker) drainQueue(name string) {
	for {
		b.mu.Lock()
		q, ok := b.queues[name]
		if !ok || len(q.messages) == 0 || len(q.consumers) == 0 {
			b.mu.Unlock()
			return
		}
		c := q.consumers[q.round%len(q.consumers)]
		q.round++
		msg := q.messages[0]
		q.messages = q.messages[1:]
		target := b.live[c.channelID]
		tag := c.tag
		b.mu.Unlock()

		if target == nil {
			continue
		}
		msg.ConsumerTag = tag
		msg.DeliveryTag = b.nextOverallTag()
		b.deliverAsBasicDeliver(c.channelID, target, msg)
	}
}

var globalDeliveryTag uint64

func (b *LoopbackBroker) nextOverallTag() uint64 {
	return atomic.AddUint64(&globalDeliveryTag, 1)
}

func (b *LoopbackBroker) deliverAsBasicDeliver(channelID uint16, target *Channel, msg Message) {
	b.reply(channelID, target, BasicDeliver{
		ConsumerTag: msg.ConsumerTag, DeliveryTag: msg.DeliveryTag,
		Redelivered: msg.Redelivered, Exchange: msg.Exchange, RoutingKey: msg.RoutingKey,
	})
	b.sendContent(channelID, target, classBasic, &msg.Properties, msg.Body)
}

func (b *LoopbackBroker) deliverAsGetOk(channelID uint16, target *Channel, msg Message, remaining uint32) {
	tag := b.nextOverallTag()
	b.reply(channelID, target, BasicGetOk{
		DeliveryTag: tag, Redelivered: msg.Redelivered,
		Exchange: msg.Exchange, RoutingKey: msg.RoutingKey, MessageCount: remaining,
	})
	b.sendContent(channelID, target, classBasic, &msg.Properties, msg.Body)
}

func (b *LoopbackBroker) sendContent(channelID uint16, target *Channel, classID uint16, props *Properties, body []byte) {
	headerBuf := &bytes.Buffer{}
	_ = writeContentHeader(headerBuf, &contentHeader{ClassID: classID, BodySize: uint64(len(body)), Properties: props})
	hf, _, _ := DecodeFrame(EncodeFrame(FrameHeader, channelID, headerBuf.Bytes()))
	target.deliver(hf)

	maxBody := int(b.frameMax) - 8
	if maxBody <= 0 {
		maxBody = len(body)
		if maxBody == 0 {
			maxBody = 1
		}
	}
	remaining := body
	for len(remaining) > 0 {
		n := maxBody
		if n > len(remaining) {
			n = len(remaining)
		}
		bf, _, _ := DecodeFrame(EncodeFrame(FrameBody, channelID, remaining[:n]))
		target.deliver(bf)
		remaining = remaining[n:]
	}
}
