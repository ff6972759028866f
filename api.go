package amqpchannel

// QueueDeclareArgs mirrors the queue.declare arguments a caller is expected
// to set; Queue may be left blank to ask the broker to generate a name.
type QueueDeclareArgs struct {
	Queue      string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	Arguments  Table
}

// QueueDeclare declares a queue and returns its resolved name and depth.
func (ch *Channel) QueueDeclare(a QueueDeclareArgs) (QueueDeclareOk, error) {
	res, err := ch.sendRPC(QueueDeclare{
		Queue: a.Queue, Passive: a.Passive, Durable: a.Durable,
		Exclusive: a.Exclusive, AutoDelete: a.AutoDelete, Arguments: a.Arguments,
	})
	if err != nil {
		return QueueDeclareOk{}, err
	}
	ok, ok2 := res.(QueueDeclareOk)
	if !ok2 {
		return QueueDeclareOk{}, unexpectedReply("queue.declare-ok", res)
	}
	return ok, nil
}

func (ch *Channel) QueueBind(queue, exchange, routingKey string, args Table) error {
	_, err := ch.sendRPC(QueueBind{Queue: queue, Exchange: exchange, RoutingKey: routingKey, Arguments: args})
	return err
}

func (ch *Channel) QueueUnbind(queue, exchange, routingKey string, args Table) error {
	_, err := ch.sendRPC(QueueUnbind{Queue: queue, Exchange: exchange, RoutingKey: routingKey, Arguments: args})
	return err
}

func (ch *Channel) QueuePurge(queue string) (uint32, error) {
	res, err := ch.sendRPC(QueuePurge{Queue: queue})
	if err != nil {
		return 0, err
	}
	ok, ok2 := res.(QueuePurgeOk)
	if !ok2 {
		return 0, unexpectedReply("queue.purge-ok", res)
	}
	return ok.MessageCount, nil
}

func (ch *Channel) QueueDelete(queue string, ifUnused, ifEmpty bool) (uint32, error) {
	res, err := ch.sendRPC(QueueDelete{Queue: queue, IfUnused: ifUnused, IfEmpty: ifEmpty})
	if err != nil {
		return 0, err
	}
	ok, ok2 := res.(QueueDeleteOk)
	if !ok2 {
		return 0, unexpectedReply("queue.delete-ok", res)
	}
	return ok.MessageCount, nil
}

// ExchangeDeclareArgs mirrors exchange.declare.
type ExchangeDeclareArgs struct {
	Exchange   string
	Type       string
	Passive    bool
	Durable    bool
	AutoDelete bool
	Internal   bool
	Arguments  Table
}

func (ch *Channel) ExchangeDeclare(a ExchangeDeclareArgs) error {
	_, err := ch.sendRPC(ExchangeDeclare{
		Exchange: a.Exchange, Type: a.Type, Passive: a.Passive,
		Durable: a.Durable, AutoDelete: a.AutoDelete, Internal: a.Internal, Arguments: a.Arguments,
	})
	return err
}

func (ch *Channel) ExchangeDelete(exchange string, ifUnused bool) error {
	_, err := ch.sendRPC(ExchangeDelete{Exchange: exchange, IfUnused: ifUnused})
	return err
}

func (ch *Channel) ExchangeBind(destination, source, routingKey string, args Table) error {
	_, err := ch.sendRPC(ExchangeBind{Destination: destination, Source: source, RoutingKey: routingKey, Arguments: args})
	return err
}

func (ch *Channel) ExchangeUnbind(destination, source, routingKey string, args Table) error {
	_, err := ch.sendRPC(ExchangeUnbind{Destination: destination, Source: source, RoutingKey: routingKey, Arguments: args})
	return err
}

// BasicQos sets the prefetch window for this channel. Prefetch is the
// common case: global=false, size=0.
func (ch *Channel) BasicQos(prefetchCount uint16, prefetchSize uint32, global bool) error {
	_, err := ch.sendRPC(BasicQos{PrefetchSize: prefetchSize, PrefetchCount: prefetchCount, Global: global})
	return err
}

// Prefetch is shorthand for the common BasicQos(n, 0, false) call.
func (ch *Channel) Prefetch(n uint16) error {
	return ch.BasicQos(n, 0, false)
}

// ConsumeArgs mirrors basic.consume. Leave Tag blank to get a broker-
// generated one.
type ConsumeArgs struct {
	Queue     string
	Tag       string
	NoLocal   bool
	NoAck     bool
	Exclusive bool
	Arguments Table
	Handler   func(Delivery)
	OnCancel  func(error)
}

// BasicConsume registers a consumer and returns its resolved tag. The
// consumer is parked Pending until the broker's consume-ok names it;
// deliveries that race ahead of that reply are not possible because the
// broker never sends one before its own reply.
func (ch *Channel) BasicConsume(a ConsumeArgs) (string, error) {
	c := &Consumer{handler: a.Handler, onCancel: a.OnCancel, state: consumerPending}

	res, err := ch.sendRPC(BasicConsume{
		Queue: a.Queue, ConsumerTag: a.Tag, NoLocal: a.NoLocal,
		NoAck: a.NoAck, Exclusive: a.Exclusive, Arguments: a.Arguments,
	})
	if err != nil {
		return "", err
	}
	ok, ok2 := res.(BasicConsumeOk)
	if !ok2 {
		return "", unexpectedReply("basic.consume-ok", res)
	}

	c.mu.Lock()
	c.tag = ok.ConsumerTag
	c.state = consumerActive
	c.mu.Unlock()

	ch.consumersMu.Lock()
	ch.consumers[ok.ConsumerTag] = c
	ch.consumersMu.Unlock()

	return ok.ConsumerTag, nil
}

// BasicCancel stops a consumer. Its onCancel callback, if any, still fires
// with a nil error once this completes.
func (ch *Channel) BasicCancel(tag string) error {
	res, err := ch.sendRPC(BasicCancel{ConsumerTag: tag})
	if err != nil {
		return err
	}
	if _, ok := res.(BasicCancelOk); !ok {
		return unexpectedReply("basic.cancel-ok", res)
	}

	ch.consumersMu.Lock()
	c := ch.consumers[tag]
	delete(ch.consumers, tag)
	ch.consumersMu.Unlock()

	if c != nil {
		c.cancel(nil)
	}
	return nil
}

// Publish sends a message. Under confirm mode the returned future settles
// once the broker acks or nacks it; outside confirm mode it is always nil
// and the call is fire-and-forget beyond the write itself succeeding.
func (ch *Channel) Publish(msg Message) (*publishFuture, error) {
	return ch.basicPublish(msg)
}

// Flow asks the broker to pause or resume deliveries and waits for its
// channel.flow-ok. The broker is free to keep sending deliveries already in
// flight when active is false; this only requests a new state.
func (ch *Channel) Flow(active bool) error {
	res, err := ch.sendRPC(ChannelFlow{Active: active})
	if err != nil {
		return err
	}
	if _, ok := res.(ChannelFlowOk); !ok {
		return unexpectedReply("channel.flow-ok", res)
	}
	return nil
}

// Get performs a one-shot basic.get. A nil message with ok=false means the
// queue was empty.
func (ch *Channel) Get(queue string, noAck bool) (msg *Message, ok bool, err error) {
	res, err := ch.sendRPC(BasicGet{Queue: queue, NoAck: noAck})
	if err != nil {
		return nil, false, err
	}
	switch v := res.(type) {
	case getResult:
		return v.message, true, nil
	case BasicGetEmpty:
		return nil, false, nil
	default:
		return nil, false, unexpectedReply("basic.get-ok/basic.get-empty", res)
	}
}

func (ch *Channel) basicAck(tag uint64, multiple bool) error {
	return ch.writeMethod(BasicAck{DeliveryTag: tag, Multiple: multiple})
}

func (ch *Channel) basicNack(tag uint64, multiple, requeue bool) error {
	return ch.writeMethod(BasicNack{DeliveryTag: tag, Multiple: multiple, Requeue: requeue})
}

func (ch *Channel) basicReject(tag uint64, requeue bool) error {
	return ch.writeMethod(BasicReject{DeliveryTag: tag, Requeue: requeue})
}

// BasicRecover asks the broker to redeliver unacked messages on this
// channel, optionally requeuing them first.
func (ch *Channel) BasicRecover(requeue bool) error {
	_, err := ch.sendRPC(BasicRecover{Requeue: requeue})
	return err
}

// ConfirmSelect puts the channel into publisher-confirm mode. Every publish
// made afterward returns a non-nil future from Publish.
func (ch *Channel) ConfirmSelect() error {
	_, err := ch.sendRPC(ConfirmSelect{})
	if err != nil {
		return err
	}
	ch.confirmMu.Lock()
	ch.confirmMode = true
	ch.confirmMu.Unlock()
	return nil
}

func (ch *Channel) TxSelect() error {
	_, err := ch.sendRPC(TxSelect{})
	return err
}

func (ch *Channel) TxCommit() error {
	_, err := ch.sendRPC(TxCommit{})
	return err
}

func (ch *Channel) TxRollback() error {
	_, err := ch.sendRPC(TxRollback{})
	return err
}

func unexpectedReply(want string, got any) error {
	return newProtocolError("expected %s, got %T", want, got)
}
