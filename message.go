package amqpchannel

// Message is a fully assembled piece of content: the properties carried on
// its HEADER frame plus the concatenated bytes of every BODY frame that
// followed it. Both inbound deliveries and outbound publishes use it.
type Message struct {
	Exchange    string
	RoutingKey  string
	Mandatory   bool
	Immediate   bool
	Properties  Properties
	Body        []byte

	// Set only on inbound deliveries.
	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
}

// Delivery is handed to a consumer callback. Ack/Nack/Reject are
// fire-and-forget: they queue the corresponding basic.* method and return
// as soon as it's written, never waiting on a broker reply.
type Delivery struct {
	Message
	channel *Channel
}

// Ack acknowledges this delivery. multiple=false always; use the channel's
// own basicAck for batch acknowledgement.
func (d *Delivery) Ack() error {
	return d.channel.basicAck(d.DeliveryTag, false)
}

// Nack negatively acknowledges this delivery, optionally requeuing it.
func (d *Delivery) Nack(requeue bool) error {
	return d.channel.basicNack(d.DeliveryTag, false, requeue)
}

// Reject is the pre-nack AMQP method; equivalent to Nack for a single tag.
func (d *Delivery) Reject(requeue bool) error {
	return d.channel.basicReject(d.DeliveryTag, requeue)
}
