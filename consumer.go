package amqpchannel

import "sync"

type consumerState int32

const (
	consumerPending consumerState = iota
	consumerActive
	consumerCancelled
)

// Consumer is one basic.consume registration. Its tag is provisional until
// the broker's consume-ok names the real one (the broker fills in a
// generated tag when the client leaves it blank), so deliveries can't be
// routed to it until the state flips to Active.
type Consumer struct {
	mu      sync.Mutex
	state   consumerState
	tag     string
	handler func(Delivery)
	onCancel func(error)
}

func (c *Consumer) deliver(d Delivery) {
	c.mu.Lock()
	h := c.handler
	state := c.state
	c.mu.Unlock()
	if state != consumerActive || h == nil {
		return
	}
	h(d)
}

// cancel marks the consumer done and invokes its cancellation callback,
// exactly once, regardless of whether the channel closed out from under it
// or basic.cancel completed normally.
func (c *Consumer) cancel(reason error) {
	c.mu.Lock()
	if c.state == consumerCancelled {
		c.mu.Unlock()
		return
	}
	c.state = consumerCancelled
	onCancel := c.onCancel
	c.mu.Unlock()
	if onCancel != nil {
		onCancel(reason)
	}
}
