package amqpchannel

import "fmt"

// ErrChannelClosed is returned by any operation attempted on a channel whose
// closed flag is already set.
var ErrChannelClosed = &ChannelClosedError{}

// ChannelClosedError means the channel is done and will never accept work
// again. Distinct from ChannelError, which carries the reason the broker
// gave for closing it.
type ChannelClosedError struct{}

func (*ChannelClosedError) Error() string { return "amqpchannel: channel closed" }

// ChannelError is a server-initiated channel.close: the broker rejected or
// aborted whatever we were doing and gave a reason.
type ChannelError struct {
	Code     uint16
	Text     string
	ClassID  uint16
	MethodID uint16
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("amqpchannel: channel closed by server: code=%d text=%q class=%d method=%d",
		e.Code, e.Text, e.ClassID, e.MethodID)
}

// ConnectionError wraps an upstream fault reported by the Connection
// collaborator (socket reset, handshake failure, and so on). It is
// propagated identically to every channel open on that connection.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("amqpchannel: connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError marks a malformed frame, an out-of-sequence method/header/
// body arrival, an unknown field-table type tag, or a confirm that doesn't
// match any outstanding delivery tag. Raising one on an inbound frame also
// triggers a channel.close with reply code 505 before the error is surfaced
// to callers.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "amqpchannel: protocol error: " + e.Msg }

func newProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// EncodingError covers violations the codec catches before anything reaches
// the wire: an over-long or non-UTF-8 short string, or a field table too
// large for its length prefix.
type EncodingError struct {
	Msg string
}

func (e *EncodingError) Error() string { return "amqpchannel: encoding error: " + e.Msg }

func newEncodingError(format string, args ...any) *EncodingError {
	return &EncodingError{Msg: fmt.Sprintf(format, args...)}
}

// PublishReturned is delivered to the channel's return handler, never via
// the basicPublish future — a return and a confirm are orthogonal signals.
type PublishReturned struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
	Message    *Message
}

func (e *PublishReturned) Error() string {
	return fmt.Sprintf("amqpchannel: publish returned: code=%d text=%q exchange=%q routingKey=%q",
		e.ReplyCode, e.ReplyText, e.Exchange, e.RoutingKey)
}

// PublishNacked is the rejection error used to settle a publish future when
// the broker sends basic.nack for its delivery tag.
type PublishNacked struct {
	DeliveryTag uint64
}

func (e *PublishNacked) Error() string {
	return fmt.Sprintf("amqpchannel: publish nacked: delivery_tag=%d", e.DeliveryTag)
}
