package amqpchannel

// Connection is the narrow surface a Channel needs from whatever owns the
// underlying transport. A real implementation multiplexes frames for every
// channel over one net.Conn and demultiplexes inbound frames back to the
// right Channel by calling its deliver method; that socket-handling layer
// is not part of this package; LoopbackBroker below is the in-process
// stand-in used by tests and the example commands.
type Connection interface {
	// WriteFrames writes one or more already-encoded frames as a single
	// contiguous write. Channel uses this to keep a method, its header,
	// and its body frames from interleaving with another goroutine's
	// write on the same connection.
	WriteFrames(payloads ...[]byte) error

	// FrameMax is the negotiated maximum frame size, used to size
	// outbound body frame chunks.
	FrameMax() uint32

	// ReleaseChannel tells the connection a channel id is free to reuse
	// once its close handshake has completed.
	ReleaseChannel(id uint16)
}
