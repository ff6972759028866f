package amqpchannel

import (
	"bytes"
	"encoding/binary"
)

// Frame is one decoded AMQP frame: envelope plus owned payload. The envelope
// on the wire is `type:u8 | channel:u16 | size:u32 | payload[size] | 0xCE`.
type Frame struct {
	Type      byte
	ChannelID uint16
	Payload   []byte
}

// EncodeFrame renders a complete frame — envelope, payload, terminator — as
// a standalone byte slice. Used for the outbound side; Connection.WriteFrames
// is handed one or more of these as separate arguments.
func EncodeFrame(frameType byte, channelID uint16, payload []byte) []byte {
	out := make([]byte, 0, 7+len(payload)+1)
	out = append(out, frameType)
	var ch [2]byte
	binary.BigEndian.PutUint16(ch[:], channelID)
	out = append(out, ch[:]...)
	var sz [4]byte
	binary.BigEndian.PutUint32(sz[:], uint32(len(payload)))
	out = append(out, sz[:]...)
	out = append(out, payload...)
	out = append(out, frameEnd)
	return out
}

// DecodeFrame reads exactly one frame from the front of data, returning the
// frame and the number of bytes consumed. It is used by the in-process mock
// broker in tests to speak the wire protocol without a real socket; a real
// Connection implementation is expected to do the equivalent over a net.Conn.
func DecodeFrame(data []byte) (*Frame, int, error) {
	if len(data) < 7 {
		return nil, 0, newProtocolError("short frame header: need 7 bytes, have %d", len(data))
	}
	frameType := data[0]
	channelID := binary.BigEndian.Uint16(data[1:3])
	size := binary.BigEndian.Uint32(data[3:7])

	total := 7 + int(size) + 1
	if len(data) < total {
		return nil, 0, newProtocolError("short frame body: need %d bytes, have %d", total, len(data))
	}
	payload := data[7 : 7+int(size)]
	if data[total-1] != frameEnd {
		return nil, 0, newProtocolError("missing frame terminator 0xCE")
	}

	switch frameType {
	case FrameMethod, FrameHeader, FrameBody, FrameHeartbeat:
	default:
		return nil, 0, newProtocolError("unsupported frame type %d", frameType)
	}

	return &Frame{Type: frameType, ChannelID: channelID, Payload: append([]byte(nil), payload...)}, total, nil
}

// contentHeader is the payload of a HEADER frame: class id, an unused
// "weight" field kept for wire compatibility, the total body size the
// dispatcher should expect across following BODY frames, and properties.
type contentHeader struct {
	ClassID    uint16
	Weight     uint16
	BodySize   uint64
	Properties *Properties
}

func writeContentHeader(buf *bytes.Buffer, h *contentHeader) error {
	w := newFrameWriter(buf)
	w.writeShort(h.ClassID)
	w.writeShort(h.Weight)
	w.writeLongLong(h.BodySize)
	return w.writeProperties(h.Properties)
}

func readContentHeader(payload []byte) (*contentHeader, error) {
	r := newFrameReader(payload)
	classID, err := r.readShort()
	if err != nil {
		return nil, err
	}
	weight, err := r.readShort()
	if err != nil {
		return nil, err
	}
	bodySize, err := r.readLongLong()
	if err != nil {
		return nil, err
	}
	props, err := r.readProperties()
	if err != nil {
		return nil, err
	}
	return &contentHeader{ClassID: classID, Weight: weight, BodySize: bodySize, Properties: props}, nil
}
