package amqpchannel

import (
	"testing"
)

// recordingConn is a Connection that only records what was written; it
// never produces replies, so an RPC issued over it stays pending until the
// test hands the channel a reply itself.
type recordingConn struct {
	frameMax uint32
	written  [][]byte
}

func (c *recordingConn) WriteFrames(payloads ...[]byte) error {
	c.written = append(c.written, payloads...)
	return nil
}
func (c *recordingConn) FrameMax() uint32    { return c.frameMax }
func (c *recordingConn) ReleaseChannel(uint16) {}

func openTestChannel(conn Connection) *Channel {
	ch := newChannel(1, conn, nil)
	ch.state = channelOpen
	return ch
}

func TestPublishLargeBodyFraming(t *testing.T) {
	conn := &recordingConn{frameMax: 4096}
	ch := openTestChannel(conn)

	body := make([]byte, 10000)
	for i := range body {
		body[i] = byte(i)
	}

	if _, err := ch.basicPublish(Message{Exchange: "", RoutingKey: "q", Body: body}); err != nil {
		t.Fatalf("basicPublish: %v", err)
	}

	// frame 0: method, frame 1: header, frames 2..: body chunks
	if len(conn.written) != 5 {
		t.Fatalf("wrote %d frames, want 5 (method+header+3 body)", len(conn.written))
	}

	wantSizes := []int{4088, 4088, 1824}
	var reassembled []byte
	for i, want := range wantSizes {
		f, _, err := DecodeFrame(conn.written[2+i])
		if err != nil {
			t.Fatalf("decode body frame %d: %v", i, err)
		}
		if f.Type != FrameBody {
			t.Fatalf("frame %d type = %d, want FrameBody", i, f.Type)
		}
		if len(f.Payload) != want {
			t.Fatalf("body frame %d size = %d, want %d", i, len(f.Payload), want)
		}
		reassembled = append(reassembled, f.Payload...)
	}
	if string(reassembled) != string(body) {
		t.Fatal("reassembled body does not match original")
	}
}

func TestPublishZeroLengthBodyEmitsNoBodyFrame(t *testing.T) {
	conn := &recordingConn{frameMax: 4096}
	ch := openTestChannel(conn)

	if _, err := ch.basicPublish(Message{Exchange: "", RoutingKey: "q", Body: nil}); err != nil {
		t.Fatalf("basicPublish: %v", err)
	}
	if len(conn.written) != 2 {
		t.Fatalf("wrote %d frames, want 2 (method+header only)", len(conn.written))
	}
}

func TestConfirmBatchedAck(t *testing.T) {
	conn := &recordingConn{frameMax: 4096}
	ch := openTestChannel(conn)
	ch.confirmMode = true

	f1, err := ch.basicPublish(Message{RoutingKey: "q", Body: []byte("a")})
	if err != nil {
		t.Fatalf("publish a: %v", err)
	}
	f2, err := ch.basicPublish(Message{RoutingKey: "q", Body: []byte("b")})
	if err != nil {
		t.Fatalf("publish b: %v", err)
	}
	f3, err := ch.basicPublish(Message{RoutingKey: "q", Body: []byte("c")})
	if err != nil {
		t.Fatalf("publish c: %v", err)
	}

	ch.dispatchMethod(BasicAck{DeliveryTag: 3, Multiple: true})

	for i, f := range []*publishFuture{f1, f2, f3} {
		if err := f.Wait(); err != nil {
			t.Fatalf("future %d: %v", i+1, err)
		}
	}
	if len(ch.unconfirmed.by) != 0 {
		t.Fatalf("unconfirmed set not drained: %d entries remain", len(ch.unconfirmed.by))
	}
}

func TestConfirmNackOne(t *testing.T) {
	conn := &recordingConn{frameMax: 4096}
	ch := openTestChannel(conn)
	ch.confirmMode = true

	f1, _ := ch.basicPublish(Message{RoutingKey: "q", Body: []byte("m1")})
	f2, _ := ch.basicPublish(Message{RoutingKey: "q", Body: []byte("m2")})

	ch.dispatchMethod(BasicNack{DeliveryTag: 2, Multiple: false, Requeue: false})
	ch.dispatchMethod(BasicAck{DeliveryTag: 1, Multiple: false})

	if err := f1.Wait(); err != nil {
		t.Fatalf("f1 should have been acked, got %v", err)
	}
	if err := f2.Wait(); err == nil {
		t.Fatal("f2 should have been nacked")
	} else if _, ok := err.(*PublishNacked); !ok {
		t.Fatalf("expected *PublishNacked, got %T", err)
	}
	if len(ch.unconfirmed.by) != 0 {
		t.Fatalf("unconfirmed set not drained: %d entries remain", len(ch.unconfirmed.by))
	}
}
