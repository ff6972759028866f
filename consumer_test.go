package amqpchannel

import (
	"bytes"
	"testing"
	"time"
)

// TestServerInitiatedCancelFiresOnCancelOnce exercises the documented policy
// for a broker-initiated basic.cancel: the consumer's onCancel runs exactly
// once and no synthetic delivery is produced.
func TestServerInitiatedCancelFiresOnCancelOnce(t *testing.T) {
	conn := &recordingConn{frameMax: 4096}
	ch := openTestChannel(conn)

	cancelCount := 0
	var deliveries int
	ch.consumersMu.Lock()
	ch.consumers["ctag-1"] = &Consumer{
		state: consumerActive,
		tag:   "ctag-1",
		handler: func(Delivery) {
			deliveries++
		},
		onCancel: func(err error) {
			cancelCount++
			if err != nil {
				t.Fatalf("expected nil reason for a clean server cancel, got %v", err)
			}
		},
	}
	ch.consumersMu.Unlock()

	buf := &bytes.Buffer{}
	if err := writeMethodFrame(buf, BasicCancel{ConsumerTag: "ctag-1", NoWait: false}); err != nil {
		t.Fatalf("encode BasicCancel: %v", err)
	}
	frame, _, err := DecodeFrame(EncodeFrame(FrameMethod, 1, buf.Bytes()))
	if err != nil {
		t.Fatalf("building cancel frame: %v", err)
	}
	ch.deliver(frame)

	ch.consumersMu.Lock()
	_, stillPresent := ch.consumers["ctag-1"]
	ch.consumersMu.Unlock()
	if stillPresent {
		t.Fatal("consumer should have been removed on server cancel")
	}
	if cancelCount != 1 {
		t.Fatalf("onCancel fired %d times, want exactly 1", cancelCount)
	}
	if deliveries != 0 {
		t.Fatalf("expected no synthetic delivery, got %d", deliveries)
	}

	// A !NoWait cancel must be acked back to the broker.
	if len(conn.written) != 1 {
		t.Fatalf("wrote %d frames, want 1 (basic.cancel-ok)", len(conn.written))
	}
	f, _, err := DecodeFrame(conn.written[0])
	if err != nil {
		t.Fatalf("decode reply frame: %v", err)
	}
	m, err := decodeMethod(f.Payload)
	if err != nil {
		t.Fatalf("decode reply method: %v", err)
	}
	ok, isCancelOk := m.(BasicCancelOk)
	if !isCancelOk || ok.ConsumerTag != "ctag-1" {
		t.Fatalf("reply = %#v, want basic.cancel-ok for ctag-1", m)
	}
}

// TestOperationsFailAfterClose confirms every channel operation surfaces
// ChannelClosed once Close (or a server close) has resolved, matching the
// post-close invariant.
func TestOperationsFailAfterClose(t *testing.T) {
	broker := newTestBroker()
	ch, err := broker.OpenChannel(1, nil)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	ch.Close()

	select {
	case <-ch.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() never closed after Close()")
	}
	if !ch.isClosed() {
		t.Fatal("isClosed() should be true after Close()")
	}

	if _, err := ch.QueueDeclare(QueueDeclareArgs{Queue: "q"}); err != ErrChannelClosed {
		t.Fatalf("QueueDeclare after close: got %v, want ErrChannelClosed", err)
	}
	if err := ch.ExchangeDeclare(ExchangeDeclareArgs{Exchange: "e", Type: "direct"}); err != ErrChannelClosed {
		t.Fatalf("ExchangeDeclare after close: got %v, want ErrChannelClosed", err)
	}
	if _, err := ch.Publish(Message{RoutingKey: "q", Body: []byte("x")}); err != ErrChannelClosed {
		t.Fatalf("Publish after close: got %v, want ErrChannelClosed", err)
	}
	if _, err := ch.BasicConsume(ConsumeArgs{Queue: "q", Handler: func(Delivery) {}}); err != ErrChannelClosed {
		t.Fatalf("BasicConsume after close: got %v, want ErrChannelClosed", err)
	}
	if err := ch.ConfirmSelect(); err != ErrChannelClosed {
		t.Fatalf("ConfirmSelect after close: got %v, want ErrChannelClosed", err)
	}
}
