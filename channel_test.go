package amqpchannel

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func newTestBroker() *LoopbackBroker {
	return NewLoopbackBroker(4096, nil)
}

func TestDeclarePublishConsume(t *testing.T) {
	broker := newTestBroker()
	ch, err := broker.OpenChannel(1, nil)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}

	ok, err := ch.QueueDeclare(QueueDeclareArgs{Queue: "q", Durable: true})
	if err != nil {
		t.Fatalf("QueueDeclare: %v", err)
	}
	if ok.Queue != "q" || ok.MessageCount != 0 || ok.ConsumerCount != 0 {
		t.Fatalf("unexpected queue.declare-ok: %+v", ok)
	}

	received := make(chan Delivery, 1)
	tag, err := ch.BasicConsume(ConsumeArgs{
		Queue: "q",
		NoAck: true,
		Handler: func(d Delivery) {
			received <- d
		},
	})
	if err != nil {
		t.Fatalf("BasicConsume: %v", err)
	}
	if tag == "" {
		t.Fatal("expected a non-empty consumer tag")
	}

	if _, err := ch.Publish(Message{Exchange: "", RoutingKey: "q", Body: []byte("hello")}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case d := <-received:
		if string(d.Body) != "hello" {
			t.Fatalf("body = %q, want %q", d.Body, "hello")
		}
		if d.RoutingKey != "q" || d.Exchange != "" {
			t.Fatalf("unexpected routing: exchange=%q routingKey=%q", d.Exchange, d.RoutingKey)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestConfirmsEndToEnd(t *testing.T) {
	broker := newTestBroker()
	ch, err := broker.OpenChannel(1, nil)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	if _, err := ch.QueueDeclare(QueueDeclareArgs{Queue: "q"}); err != nil {
		t.Fatalf("QueueDeclare: %v", err)
	}
	if err := ch.ConfirmSelect(); err != nil {
		t.Fatalf("ConfirmSelect: %v", err)
	}

	var futures []*publishFuture
	for _, body := range []string{"a", "b", "c"} {
		f, err := ch.Publish(Message{RoutingKey: "q", Body: []byte(body)})
		if err != nil {
			t.Fatalf("Publish(%q): %v", body, err)
		}
		futures = append(futures, f)
	}

	for i, f := range futures {
		if err := f.Wait(); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
}

func TestServerChannelCloseMidRPC(t *testing.T) {
	// A plain recording connection never replies on its own, so the
	// declare RPC stays pending until we hand the channel a
	// channel.close directly — exactly the race a real broker creates
	// when it aborts an in-flight method instead of answering it.
	conn := &recordingConn{frameMax: 4096}
	ch := openTestChannel(conn)

	var wg sync.WaitGroup
	wg.Add(1)
	var declErr error
	go func() {
		defer wg.Done()
		_, declErr = ch.QueueDeclare(QueueDeclareArgs{Queue: "q"})
	}()

	// Give the goroutine a chance to register its pending RPC before the
	// close lands.
	time.Sleep(10 * time.Millisecond)

	buf := closeFramePayload(t, ChannelClose{ReplyCode: 404, ReplyText: "NOT_FOUND", ClassID: classQueue, MethodID: methodQueueDeclare})
	frame, _, err := DecodeFrame(EncodeFrame(FrameMethod, 1, buf))
	if err != nil {
		t.Fatalf("building close frame: %v", err)
	}
	ch.deliver(frame)

	wg.Wait()

	var chErr *ChannelError
	if declErr == nil {
		t.Fatal("expected queue.declare to fail after server close")
	}
	var ok bool
	chErr, ok = declErr.(*ChannelError)
	if !ok {
		t.Fatalf("expected *ChannelError, got %T: %v", declErr, declErr)
	}
	if chErr.Code != 404 {
		t.Fatalf("code = %d, want 404", chErr.Code)
	}
	if !ch.isClosed() {
		t.Fatal("channel should be closed")
	}
}

func TestReturnedMandatoryPublish(t *testing.T) {
	broker := newTestBroker()
	ch, err := broker.OpenChannel(1, nil)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	if err := ch.ConfirmSelect(); err != nil {
		t.Fatalf("ConfirmSelect: %v", err)
	}

	returned := make(chan *PublishReturned, 1)
	ch.SetReturnHandler(func(r *PublishReturned) {
		returned <- r
	})

	fut, err := ch.Publish(Message{
		Exchange: "", RoutingKey: "nowhere", Mandatory: true, Body: []byte("undeliverable"),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case r := <-returned:
		if string(r.Message.Body) != "undeliverable" {
			t.Fatalf("returned body = %q, want %q", r.Message.Body, "undeliverable")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for basic.return")
	}

	if err := fut.Wait(); err != nil {
		t.Fatalf("publish should still confirm after the return: %v", err)
	}
}

func closeFramePayload(t *testing.T, m ChannelClose) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := writeMethodFrame(buf, m); err != nil {
		t.Fatalf("encode ChannelClose: %v", err)
	}
	return buf.Bytes()
}
