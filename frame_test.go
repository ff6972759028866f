package amqpchannel

import "testing"

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload := []byte("queue.declare-ok payload")
	encoded := EncodeFrame(FrameMethod, 7, payload)

	f, n, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d bytes, want %d", n, len(encoded))
	}
	if f.Type != FrameMethod {
		t.Fatalf("type = %d, want %d", f.Type, FrameMethod)
	}
	if f.ChannelID != 7 {
		t.Fatalf("channel = %d, want 7", f.ChannelID)
	}
	if string(f.Payload) != string(payload) {
		t.Fatalf("payload = %q, want %q", f.Payload, payload)
	}
}

func TestDecodeFrameShortHeader(t *testing.T) {
	_, _, err := DecodeFrame([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestDecodeFrameMissingTerminator(t *testing.T) {
	encoded := EncodeFrame(FrameMethod, 1, []byte("x"))
	encoded[len(encoded)-1] = 0x00
	_, _, err := DecodeFrame(encoded)
	if err == nil {
		t.Fatal("expected error for missing 0xCE terminator")
	}
}

func TestDecodeFrameMultipleInBuffer(t *testing.T) {
	a := EncodeFrame(FrameMethod, 1, []byte("a"))
	b := EncodeFrame(FrameBody, 1, []byte("bb"))
	buf := append(append([]byte(nil), a...), b...)

	f1, n1, err := DecodeFrame(buf)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	f2, n2, err := DecodeFrame(buf[n1:])
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if string(f1.Payload) != "a" || string(f2.Payload) != "bb" {
		t.Fatalf("unexpected payloads: %q, %q", f1.Payload, f2.Payload)
	}
	if n1+n2 != len(buf) {
		t.Fatalf("consumed %d+%d, want %d", n1, n2, len(buf))
	}
}
