package amqpchannel

import (
	"bytes"
	"reflect"
	"testing"
	"time"
)

func TestFieldTableRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	table := Table{
		"bool_true":  true,
		"bool_false": false,
		"i8":         int8(-12),
		"u8":         uint8(200),
		"i16":        int16(-1000),
		"u16":        uint16(60000),
		"i32":        int32(-100000),
		"u32":        uint32(4000000000),
		"i64":        int64(-1 << 40),
		"f32":        float32(3.5),
		"f64":        float64(2.718281828),
		"decimal":    Decimal{Scale: 2, Value: 12345},
		"str":        "hello world",
		"timestamp":  now,
		"nested":     Table{"inner": "value"},
		"array":      []any{int32(1), "two", true},
		"void":       nil,
	}

	buf := &bytes.Buffer{}
	w := newFrameWriter(buf)
	if err := w.writeTable(table); err != nil {
		t.Fatalf("writeTable: %v", err)
	}

	r := newFrameReader(buf.Bytes())
	got, err := r.readTable()
	if err != nil {
		t.Fatalf("readTable: %v", err)
	}

	for k, want := range table {
		gv, ok := got[k]
		if !ok {
			t.Fatalf("missing key %q after round trip", k)
		}
		if k == "timestamp" {
			gt, ok := gv.(time.Time)
			if !ok || !gt.Equal(want.(time.Time)) {
				t.Fatalf("timestamp mismatch: got %v want %v", gv, want)
			}
			continue
		}
		if !reflect.DeepEqual(gv, want) {
			t.Fatalf("key %q: got %#v want %#v", k, gv, want)
		}
	}
}

func TestShortstrTooLong(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newFrameWriter(buf)
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	err := w.writeShortstr(string(long))
	if err == nil {
		t.Fatal("expected EncodingError for over-long short string")
	}
	if _, ok := err.(*EncodingError); !ok {
		t.Fatalf("expected *EncodingError, got %T", err)
	}
}

func TestUnknownFieldTag(t *testing.T) {
	r := newFrameReader([]byte{'?'})
	_, err := r.readField()
	if err == nil {
		t.Fatal("expected ProtocolError for unknown type tag")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected *ProtocolError, got %T", err)
	}
}
