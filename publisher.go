package amqpchannel

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"amqpchannel/internal/metrics"
)

// unconfirmedSet tracks publishes awaiting a broker ack/nack, keyed by
// delivery tag. Tags are allocated in increasing order (they may be settled
// in any order), so a multiple=true ack or nack can simply walk everything
// up to and including the named tag.
type unconfirmedSet struct {
	mu   sync.Mutex
	tags []uint64
	by   map[uint64]*publishFuture
}

func newUnconfirmedSet() *unconfirmedSet {
	return &unconfirmedSet{by: make(map[uint64]*publishFuture)}
}

func (s *unconfirmedSet) add(tag uint64, f *publishFuture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append(s.tags, tag)
	s.by[tag] = f
}

// resolve settles the publish future(s) named by tag. When multiple is set,
// every outstanding tag up to and including it settles the same way — this
// is the broker batching acks for throughput, not a partial failure signal.
// It reports false when tag names nothing outstanding, which the caller
// treats as a protocol violation: a confirm for a tag we never allocated,
// or a duplicate confirm for one already settled.
func (s *unconfirmedSet) resolve(tag uint64, multiple bool, err error) bool {
	s.mu.Lock()
	var toResolve []*publishFuture
	found := false
	if !multiple {
		if f, ok := s.by[tag]; ok {
			found = true
			toResolve = append(toResolve, f)
			delete(s.by, tag)
			s.removeTag(tag)
		}
	} else {
		idx := sort.Search(len(s.tags), func(i int) bool { return s.tags[i] > tag })
		for _, t := range s.tags[:idx] {
			if f, ok := s.by[t]; ok {
				found = true
				toResolve = append(toResolve, f)
				delete(s.by, t)
			}
		}
		s.tags = s.tags[idx:]
	}
	s.mu.Unlock()

	for _, f := range toResolve {
		f.resolve(err)
	}
	return found
}

func (s *unconfirmedSet) removeTag(tag uint64) {
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			return
		}
	}
}

func (s *unconfirmedSet) failAll(err error) {
	s.mu.Lock()
	pending := s.by
	s.by = make(map[uint64]*publishFuture)
	s.tags = nil
	s.mu.Unlock()
	for _, f := range pending {
		f.resolve(err)
	}
}

// basicPublish frames and writes one message: a basic.publish method, its
// content header, and as many body frames as frame_max allows. All three
// are written as one contiguous Connection.WriteFrames call so no other
// goroutine's publish on the same channel can interleave its own frames in
// the middle. Under confirm mode it returns a future that settles once the
// broker acks or nacks the allocated delivery tag; otherwise it returns nil
// and the publish is fire-and-forget.
func (ch *Channel) basicPublish(msg Message) (*publishFuture, error) {
	if ch.isClosed() {
		return nil, ErrChannelClosed
	}

	frames := make([][]byte, 0, 3)

	ch.scratch.Reset()
	pub := BasicPublish{Exchange: msg.Exchange, RoutingKey: msg.RoutingKey, Mandatory: msg.Mandatory, Immediate: msg.Immediate}
	if err := writeMethodFrame(&ch.scratch, pub); err != nil {
		return nil, err
	}
	frames = append(frames, EncodeFrame(FrameMethod, ch.id, append([]byte(nil), ch.scratch.Bytes()...)))

	headerBuf := &bytes.Buffer{}
	props := msg.Properties
	if err := writeContentHeader(headerBuf, &contentHeader{ClassID: classBasic, BodySize: uint64(len(msg.Body)), Properties: &props}); err != nil {
		return nil, err
	}
	frames = append(frames, EncodeFrame(FrameHeader, ch.id, headerBuf.Bytes()))

	frameMax := ch.conn.FrameMax()
	maxBody := int(frameMax) - 8 // envelope overhead: 7-byte header + 1-byte terminator
	if maxBody <= 0 {
		maxBody = len(msg.Body)
		if maxBody == 0 {
			maxBody = 1
		}
	}
	body := msg.Body
	for len(body) > 0 {
		n := maxBody
		if n > len(body) {
			n = len(body)
		}
		frames = append(frames, EncodeFrame(FrameBody, ch.id, body[:n]))
		body = body[n:]
	}

	var fut *publishFuture
	ch.confirmMu.Lock()
	if ch.confirmMode {
		ch.nextDeliveryTag++
		tag := ch.nextDeliveryTag
		fut = &publishFuture{done: make(chan struct{}), started: time.Now()}
		ch.unconfirmed.add(tag, fut)
	}
	ch.confirmMu.Unlock()

	if err := ch.conn.WriteFrames(frames...); err != nil {
		return nil, err
	}
	metrics.PublishesTotal.WithLabelValues(msg.Exchange).Inc()
	return fut, nil
}

// Wait blocks until the broker settles this publish, returning the nack
// error if it was rejected.
func (f *publishFuture) Wait() error {
	<-f.done
	return f.err
}
