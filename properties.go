package amqpchannel

import "time"

// Properties holds the 14 standard `basic` content properties. Every field
// is a pointer (or Table, which is nil-able already) so "not set" can be
// told apart from the zero value — required to round-trip the presence
// flags bit-for-bit.
type Properties struct {
	ContentType     *string
	ContentEncoding *string
	Headers         Table
	DeliveryMode    *uint8
	Priority        *uint8
	CorrelationId   *string
	ReplyTo         *string
	Expiration      *string
	MessageId       *string
	Timestamp       *time.Time
	Type            *string
	UserId          *string
	AppId           *string
	ClusterId       *string
}

// propertyFlagCount is the number of presence bits; flags() sets them
// MSB-first, in the order the properties appear on the wire after the flags
// word.
const propertyFlagCount = 14

func (p *Properties) flags() uint16 {
	var f uint16
	set := func(bit int, present bool) {
		if present {
			f |= 1 << uint(15-bit)
		}
	}
	set(0, p.ContentType != nil)
	set(1, p.ContentEncoding != nil)
	set(2, p.Headers != nil)
	set(3, p.DeliveryMode != nil)
	set(4, p.Priority != nil)
	set(5, p.CorrelationId != nil)
	set(6, p.ReplyTo != nil)
	set(7, p.Expiration != nil)
	set(8, p.MessageId != nil)
	set(9, p.Timestamp != nil)
	set(10, p.Type != nil)
	set(11, p.UserId != nil)
	set(12, p.AppId != nil)
	set(13, p.ClusterId != nil)
	return f
}

func hasFlag(flags uint16, bit int) bool {
	return flags&(1<<uint(15-bit)) != 0
}

func (w *frameWriter) writeProperties(p *Properties) error {
	flags := p.flags()
	w.writeShort(flags)

	if p.ContentType != nil {
		if err := w.writeShortstr(*p.ContentType); err != nil {
			return err
		}
	}
	if p.ContentEncoding != nil {
		if err := w.writeShortstr(*p.ContentEncoding); err != nil {
			return err
		}
	}
	if p.Headers != nil {
		if err := w.writeTable(p.Headers); err != nil {
			return err
		}
	}
	if p.DeliveryMode != nil {
		w.writeOctet(*p.DeliveryMode)
	}
	if p.Priority != nil {
		w.writeOctet(*p.Priority)
	}
	if p.CorrelationId != nil {
		if err := w.writeShortstr(*p.CorrelationId); err != nil {
			return err
		}
	}
	if p.ReplyTo != nil {
		if err := w.writeShortstr(*p.ReplyTo); err != nil {
			return err
		}
	}
	if p.Expiration != nil {
		if err := w.writeShortstr(*p.Expiration); err != nil {
			return err
		}
	}
	if p.MessageId != nil {
		if err := w.writeShortstr(*p.MessageId); err != nil {
			return err
		}
	}
	if p.Timestamp != nil {
		w.writeTimestamp(*p.Timestamp)
	}
	if p.Type != nil {
		if err := w.writeShortstr(*p.Type); err != nil {
			return err
		}
	}
	if p.UserId != nil {
		if err := w.writeShortstr(*p.UserId); err != nil {
			return err
		}
	}
	if p.AppId != nil {
		if err := w.writeShortstr(*p.AppId); err != nil {
			return err
		}
	}
	if p.ClusterId != nil {
		if err := w.writeShortstr(*p.ClusterId); err != nil {
			return err
		}
	}
	return nil
}

func (r *frameReader) readProperties() (*Properties, error) {
	flags, err := r.readShort()
	if err != nil {
		return nil, err
	}
	p := &Properties{}

	if hasFlag(flags, 0) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.ContentType = &s
	}
	if hasFlag(flags, 1) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.ContentEncoding = &s
	}
	if hasFlag(flags, 2) {
		t, err := r.readTable()
		if err != nil {
			return nil, err
		}
		p.Headers = t
	}
	if hasFlag(flags, 3) {
		v, err := r.readOctet()
		if err != nil {
			return nil, err
		}
		p.DeliveryMode = &v
	}
	if hasFlag(flags, 4) {
		v, err := r.readOctet()
		if err != nil {
			return nil, err
		}
		p.Priority = &v
	}
	if hasFlag(flags, 5) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.CorrelationId = &s
	}
	if hasFlag(flags, 6) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.ReplyTo = &s
	}
	if hasFlag(flags, 7) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.Expiration = &s
	}
	if hasFlag(flags, 8) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.MessageId = &s
	}
	if hasFlag(flags, 9) {
		t, err := r.readTimestamp()
		if err != nil {
			return nil, err
		}
		p.Timestamp = &t
	}
	if hasFlag(flags, 10) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.Type = &s
	}
	if hasFlag(flags, 11) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.UserId = &s
	}
	if hasFlag(flags, 12) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.AppId = &s
	}
	if hasFlag(flags, 13) {
		s, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		p.ClusterId = &s
	}
	return p, nil
}
