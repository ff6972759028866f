package amqpchannel

import "bytes"

// method is implemented by every decoded/encoded AMQP method struct. The
// class/method id pair is what the RPC engine and dispatcher switch on.
type method interface {
	classID() uint16
	methodID() uint16
}

func (w *frameWriter) writeBits(bits ...bool) {
	var b byte
	for i, v := range bits {
		if v {
			b |= 1 << uint(i)
		}
	}
	w.writeOctet(b)
}

func (r *frameReader) readBits(n int) ([]bool, error) {
	b, err := r.readOctet()
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = b&(1<<uint(i)) != 0
	}
	return out, nil
}

// ---- channel ----------------------------------------------------------

type methodChannelOpenT struct{ reserved1 string }

func (methodChannelOpenT) classID() uint16  { return classChannel }
func (methodChannelOpenT) methodID() uint16 { return methodChannelOpen }

type methodChannelOpenOkT struct{ reserved1 []byte }

func (methodChannelOpenOkT) classID() uint16  { return classChannel }
func (methodChannelOpenOkT) methodID() uint16 { return methodChannelOpenOk }

// ChannelFlow asks the peer to pause (Active=false) or resume (Active=true)
// delivery on the channel.
type ChannelFlow struct{ Active bool }

func (ChannelFlow) classID() uint16  { return classChannel }
func (ChannelFlow) methodID() uint16 { return methodChannelFlow }

type ChannelFlowOk struct{ Active bool }

func (ChannelFlowOk) classID() uint16  { return classChannel }
func (ChannelFlowOk) methodID() uint16 { return methodChannelFlowOk }

// ChannelClose is sent by either side to begin a graceful shutdown, or by
// the broker to report a fatal channel error (§4.2).
type ChannelClose struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func (ChannelClose) classID() uint16  { return classChannel }
func (ChannelClose) methodID() uint16 { return methodChannelClose }

type ChannelCloseOk struct{}

func (ChannelCloseOk) classID() uint16  { return classChannel }
func (ChannelCloseOk) methodID() uint16 { return methodChannelCloseOk }

// ---- exchange -----------------------------------------------------------

type ExchangeDeclare struct {
	Exchange   string
	Type       string
	Passive    bool
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Arguments  Table
}

func (ExchangeDeclare) classID() uint16  { return classExchange }
func (ExchangeDeclare) methodID() uint16 { return methodExchangeDeclare }

type ExchangeDeclareOk struct{}

func (ExchangeDeclareOk) classID() uint16  { return classExchange }
func (ExchangeDeclareOk) methodID() uint16 { return methodExchangeDeclareOk }

type ExchangeDelete struct {
	Exchange string
	IfUnused bool
	NoWait   bool
}

func (ExchangeDelete) classID() uint16  { return classExchange }
func (ExchangeDelete) methodID() uint16 { return methodExchangeDelete }

type ExchangeDeleteOk struct{}

func (ExchangeDeleteOk) classID() uint16  { return classExchange }
func (ExchangeDeleteOk) methodID() uint16 { return methodExchangeDeleteOk }

type ExchangeBind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   Table
}

func (ExchangeBind) classID() uint16  { return classExchange }
func (ExchangeBind) methodID() uint16 { return methodExchangeBind }

type ExchangeBindOk struct{}

func (ExchangeBindOk) classID() uint16  { return classExchange }
func (ExchangeBindOk) methodID() uint16 { return methodExchangeBindOk }

type ExchangeUnbind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   Table
}

func (ExchangeUnbind) classID() uint16  { return classExchange }
func (ExchangeUnbind) methodID() uint16 { return methodExchangeUnbind }

type ExchangeUnbindOk struct{}

func (ExchangeUnbindOk) classID() uint16  { return classExchange }
func (ExchangeUnbindOk) methodID() uint16 { return methodExchangeUnbindOk }

// ---- queue ----------------------------------------------------------------

type QueueDeclare struct {
	Queue      string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	NoWait     bool
	Arguments  Table
}

func (QueueDeclare) classID() uint16  { return classQueue }
func (QueueDeclare) methodID() uint16 { return methodQueueDeclare }

// QueueDeclareOk is the resolved value of a queueDeclare RPC (§4.2).
type QueueDeclareOk struct {
	Queue         string
	MessageCount  uint32
	ConsumerCount uint32
}

func (QueueDeclareOk) classID() uint16  { return classQueue }
func (QueueDeclareOk) methodID() uint16 { return methodQueueDeclareOk }

type QueueBind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	NoWait     bool
	Arguments  Table
}

func (QueueBind) classID() uint16  { return classQueue }
func (QueueBind) methodID() uint16 { return methodQueueBind }

type QueueBindOk struct{}

func (QueueBindOk) classID() uint16  { return classQueue }
func (QueueBindOk) methodID() uint16 { return methodQueueBindOk }

type QueueUnbind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  Table
}

func (QueueUnbind) classID() uint16  { return classQueue }
func (QueueUnbind) methodID() uint16 { return methodQueueUnbind }

type QueueUnbindOk struct{}

func (QueueUnbindOk) classID() uint16  { return classQueue }
func (QueueUnbindOk) methodID() uint16 { return methodQueueUnbindOk }

type QueuePurge struct {
	Queue  string
	NoWait bool
}

func (QueuePurge) classID() uint16  { return classQueue }
func (QueuePurge) methodID() uint16 { return methodQueuePurge }

type QueuePurgeOk struct{ MessageCount uint32 }

func (QueuePurgeOk) classID() uint16  { return classQueue }
func (QueuePurgeOk) methodID() uint16 { return methodQueuePurgeOk }

type QueueDelete struct {
	Queue    string
	IfUnused bool
	IfEmpty  bool
	NoWait   bool
}

func (QueueDelete) classID() uint16  { return classQueue }
func (QueueDelete) methodID() uint16 { return methodQueueDelete }

type QueueDeleteOk struct{ MessageCount uint32 }

func (QueueDeleteOk) classID() uint16  { return classQueue }
func (QueueDeleteOk) methodID() uint16 { return methodQueueDeleteOk }

// ---- basic ------------------------------------------------------------

type BasicQos struct {
	PrefetchSize  uint32
	PrefetchCount uint16
	Global        bool
}

func (BasicQos) classID() uint16  { return classBasic }
func (BasicQos) methodID() uint16 { return methodBasicQos }

type BasicQosOk struct{}

func (BasicQosOk) classID() uint16  { return classBasic }
func (BasicQosOk) methodID() uint16 { return methodBasicQosOk }

type BasicConsume struct {
	Queue       string
	ConsumerTag string
	NoLocal     bool
	NoAck       bool
	Exclusive   bool
	NoWait      bool
	Arguments   Table
}

func (BasicConsume) classID() uint16  { return classBasic }
func (BasicConsume) methodID() uint16 { return methodBasicConsume }

type BasicConsumeOk struct{ ConsumerTag string }

func (BasicConsumeOk) classID() uint16  { return classBasic }
func (BasicConsumeOk) methodID() uint16 { return methodBasicConsumeOk }

type BasicCancel struct {
	ConsumerTag string
	NoWait      bool
}

func (BasicCancel) classID() uint16  { return classBasic }
func (BasicCancel) methodID() uint16 { return methodBasicCancel }

type BasicCancelOk struct{ ConsumerTag string }

func (BasicCancelOk) classID() uint16  { return classBasic }
func (BasicCancelOk) methodID() uint16 { return methodBasicCancelOk }

type BasicPublish struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Immediate  bool
}

func (BasicPublish) classID() uint16  { return classBasic }
func (BasicPublish) methodID() uint16 { return methodBasicPublish }

type BasicReturn struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

func (BasicReturn) classID() uint16  { return classBasic }
func (BasicReturn) methodID() uint16 { return methodBasicReturn }

type BasicDeliver struct {
	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
}

func (BasicDeliver) classID() uint16  { return classBasic }
func (BasicDeliver) methodID() uint16 { return methodBasicDeliver }

type BasicGet struct {
	Queue string
	NoAck bool
}

func (BasicGet) classID() uint16  { return classBasic }
func (BasicGet) methodID() uint16 { return methodBasicGet }

type BasicGetOk struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
}

func (BasicGetOk) classID() uint16  { return classBasic }
func (BasicGetOk) methodID() uint16 { return methodBasicGetOk }

type BasicGetEmpty struct{}

func (BasicGetEmpty) classID() uint16  { return classBasic }
func (BasicGetEmpty) methodID() uint16 { return methodBasicGetEmpty }

type BasicAck struct {
	DeliveryTag uint64
	Multiple    bool
}

func (BasicAck) classID() uint16  { return classBasic }
func (BasicAck) methodID() uint16 { return methodBasicAck }

type BasicReject struct {
	DeliveryTag uint64
	Requeue     bool
}

func (BasicReject) classID() uint16  { return classBasic }
func (BasicReject) methodID() uint16 { return methodBasicReject }

type BasicRecover struct{ Requeue bool }

func (BasicRecover) classID() uint16  { return classBasic }
func (BasicRecover) methodID() uint16 { return methodBasicRecover }

type BasicRecoverOk struct{}

func (BasicRecoverOk) classID() uint16  { return classBasic }
func (BasicRecoverOk) methodID() uint16 { return methodBasicRecoverOk }

type BasicNack struct {
	DeliveryTag uint64
	Multiple    bool
	Requeue     bool
}

func (BasicNack) classID() uint16  { return classBasic }
func (BasicNack) methodID() uint16 { return methodBasicNack }

// ---- tx -----------------------------------------------------------------

type TxSelect struct{}

func (TxSelect) classID() uint16  { return classTx }
func (TxSelect) methodID() uint16 { return methodTxSelect }

type TxSelectOk struct{}

func (TxSelectOk) classID() uint16  { return classTx }
func (TxSelectOk) methodID() uint16 { return methodTxSelectOk }

type TxCommit struct{}

func (TxCommit) classID() uint16  { return classTx }
func (TxCommit) methodID() uint16 { return methodTxCommit }

type TxCommitOk struct{}

func (TxCommitOk) classID() uint16  { return classTx }
func (TxCommitOk) methodID() uint16 { return methodTxCommitOk }

type TxRollback struct{}

func (TxRollback) classID() uint16  { return classTx }
func (TxRollback) methodID() uint16 { return methodTxRollback }

type TxRollbackOk struct{}

func (TxRollbackOk) classID() uint16  { return classTx }
func (TxRollbackOk) methodID() uint16 { return methodTxRollbackOk }

// ---- confirm --------------------------------------------------------------

type ConfirmSelect struct{ NoWait bool }

func (ConfirmSelect) classID() uint16  { return classConfirm }
func (ConfirmSelect) methodID() uint16 { return methodConfirmSelect }

type ConfirmSelectOk struct{}

func (ConfirmSelectOk) classID() uint16  { return classConfirm }
func (ConfirmSelectOk) methodID() uint16 { return methodConfirmSelectOk }

// ---- connection (only what the channel layer must relay) ------------------

// ConnectionClose is forwarded to channel 0 by the Connection collaborator;
// the channel layer does not originate it, but must know its shape so it
// can be distinguished from a channel-level close when a frame arrives on
// channel 0.
type ConnectionClose struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func (ConnectionClose) classID() uint16  { return classConnection }
func (ConnectionClose) methodID() uint16 { return methodConnectionClose }

type ConnectionCloseOk struct{}

func (ConnectionCloseOk) classID() uint16  { return classConnection }
func (ConnectionCloseOk) methodID() uint16 { return methodConnectionCloseOk }

// writeMethodFrame renders classID+methodID+arguments into buf, ready to be
// wrapped by EncodeFrame.
func writeMethodFrame(buf *bytes.Buffer, m method) error {
	w := newFrameWriter(buf)
	w.writeShort(m.classID())
	w.writeShort(m.methodID())

	switch v := m.(type) {
	case methodChannelOpenT:
		return w.writeShortstr(v.reserved1)
	case ChannelFlow:
		w.writeBits(v.Active)
	case ChannelFlowOk:
		w.writeBits(v.Active)
	case ChannelClose:
		w.writeShort(v.ReplyCode)
		if err := w.writeShortstr(v.ReplyText); err != nil {
			return err
		}
		w.writeShort(v.ClassID)
		w.writeShort(v.MethodID)
	case ChannelCloseOk:

	case ExchangeDeclare:
		w.writeShort(0) // reserved ticket
		if err := w.writeShortstr(v.Exchange); err != nil {
			return err
		}
		if err := w.writeShortstr(v.Type); err != nil {
			return err
		}
		w.writeBits(v.Passive, v.Durable, v.AutoDelete, v.Internal, v.NoWait)
		return w.writeTable(v.Arguments)
	case ExchangeDeleteOk:
	case ExchangeDelete:
		w.writeShort(0)
		if err := w.writeShortstr(v.Exchange); err != nil {
			return err
		}
		w.writeBits(v.IfUnused, v.NoWait)
	case ExchangeBind:
		w.writeShort(0)
		if err := w.writeShortstr(v.Destination); err != nil {
			return err
		}
		if err := w.writeShortstr(v.Source); err != nil {
			return err
		}
		if err := w.writeShortstr(v.RoutingKey); err != nil {
			return err
		}
		w.writeBits(v.NoWait)
		return w.writeTable(v.Arguments)
	case ExchangeUnbind:
		w.writeShort(0)
		if err := w.writeShortstr(v.Destination); err != nil {
			return err
		}
		if err := w.writeShortstr(v.Source); err != nil {
			return err
		}
		if err := w.writeShortstr(v.RoutingKey); err != nil {
			return err
		}
		w.writeBits(v.NoWait)
		return w.writeTable(v.Arguments)
	case ExchangeBindOk:
	case ExchangeUnbindOk:

	case QueueDeclare:
		w.writeShort(0)
		if err := w.writeShortstr(v.Queue); err != nil {
			return err
		}
		w.writeBits(v.Passive, v.Durable, v.Exclusive, v.AutoDelete, v.NoWait)
		return w.writeTable(v.Arguments)
	case QueueBind:
		w.writeShort(0)
		if err := w.writeShortstr(v.Queue); err != nil {
			return err
		}
		if err := w.writeShortstr(v.Exchange); err != nil {
			return err
		}
		if err := w.writeShortstr(v.RoutingKey); err != nil {
			return err
		}
		w.writeBits(v.NoWait)
		return w.writeTable(v.Arguments)
	case QueueUnbind:
		w.writeShort(0)
		if err := w.writeShortstr(v.Queue); err != nil {
			return err
		}
		if err := w.writeShortstr(v.Exchange); err != nil {
			return err
		}
		if err := w.writeShortstr(v.RoutingKey); err != nil {
			return err
		}
		return w.writeTable(v.Arguments)
	case QueuePurge:
		w.writeShort(0)
		if err := w.writeShortstr(v.Queue); err != nil {
			return err
		}
		w.writeBits(v.NoWait)
	case QueueDelete:
		w.writeShort(0)
		if err := w.writeShortstr(v.Queue); err != nil {
			return err
		}
		w.writeBits(v.IfUnused, v.IfEmpty, v.NoWait)
	case QueueBindOk:
	case QueueUnbindOk:

	case BasicQos:
		w.writeLong(v.PrefetchSize)
		w.writeShort(v.PrefetchCount)
		w.writeBits(v.Global)
	case BasicConsume:
		w.writeShort(0)
		if err := w.writeShortstr(v.Queue); err != nil {
			return err
		}
		if err := w.writeShortstr(v.ConsumerTag); err != nil {
			return err
		}
		w.writeBits(v.NoLocal, v.NoAck, v.Exclusive, v.NoWait)
		return w.writeTable(v.Arguments)
	case BasicCancel:
		if err := w.writeShortstr(v.ConsumerTag); err != nil {
			return err
		}
		w.writeBits(v.NoWait)
	case BasicPublish:
		w.writeShort(0)
		if err := w.writeShortstr(v.Exchange); err != nil {
			return err
		}
		if err := w.writeShortstr(v.RoutingKey); err != nil {
			return err
		}
		w.writeBits(v.Mandatory, v.Immediate)
	case BasicGet:
		w.writeShort(0)
		if err := w.writeShortstr(v.Queue); err != nil {
			return err
		}
		w.writeBits(v.NoAck)
	case BasicAck:
		w.writeLongLong(v.DeliveryTag)
		w.writeBits(v.Multiple)
	case BasicReject:
		w.writeLongLong(v.DeliveryTag)
		w.writeBits(v.Requeue)
	case BasicNack:
		w.writeLongLong(v.DeliveryTag)
		w.writeBits(v.Multiple, v.Requeue)
	case BasicRecover:
		w.writeBits(v.Requeue)
	case BasicRecoverOk:
	case BasicQosOk:
	case BasicConsumeOk:
		return w.writeShortstr(v.ConsumerTag)
	case BasicCancelOk:
		return w.writeShortstr(v.ConsumerTag)

	case TxSelect, TxSelectOk, TxCommit, TxCommitOk, TxRollback, TxRollbackOk:

	case ConfirmSelect:
		w.writeBits(v.NoWait)
	case ConfirmSelectOk:

	case ConnectionClose:
		w.writeShort(v.ReplyCode)
		if err := w.writeShortstr(v.ReplyText); err != nil {
			return err
		}
		w.writeShort(v.ClassID)
		w.writeShort(v.MethodID)
	case ConnectionCloseOk:

	default:
		return newProtocolError("no encoder registered for method class=%d method=%d", m.classID(), m.methodID())
	}
	return nil
}

// decodeMethod parses a METHOD frame's payload into one of the concrete
// method types above.
func decodeMethod(payload []byte) (method, error) {
	r := newFrameReader(payload)
	classID, err := r.readShort()
	if err != nil {
		return nil, err
	}
	methodID, err := r.readShort()
	if err != nil {
		return nil, err
	}

	switch {
	case classID == classChannel && methodID == methodChannelOpenOk:
		reserved, err := r.readLongstr()
		return methodChannelOpenOkT{reserved1: reserved}, err
	case classID == classChannel && methodID == methodChannelFlow:
		bits, err := r.readBits(1)
		if err != nil {
			return nil, err
		}
		return ChannelFlow{Active: bits[0]}, nil
	case classID == classChannel && methodID == methodChannelFlowOk:
		bits, err := r.readBits(1)
		if err != nil {
			return nil, err
		}
		return ChannelFlowOk{Active: bits[0]}, nil
	case classID == classChannel && methodID == methodChannelClose:
		code, err := r.readShort()
		if err != nil {
			return nil, err
		}
		text, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		failClass, err := r.readShort()
		if err != nil {
			return nil, err
		}
		failMethod, err := r.readShort()
		if err != nil {
			return nil, err
		}
		return ChannelClose{ReplyCode: code, ReplyText: text, ClassID: failClass, MethodID: failMethod}, nil
	case classID == classChannel && methodID == methodChannelCloseOk:
		return ChannelCloseOk{}, nil

	case classID == classExchange && methodID == methodExchangeDeclareOk:
		return ExchangeDeclareOk{}, nil
	case classID == classExchange && methodID == methodExchangeDeleteOk:
		return ExchangeDeleteOk{}, nil
	case classID == classExchange && methodID == methodExchangeBindOk:
		return ExchangeBindOk{}, nil
	case classID == classExchange && methodID == methodExchangeUnbindOk:
		return ExchangeUnbindOk{}, nil

	case classID == classQueue && methodID == methodQueueDeclareOk:
		name, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		msgCount, err := r.readLong()
		if err != nil {
			return nil, err
		}
		consumerCount, err := r.readLong()
		if err != nil {
			return nil, err
		}
		return QueueDeclareOk{Queue: name, MessageCount: msgCount, ConsumerCount: consumerCount}, nil
	case classID == classQueue && methodID == methodQueueBindOk:
		return QueueBindOk{}, nil
	case classID == classQueue && methodID == methodQueueUnbindOk:
		return QueueUnbindOk{}, nil
	case classID == classQueue && methodID == methodQueuePurgeOk:
		n, err := r.readLong()
		return QueuePurgeOk{MessageCount: n}, err
	case classID == classQueue && methodID == methodQueueDeleteOk:
		n, err := r.readLong()
		return QueueDeleteOk{MessageCount: n}, err

	case classID == classBasic && methodID == methodBasicQosOk:
		return BasicQosOk{}, nil
	case classID == classBasic && methodID == methodBasicConsumeOk:
		tag, err := r.readShortstr()
		return BasicConsumeOk{ConsumerTag: tag}, err
	case classID == classBasic && methodID == methodBasicCancel:
		tag, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		bits, err := r.readBits(1)
		if err != nil {
			return nil, err
		}
		return BasicCancel{ConsumerTag: tag, NoWait: bits[0]}, nil
	case classID == classBasic && methodID == methodBasicCancelOk:
		tag, err := r.readShortstr()
		return BasicCancelOk{ConsumerTag: tag}, err
	case classID == classBasic && methodID == methodBasicReturn:
		code, err := r.readShort()
		if err != nil {
			return nil, err
		}
		text, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		exchange, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		routingKey, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		return BasicReturn{ReplyCode: code, ReplyText: text, Exchange: exchange, RoutingKey: routingKey}, nil
	case classID == classBasic && methodID == methodBasicDeliver:
		tag, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		deliveryTag, err := r.readLongLong()
		if err != nil {
			return nil, err
		}
		bits, err := r.readBits(1)
		if err != nil {
			return nil, err
		}
		exchange, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		routingKey, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		return BasicDeliver{ConsumerTag: tag, DeliveryTag: deliveryTag, Redelivered: bits[0], Exchange: exchange, RoutingKey: routingKey}, nil
	case classID == classBasic && methodID == methodBasicGetOk:
		deliveryTag, err := r.readLongLong()
		if err != nil {
			return nil, err
		}
		bits, err := r.readBits(1)
		if err != nil {
			return nil, err
		}
		exchange, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		routingKey, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		msgCount, err := r.readLong()
		if err != nil {
			return nil, err
		}
		return BasicGetOk{DeliveryTag: deliveryTag, Redelivered: bits[0], Exchange: exchange, RoutingKey: routingKey, MessageCount: msgCount}, nil
	case classID == classBasic && methodID == methodBasicGetEmpty:
		_, err := r.readShortstr() // reserved
		return BasicGetEmpty{}, err
	case classID == classBasic && methodID == methodBasicAck:
		tag, err := r.readLongLong()
		if err != nil {
			return nil, err
		}
		bits, err := r.readBits(1)
		if err != nil {
			return nil, err
		}
		return BasicAck{DeliveryTag: tag, Multiple: bits[0]}, nil
	case classID == classBasic && methodID == methodBasicNack:
		tag, err := r.readLongLong()
		if err != nil {
			return nil, err
		}
		bits, err := r.readBits(2)
		if err != nil {
			return nil, err
		}
		return BasicNack{DeliveryTag: tag, Multiple: bits[0], Requeue: bits[1]}, nil
	case classID == classBasic && methodID == methodBasicRecoverOk:
		return BasicRecoverOk{}, nil

	case classID == classTx && methodID == methodTxSelectOk:
		return TxSelectOk{}, nil
	case classID == classTx && methodID == methodTxCommitOk:
		return TxCommitOk{}, nil
	case classID == classTx && methodID == methodTxRollbackOk:
		return TxRollbackOk{}, nil

	case classID == classConfirm && methodID == methodConfirmSelectOk:
		return ConfirmSelectOk{}, nil

	case classID == classConnection && methodID == methodConnectionClose:
		code, err := r.readShort()
		if err != nil {
			return nil, err
		}
		text, err := r.readShortstr()
		if err != nil {
			return nil, err
		}
		failClass, err := r.readShort()
		if err != nil {
			return nil, err
		}
		failMethod, err := r.readShort()
		if err != nil {
			return nil, err
		}
		return ConnectionClose{ReplyCode: code, ReplyText: text, ClassID: failClass, MethodID: failMethod}, nil
	case classID == classConnection && methodID == methodConnectionCloseOk:
		return ConnectionCloseOk{}, nil

	default:
		return nil, newProtocolError("no decoder registered for method class=%d method=%d", classID, methodID)
	}
}
