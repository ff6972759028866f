package amqpchannel

// Frame types, as laid out on the wire: type:u8 | channel:u16 | size:u32 | payload | 0xCE.
const (
	FrameMethod    = 1
	FrameHeader    = 2
	FrameBody      = 3
	FrameHeartbeat = 8
)

// frameEnd is the fixed terminator byte of every frame.
const frameEnd = 0xCE

// AMQP 0-9-1 class identifiers.
const (
	classConnection = 10
	classChannel    = 20
	classExchange   = 40
	classQueue      = 50
	classBasic      = 60
	classTx         = 90
	classConfirm    = 85
)

// Method identifiers, scoped per class above. Matches the published AMQP 0-9-1
// method table bit-for-bit; a garbled constant here means a peer that can't
// parse our frames at all.
const (
	methodConnectionClose   = 50
	methodConnectionCloseOk = 51

	methodChannelOpen     = 10
	methodChannelOpenOk   = 11
	methodChannelFlow     = 20
	methodChannelFlowOk   = 21
	methodChannelClose    = 40
	methodChannelCloseOk  = 41

	methodExchangeDeclare   = 10
	methodExchangeDeclareOk = 11
	methodExchangeDelete    = 20
	methodExchangeDeleteOk  = 21
	methodExchangeBind      = 30
	methodExchangeBindOk    = 31
	methodExchangeUnbind    = 40
	methodExchangeUnbindOk  = 51

	methodQueueDeclare   = 10
	methodQueueDeclareOk = 11
	methodQueueBind      = 20
	methodQueueBindOk    = 21
	methodQueuePurge     = 30
	methodQueuePurgeOk   = 31
	methodQueueDelete    = 40
	methodQueueDeleteOk  = 41
	methodQueueUnbind    = 50
	methodQueueUnbindOk  = 51

	methodBasicQos         = 10
	methodBasicQosOk       = 11
	methodBasicConsume     = 20
	methodBasicConsumeOk   = 21
	methodBasicCancel      = 30
	methodBasicCancelOk    = 31
	methodBasicPublish     = 40
	methodBasicReturn      = 50
	methodBasicDeliver     = 60
	methodBasicGet         = 70
	methodBasicGetOk       = 71
	methodBasicGetEmpty    = 72
	methodBasicAck         = 80
	methodBasicReject      = 90
	methodBasicRecoverAsync = 100
	methodBasicRecover     = 110
	methodBasicRecoverOk   = 111
	methodBasicNack        = 120

	methodTxSelect     = 10
	methodTxSelectOk   = 11
	methodTxCommit     = 20
	methodTxCommitOk   = 21
	methodTxRollback   = 30
	methodTxRollbackOk = 31

	methodConfirmSelect   = 10
	methodConfirmSelectOk = 11
)

// Reply codes used when the engine itself raises a channel or connection
// error (as opposed to relaying one the broker sent us).
const (
	replySuccess         = 200
	replyFrameError      = 501
	replyUnexpectedFrame = 505
	replyInternalError   = 541
)

// field-table type tags. Unknown tags on the wire are a ProtocolError.
const (
	tagBoolean     = 't'
	tagShortShort  = 'b' // i8
	tagShortShortU = 'B' // u8
	tagShort       = 's' // i16
	tagShortU      = 'u' // u16
	tagLong        = 'I' // i32
	tagLongU       = 'i' // u32
	tagLongLong    = 'l' // i64
	tagFloat       = 'f'
	tagDouble      = 'd'
	tagDecimal     = 'D'
	tagLongStr     = 'S'
	tagArray       = 'A'
	tagTimestamp   = 'T'
	tagTable       = 'F'
	tagVoid        = 'V'
)
