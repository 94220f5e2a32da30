package respio

type TxCmdStateType string

const (
	TxCmdStateBegin TxCmdStateType = "begin"
	TxCmdStateEnd   TxCmdStateType = "end"
)

var (
	MultiCmd    = []byte("MULTI")
	ExecCmd     = []byte("EXEC")
	DiscardCmd  = []byte("DISCARD")
	OkReply     = []byte("OK")
	QueuedReply = []byte("QUEUED")
)

const (
	CRLF     = "\r\n"
	Nil      = "$-1\r\n"
	NilArray = "*-1\r\n"
)

// MaxClientsNotice is the reply Redis sends (and then closes) when the
// server-side client limit is hit. The framer short-circuits it so the
// connection can tear itself down instead of delivering a normal error.
const MaxClientsNotice = "-ERR max number of clients reached"

const (
	RespStatus = byte('+') // +<string>\r\n
	RespError  = byte('-') // -<string>\r\n
	RespString = byte('$') // $<length>\r\n<bytes>\r\n
	RespInt    = byte(':') // :<number>\r\n
	RespArray  = byte('*') // *<len>\r\n...
	// RespMap never appears on the wire in RESP2. The reader produces it
	// when a caller asks for an array reply folded into key/value pairs.
	RespMap = byte('%')
)
