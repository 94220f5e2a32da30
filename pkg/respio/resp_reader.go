package respio

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strconv"

	"github.com/redlinedb/redline/pkg/common"
)

const (
	MaxBulkSize = 512 * common.MB
)

var (
	ErrTooLarge = errors.New("redline: bulk value too large")
)

// RespReader parses RESP values from a line framer, one value per Read call.
// The reader keeps no state between calls; partial frames live in the framer.
type RespReader struct {
	fr *Framer
}

func NewRespReader(conn net.Conn) *RespReader {
	return &RespReader{fr: NewFramer(conn)}
}

func NewRespReaderFrom(src io.Reader) *RespReader {
	return &RespReader{fr: NewFramer(src)}
}

func NewRespReaderFromBytes(data []byte) *RespReader {
	return &RespReader{fr: NewFramer(bytes.NewReader(data))}
}

func (r *RespReader) Framer() *Framer {
	return r.fr
}

func (r *RespReader) Buffered() int {
	return r.fr.Buffered()
}

// ReadReply reads one top-level reply. With expectsMap set, an array reply is
// folded into key/value pairs; an odd-length array cannot fold and fails.
func (r *RespReader) ReadReply(expectsMap bool) (*RespPacket, error) {
	pkt, err := r.Read()
	if err != nil {
		return nil, err
	}
	if expectsMap && pkt.Type == RespArray && pkt.Array != nil {
		if len(pkt.Array)%2 != 0 {
			return nil, &common.ProtocolError{Msg: "cannot convert to map"}
		}
		pkt.Type = RespMap
	}
	return pkt, nil
}

// Read reads a complete RESP value, recursing for arrays.
func (r *RespReader) Read() (*RespPacket, error) {
	line, err := r.fr.ReadLine(false)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, &common.ProtocolError{Msg: "protocol error"}
	}

	switch line[0] {
	case RespStatus:
		return &RespPacket{Type: RespStatus, Data: line[1:]}, nil

	case RespError:
		return &RespPacket{Type: RespError, Data: line[1:]}, nil

	case RespInt:
		n, err := encodeToInt64(line[1:])
		if err != nil {
			logger.Error(err, "RespReader failed to parse integer reply")
			return nil, &common.ProtocolError{Msg: "protocol error"}
		}
		return &RespPacket{Type: RespInt, Data: []byte(strconv.FormatInt(n, 10))}, nil

	case RespString:
		return r.readBulk(line[1:])

	case RespArray:
		return r.readArray(line[1:])

	default:
		return nil, &common.ProtocolError{Msg: "protocol error"}
	}
}

// readBulk consumes a bulk string body. Raw lines are absorbed with their
// CRLFs until the declared length is reached, so payloads containing CRLF
// reassemble intact; the final partial line is truncated to the residual.
func (r *RespReader) readBulk(lenPart []byte) (*RespPacket, error) {
	length, err := encodeToInt64(lenPart)
	if err != nil {
		return nil, &common.ProtocolError{Msg: "protocol error"}
	}
	if length == -1 {
		return &RespPacket{Type: RespString}, nil
	}
	if length > MaxBulkSize {
		return nil, ErrTooLarge
	}
	if length == 0 {
		if _, err := r.fr.ReadLine(true); err != nil {
			return nil, err
		}
		return &RespPacket{Type: RespString, Data: []byte{}}, nil
	}

	data := make([]byte, 0, length)
	for int64(len(data)) < length {
		chunk, err := r.fr.ReadLine(true)
		if err != nil {
			return nil, err
		}
		if residual := length - int64(len(data)); int64(len(chunk)) > residual {
			chunk = chunk[:residual]
		}
		data = append(data, chunk...)
	}
	return &RespPacket{Type: RespString, Data: data}, nil
}

func (r *RespReader) readArray(lenPart []byte) (*RespPacket, error) {
	length, err := encodeToInt64(lenPart)
	if err != nil {
		return nil, &common.ProtocolError{Msg: "protocol error"}
	}
	if length == -1 {
		return &RespPacket{Type: RespArray}, nil
	}
	items := make([]*RespPacket, length)
	for i := int64(0); i < length; i++ {
		elem, err := r.Read()
		if err != nil {
			return nil, err
		}
		items[i] = elem
	}
	return &RespPacket{Type: RespArray, Array: items}, nil
}

// Helper function for parsing integers
func encodeToInt64(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, &common.ProtocolError{Msg: "protocol error"}
	}
	if len(b) < 10 { // Fast path for small numbers
		var neg, i = false, 0
		switch b[0] {
		case '-':
			neg = true
			fallthrough
		case '+':
			i++
		}
		if len(b) != i {
			var n int64
			for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
				n = int64(b[i]-'0') + n*10
			}
			if len(b) == i {
				if neg {
					n = -n
				}
				return n, nil
			}
		}
	}
	return strconv.ParseInt(string(b), 10, 64)
}
