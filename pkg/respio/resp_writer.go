package respio

import (
	"bufio"
	"io"
	"strconv"
)

const DefaultWriteBufferSize = 8 * 1024

// EncodeCommand appends the RESP array form of argv to dst and returns the
// extended slice. Every argument is written as a bulk string; the codec does
// not interpret numbers specially.
func EncodeCommand(dst []byte, args ...string) []byte {
	dst = append(dst, RespArray)
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, CRLF...)
	for _, arg := range args {
		dst = append(dst, RespString)
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, arg...)
		dst = append(dst, CRLF...)
	}
	return dst
}

type RespWriter struct {
	writer *bufio.Writer
}

func NewRespWriter(w io.Writer) *RespWriter {
	return &RespWriter{
		writer: bufio.NewWriterSize(w, DefaultWriteBufferSize),
	}
}

// WriteCommand writes one command in RESP array form without flushing.
func (w *RespWriter) WriteCommand(args ...string) error {
	_, err := w.writer.Write(EncodeCommand(nil, args...))
	return err
}

// WriteRaw writes pre-encoded bytes (a pipeline's accumulated buffer).
func (w *RespWriter) WriteRaw(p []byte) error {
	_, err := w.writer.Write(p)
	return err
}

// WriteStatus writes a status response (e.g., "OK")
func (w *RespWriter) WriteStatus(status string) error {
	if err := w.writer.WriteByte(RespStatus); err != nil {
		return err
	}
	if _, err := w.writer.WriteString(status); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteError writes an error response
func (w *RespWriter) WriteError(msg string) error {
	if err := w.writer.WriteByte(RespError); err != nil {
		return err
	}
	if _, err := w.writer.WriteString(msg); err != nil {
		return err
	}
	return w.writeCRLF()
}

func (w *RespWriter) WriteInt64(n int64) error {
	if err := w.writer.WriteByte(RespInt); err != nil {
		return err
	}
	if _, err := w.writer.WriteString(strconv.FormatInt(n, 10)); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteBulkString writes a bulk string; nil writes the null bulk.
func (w *RespWriter) WriteBulkString(b []byte) error {
	if b == nil {
		return w.writeNullBulk()
	}
	if err := w.writer.WriteByte(RespString); err != nil {
		return err
	}
	if _, err := w.writer.WriteString(strconv.Itoa(len(b))); err != nil {
		return err
	}
	if err := w.writeCRLF(); err != nil {
		return err
	}
	if _, err := w.writer.Write(b); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteArray writes an array of RESP packets; nil writes the null array.
func (w *RespWriter) WriteArray(array []*RespPacket) error {
	if array == nil {
		return w.writeNullArray()
	}
	if err := w.writer.WriteByte(RespArray); err != nil {
		return err
	}
	if _, err := w.writer.WriteString(strconv.Itoa(len(array))); err != nil {
		return err
	}
	if err := w.writeCRLF(); err != nil {
		return err
	}
	for _, pkt := range array {
		if err := w.Write(pkt); err != nil {
			return err
		}
	}
	return nil
}

// Write writes a complete RESP packet to the underlying bufio.Writer.
func (w *RespWriter) Write(p *RespPacket) error {
	switch p.Type {
	case RespStatus:
		return w.WriteStatus(string(p.Data))

	case RespError:
		return w.WriteError(string(p.Data))

	case RespInt:
		val, err := strconv.ParseInt(string(p.Data), 10, 64)
		if err != nil {
			return err
		}
		return w.WriteInt64(val)

	case RespString:
		return w.WriteBulkString(p.Data)

	case RespArray, RespMap:
		return w.WriteArray(p.Array)

	default:
		logger.Info("RespWriter unknown packet type", "type", p.Type)
		return w.WriteBulkString(p.Data)
	}
}

func (w *RespWriter) writeCRLF() error {
	_, err := w.writer.WriteString(CRLF)
	return err
}

func (w *RespWriter) writeNullBulk() error {
	_, err := w.writer.WriteString(Nil)
	return err
}

func (w *RespWriter) writeNullArray() error {
	_, err := w.writer.WriteString(NilArray)
	return err
}

// Flush writes any buffered data to the underlying io.Writer
func (w *RespWriter) Flush() error {
	return w.writer.Flush()
}
