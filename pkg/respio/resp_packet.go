package respio

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/redlinedb/redline/pkg/common"
)

var (
	logger    = common.InitLogger().WithName("resp")
	NilPacket = &RespPacket{Type: RespString}
)

// RespPacket is one parsed RESP value. A null bulk string has Type
// RespString and nil Data; a null array has Type RespArray and nil Array.
// The empty variants keep a non-nil zero-length Data/Array.
type RespPacket struct {
	Type  byte
	Data  []byte
	Array []*RespPacket
}

func (p *RespPacket) GetCommand() []byte {
	if p.Type == RespArray && len(p.Array) > 0 {
		return p.Array[0].Data
	}
	return p.Data
}

// IsNil reports a null bulk string or null array reply.
func (p *RespPacket) IsNil() bool {
	switch p.Type {
	case RespString:
		return p.Data == nil
	case RespArray:
		return p.Array == nil
	}
	return false
}

// Text returns the reply payload as a string. Null bulks come back empty.
func (p *RespPacket) Text() string {
	return string(p.Data)
}

// Int parses an integer reply. Status and bulk string replies holding an
// integer parse too; fractional text (such as an INCRBYFLOAT result of 3.5)
// fails here and needs Float.
func (p *RespPacket) Int() (int64, error) {
	switch p.Type {
	case RespInt, RespStatus, RespString:
		if p.Data == nil {
			return 0, &common.ProtocolError{Msg: "nil reply has no integer value"}
		}
		return strconv.ParseInt(string(p.Data), 10, 64)
	}
	return 0, &common.ProtocolError{Msg: fmt.Sprintf("reply type %q has no integer value", p.Type)}
}

// Float parses a float reply carried in a bulk string.
func (p *RespPacket) Float() (float64, error) {
	if p.Data == nil {
		return 0, &common.ProtocolError{Msg: "nil reply has no float value"}
	}
	return strconv.ParseFloat(string(p.Data), 64)
}

// Strings flattens an array reply into its bulk payloads.
func (p *RespPacket) Strings() ([]string, error) {
	if p.Type != RespArray && p.Type != RespMap {
		return nil, &common.ProtocolError{Msg: fmt.Sprintf("reply type %q is not an array", p.Type)}
	}
	out := make([]string, 0, len(p.Array))
	for _, elem := range p.Array {
		out = append(out, string(elem.Data))
	}
	return out, nil
}

// StringMap folds a map packet (or an even-length array) into a Go map.
func (p *RespPacket) StringMap() (map[string]string, error) {
	if p.Type != RespMap && p.Type != RespArray {
		return nil, &common.ProtocolError{Msg: fmt.Sprintf("reply type %q is not a map", p.Type)}
	}
	if len(p.Array)%2 != 0 {
		return nil, &common.ProtocolError{Msg: "cannot convert to map"}
	}
	out := make(map[string]string, len(p.Array)/2)
	for i := 0; i < len(p.Array); i += 2 {
		out[string(p.Array[i].Data)] = string(p.Array[i+1].Data)
	}
	return out, nil
}

// IsTxCmd classifies a MULTI/EXEC/DISCARD command name so the connection can
// track its transaction-open flag from observed replies.
func IsTxCmd(cmd []byte) (TxCmdStateType, bool) {
	if bytes.EqualFold(cmd, MultiCmd) {
		return TxCmdStateBegin, true
	} else if bytes.EqualFold(cmd, ExecCmd) || bytes.EqualFold(cmd, DiscardCmd) {
		return TxCmdStateEnd, true
	}
	return "", false
}

// String returns a string representation of the RespPacket
// Only for debugging purposes
func (p *RespPacket) String() string {
	switch p.Type {
	case RespStatus:
		return fmt.Sprintf("Status: \"%s\"", string(p.Data))

	case RespError:
		return fmt.Sprintf("Error: %s", string(p.Data))

	case RespInt:
		return fmt.Sprintf("Integer: %s", string(p.Data))

	case RespString:
		if p.Data == nil {
			return "String: (nil)"
		}
		return fmt.Sprintf("String: \"%s\"", string(p.Data))

	case RespArray:
		if p.Array == nil {
			return "Array: (nil)"
		}
		if len(p.Array) == 0 {
			return "Array: (empty)"
		}

		var b strings.Builder
		b.WriteString("Array:\n")
		for i, elem := range p.Array {
			elemStr := elem.String()
			lines := strings.Split(elemStr, "\n")
			b.WriteString(fmt.Sprintf("  %d) %s\n", i+1, lines[0]))
			for _, line := range lines[1:] {
				b.WriteString(fmt.Sprintf("     %s\n", line))
			}
		}
		return strings.TrimRight(b.String(), "\n")

	case RespMap:
		if p.Array == nil {
			return "Map: (nil)"
		}
		var b strings.Builder
		b.WriteString("Map:\n")
		for i := 0; i < len(p.Array); i += 2 {
			key := p.Array[i].String()
			value := "nil"
			if i+1 < len(p.Array) {
				value = p.Array[i+1].String()
			}
			b.WriteString(fmt.Sprintf("  %s => %s\n", key, value))
		}
		return strings.TrimRight(b.String(), "\n")

	default:
		return fmt.Sprintf("(unknown type: %c)", p.Type)
	}
}
