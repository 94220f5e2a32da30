package respio

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlinedb/redline/pkg/common"
)

// RespTestCase defines the structure for RESP protocol test cases
type RespTestCase struct {
	name     string
	input    []byte
	expected []*RespPacket
}

// chunkedReader delivers its payload in fixed-size chunks to exercise
// framing across arbitrary read boundaries.
type chunkedReader struct {
	data  []byte
	pos   int
	chunk int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data)-r.pos {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func TestRespReader_Read(t *testing.T) {
	cmdStreams := [][]byte{
		[]byte("*4\r\n$4\r\nHSET\r\n$6\r\nmyhash\r\n$6\r\nfield1\r\n$5\r\nHello\r\n"),
		[]byte("*5\r\n$5\r\nHMGET\r\n$6\r\nmyhash\r\n$6\r\nfield1\r\n$6\r\nfield2\r\n$7\r\nnofield\r\n"),
	}

	tests := []RespTestCase{
		{
			name:  "HSET command",
			input: cmdStreams[0],
			expected: []*RespPacket{
				{
					Type: RespArray,
					Array: []*RespPacket{
						{Type: RespString, Data: []byte("HSET")},
						{Type: RespString, Data: []byte("myhash")},
						{Type: RespString, Data: []byte("field1")},
						{Type: RespString, Data: []byte("Hello")},
					},
				},
			},
		},
		{
			name:  "HMGET command",
			input: cmdStreams[1],
			expected: []*RespPacket{
				{
					Type: RespArray,
					Array: []*RespPacket{
						{Type: RespString, Data: []byte("HMGET")},
						{Type: RespString, Data: []byte("myhash")},
						{Type: RespString, Data: []byte("field1")},
						{Type: RespString, Data: []byte("field2")},
						{Type: RespString, Data: []byte("nofield")},
					},
				},
			},
		},
		{
			name:  "mixed reply with null bulk and integer",
			input: []byte("*3\r\n$3\r\nfoo\r\n$-1\r\n:42\r\n"),
			expected: []*RespPacket{
				{
					Type: RespArray,
					Array: []*RespPacket{
						{Type: RespString, Data: []byte("foo")},
						{Type: RespString, Data: nil},
						{Type: RespInt, Data: []byte("42")},
					},
				},
			},
		},
		{
			name:  "status, error and empty bulk",
			input: []byte("+OK\r\n-ERR boom\r\n$0\r\n\r\n"),
			expected: []*RespPacket{
				{Type: RespStatus, Data: []byte("OK")},
				{Type: RespError, Data: []byte("ERR boom")},
				{Type: RespString, Data: []byte{}},
			},
		},
		{
			name:  "null and empty arrays are distinct",
			input: []byte("*-1\r\n*0\r\n"),
			expected: []*RespPacket{
				{Type: RespArray, Array: nil},
				{Type: RespArray, Array: []*RespPacket{}},
			},
		},
		{
			name:  "bulk payload containing CRLF",
			input: []byte("$10\r\nab\r\ncd\r\nef\r\n"),
			expected: []*RespPacket{
				{Type: RespString, Data: []byte("ab\r\ncd\r\nef")},
			},
		},
		{
			name:  "nested array",
			input: []byte("*2\r\n*2\r\n:1\r\n:2\r\n$1\r\nx\r\n"),
			expected: []*RespPacket{
				{
					Type: RespArray,
					Array: []*RespPacket{
						{
							Type: RespArray,
							Array: []*RespPacket{
								{Type: RespInt, Data: []byte("1")},
								{Type: RespInt, Data: []byte("2")},
							},
						},
						{Type: RespString, Data: []byte("x")},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewRespReaderFromBytes(tt.input)
			for _, expected := range tt.expected {
				result, err := reader.Read()
				require.NoError(t, err)
				assertPacketEqual(t, expected, result)
			}
		})

		// Frame-split invariance: the same bytes delivered one at a time
		// parse to the identical values.
		t.Run(tt.name+" byte-at-a-time", func(t *testing.T) {
			reader := NewRespReaderFrom(&chunkedReader{data: tt.input, chunk: 1})
			for _, expected := range tt.expected {
				result, err := reader.Read()
				require.NoError(t, err)
				assertPacketEqual(t, expected, result)
			}
		})
	}
}

func assertPacketEqual(t *testing.T, expected, result *RespPacket) {
	t.Helper()
	assert.Equal(t, expected.Type, result.Type)
	assert.Equal(t, expected.Data, result.Data)
	if expected.Array == nil {
		assert.Nil(t, result.Array)
		return
	}
	require.Equal(t, len(expected.Array), len(result.Array))
	for i := range expected.Array {
		assertPacketEqual(t, expected.Array[i], result.Array[i])
	}
}

func TestRespReader_RoundTrip(t *testing.T) {
	argv := []string{"HSET", "myhash", "field1", "héllo wörld"}
	encoded := EncodeCommand(nil, argv...)

	reader := NewRespReaderFromBytes(encoded)
	pkt, err := reader.Read()
	require.NoError(t, err)
	require.Equal(t, RespArray, pkt.Type)
	require.Len(t, pkt.Array, len(argv))
	for i, arg := range argv {
		assert.Equal(t, []byte(arg), pkt.Array[i].Data)
	}
}

func TestRespReader_UnknownLeadingByte(t *testing.T) {
	reader := NewRespReaderFromBytes([]byte("?garbage\r\n"))
	_, err := reader.Read()
	var protoErr *common.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.EqualError(t, err, "redline: protocol error")
}

func TestRespReader_MapFold(t *testing.T) {
	reader := NewRespReaderFromBytes([]byte("*2\r\n$1\r\nf\r\n$3\r\n3.5\r\n"))
	pkt, err := reader.ReadReply(true)
	require.NoError(t, err)
	assert.Equal(t, RespMap, pkt.Type)
	fields, err := pkt.StringMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f": "3.5"}, fields)
}

func TestRespReader_MapFoldOddLengthFails(t *testing.T) {
	reader := NewRespReaderFromBytes([]byte("*3\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n"))
	_, err := reader.ReadReply(true)
	var protoErr *common.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Contains(t, err.Error(), "cannot convert to map")
}

func TestRespReader_MapFoldLeavesPlainReadsAlone(t *testing.T) {
	reader := NewRespReaderFromBytes([]byte("*2\r\n$1\r\na\r\n$1\r\nb\r\n"))
	pkt, err := reader.ReadReply(false)
	require.NoError(t, err)
	assert.Equal(t, RespArray, pkt.Type)
}

func TestRespReader_TruncatedStreamPropagatesSourceError(t *testing.T) {
	reader := NewRespReaderFromBytes([]byte("$5\r\nhe"))
	_, err := reader.Read()
	require.Error(t, err)
	var protoErr *common.ProtocolError
	assert.False(t, errors.As(err, &protoErr))
}
