package respio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "get",
			args: []string{"GET", "k"},
			want: "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n",
		},
		{
			name: "set with empty value",
			args: []string{"SET", "k", ""},
			want: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n",
		},
		{
			name: "utf8 lengths are byte lengths",
			args: []string{"SET", "k", "héllo"},
			want: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$6\r\nhéllo\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(EncodeCommand(nil, tt.args...)))
		})
	}
}

func TestEncodeCommand_AppendsToExistingBuffer(t *testing.T) {
	buf := EncodeCommand(nil, "MULTI")
	buf = EncodeCommand(buf, "GET", "k")
	assert.Equal(t, "*1\r\n$5\r\nMULTI\r\n*2\r\n$3\r\nGET\r\n$1\r\nk\r\n", string(buf))
}

func TestRespWriter_Replies(t *testing.T) {
	var out bytes.Buffer
	w := NewRespWriter(&out)

	require.NoError(t, w.WriteStatus("OK"))
	require.NoError(t, w.WriteError("ERR boom"))
	require.NoError(t, w.WriteInt64(-7))
	require.NoError(t, w.WriteBulkString([]byte("hi")))
	require.NoError(t, w.WriteBulkString(nil))
	require.NoError(t, w.WriteArray(nil))
	require.NoError(t, w.WriteArray([]*RespPacket{
		{Type: RespInt, Data: []byte("1")},
		{Type: RespString, Data: []byte("x")},
	}))
	require.NoError(t, w.Flush())

	assert.Equal(t,
		"+OK\r\n-ERR boom\r\n:-7\r\n$2\r\nhi\r\n$-1\r\n*-1\r\n*2\r\n:1\r\n$1\r\nx\r\n",
		out.String())
}

func TestRespWriter_WriteCommandParsesBack(t *testing.T) {
	var out bytes.Buffer
	w := NewRespWriter(&out)
	require.NoError(t, w.WriteCommand("LPUSH", "list", "a", "b"))
	require.NoError(t, w.Flush())

	reader := NewRespReaderFromBytes(out.Bytes())
	pkt, err := reader.Read()
	require.NoError(t, err)
	require.Equal(t, RespArray, pkt.Type)
	require.Len(t, pkt.Array, 4)
	assert.Equal(t, []byte("LPUSH"), pkt.Array[0].Data)
	assert.Equal(t, []byte("b"), pkt.Array[3].Data)
}
