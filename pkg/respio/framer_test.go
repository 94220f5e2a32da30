package respio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramer_StrippedAndRawModes(t *testing.T) {
	f := NewFramer(nil)
	f.Feed([]byte("+OK\r\n$5\r\n"))

	line, ok, err := f.TryLine(false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("+OK"), line)

	line, ok, err = f.TryLine(true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("$5\r\n"), line)

	_, ok, err = f.TryLine(false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFramer_PartialLineAcrossFeeds(t *testing.T) {
	f := NewFramer(nil)
	f.Feed([]byte("+PA"))
	_, ok, err := f.TryLine(false)
	require.NoError(t, err)
	assert.False(t, ok)

	f.Feed([]byte("RT\r"))
	_, ok, err = f.TryLine(false)
	require.NoError(t, err)
	assert.False(t, ok)

	f.Feed([]byte("\n"))
	line, ok, err := f.TryLine(false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("+PART"), line)
}

func TestFramer_OverflowKeepsTrailingBytes(t *testing.T) {
	f := NewFramer(nil)
	junk := bytes.Repeat([]byte("x"), MaxLineBuffer)
	f.Feed(junk)
	f.Feed([]byte("yyyy"))
	assert.Equal(t, MaxLineBuffer, f.Buffered())

	// The retained suffix still frames once a CRLF finally arrives.
	f.Feed([]byte("\r\n"))
	line, ok, err := f.TryLine(false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MaxLineBuffer, len(line))
	assert.Equal(t, byte('y'), line[len(line)-1])
}

func TestFramer_OverflowDoesNotDropFramedData(t *testing.T) {
	f := NewFramer(nil)
	f.Feed([]byte("+OK\r\n"))
	f.Feed(bytes.Repeat([]byte("x"), 2*MaxLineBuffer))

	// The complete line before the junk is untouched by the cap.
	line, ok, err := f.TryLine(false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("+OK"), line)
}

func TestFramer_MaxClientsNoticeShortCircuits(t *testing.T) {
	f := NewFramer(nil)
	hookFired := false
	f.SetOverloadHook(func() { hookFired = true })

	f.Feed([]byte(MaxClientsNotice + "\r\n+OK\r\n"))
	_, ok, err := f.TryLine(false)
	assert.ErrorIs(t, err, ErrServerOverloaded)
	assert.False(t, ok)
	assert.True(t, hookFired)
}

func TestFramer_OtherErrorLinesPassThrough(t *testing.T) {
	f := NewFramer(nil)
	f.SetOverloadHook(func() { t.Fatal("hook must not fire for ordinary errors") })

	f.Feed([]byte("-ERR wrong number of arguments\r\n"))
	line, ok, err := f.TryLine(false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("-ERR wrong number of arguments"), line)
}
