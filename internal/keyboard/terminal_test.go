package keyboard

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadKeysStopsWithInterruptOnCtrlC(t *testing.T) {
	out := make(chan Event, 16)
	err := readKeys(bufio.NewReader(strings.NewReader("ORT\x03X123\r")), func() time.Time { return t0 }, out)
	require.ErrorIs(t, err, ErrInterrupted)

	close(out)
	var got []rune
	for ev := range out {
		got = append(got, ev.Rune)
	}
	assert.Equal(t, []rune("ORT"), got)
}

func TestReadKeysEndOfInput(t *testing.T) {
	out := make(chan Event, 16)
	err := readKeys(bufio.NewReader(strings.NewReader("AB\r")), func() time.Time { return t0 }, out)
	assert.EqualError(t, err, "EOF")
	assert.Len(t, out, 3)
}

func TestCRLFWriter(t *testing.T) {
	var buf bytes.Buffer
	w := CRLFWriter(&buf)

	n, err := w.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, len("first\nsecond\n"), n)
	assert.Equal(t, "first\r\nsecond\r\n", buf.String())
}
