package limitio

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWithoutLimit(t *testing.T) {
	reader := NewReader(strings.NewReader("some data"))
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "some data", string(data))
}

func TestWriterWithoutLimit(t *testing.T) {
	buffer := &bytes.Buffer{}
	writer := NewWriter(buffer)
	n, err := writer.Write([]byte("some data"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "some data", buffer.String())
}

func TestReaderIsRateLimited(t *testing.T) {
	payload := strings.Repeat("x", 300)
	reader := NewReader(strings.NewReader(payload))
	reader.SetRateLimit(1000, 100)

	start := time.Now()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	// 300 bytes at 1000 bytes/sec with a 100-byte burst needs to wait for
	// at least some of the tokens
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWriterKeepsDataIntact(t *testing.T) {
	buffer := &bytes.Buffer{}
	writer := NewWriter(buffer)
	writer.SetRateLimit(10000, 1000)

	payload := strings.Repeat("payload ", 100)
	n, err := writer.Write([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buffer.String())
}
