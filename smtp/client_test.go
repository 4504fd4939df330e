package smtp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposePlainMessage(t *testing.T) {
	body, err := compose(Message{
		From:    "sender@example.com",
		To:      []string{"one@example.com", "two@example.com"},
		Subject: "hello",
		Body:    "plain text body",
	})
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "From: sender@example.com\r\n")
	assert.Contains(t, text, "To: one@example.com, two@example.com\r\n")
	assert.Contains(t, text, "Subject: hello\r\n")
	assert.Contains(t, text, "Content-Type: text/plain")
	assert.Contains(t, text, "plain text body")
	assert.NotContains(t, text, "multipart/mixed")
}

func TestComposeWithAttachment(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "data.bin")
	payload := []byte{0x00, 0x01, 0x02, 0xfe, 0xff}
	require.NoError(t, os.WriteFile(fileName, payload, 0600))

	body, err := compose(Message{
		From:        "sender@example.com",
		To:          []string{"one@example.com"},
		Subject:     "with attachment",
		Body:        "see attached",
		Attachments: []string{fileName},
	})
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "multipart/mixed")
	assert.Contains(t, text, "Content-Transfer-Encoding: base64")
	assert.Contains(t, text, `filename="data.bin"`)
	assert.Contains(t, text, EncodeBase64(payload))
}

func TestComposeWrapsEncodedLines(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "big.bin")
	payload := make([]byte, 1024)
	require.NoError(t, os.WriteFile(fileName, payload, 0600))

	body, err := compose(Message{
		From:        "sender@example.com",
		To:          []string{"one@example.com"},
		Attachments: []string{fileName},
	})
	require.NoError(t, err)

	inPayload := false
	for _, line := range strings.Split(string(body), "\r\n") {
		if strings.Contains(line, "Content-Transfer-Encoding") {
			inPayload = true
			continue
		}
		if inPayload && strings.HasPrefix(line, "--") {
			break
		}
		if inPayload {
			assert.LessOrEqual(t, len(line), encodedLineLength)
		}
	}
}

func TestSendNeedsRecipient(t *testing.T) {
	client := NewClient(Config{ServerURL: "localhost:25"})
	err := client.Send(Message{From: "sender@example.com"})
	assert.Error(t, err)
}

func TestComposeMissingAttachmentFails(t *testing.T) {
	_, err := compose(Message{
		From:        "sender@example.com",
		To:          []string{"one@example.com"},
		Attachments: []string{"/does/not/exist.bin"},
	})
	assert.Error(t, err)
}
