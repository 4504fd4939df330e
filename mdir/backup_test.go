package mdir

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/antikgo/antik/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackup(t *testing.T) *Backup {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("maildir is not supported on Windows")
	}
	backup, err := NewWithLogger(filepath.Join(t.TempDir(), "maildir"), lib.NewTestLogger(t, "mdir"))
	require.NoError(t, err)
	return backup
}

func TestCreateMailboxTwice(t *testing.T) {
	backup := newTestBackup(t)
	require.NoError(t, backup.CreateMailbox("INBOX"))
	require.NoError(t, backup.CreateMailbox("INBOX"))

	for _, sub := range []string{"cur", "new", "tmp"} {
		info, err := os.Stat(filepath.Join(backup.Root(), "INBOX", sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDeliverMessage(t *testing.T) {
	backup := newTestBackup(t)
	body := "From: a@b.c\r\nSubject: test\r\n\r\nbody\r\n"

	key, err := backup.Deliver("INBOX", strings.NewReader(body))
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	files := mailboxFiles(t, backup, "INBOX")
	require.Len(t, files, 1)

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, body, string(content))
}

// mailboxFiles returns the delivered messages, wherever the maildir put them
// (new/ or cur/ depending on flags).
func mailboxFiles(t *testing.T, backup *Backup, mailbox string) []string {
	t.Helper()
	var files []string
	for _, sub := range []string{"new", "cur"} {
		entries, err := os.ReadDir(filepath.Join(backup.Root(), mailbox, sub))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			files = append(files, filepath.Join(backup.Root(), mailbox, sub, entry.Name()))
		}
	}
	return files
}

func TestDeliverToSeveralMailboxes(t *testing.T) {
	backup := newTestBackup(t)

	_, err := backup.Deliver("INBOX", strings.NewReader("message one"))
	require.NoError(t, err)
	_, err = backup.Deliver("Archive", strings.NewReader("message two"))
	require.NoError(t, err)

	for _, name := range []string{"INBOX", "Archive"} {
		assert.Len(t, mailboxFiles(t, backup, name), 1, "mailbox %s", name)
	}
}
