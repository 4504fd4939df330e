// Package mdir delivers downloaded messages into a local maildir tree, one
// folder per mailbox under the account root.
package mdir

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/antikgo/antik/lib"
	"github.com/emersion/go-maildir"
)

type Backup struct {
	root string
	log  lib.Logger
}

func New(root string) (*Backup, error) {
	return NewWithLogger(root, nil)
}

func NewWithLogger(root string, logger lib.Logger) (*Backup, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.New("maildir is not supported on Windows")
	}
	if logger == nil {
		logger = &lib.NoLog{}
	}
	err := os.MkdirAll(root, 0700)
	if err != nil {
		return nil, err
	}

	return &Backup{
		root: root,
		log:  logger,
	}, nil
}

func (b *Backup) Root() string {
	return b.root
}

// CreateMailbox doesn't return an error if the mailbox already exists
func (b *Backup) CreateMailbox(name string) error {
	dirName := filepath.Join(b.root, name)
	if _, err := os.Stat(dirName); err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}
	b.log.Printf("Creating maildir folder %q", dirName)
	return maildir.Dir(dirName).Init()
}

// Deliver writes one message body into the mailbox folder and returns the
// maildir key.
func (b *Backup) Deliver(mailbox string, body io.Reader) (string, error) {
	if err := b.CreateMailbox(mailbox); err != nil {
		return "", err
	}
	dir := maildir.Dir(filepath.Join(b.root, mailbox))
	key, writer, err := dir.Create(nil)
	if err != nil {
		return "", fmt.Errorf("cannot create maildir message: %w", err)
	}
	copied, err := io.Copy(writer, body)
	if err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("cannot write maildir message: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", err
	}
	b.log.Printf("Message saved: mailbox=%q key=%s size=%d", mailbox, key, copied)
	return key, nil
}
