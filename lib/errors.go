package lib

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrMailboxNotFound = errors.New("mailbox not found")
	ErrNotConnected    = errors.New("not connected")
)
