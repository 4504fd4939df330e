package cmd

import (
	"fmt"
	"log"

	"github.com/antikgo/antik/cfg"
	"github.com/antikgo/antik/imap"
	"github.com/antikgo/antik/lib"
)

// newSession opens an authenticated IMAP session for the named account.
func newSession(accountName string) (*imap.Session, cfg.Account, error) {
	account, ok := config.Accounts[accountName]
	if !ok {
		return nil, account, fmt.Errorf("%w: %s", lib.ErrAccountNotFound, accountName)
	}
	var logger lib.Logger
	if global.verbose {
		logger = log.Default()
	}
	session, err := imap.NewSession(imap.Config{
		ServerURL:           account.ServerURL,
		Username:            account.Username,
		Password:            account.Password,
		NoTLS:               account.NoTLS,
		StartTLS:            account.StartTLS,
		SkipTLSVerification: account.SkipTLSVerification,
		Proxy:               account.Proxy,
		Bandwidth:           account.Bandwidth,
		DebugLogger:         logger,
	})
	if err != nil {
		return nil, account, err
	}
	return session, account, nil
}
