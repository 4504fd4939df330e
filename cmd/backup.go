package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/antikgo/antik/imap"
	"github.com/antikgo/antik/lib"
	"github.com/antikgo/antik/mdir"
	"github.com/antikgo/antik/term"
	"github.com/spf13/cobra"
)

var (
	backupRoot  string
	backupSince string
)

var backupCmd = &cobra.Command{
	Use:   "backup <account> <mailbox>",
	Short: "Backup a mailbox to a local maildir",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().StringVarP(&backupRoot, "root", "r", "./maildir", "maildir root folder")
	backupCmd.Flags().StringVarP(&backupSince, "since", "s", "", "only backup messages since this date (e.g. 1-Jan-2026)")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox name")
	}
	session, account, err := newSession(args[0])
	if err != nil {
		return fmt.Errorf("cannot open session: %w", err)
	}
	defer session.Disconnect()

	mailbox := args[1]
	accountTag := lib.AccountTag(account.ServerURL, account.Username)
	backup, err := mdir.New(filepath.Join(backupRoot, accountTag))
	if err != nil {
		return fmt.Errorf("cannot open maildir: %w", err)
	}

	if _, err = session.ExecuteChecked(fmt.Sprintf("SELECT %q", mailbox)); err != nil {
		return fmt.Errorf("cannot select mailbox: %w", err)
	}

	criteria := "ALL"
	if backupSince != "" {
		criteria = "SINCE " + backupSince
	}
	resp, err := session.ExecuteChecked("SEARCH " + criteria)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	searchResp, ok := resp.(*imap.SearchResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	if len(searchResp.Indexes) == 0 {
		term.Info("No message to backup")
		return nil
	}

	term.Infof("Backing up %d messages from %q", len(searchResp.Indexes), mailbox)
	for _, index := range searchResp.Indexes {
		if err = backupMessage(session, backup, mailbox, index); err != nil {
			return err
		}
	}
	term.Infof("Backup saved in %s", backup.Root())
	return nil
}

func backupMessage(session *imap.Session, backup *mdir.Backup, mailbox string, index uint64) error {
	resp, err := session.ExecuteChecked(fmt.Sprintf("FETCH %d RFC822", index))
	if err != nil {
		return fmt.Errorf("cannot fetch message %d: %w", index, err)
	}
	fetchResp, ok := resp.(*imap.FetchResponse)
	if !ok || len(fetchResp.Messages) == 0 {
		return fmt.Errorf("no data returned for message %d", index)
	}
	body, ok := fetchResp.Messages[0].Item("RFC822")
	if !ok {
		return fmt.Errorf("no data returned for message %d", index)
	}
	key, err := backup.Deliver(mailbox, strings.NewReader(body))
	if err != nil {
		return err
	}
	term.Debugf("Message %d saved as %s", index, key)
	return nil
}
