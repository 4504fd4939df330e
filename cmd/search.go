package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antikgo/antik/imap"
	"github.com/antikgo/antik/term"
	"github.com/spf13/cobra"
)

var searchByUID bool

var searchCmd = &cobra.Command{
	Use:   "search <account> <mailbox> [criteria...]",
	Short: "Search a mailbox, returning message indexes",
	Long:  "\nSearch a mailbox with RFC 3501 criteria, e.g.: antik search work INBOX UNSEEN SINCE 1-Jan-2026",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchByUID, "uid", "u", false, "return UIDs instead of sequence numbers")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox name")
	}
	criteria := "ALL"
	if len(args) > 2 {
		criteria = strings.Join(args[2:], " ")
	}
	session, _, err := newSession(args[0])
	if err != nil {
		return fmt.Errorf("cannot open session: %w", err)
	}
	defer session.Disconnect()

	if _, err = session.ExecuteChecked(fmt.Sprintf("SELECT %q", args[1])); err != nil {
		return fmt.Errorf("cannot select mailbox: %w", err)
	}
	command := "SEARCH " + criteria
	if searchByUID {
		command = "UID " + command
	}
	resp, err := session.ExecuteChecked(command)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	searchResp, ok := resp.(*imap.SearchResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	if len(searchResp.Indexes) == 0 {
		term.Info("No message found")
		return nil
	}
	indexes := make([]string, len(searchResp.Indexes))
	for i, index := range searchResp.Indexes {
		indexes[i] = strconv.FormatUint(index, 10)
	}
	term.Infof("%d messages: %s", len(indexes), strings.Join(indexes, " "))
	return nil
}
