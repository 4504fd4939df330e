package cmd

import (
	"errors"
	"fmt"

	"github.com/antikgo/antik/imap"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusItems = []string{"MESSAGES", "RECENT", "UNSEEN", "UIDNEXT", "UIDVALIDITY"}

var statusCmd = &cobra.Command{
	Use:   "status <account> <mailbox>",
	Short: "Display mailbox status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox name")
	}
	session, _, err := newSession(args[0])
	if err != nil {
		return fmt.Errorf("cannot open session: %w", err)
	}
	defer session.Disconnect()

	command := fmt.Sprintf("STATUS %q (MESSAGES RECENT UNSEEN UIDNEXT UIDVALIDITY)", args[1])
	resp, err := session.ExecuteChecked(command)
	if err != nil {
		return fmt.Errorf("cannot get mailbox status: %w", err)
	}
	statusResp, ok := resp.(*imap.StatusResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Item", "Value"},
	})
	for _, item := range statusItems {
		if value, ok := statusResp.Items[item]; ok {
			table.Data = append(table.Data, []string{item, value})
		}
	}
	return table.Render()
}
