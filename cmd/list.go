package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antikgo/antik/imap"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <account>",
	Short: "Display list of mailboxes",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	session, _, err := newSession(args[0])
	if err != nil {
		return fmt.Errorf("cannot open session: %w", err)
	}
	defer session.Disconnect()

	resp, err := session.ExecuteChecked(`LIST "" "*"`)
	if err != nil {
		return fmt.Errorf("cannot list account mailbox: %w", err)
	}
	listResp, ok := resp.(*imap.ListResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Mailbox", "Delimiter", "Attributes"},
	})
	for _, entry := range listResp.Mailboxes {
		table.Data = append(table.Data, []string{
			entry.Unquoted(),
			entry.Delimiter,
			displayAttributes(entry.Attributes),
		})
	}
	return table.Render()
}

func displayAttributes(source string) string {
	attributes := strings.Fields(strings.Trim(source, "()"))
	for i, attribute := range attributes {
		attributes[i] = strings.TrimPrefix(attribute, "\\")
	}
	return strings.Join(attributes, ", ")
}
