package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antikgo/antik/imap"
	"github.com/antikgo/antik/term"
	"github.com/emersion/go-message/mail"
	"github.com/spf13/cobra"
)

var (
	watchPoll     bool
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <account> <mailbox>",
	Short: "Wait for new mail in a mailbox",
	Long:  "\nWait for mailbox events with IDLE (or a NOOP polling loop) and display the headers of new messages",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchPoll, "poll", "p", false, "poll with NOOP instead of IDLE")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 15*time.Second, "polling interval (with --poll)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox name")
	}
	session, _, err := newSession(args[0])
	if err != nil {
		return fmt.Errorf("cannot open session: %w", err)
	}
	defer session.Disconnect()

	mailbox := args[1]
	resp, err := session.ExecuteChecked(fmt.Sprintf("SELECT %q", mailbox))
	if err != nil {
		return fmt.Errorf("cannot select mailbox: %w", err)
	}
	selected := resp.(*imap.SelectResponse)
	exists, _ := strconv.ParseUint(selected.Items["EXISTS"], 10, 64)
	term.Infof("Watching %q: %d messages", mailbox, exists)

	command := "IDLE"
	if watchPoll {
		command = "NOOP"
	}
	for {
		resp, err := session.Execute(command)
		if err != nil {
			return fmt.Errorf("watch interrupted: %w", err)
		}
		events, ok := resp.(*imap.NoopResponse)
		if !ok {
			return fmt.Errorf("unexpected response type %T", resp)
		}
		if events.ByeSeen {
			term.Warn("Server closed the session")
			return nil
		}
		exists, err = reportEvents(session, events.Lines, exists)
		if err != nil {
			return err
		}
		if watchPoll {
			time.Sleep(watchInterval)
		}
	}
}

// reportEvents scans the untagged lines for mailbox changes and displays the
// headers of messages added since the last known count.
func reportEvents(session *imap.Session, lines []string, exists uint64) (uint64, error) {
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch {
		case strings.Contains(line, "EXISTS"):
			count, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				continue
			}
			for index := exists + 1; index <= count; index++ {
				if err := showMessage(session, index); err != nil {
					term.Warnf("cannot display message %d: %s", index, err)
				}
			}
			exists = count
		case strings.Contains(line, "EXPUNGE"):
			term.Infof("Message expunged: %s", fields[1])
		}
	}
	return exists, nil
}

func showMessage(session *imap.Session, index uint64) error {
	resp, err := session.ExecuteChecked(fmt.Sprintf("FETCH %d RFC822.HEADER", index))
	if err != nil {
		return err
	}
	fetchResp, ok := resp.(*imap.FetchResponse)
	if !ok || len(fetchResp.Messages) == 0 {
		return errors.New("no header returned")
	}
	header, ok := fetchResp.Messages[0].Item("RFC822.HEADER")
	if !ok {
		return errors.New("no header returned")
	}
	reader, err := mail.CreateReader(strings.NewReader(header + "\r\n"))
	if err != nil {
		// header only, not a full message: the reader still gives us the
		// parsed header before complaining about the missing body
		if reader == nil {
			return err
		}
	}
	from, _ := reader.Header.AddressList("From")
	subject, _ := reader.Header.Subject()
	term.Infof("New message %d: from=%s subject=%q", index, displayAddresses(from), subject)
	return nil
}

func displayAddresses(addresses []*mail.Address) string {
	names := make([]string, len(addresses))
	for i, address := range addresses {
		names[i] = address.String()
	}
	return strings.Join(names, ", ")
}
