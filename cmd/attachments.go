package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/antikgo/antik/bodystruct"
	"github.com/antikgo/antik/imap"
	"github.com/antikgo/antik/lib"
	"github.com/antikgo/antik/smtp"
	"github.com/antikgo/antik/store"
	"github.com/antikgo/antik/term"
	"github.com/spf13/cobra"
)

var attachmentsDestination string

var attachmentsCmd = &cobra.Command{
	Use:   "attachments <account> <mailbox>",
	Short: "Download all attachments from a mailbox",
	Long:  "\nDownload the base64-encoded attachments of every message in a mailbox into destination/mailbox, skipping parts already recorded in the local registry",
	RunE:  runAttachments,
}

func init() {
	attachmentsCmd.Flags().StringVarP(&attachmentsDestination, "destination", "d", ".", "destination folder for attachments")
	rootCmd.AddCommand(attachmentsCmd)
}

func runAttachments(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox name")
	}
	session, account, err := newSession(args[0])
	if err != nil {
		return fmt.Errorf("cannot open session: %w", err)
	}
	defer session.Disconnect()

	mailbox := args[1]
	destination := filepath.Join(attachmentsDestination, mailbox)
	if err = os.MkdirAll(destination, 0700); err != nil {
		return fmt.Errorf("cannot create destination folder: %w", err)
	}

	registry, err := store.NewRegistry(filepath.Join(config.CacheDir, "attachments.db"))
	if err != nil {
		return fmt.Errorf("cannot open attachment registry: %w", err)
	}
	defer registry.Close()
	accountTag := lib.AccountTag(account.ServerURL, account.Username)

	if _, err = session.ExecuteChecked(fmt.Sprintf("SELECT %q", mailbox)); err != nil {
		return fmt.Errorf("cannot select mailbox: %w", err)
	}
	resp, err := session.ExecuteChecked("FETCH 1:* (UID BODYSTRUCTURE)")
	if err != nil {
		return fmt.Errorf("cannot fetch body structures: %w", err)
	}
	fetchResp, ok := resp.(*imap.FetchResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}

	for _, message := range fetchResp.Messages {
		structure, ok := message.Items["BODYSTRUCTURE"]
		if !ok {
			continue
		}
		uid, _ := strconv.ParseUint(message.Items["UID"], 10, 64)
		term.Debugf("Message %d (uid %d): %s", message.Index, uid, structure)
		if err = downloadMessageAttachments(session, registry, accountTag, mailbox, destination, message.Index, uid, structure); err != nil {
			return err
		}
	}
	return nil
}

func downloadMessageAttachments(session *imap.Session, registry *store.Registry,
	accountTag, mailbox, destination string, index, uid uint64, structure string) error {
	tree, err := bodystruct.New(structure)
	if err != nil {
		return fmt.Errorf("cannot parse body structure of message %d: %w", index, err)
	}
	collector := &bodystruct.AttachmentCollector{}
	bodystruct.Walk(tree, collector.Visit)
	if len(collector.Attachments) == 0 {
		term.Debugf("Message %d: no attachment", index)
		return nil
	}

	for _, attachment := range collector.Attachments {
		if !strings.EqualFold(attachment.Encoding, "BASE64") {
			term.Warnf("Attachment %q not base64 encoded but %q", attachment.FileName, attachment.Encoding)
			continue
		}
		record, err := registry.Lookup(accountTag, mailbox, uid, attachment.PartNo)
		if err != nil {
			return err
		}
		if record != nil {
			term.Debugf("Skipping %q: already downloaded", record.FileName)
			continue
		}
		fileName := attachment.FileName
		if fileName == "" {
			fileName = fmt.Sprintf("message-%d-part-%s", index, attachment.PartNo)
		}
		size, err := downloadAttachment(session, index, attachment.PartNo, filepath.Join(destination, fileName))
		if err != nil {
			return err
		}
		term.Infof("Saved %q (%d bytes)", fileName, size)
		err = registry.Record(accountTag, mailbox, store.AttachmentRecord{
			UID:          uid,
			PartNo:       attachment.PartNo,
			FileName:     fileName,
			Size:         size,
			DownloadedAt: time.Now(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// downloadAttachment fetches one body part and decodes its base64 payload
// line by line into the destination file.
func downloadAttachment(session *imap.Session, index uint64, partNo, fileName string) (int64, error) {
	resp, err := session.ExecuteChecked(fmt.Sprintf("FETCH %d BODY[%s]", index, partNo))
	if err != nil {
		return 0, err
	}
	fetchResp, ok := resp.(*imap.FetchResponse)
	if !ok || len(fetchResp.Messages) == 0 {
		return 0, fmt.Errorf("no data returned for message %d part %s", index, partNo)
	}
	payload, ok := fetchResp.Messages[0].Item(fmt.Sprintf("BODY[%s]", partNo))
	if !ok {
		return 0, fmt.Errorf("no data returned for message %d part %s", index, partNo)
	}

	file, err := os.Create(fileName)
	if err != nil {
		return 0, err
	}

	var written int64
	for _, line := range strings.Split(payload, "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		decoded, err := smtp.DecodeBase64(line)
		if err != nil {
			_ = file.Close()
			return written, fmt.Errorf("cannot decode attachment part %s: %w", partNo, err)
		}
		n, err := file.Write(decoded)
		if err != nil {
			_ = file.Close()
			return written, err
		}
		written += int64(n)
	}
	return written, file.Close()
}
