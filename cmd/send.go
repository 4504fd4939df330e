package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/antikgo/antik/lib"
	"github.com/antikgo/antik/smtp"
	"github.com/antikgo/antik/term"
	"github.com/spf13/cobra"
)

var (
	sendTo      []string
	sendSubject string
	sendBody    string
	sendAttach  []string
)

var sendCmd = &cobra.Command{
	Use:   "send <account>",
	Short: "Send a message, with optional attachments",
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringSliceVarP(&sendTo, "to", "t", nil, "recipient (repeatable)")
	sendCmd.Flags().StringVarP(&sendSubject, "subject", "s", "", "message subject")
	sendCmd.Flags().StringVarP(&sendBody, "body", "b", "", "message body")
	sendCmd.Flags().StringSliceVarP(&sendAttach, "attach", "a", nil, "file to attach (repeatable)")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	account, ok := config.Accounts[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", lib.ErrAccountNotFound, args[0])
	}
	if account.SMTPServerURL == "" {
		return fmt.Errorf("account %s has no smtpServerURL configured", args[0])
	}
	var logger lib.Logger
	if global.verbose {
		logger = log.Default()
	}
	client := smtp.NewClient(smtp.Config{
		ServerURL:           account.SMTPServerURL,
		Username:            account.Username,
		Password:            account.Password,
		NoTLS:               account.SMTPNoTLS,
		SkipTLSVerification: account.SkipTLSVerification,
		DebugLogger:         logger,
	})
	err := client.Send(smtp.Message{
		From:        account.Username,
		To:          sendTo,
		Subject:     sendSubject,
		Body:        sendBody,
		Attachments: sendAttach,
	})
	if err != nil {
		return fmt.Errorf("cannot send message: %w", err)
	}
	term.Info("Message sent")
	return nil
}
