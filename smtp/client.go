// Package smtp sends mail, with attachments encoded as base64 MIME parts.
package smtp

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antikgo/antik/lib"
)

// base64 output is wrapped at the RFC 2045 line length.
const encodedLineLength = 76

type Config struct {
	// ServerURL is the server address as host:port.
	ServerURL string
	Username  string
	Password  string
	// NoTLS sends over a plain connection, without STARTTLS even when the
	// server offers it. Otherwise the plain connection is upgraded with
	// STARTTLS when the server offers it.
	NoTLS               bool
	SkipTLSVerification bool
	DebugLogger         lib.Logger
}

type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []string // file paths
}

type Client struct {
	cfg Config
	log lib.Logger
}

func NewClient(cfg Config) *Client {
	logger := cfg.DebugLogger
	if logger == nil {
		logger = &lib.NoLog{}
	}
	return &Client{
		cfg: cfg,
		log: logger,
	}
}

// Send composes and delivers the message.
func (c *Client) Send(message Message) error {
	if message.From == "" || len(message.To) == 0 {
		return fmt.Errorf("message needs a sender and at least one recipient")
	}
	body, err := compose(message)
	if err != nil {
		return err
	}

	host, _, err := net.SplitHostPort(c.cfg.ServerURL)
	if err != nil {
		host = c.cfg.ServerURL
	}

	client, err := c.dial(host)
	if err != nil {
		return fmt.Errorf("cannot connect to server %s: %w", c.cfg.ServerURL, err)
	}
	defer client.Close()

	if !c.cfg.NoTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			err = client.StartTLS(&tls.Config{
				ServerName:         host,
				InsecureSkipVerify: c.cfg.SkipTLSVerification,
			})
			if err != nil {
				return fmt.Errorf("cannot upgrade connection: %w", err)
			}
		}
	}

	if c.cfg.Username != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, host)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failure: %w", err)
		}
	}

	if err = client.Mail(message.From); err != nil {
		return err
	}
	for _, recipient := range message.To {
		if err = client.Rcpt(recipient); err != nil {
			return err
		}
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = writer.Write(body); err != nil {
		return err
	}
	if err = writer.Close(); err != nil {
		return err
	}
	c.log.Printf("Message sent: to=%v size=%d", message.To, len(body))
	return client.Quit()
}

func (c *Client) dial(host string) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.Dial("tcp", c.cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, host)
}

// compose renders the message as RFC 5322 text: plain when there is no
// attachment, multipart/mixed with base64 parts otherwise.
func compose(message Message) ([]byte, error) {
	buffer := &bytes.Buffer{}
	fmt.Fprintf(buffer, "From: %s\r\n", message.From)
	fmt.Fprintf(buffer, "To: %s\r\n", strings.Join(message.To, ", "))
	fmt.Fprintf(buffer, "Subject: %s\r\n", message.Subject)
	fmt.Fprintf(buffer, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(buffer, "MIME-Version: 1.0\r\n")

	if len(message.Attachments) == 0 {
		fmt.Fprintf(buffer, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buffer.WriteString(message.Body)
		buffer.WriteString("\r\n")
		return buffer.Bytes(), nil
	}

	multi := multipart.NewWriter(buffer)
	fmt.Fprintf(buffer, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", multi.Boundary())

	text, err := multi.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err = text.Write([]byte(message.Body)); err != nil {
		return nil, err
	}

	for _, fileName := range message.Attachments {
		if err = attach(multi, fileName); err != nil {
			return nil, err
		}
	}
	if err = multi.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func attach(multi *multipart.Writer, fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("cannot read attachment %q: %w", fileName, err)
	}
	base := filepath.Base(fileName)
	contentType := mime.TypeByExtension(filepath.Ext(base))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	part, err := multi.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("%s; name=%q", contentType, base)},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", base)},
	})
	if err != nil {
		return err
	}
	encoded := EncodeBase64(data)
	for len(encoded) > 0 {
		line := encoded
		if len(line) > encodedLineLength {
			line = line[:encodedLineLength]
		}
		if _, err = fmt.Fprintf(part, "%s\r\n", line); err != nil {
			return err
		}
		encoded = encoded[len(line):]
	}
	return nil
}
