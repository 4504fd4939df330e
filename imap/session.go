package imap

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/antikgo/antik/lib"
)

// tagPrefix starts every command tag; the decimal counter follows.
const tagPrefix = "A"

type Config struct {
	// ServerURL is the server address as host:port.
	ServerURL string
	Username  string
	Password  string
	// NoTLS keeps the whole session on a plain connection.
	NoTLS bool
	// StartTLS dials plain and upgrades with the STARTTLS command before
	// authenticating.
	StartTLS            bool
	SkipTLSVerification bool
	Proxy               string
	Bandwidth           float64
	MaxLiteralSize      int64
	DebugLogger         lib.Logger
}

// Session is a thin synchronous orchestrator over one connection: it tags
// and sends commands, reads the matching response and hands the blob to the
// parser. All operations run on the caller's goroutine; a session must not
// be shared between goroutines.
type Session struct {
	transport *Transport
	parser    *Parser
	log       lib.Logger
	tagSeq    uint64
}

// NewSession connects, upgrades to TLS when configured, and logs in.
func NewSession(cfg Config) (*Session, error) {
	logger := cfg.DebugLogger
	if logger == nil {
		logger = &lib.NoLog{}
	}
	if cfg.ServerURL == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("missing information from Config object")
	}

	transport := NewTransport(TransportConfig{
		Addr:                cfg.ServerURL,
		NoTLS:               cfg.NoTLS || cfg.StartTLS,
		SkipTLSVerification: cfg.SkipTLSVerification,
		Proxy:               cfg.Proxy,
		Bandwidth:           cfg.Bandwidth,
		MaxLiteralSize:      cfg.MaxLiteralSize,
		DebugLogger:         logger,
	})

	logger.Printf("Connecting to server %s...", cfg.ServerURL)
	if err := transport.Connect(); err != nil {
		return nil, fmt.Errorf("cannot connect to server %s: %w", cfg.ServerURL, err)
	}
	logger.Print("Connected")

	session := &Session{
		transport: transport,
		parser:    &Parser{Log: logger},
		log:       logger,
	}

	if cfg.StartTLS {
		if _, err := session.ExecuteChecked("STARTTLS"); err != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("cannot upgrade connection: %w", err)
		}
		if err := transport.UpgradeTLS(); err != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("cannot upgrade connection: %w", err)
		}
		session.log.Print("Connection upgraded to TLS")
	}

	login := fmt.Sprintf("LOGIN %q %q", cfg.Username, cfg.Password)
	if _, err := session.ExecuteChecked(login); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("authentication failure: %w", err)
	}
	logger.Printf("Logged in as %s", cfg.Username)

	return session, nil
}

func (s *Session) nextTag() string {
	return fmt.Sprintf("%s%04d", tagPrefix, atomic.AddUint64(&s.tagSeq, 1))
}

// SendCommand tags the command, writes it and collects the raw response
// blob. The returned blob starts with the tagged command line, ready for
// the parser.
func (s *Session) SendCommand(text string) (string, error) {
	tag := s.nextTag()
	tagged := tag + " " + text
	if err := s.transport.SendLine(tagged); err != nil {
		return "", err
	}
	if commandFromLine(tagged) == CmdIdle {
		return s.readIdle(tag, tagged)
	}
	blob, err := s.transport.ReadResponse(tag)
	if err != nil {
		return "", err
	}
	return tagged + EOL + blob, nil
}

// readIdle blocks until the server delivers an untagged event, then ends the
// idle with DONE and collects the completion. Continuation lines ("+ idling")
// are dropped from the blob.
func (s *Session) readIdle(tag, tagged string) (string, error) {
	var blob strings.Builder
	blob.WriteString(tagged + EOL)
	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(line, "+") {
			continue
		}
		blob.WriteString(line + EOL)
		if strings.HasPrefix(line, "* ") {
			break
		}
	}
	if err := s.transport.SendLine("DONE"); err != nil {
		return "", err
	}
	rest, err := s.transport.ReadResponse(tag)
	if err != nil {
		return "", err
	}
	blob.WriteString(rest)
	return blob.String(), nil
}

// Execute sends the command and parses the response. A NO or BAD status is
// not an error here: the typed response carries it.
func (s *Session) Execute(text string) (Response, error) {
	blob, err := s.SendCommand(text)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(blob)
}

// ExecuteChecked is Execute with raise-on-non-OK semantics: a NO or BAD
// status comes back as a ProtocolError alongside the typed response.
func (s *Session) ExecuteChecked(text string) (Response, error) {
	resp, err := s.Execute(text)
	if err != nil {
		return nil, err
	}
	if base := resp.Base(); base.Status != StatusOK {
		return resp, &ProtocolError{
			Command: base.Command,
			Status:  base.Status,
			Message: base.ErrorMessage,
		}
	}
	return resp, nil
}

// Disconnect sends LOGOUT and closes the transport. Safe to call on an
// already broken session.
func (s *Session) Disconnect() error {
	_, err := s.Execute("LOGOUT")
	if closeErr := s.transport.Close(); err == nil {
		err = closeErr
	}
	return err
}
