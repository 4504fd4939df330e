package imap

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/antikgo/antik/lib"
	"github.com/antikgo/antik/limitio"
	"golang.org/x/net/proxy"
)

// EOL is the canonical IMAP line terminator.
const EOL = "\r\n"

// DefaultMaxLiteralSize caps the size of a single literal block. A hostile
// server can otherwise demand arbitrary memory with a forged "{N}" count.
const DefaultMaxLiteralSize = 64 * 1024 * 1024

const dialTimeout = 30 * time.Second

var errClosed = errors.New("connection closed")

type TransportConfig struct {
	// Addr is the server address as host:port.
	Addr string
	// NoTLS dials a plain TCP connection. Required when the session will
	// upgrade with STARTTLS.
	NoTLS               bool
	SkipTLSVerification bool
	// Proxy is an optional SOCKS5 proxy address.
	Proxy string
	// Bandwidth limits the transfer rate in bytes per second, 0 = unlimited.
	Bandwidth float64
	// MaxLiteralSize overrides DefaultMaxLiteralSize. Negative disables
	// the cap.
	MaxLiteralSize int64
	DebugLogger    lib.Logger
}

// Transport is the byte-oriented duplex channel under a session: it opens
// the connection, optionally upgrades it to TLS, writes command lines and
// reads whole responses. It is not safe for concurrent use.
type Transport struct {
	cfg    TransportConfig
	conn   net.Conn
	reader *bufio.Reader
	writer io.Writer
	log    lib.Logger
	broken bool
	closed bool
}

func NewTransport(cfg TransportConfig) *Transport {
	logger := cfg.DebugLogger
	if logger == nil {
		logger = &lib.NoLog{}
	}
	if cfg.MaxLiteralSize == 0 {
		cfg.MaxLiteralSize = DefaultMaxLiteralSize
	}
	return &Transport{
		cfg: cfg,
		log: logger,
	}
}

// Connect dials the server, through the SOCKS5 proxy when one is configured,
// and negotiates TLS unless NoTLS is set.
func (t *Transport) Connect() error {
	dialer := &net.Dialer{Timeout: dialTimeout}
	var conn net.Conn
	var err error
	if t.cfg.Proxy != "" {
		t.log.Printf("Dialing %s through proxy %s", t.cfg.Addr, t.cfg.Proxy)
		var socks proxy.Dialer
		socks, err = proxy.SOCKS5("tcp", t.cfg.Proxy, nil, dialer)
		if err != nil {
			return &TransportError{Op: "connect", Err: err}
		}
		conn, err = socks.Dial("tcp", t.cfg.Addr)
	} else {
		t.log.Printf("Dialing %s", t.cfg.Addr)
		conn, err = dialer.Dial("tcp", t.cfg.Addr)
	}
	if err != nil {
		return &TransportError{Op: "connect", Err: err}
	}
	if !t.cfg.NoTLS {
		tlsConn := tls.Client(conn, t.tlsConfig())
		if err = tlsConn.Handshake(); err != nil {
			_ = conn.Close()
			return &TransportError{Op: "tls handshake", Err: err}
		}
		conn = tlsConn
	}
	t.setConn(conn)
	return nil
}

// UpgradeTLS wraps the established plain connection after a successful
// STARTTLS exchange.
func (t *Transport) UpgradeTLS() error {
	if t.conn == nil {
		return &TransportError{Op: "starttls", Err: errClosed}
	}
	tlsConn := tls.Client(t.conn, t.tlsConfig())
	if err := tlsConn.Handshake(); err != nil {
		t.broken = true
		return &TransportError{Op: "starttls", Err: err}
	}
	t.setConn(tlsConn)
	return nil
}

func (t *Transport) tlsConfig() *tls.Config {
	host, _, err := net.SplitHostPort(t.cfg.Addr)
	if err != nil {
		host = t.cfg.Addr
	}
	return &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: t.cfg.SkipTLSVerification,
	}
}

func (t *Transport) setConn(conn net.Conn) {
	t.conn = conn
	t.closed = false
	t.broken = false
	if t.cfg.Bandwidth > 0 {
		burst := int(t.cfg.Bandwidth)
		reader := limitio.NewReader(conn)
		reader.SetRateLimit(t.cfg.Bandwidth, burst)
		writer := limitio.NewWriter(conn)
		writer.SetRateLimit(t.cfg.Bandwidth, burst)
		t.reader = bufio.NewReader(reader)
		t.writer = writer
		return
	}
	t.reader = bufio.NewReader(conn)
	t.writer = conn
}

// SendLine writes the given bytes followed by CR LF.
func (t *Transport) SendLine(line string) error {
	if err := t.usable(); err != nil {
		return err
	}
	t.log.Printf("--> %s", line)
	if _, err := io.WriteString(t.writer, line+EOL); err != nil {
		t.broken = true
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// ReadLine reads a single line, stripping the CR LF terminator.
func (t *Transport) ReadLine() (string, error) {
	if err := t.usable(); err != nil {
		return "", err
	}
	raw, err := t.reader.ReadString('\n')
	if err != nil {
		t.broken = true
		return "", &TransportError{Op: "read", Err: err}
	}
	line := strings.TrimRight(raw, EOL)
	t.log.Printf("<-- %s", line)
	return line, nil
}

// ReadResponse accumulates server output until the tagged completion line
// "<tag> OK|NO|BAD ..." is observed and returns the whole blob, untagged
// lines and literal payloads included. A line ending in "{N}" is followed by
// exactly N raw bytes which are consumed verbatim, so a literal cannot be
// truncated or mistaken for line data.
func (t *Transport) ReadResponse(tag string) (string, error) {
	if err := t.usable(); err != nil {
		return "", err
	}
	var blob strings.Builder
	for {
		raw, err := t.reader.ReadString('\n')
		if err != nil {
			t.broken = true
			return "", &TransportError{Op: "read", Err: err}
		}
		blob.WriteString(raw)
		line := strings.TrimRight(raw, EOL)

		if count, ok := literalSize(line); ok {
			if t.cfg.MaxLiteralSize > 0 && count > t.cfg.MaxLiteralSize {
				t.broken = true
				return "", &TransportError{
					Op:  "read",
					Err: fmt.Errorf("literal of %d bytes exceeds the %d limit", count, t.cfg.MaxLiteralSize),
				}
			}
			payload := make([]byte, count)
			if _, err = io.ReadFull(t.reader, payload); err != nil {
				t.broken = true
				return "", &TransportError{Op: "read literal", Err: err}
			}
			blob.Write(payload)
			continue
		}
		if isCompletion(line, tag) {
			return blob.String(), nil
		}
	}
}

// Close is idempotent.
func (t *Transport) Close() error {
	if t.closed || t.conn == nil {
		return nil
	}
	t.closed = true
	t.log.Print("Closing connection")
	return t.conn.Close()
}

func (t *Transport) usable() error {
	if t.conn == nil || t.closed {
		return &TransportError{Op: "send", Err: errClosed}
	}
	if t.broken {
		return &TransportError{Op: "send", Err: errors.New("session is broken")}
	}
	return nil
}

// literalSize decodes a trailing "{N}" literal octet count.
func literalSize(line string) (int64, bool) {
	if !strings.HasSuffix(line, "}") {
		return 0, false
	}
	open := strings.LastIndexByte(line, '{')
	if open < 0 {
		return 0, false
	}
	count, err := strconv.ParseInt(line[open+1:len(line)-1], 10, 64)
	if err != nil || count < 0 {
		return 0, false
	}
	return count, true
}

// isCompletion reports whether the line is the tagged completion for tag.
func isCompletion(line, tag string) bool {
	if !hasPrefixFold(line, tag+" ") {
		return false
	}
	rest := line[len(tag)+1:]
	return hasPrefixFold(rest, "OK") || hasPrefixFold(rest, "NO") || hasPrefixFold(rest, "BAD")
}
