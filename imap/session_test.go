package imap

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/antikgo/antik/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedServer answers every tagged command with the canned untagged lines
// for its verb, followed by the tagged OK completion.
func scriptedServer(t *testing.T, conn net.Conn, script map[string][]string) {
	t.Helper()
	go func() {
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			tag, verb := fields[0], strings.ToUpper(fields[1])
			for _, untagged := range script[verb] {
				_, _ = conn.Write([]byte(untagged + "\r\n"))
			}
			_, _ = conn.Write([]byte(tag + " OK " + verb + " completed\r\n"))
		}
	}()
}

func pipeSession(t *testing.T, script map[string][]string) *Session {
	t.Helper()
	client, server := net.Pipe()
	scriptedServer(t, server, script)

	logger := lib.NewTestLogger(t, "session")
	transport := NewTransport(TransportConfig{
		Addr:        "localhost:143",
		NoTLS:       true,
		DebugLogger: logger,
	})
	transport.setConn(client)
	session := &Session{
		transport: transport,
		parser:    &Parser{Log: logger},
		log:       logger,
	}
	t.Cleanup(func() {
		_ = transport.Close()
		_ = server.Close()
	})
	return session
}

func TestTagsAreUnique(t *testing.T) {
	session := pipeSession(t, map[string][]string{})

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		blob, err := session.SendCommand("NOOP")
		require.NoError(t, err)
		tag := tagFromLine(blob)
		assert.False(t, seen[tag], "tag %s reused", tag)
		seen[tag] = true
	}
}

func TestSendCommandReturnsFullBlob(t *testing.T) {
	session := pipeSession(t, map[string][]string{
		"SEARCH": {"* SEARCH 2 84 882"},
	})

	blob, err := session.SendCommand("SEARCH ALL")
	require.NoError(t, err)
	assert.Equal(t, "A0001 SEARCH ALL\r\n* SEARCH 2 84 882\r\nA0001 OK SEARCH completed\r\n", blob)
}

func TestExecuteTypedResponse(t *testing.T) {
	session := pipeSession(t, map[string][]string{
		"SEARCH": {"* SEARCH 2 84 882"},
	})

	resp, err := session.Execute("SEARCH ALL")
	require.NoError(t, err)
	searchResp, ok := resp.(*SearchResponse)
	require.True(t, ok)
	assert.Equal(t, []uint64{2, 84, 882}, searchResp.Indexes)
	assert.Equal(t, StatusOK, searchResp.Status)
}

func TestExecuteCheckedOnNo(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		reader := bufio.NewReader(server)
		line, _ := reader.ReadString('\n')
		tag := tagFromLine(strings.TrimRight(line, "\r\n"))
		_, _ = server.Write([]byte(tag + " NO SELECT failed: no such mailbox\r\n"))
	}()

	transport := NewTransport(TransportConfig{Addr: "localhost:143", NoTLS: true})
	transport.setConn(client)
	session := &Session{transport: transport, parser: &Parser{}, log: &lib.NoLog{}}
	t.Cleanup(func() {
		_ = transport.Close()
		_ = server.Close()
	})

	resp, err := session.ExecuteChecked("SELECT NoSuchBox")
	require.Error(t, err)
	protocolErr := &ProtocolError{}
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, StatusNo, protocolErr.Status)
	// the typed response is still produced alongside the error
	require.NotNil(t, resp)
	assert.Equal(t, StatusNo, resp.Base().Status)
}

func TestIdleWaitsForEvent(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		reader := bufio.NewReader(server)
		line, _ := reader.ReadString('\n')
		tag := tagFromLine(strings.TrimRight(line, "\r\n"))
		_, _ = server.Write([]byte("+ idling\r\n"))
		_, _ = server.Write([]byte("* 173 EXISTS\r\n"))
		// wait for DONE
		_, _ = reader.ReadString('\n')
		_, _ = server.Write([]byte(tag + " OK IDLE terminated\r\n"))
	}()

	logger := lib.NewTestLogger(t, "idle")
	transport := NewTransport(TransportConfig{Addr: "localhost:143", NoTLS: true, DebugLogger: logger})
	transport.setConn(client)
	session := &Session{transport: transport, parser: &Parser{Log: logger}, log: logger}
	t.Cleanup(func() {
		_ = transport.Close()
		_ = server.Close()
	})

	resp, err := session.Execute("IDLE")
	require.NoError(t, err)
	noopResp, ok := resp.(*NoopResponse)
	require.True(t, ok)
	assert.Equal(t, []string{"* 173 EXISTS"}, noopResp.Lines)
	assert.Equal(t, StatusOK, noopResp.Status)
}
