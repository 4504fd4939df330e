package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPrefixFold(t *testing.T) {
	fixtures := []struct {
		s        string
		prefix   string
		expected bool
	}{
		{"* OK [UNSEEN 12]", "* ok", true},
		{"a0001 OK done", "A0001 OK", true},
		{"* FLAGS ()", "* FLAGS", true},
		{"* FLAG", "* FLAGS", false},
		{"", "x", false},
		{"anything", "", true},
	}
	for _, fixture := range fixtures {
		assert.Equal(t, fixture.expected, hasPrefixFold(fixture.s, fixture.prefix),
			"hasPrefixFold(%q, %q)", fixture.s, fixture.prefix)
	}
}

func TestBetween(t *testing.T) {
	fixtures := []struct {
		s           string
		first, last byte
		expected    string
	}{
		{"A0001 OK [READ-WRITE] SELECT completed", '[', ']', "READ-WRITE"},
		{"UIDVALIDITY 3857529045", ' ', ']', "3857529045"},
		{`"/" "INBOX"`, '"', '"', "/"},
		{"no brackets here", '[', ']', ""},
		{"{1024}", '{', '}', "1024"},
	}
	for _, fixture := range fixtures {
		assert.Equal(t, fixture.expected, between(fixture.s, fixture.first, fixture.last),
			"between(%q)", fixture.s)
	}
}

func TestList(t *testing.T) {
	fixtures := []struct {
		s        string
		expected string
	}{
		{`* FLAGS (\Answered \Seen)`, `(\Answered \Seen)`},
		{`(FLAGS (\Seen)) trailing`, `(FLAGS (\Seen))`},
		{`(("a" "b") ("c")) rest`, `(("a" "b") ("c"))`},
		{`no list`, ``},
		{`(unclosed (list`, `(unclosed (list`},
	}
	for _, fixture := range fixtures {
		assert.Equal(t, fixture.expected, list(fixture.s), "list(%q)", fixture.s)
	}
}

func TestUntaggedNumber(t *testing.T) {
	fixtures := []struct {
		s        string
		expected string
	}{
		{"* 172 EXISTS", "172"},
		{"* 1 RECENT", "1"},
		{"*  23 EXPUNGE", "23"},
	}
	for _, fixture := range fixtures {
		assert.Equal(t, fixture.expected, untaggedNumber(fixture.s), "untaggedNumber(%q)", fixture.s)
	}
}

func TestCommandFromLine(t *testing.T) {
	fixtures := []struct {
		line     string
		expected Command
	}{
		{"A0001 SELECT INBOX", CmdSelect},
		{"A0002 select inbox", CmdSelect},
		{"A0003 UID FETCH 1:* FLAGS", CmdFetch},
		{"A0004 uid search ALL", CmdSearch},
		{"A0005 LOGOUT", CmdLogout},
		{"A0006 XAPPLEPUSH", CmdUnknown},
		{"A0007", CmdUnknown},
	}
	for _, fixture := range fixtures {
		assert.Equal(t, fixture.expected, commandFromLine(fixture.line), "commandFromLine(%q)", fixture.line)
	}
}

func TestTagFromLine(t *testing.T) {
	assert.Equal(t, "A0001", tagFromLine("A0001 NOOP"))
	assert.Equal(t, "A0001", tagFromLine("A0001"))
}
