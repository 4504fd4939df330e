package imap

import (
	"strconv"
	"testing"

	"github.com/antikgo/antik/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFetchWithLiteral(t *testing.T) {
	header := "from: a@b.c\r\n"
	blob := "A0003 FETCH 1 (RFC822.SIZE BODY[HEADER])\r\n" +
		"* 1 FETCH (RFC822.SIZE 44827 BODY[HEADER] {13}\r\n" +
		header + ")\r\n" +
		"A0003 OK FETCH completed\r\n"

	resp := parseBlob(t, blob)
	fetchResp, ok := resp.(*FetchResponse)
	require.True(t, ok)
	assert.Equal(t, StatusOK, fetchResp.Status)
	require.Len(t, fetchResp.Messages, 1)

	message := fetchResp.Messages[0]
	assert.Equal(t, uint64(1), message.Index)
	assert.Equal(t, "44827", message.Items["RFC822.SIZE"])

	literal, ok := message.Items["* 1 FETCH (RFC822.SIZE 44827 BODY[HEADER]"]
	require.True(t, ok)
	assert.Equal(t, header, literal)
	assert.Len(t, literal, 13)
}

func TestParseFetchLiteralKeepsBinaryBytes(t *testing.T) {
	payload := "line one\r\nline two\r\n\r\n"
	blob := "A0001 FETCH 2 RFC822\r\n" +
		"* 2 FETCH (RFC822 {" + itoa(len(payload)) + "}\r\n" +
		payload + ")\r\n" +
		"A0001 OK FETCH completed\r\n"

	resp := parseBlob(t, blob)
	fetchResp := resp.(*FetchResponse)
	require.Len(t, fetchResp.Messages, 1)
	literal, ok := fetchResp.Messages[0].Item("RFC822")
	require.True(t, ok)
	assert.Equal(t, payload, literal)
}

func TestParseFetchMultipleItems(t *testing.T) {
	blob := "A0002 FETCH 12 (FLAGS INTERNALDATE RFC822.SIZE UID)\r\n" +
		"* 12 FETCH (FLAGS (\\Seen) INTERNALDATE \"17-Jul-1996 02:44:25 -0700\" RFC822.SIZE 4286 UID 20)\r\n" +
		"A0002 OK FETCH completed\r\n"

	resp := parseBlob(t, blob)
	fetchResp := resp.(*FetchResponse)
	require.Len(t, fetchResp.Messages, 1)

	message := fetchResp.Messages[0]
	assert.Equal(t, uint64(12), message.Index)
	assert.Equal(t, `(\Seen)`, message.Items["FLAGS"])
	assert.Equal(t, `"17-Jul-1996 02:44:25 -0700"`, message.Items["INTERNALDATE"])
	assert.Equal(t, "4286", message.Items["RFC822.SIZE"])
	assert.Equal(t, "20", message.Items["UID"])
}

func TestParseFetchBodyStructure(t *testing.T) {
	structure := `(("TEXT" "PLAIN" ("CHARSET" "US-ASCII") NIL NIL "7BIT" 1152 23)` +
		`("TEXT" "PLAIN" ("CHARSET" "US-ASCII" "NAME" "cc.diff") ` +
		`"<960723163407.20117h@cac.washington.edu>" "Compiler diff" "BASE64" 4554 73) "MIXED")`
	blob := "A0004 FETCH 7 (UID BODYSTRUCTURE)\r\n" +
		"* 7 FETCH (UID 42 BODYSTRUCTURE " + structure + ")\r\n" +
		"A0004 OK FETCH completed\r\n"

	resp := parseBlob(t, blob)
	fetchResp := resp.(*FetchResponse)
	require.Len(t, fetchResp.Messages, 1)
	message := fetchResp.Messages[0]
	assert.Equal(t, "42", message.Items["UID"])
	assert.Equal(t, structure, message.Items["BODYSTRUCTURE"])
}

func TestParseFetchSeveralMessages(t *testing.T) {
	blob := "A0005 FETCH 1:2 (UID FLAGS)\r\n" +
		"* 1 FETCH (UID 6 FLAGS (\\Seen))\r\n" +
		"* 2 FETCH (UID 7 FLAGS ())\r\n" +
		"A0005 OK FETCH completed\r\n"

	resp := parseBlob(t, blob)
	fetchResp := resp.(*FetchResponse)
	require.Len(t, fetchResp.Messages, 2)
	assert.Equal(t, uint64(1), fetchResp.Messages[0].Index)
	assert.Equal(t, "6", fetchResp.Messages[0].Items["UID"])
	assert.Equal(t, uint64(2), fetchResp.Messages[1].Index)
	assert.Equal(t, "()", fetchResp.Messages[1].Items["FLAGS"])
}

func TestParseFetchTwoLiterals(t *testing.T) {
	first := "first payload\r\n"
	second := "second\r\n"
	blob := "A0006 FETCH 3 (RFC822.HEADER BODY[1])\r\n" +
		"* 3 FETCH (RFC822.HEADER {" + itoa(len(first)) + "}\r\n" +
		first +
		" BODY[1] {" + itoa(len(second)) + "}\r\n" +
		second + ")\r\n" +
		"A0006 OK FETCH completed\r\n"

	resp := parseBlob(t, blob)
	fetchResp := resp.(*FetchResponse)
	require.Len(t, fetchResp.Messages, 1)
	items := fetchResp.Messages[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, first, items["* 3 FETCH (RFC822.HEADER"])
	assert.Equal(t, second, items[" BODY[1]"])
}

func TestParseFetchUnknownItemFails(t *testing.T) {
	blob := "A0007 FETCH 1 (X-GM-MSGID)\r\n" +
		"* 1 FETCH (X-GM-MSGID 1278455344230334865)\r\n" +
		"A0007 OK FETCH completed\r\n"

	parser := &Parser{Log: lib.NewTestLogger(t, "parser")}
	_, err := parser.Parse(blob)
	require.Error(t, err)
	parseErr := &ParseError{}
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseUIDFetchDispatch(t *testing.T) {
	blob := "A0008 UID FETCH 42 (UID RFC822.SIZE)\r\n" +
		"* 7 FETCH (UID 42 RFC822.SIZE 2197)\r\n" +
		"A0008 OK UID FETCH completed\r\n"

	resp := parseBlob(t, blob)
	fetchResp, ok := resp.(*FetchResponse)
	require.True(t, ok)
	require.Len(t, fetchResp.Messages, 1)
	assert.Equal(t, "42", fetchResp.Messages[0].Items["UID"])
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
