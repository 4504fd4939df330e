package imap

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/antikgo/antik/lib"
)

// Parser turns raw response blobs into typed responses. It expects a
// syntactically correct server: malformed input surfaces as a single
// ParseError rather than a detailed diagnosis.
//
// The first line of the blob must be the tagged command line that produced
// the response; the tag and command kind are derived from it.
type Parser struct {
	// Log receives untagged NO and BAD lines, which are reported but do
	// not stop parsing. Defaults to standard error.
	Log lib.Logger
}

var stderrLog = log.New(os.Stderr, "", 0)

func (p *Parser) logger() lib.Logger {
	if p != nil && p.Log != nil {
		return p.Log
	}
	return stderrLog
}

type parseRoutine func(*Parser, *commandData) (Response, error)

var parseRoutines = map[Command]parseRoutine{
	CmdList:       (*Parser).parseList,
	CmdLsub:       (*Parser).parseList,
	CmdSearch:     (*Parser).parseSearch,
	CmdSelect:     (*Parser).parseSelect,
	CmdExamine:    (*Parser).parseSelect,
	CmdStatus:     (*Parser).parseMailboxStatus,
	CmdExpunge:    (*Parser).parseExpunge,
	CmdStore:      (*Parser).parseStore,
	CmdCapability: (*Parser).parseCapability,
	CmdFetch:      (*Parser).parseFetch,
	CmdNoop:       (*Parser).parseNoop,
	CmdIdle:       (*Parser).parseNoop,
	CmdLogout:     (*Parser).parseLogout,
}

type commandData struct {
	tag  string
	cmd  Command
	line string
	r    *respReader
}

// respReader is a cursor over the raw blob. Lines are delivered with the
// trailing CR LF stripped; read delivers raw bytes for literal blocks.
type respReader struct {
	blob string
	pos  int
}

func (r *respReader) line() (string, bool) {
	if r.pos >= len(r.blob) {
		return "", false
	}
	var line string
	if end := strings.IndexByte(r.blob[r.pos:], '\n'); end >= 0 {
		line = r.blob[r.pos : r.pos+end]
		r.pos += end + 1
	} else {
		line = r.blob[r.pos:]
		r.pos = len(r.blob)
	}
	return strings.TrimSuffix(line, "\r"), true
}

func (r *respReader) read(n int) string {
	end := r.pos + n
	if end > len(r.blob) {
		end = len(r.blob)
	}
	s := r.blob[r.pos:end]
	r.pos = end
	return s
}

// Parse decodes the response blob. The command kind is taken from the
// command line at the head of the blob; commands without a dedicated
// routine get the default status-only decoding.
func (p *Parser) Parse(blob string) (Response, error) {
	r := &respReader{blob: blob}
	commandLine, ok := r.line()
	if !ok {
		return nil, &ParseError{Line: blob}
	}
	data := &commandData{
		tag:  tagFromLine(commandLine),
		cmd:  commandFromLine(commandLine),
		line: commandLine,
		r:    r,
	}
	routine := parseRoutines[data.cmd]
	if routine == nil {
		routine = (*Parser).parseDefault
	}
	return routine(p, data)
}

// applyStatusLine decodes a line that no routine consumed as payload: the
// tagged completion, an untagged BYE, or an untagged NO/BAD (reported and
// skipped). Anything else fails the parse.
func (p *Parser) applyStatusLine(tag, line string, b *BaseFields) error {
	switch {
	case hasPrefixFold(line, tag+" OK"):
		b.Status = StatusOK
	case hasPrefixFold(line, tag+" NO"):
		b.Status = StatusNo
		b.ErrorMessage = line
	case hasPrefixFold(line, tag+" BAD"):
		b.Status = StatusBad
		b.ErrorMessage = line
	case hasPrefixFold(line, "* BYE"):
		b.ByeSeen = true
		b.ErrorMessage = line
	case hasPrefixFold(line, "* NO"), hasPrefixFold(line, "* BAD"):
		p.logger().Println(line)
	default:
		return &ParseError{Line: line}
	}
	return nil
}

// parseSelect handles SELECT and EXAMINE. The mailbox name comes from the
// command line itself; the access mode from the tagged OK line.
func (p *Parser) parseSelect(data *commandData) (Response, error) {
	resp := &SelectResponse{
		BaseFields: BaseFields{Command: data.cmd},
		Items: make(map[string]string),
	}
	name := data.line[strings.LastIndexByte(data.line, ' ')+1:]
	name = strings.TrimSuffix(name, `"`)
	resp.Mailbox = strings.TrimPrefix(name, `"`)

	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		// an untagged "* OK [ITEM value]" carries the item inside the
		// brackets
		if hasPrefixFold(line, "* OK [") {
			line = between(line, '[', ']')
		}
		switch {
		case hasPrefixFold(line, "* FLAGS"):
			resp.Items["FLAGS"] = list(line)
		case hasPrefixFold(line, "PERMANENTFLAGS"):
			resp.Items["PERMANENTFLAGS"] = list(line)
		case hasPrefixFold(line, "UIDVALIDITY"):
			resp.Items["UIDVALIDITY"] = between(line, ' ', ']')
		case hasPrefixFold(line, "UIDNEXT"):
			resp.Items["UIDNEXT"] = between(line, ' ', ']')
		case hasPrefixFold(line, "HIGHESTMODSEQ"):
			resp.Items["HIGHESTMODSEQ"] = between(line, ' ', ']')
		case hasPrefixFold(line, "* CAPABILITY"):
			resp.Items["CAPABILITY"] = strings.TrimSpace(line[len("* CAPABILITY"):])
		case hasPrefixFold(line, "UNSEEN"):
			resp.Items["UNSEEN"] = between(line, ' ', ']')
		case containsFold(line, "EXISTS"):
			resp.Items["EXISTS"] = untaggedNumber(line)
		case containsFold(line, "RECENT"):
			resp.Items["RECENT"] = untaggedNumber(line)
		default:
			if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
				return nil, err
			}
			if resp.Status == StatusOK && strings.IndexByte(line, '[') >= 0 {
				resp.Access = between(line, '[', ']')
			}
		}
	}
	return resp, nil
}

func (p *Parser) parseSearch(data *commandData) (Response, error) {
	resp := &SearchResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if hasPrefixFold(line, "* SEARCH") {
			for _, field := range strings.Fields(line[len("* SEARCH"):]) {
				index, err := strconv.ParseUint(field, 10, 64)
				if err != nil {
					return nil, &ParseError{Line: line}
				}
				resp.Indexes = append(resp.Indexes, index)
			}
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *Parser) parseList(data *commandData) (Response, error) {
	resp := &ListResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if hasPrefixFold(line, "* LIST") || hasPrefixFold(line, "* LSUB") {
			entry := ListEntry{
				Attributes: list(line),
				Delimiter:  between(line, '"', '"'),
			}
			// RFC 3501 allows both quoted and atom mailbox names
			if strings.HasSuffix(line, `"`) {
				open := strings.LastIndexByte(line[:len(line)-1], '"')
				entry.Name = line[open:]
			} else {
				entry.Name = line[strings.LastIndexByte(line, ' ')+1:]
			}
			resp.Mailboxes = append(resp.Mailboxes, entry)
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *Parser) parseMailboxStatus(data *commandData) (Response, error) {
	resp := &StatusResponse{
		BaseFields: BaseFields{Command: data.cmd},
		Items: make(map[string]string),
	}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if hasPrefixFold(line, "* STATUS") {
			rest := strings.TrimSpace(line[len("* STATUS"):])
			if space := strings.IndexByte(rest, ' '); space >= 0 {
				resp.Mailbox = trimQuotes(rest[:space])
			}
			fields := strings.Fields(between(rest, '(', ')'))
			for i := 0; i+1 < len(fields); i += 2 {
				resp.Items[fields[i]] = fields[i+1]
			}
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *Parser) parseExpunge(data *commandData) (Response, error) {
	resp := &ExpungeResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		switch {
		case hasPrefixFold(line, "* ") && containsFold(line, "EXISTS"):
			number, err := strconv.ParseUint(untaggedNumber(line), 10, 64)
			if err != nil {
				return nil, &ParseError{Line: line}
			}
			resp.Exists = append(resp.Exists, number)
		case hasPrefixFold(line, "* ") && containsFold(line, "EXPUNGE"):
			number, err := strconv.ParseUint(untaggedNumber(line), 10, 64)
			if err != nil {
				return nil, &ParseError{Line: line}
			}
			resp.Expunged = append(resp.Expunged, number)
		default:
			if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
				return nil, err
			}
		}
	}
	return resp, nil
}

func (p *Parser) parseStore(data *commandData) (Response, error) {
	resp := &StoreResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if containsFold(line, "FETCH") {
			index, err := strconv.ParseUint(untaggedNumber(line), 10, 64)
			if err != nil {
				return nil, &ParseError{Line: line}
			}
			// the flags list is the inner list of "(FLAGS (...))"
			outer := list(line)
			resp.Updates = append(resp.Updates, StoreUpdate{
				Index: index,
				Flags: list(outer[1:]),
			})
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *Parser) parseCapability(data *commandData) (Response, error) {
	resp := &CapabilityResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if hasPrefixFold(line, "* CAPABILITY") {
			resp.Capabilities = strings.TrimSpace(line[len("* CAPABILITY"):])
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *Parser) parseNoop(data *commandData) (Response, error) {
	resp := &NoopResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if hasPrefixFold(line, "* ") {
			if hasPrefixFold(line, "* BYE") {
				resp.ByeSeen = true
				resp.ErrorMessage = line
			}
			resp.Lines = append(resp.Lines, line)
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *Parser) parseLogout(data *commandData) (Response, error) {
	resp := &LogoutResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if hasPrefixFold(line, "* BYE") {
			resp.Lines = append(resp.Lines, line)
			resp.ByeSeen = true
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *Parser) parseDefault(data *commandData) (Response, error) {
	resp := &GenericResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
