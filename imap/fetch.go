package imap

import (
	"strconv"
	"strings"
)

// FETCH is parsed item by item rather than line by line: a literal octet
// block "{N}" interrupts line framing and the parenthesised item list of one
// message can continue on the line following the literal payload.
//
// fetchCursor tracks both the unconsumed tail of the current physical line
// (rest) and the line as it was read (full). The full line is needed to key
// literal values: the map key for an octet item is the whole prefix line up
// to and including the item token, so that several literal items in one
// FETCH stay distinguishable.
type fetchCursor struct {
	full string
	rest string
	r    *respReader
}

func (c *fetchCursor) nextLine() bool {
	line, ok := c.r.line()
	if !ok {
		return false
	}
	c.full = line
	c.rest = line
	return true
}

func (p *Parser) parseFetch(data *commandData) (Response, error) {
	resp := &FetchResponse{BaseFields: BaseFields{Command: data.cmd}}
	for {
		line, ok := data.r.line()
		if !ok {
			break
		}
		if containsFold(line, "FETCH (") {
			message, err := p.parseFetchMessage(line, data.r)
			if err != nil {
				return nil, err
			}
			resp.Messages = append(resp.Messages, *message)
		} else if err := p.applyStatusLine(data.tag, line, &resp.BaseFields); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// parseFetchMessage consumes one "* <n> FETCH (...)" group, which may span
// several physical lines when literal blocks are present.
func (p *Parser) parseFetchMessage(line string, r *respReader) (*FetchMessage, error) {
	index, err := strconv.ParseUint(untaggedNumber(line), 10, 64)
	if err != nil {
		return nil, &ParseError{Line: line}
	}
	message := &FetchMessage{
		Index: index,
		Items: make(map[string]string),
	}
	cursor := &fetchCursor{full: line, r: r}
	cursor.rest = line[strings.IndexByte(line, '(')+1:]

	for {
		switch {
		case hasPrefixFold(cursor.rest, "BODYSTRUCTURE "):
			cursor.itemList("BODYSTRUCTURE", message)
		case hasPrefixFold(cursor.rest, "ENVELOPE "):
			cursor.itemList("ENVELOPE", message)
		case hasPrefixFold(cursor.rest, "FLAGS "):
			cursor.itemList("FLAGS", message)
		case hasPrefixFold(cursor.rest, "BODY "):
			cursor.itemList("BODY", message)
		case hasPrefixFold(cursor.rest, "INTERNALDATE "):
			cursor.itemQuoted("INTERNALDATE", message)
		case hasPrefixFold(cursor.rest, "RFC822.SIZE "):
			cursor.itemNumber("RFC822.SIZE", message)
		case hasPrefixFold(cursor.rest, "UID "):
			cursor.itemNumber("UID", message)
		case hasPrefixFold(cursor.rest, "RFC822.HEADER "):
			err = cursor.itemOctets(message)
		case hasPrefixFold(cursor.rest, "BODY["):
			err = cursor.itemOctets(message)
		case hasPrefixFold(cursor.rest, "RFC822 "):
			err = cursor.itemOctets(message)
		default:
			return nil, &ParseError{Line: cursor.full}
		}
		if err != nil {
			return nil, err
		}

		cursor.rest = strings.TrimLeft(cursor.rest, " ")
		if strings.HasPrefix(cursor.rest, ")") {
			return message, nil
		}
		if cursor.rest == "" && !cursor.nextLine() {
			return nil, &ParseError{Line: cursor.full}
		}
	}
}

// itemNumber consumes "<item> <digits>".
func (c *fetchCursor) itemNumber(item string, message *FetchMessage) {
	c.rest = c.rest[len(item)+1:]
	value := digits(c.rest)
	c.rest = c.rest[len(value):]
	message.Items[item] = value
}

// itemQuoted consumes "<item> "<value>"", requoting the value.
func (c *fetchCursor) itemQuoted(item string, message *FetchMessage) {
	c.rest = c.rest[len(item)+1:]
	value := `"` + between(c.rest, '"', '"') + `"`
	c.rest = c.rest[len(value):]
	message.Items[item] = value
}

// itemList consumes "<item> (...)" keeping the balanced list verbatim.
func (c *fetchCursor) itemList(item string, message *FetchMessage) {
	c.rest = c.rest[len(item)+1:]
	value := list(c.rest)
	c.rest = c.rest[len(value):]
	message.Items[item] = value
}

// itemOctets consumes a literal octet block: the current line ends with
// "{N}", the next N raw bytes are the value. Parsing resumes on the line
// following the payload.
func (c *fetchCursor) itemOctets(message *FetchMessage) error {
	open := strings.LastIndexByte(c.full, '{')
	if open < 0 {
		return &ParseError{Line: c.full}
	}
	count, err := strconv.Atoi(between(c.full[open:], '{', '}'))
	if err != nil {
		return &ParseError{Line: c.full}
	}
	label := strings.TrimRight(c.full[:open], " ")
	payload := c.r.read(count)
	if len(payload) != count {
		return &ParseError{Line: c.full}
	}
	message.Items[label] = payload
	if !c.nextLine() {
		return &ParseError{Line: label}
	}
	return nil
}
