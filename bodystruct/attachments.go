package bodystruct

import "strings"

// Attachment describes one downloadable body part.
type Attachment struct {
	PartNo           string
	Encoding         string
	FileName         string
	CreationDate     string
	ModificationDate string
	Size             string
}

// AttachmentCollector is a visitor accumulating the leaves that look like
// attachments: parts naming a file in their disposition, and non-text parts
// delivered base64-encoded.
type AttachmentCollector struct {
	Attachments []Attachment
}

func (c *AttachmentCollector) Visit(node *Node, part *Part) {
	fields := part.Fields
	if fields == nil {
		return
	}
	disposition := dispositionParams(fields.Disposition)
	fileName := paramValue(disposition, "FILENAME")
	binary := !strings.EqualFold(fields.Type, "TEXT") &&
		strings.EqualFold(fields.Encoding, "BASE64")
	if fileName == "" && !binary {
		return
	}
	if fileName == "" {
		fileName = paramValue(fields.ParameterList, "NAME")
	}
	c.Attachments = append(c.Attachments, Attachment{
		PartNo:           part.PartNo,
		Encoding:         fields.Encoding,
		FileName:         fileName,
		CreationDate:     paramValue(disposition, "CREATION-DATE"),
		ModificationDate: paramValue(disposition, "MODIFICATION-DATE"),
		Size:             fields.Size,
	})
}

// dispositionParams returns the parameter list of a disposition field,
// e.g. `("FILENAME" "x.pdf")` from `("ATTACHMENT" ("FILENAME" "x.pdf"))`.
func dispositionParams(disposition string) string {
	if disposition == "" || disposition == NIL {
		return ""
	}
	inner := disposition[1 : len(disposition)-1]
	return list(inner)
}

// paramValue scans a parameter list for the value following the given key,
// case-insensitive.
func paramValue(params, key string) string {
	if params == "" || params == NIL {
		return ""
	}
	scan := &scanner{s: strings.Trim(params, "()")}
	for {
		name := scan.next()
		if name == "" {
			return ""
		}
		value := scan.next()
		if strings.EqualFold(unquote(name), key) {
			return unquote(value)
		}
	}
}
