package imap

import "fmt"

// TransportError reports a failed socket operation. The session is broken
// once one has been returned: every subsequent command fails the same way.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a response blob that did not match the grammar expected
// for the dispatched command. It carries the offending line verbatim. The
// session itself stays usable.
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse IMAP response [%s]", e.Line)
}

// ProtocolError reports a NO or BAD completion status. The typed response is
// still produced alongside; only Session.ExecuteChecked turns the status into
// an error.
type ProtocolError struct {
	Command Command
	Status  Status
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: server replied %s: %s", e.Command, e.Status, e.Message)
}
