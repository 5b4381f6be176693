package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies conversion failures by what the template author has
// to fix.
type ErrorKind string

const (
	KindHeader    ErrorKind = "header"
	KindSequence  ErrorKind = "sequence"
	KindUnit      ErrorKind = "unit"
	KindDuplicate ErrorKind = "duplicate"
	KindValue     ErrorKind = "value"
	KindFile      ErrorKind = "file"
)

// ConversionError is a fatal, user-correctable problem in the input template.
// Line is the 1-based source line and Column the 1-based column; zero means
// the error is not tied to one.
type ConversionError struct {
	Kind    ErrorKind
	Code    string
	Column  int
	Line    int
	Message string
	Action  string
}

func (e *ConversionError) Error() string {
	msg := e.located()
	if e.Action != "" {
		msg += ". " + e.Action
	}
	return msg
}

// located prefixes the message with the line and column it refers to.
func (e *ConversionError) located() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Column > 0 {
		fmt.Fprintf(&b, "column %d: ", e.Column)
	}
	b.WriteString(e.Message)
	return b.String()
}

// UserMessage returns the message/action/code triple shown to end users.
func (e *ConversionError) UserMessage() UserMessage {
	return UserMessage{Message: e.located(), Action: e.Action, Code: e.Code}
}

// AsConversionError unwraps err into a *ConversionError if it holds one.
func AsConversionError(err error) (*ConversionError, bool) {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func columnError(kind ErrorKind, code string, col Column, msg, action string) *ConversionError {
	return &ConversionError{
		Kind:    kind,
		Code:    code,
		Column:  col.Index + 1,
		Message: msg,
		Action:  action,
	}
}

// atColumn stamps a column onto a conversion error that does not have one.
func atColumn(err error, index int) error {
	if ce, ok := AsConversionError(err); ok && ce.Column == 0 {
		ce.Column = index + 1
	}
	return err
}

// atLine stamps a source line onto a conversion error that does not have one.
func atLine(err error, line int) error {
	if ce, ok := AsConversionError(err); ok && ce.Line == 0 {
		ce.Line = line
	}
	return err
}

func errMissingName(col Column, what string) error {
	return columnError(KindHeader, "HDR002", col,
		fmt.Sprintf("no %s name has been specified", what),
		fmt.Sprintf("Every %s column must have a name provided in the header row", what))
}

func errConditionBeforeProperty(col Column) error {
	return columnError(KindSequence, "SEQ001", col,
		"condition details were provided before a property was given",
		"Condition columns must appear to the right of the property they belong to")
}
