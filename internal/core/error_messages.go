package core

// User-facing error codes. Support staff can look up a code quoted by a user
// here.
//
// Template errors come from *ConversionError and carry their own code:
//
//	HDR001  header cell has more than two colons
//	HDR002  property, condition, file, step detail or element column has no name
//	HDR003  subsystem header without a recognized keyword
//	SEQ001  condition column before any property
//	SEQ002  step detail column before any step name
//	SEQ003  method column before any property
//	SEQ004  figure or table column before any property
//	SEQ005  data type column before any property
//	UNIT001 composition unit is neither atomic nor weight percent
//	UNIT002 quantity unit is not mass, volume or number percent
//	DUP001  second formula for the same system
//	DUP002  list literal in a formula cell
//	DUP003  second uid for the same system
//	DUP004  list literal in a uid cell
//	VAL001  malformed range literal
//	VAL002  range minimum not below maximum
//	FILE006 too many cells
//	FILE007 unsupported charset
//	REQ001  invalid conversion option in an HTTP request
//
// Every other error is matched by message pattern below (DB, FILE, UPL,
// RATE). Patterns are matched case-insensitively with strings.Contains; the
// first match wins, so specific patterns come before general ones.
// ERR000 is the fallback; check the logs for the technical error.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Record store
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "These records were already stored for this run",
			Action:  "Convert the file again to store it under a new run",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the record store",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Record store connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The local record database is in use",
			Action:  "Wait for the other conversion to finish and try again",
			Code:    "DB008",
		},
	},

	// Request lifecycle, before the generic timeout pattern
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},

	// Input files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .csv and .tsv templates can be converted",
			Action:  "Save the template as CSV or tab-separated text",
			Code:    "FILE002",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check for unbalanced quotes in the template",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV template to convert",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a template with a header row",
			Code:    "FILE005",
		},
	},

	// Service capacity
	{
		pattern: "too many conversions",
		msg: UserMessage{
			Message: "System busy",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Conversion errors
// report their own code; anything else is matched against known patterns,
// falling back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if ce, ok := AsConversionError(err); ok {
		return ce.UserMessage()
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
