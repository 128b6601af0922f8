package core

// # Error Codes Reference
//
// This file defines user-facing error messages with codes. The CLI prints
// them after a failed run and the HTTP API returns them in error bodies.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Unknown dataset: The identifier is not in sources.yaml or has no plugin
//	         Action: Check the identifier, e.g. 1 or T001
//	         Patterns: "unknown source", "unknown dataset"
//
//	SRC002 - Unsupported kind: The source's fetch type has no client
//	         Action: Use fetch type sdmx or openkapsarc
//	         Patterns: "unsupported source kind"
//
//	SRC003 - Missing parameter: A required fetch parameter is absent
//	         Action: Add the parameter to the source's fetch block
//	         Patterns: "missing fetch parameter"
//
// # Network Errors (NET001-NET099)
//
//	NET001 - Remote error: The remote service answered with an error status
//	         Action: Check the fetch parameters or retry later
//	         Patterns: "remote returned error status"
//
//	NET002 - Unreachable: The remote service could not be contacted
//	         Action: Check network access and retry
//	         Patterns: "request failed"
//
// # Country Errors (CTY001-CTY099)
//
//	CTY001 - Unknown country: A country name matched no ISO 3166 entry
//	         Action: Add an alias for the name
//	         Patterns: "unknown country"
//
//	CTY002 - Region conflict: A country is listed under two regions
//	         Action: Fix regions.yaml
//	         Patterns: "more than one region"
//
// # Dimension Errors (DIM001-DIM099)
//
//	DIM001 - Missing dimension: A canonical column is absent or empty
//	         Action: Set it in the transform or in common dimensions
//	         Patterns: "missing dimension"
//
//	DIM002 - Unknown dimension: Common dimensions name a non-canonical column
//	         Action: Use one of the canonical dimension names
//	         Patterns: "unknown dimension"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Check failed: The raw table did not match expectations
//	VAL002 - Column not found: A listed column is absent from the raw table
//	VAL003 - Invalid number: A value cell is not numeric
//	VAL004 - Invalid year: A year cell is not an integer
//	VAL005 - Unknown unit: No conversion between the two units is known
//	VAL006 - Duplicate observation: Two rows share every key column and year
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Not found: The input file does not exist
//	FILE002 - Invalid CSV: The file is not a valid CSV
//	FILE003 - Empty file: The file has no header row
//	FILE004 - No output: The dataset has not been processed yet
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Busy: Another run is in progress
//	RUN002 - Cancelled: The request was cancelled
//	RUN003 - Timeout: The request took too long
//	RUN004 - Rate limited: Too many fetch or process calls (HTTP only)
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to database
//	DB002 - Timeout: Database operation timed out
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgUnknownSource = UserMessage{
		Message: "Unknown dataset identifier",
		Action:  "Check the identifier, e.g. 1 or T001",
		Code:    "SRC001",
	}
	msgBusy = UserMessage{
		Message: "Another run is in progress",
		Action:  "Wait for it to finish and try again",
		Code:    "RUN001",
	}
)

// errorPatterns maps error text (case-insensitive) to user messages.
// The first match wins.
var errorPatterns = []errorPattern{
	// Source errors
	{pattern: "unknown source", msg: msgUnknownSource},
	{pattern: "unknown dataset", msg: msgUnknownSource},
	{
		pattern: "unsupported source kind",
		msg: UserMessage{
			Message: "The source's fetch type is not supported",
			Action:  "Use fetch type sdmx or openkapsarc",
			Code:    "SRC002",
		},
	},
	{
		pattern: "missing fetch parameter",
		msg: UserMessage{
			Message: "A required fetch parameter is missing",
			Action:  "Add the parameter to the source's fetch block in sources.yaml",
			Code:    "SRC003",
		},
	},

	// Network errors
	{
		pattern: "remote returned error status",
		msg: UserMessage{
			Message: "The remote service returned an error",
			Action:  "Check the fetch parameters or retry later",
			Code:    "NET001",
		},
	},
	{
		pattern: "request failed",
		msg: UserMessage{
			Message: "The remote service could not be reached",
			Action:  "Check network access and retry",
			Code:    "NET002",
		},
	},

	// Country errors
	{
		pattern: "unknown country",
		msg: UserMessage{
			Message: "A country name could not be matched to an ISO code",
			Action:  "Add an alias for the name or correct it in the transform",
			Code:    "CTY001",
		},
	},
	{
		pattern: "more than one region",
		msg: UserMessage{
			Message: "A country is listed under more than one region",
			Action:  "Fix the region definitions in regions.yaml",
			Code:    "CTY002",
		},
	},

	// Dimension errors
	{
		pattern: "missing dimension",
		msg: UserMessage{
			Message: "The normalized table is missing a required dimension",
			Action:  "Set the dimension in the transform or in common dimensions",
			Code:    "DIM001",
		},
	},
	{
		pattern: "unknown dimension",
		msg: UserMessage{
			Message: "Common dimensions name a column outside the canonical schema",
			Action:  "Use one of the canonical dimension names",
			Code:    "DIM002",
		},
	},

	// Validation errors
	{
		pattern: "check failed",
		msg: UserMessage{
			Message: "The raw table does not match the dataset's expectations",
			Action:  "Inspect the source for changes in layout or units",
			Code:    "VAL001",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "An expected column was not found",
			Action:  "Verify the raw file's headers against the dataset definition",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "A value is not a valid number",
			Action:  "Correct or remove the value in the transform",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid year",
		msg: UserMessage{
			Message: "A year is not a valid integer",
			Action:  "Correct the year column in the transform",
			Code:    "VAL004",
		},
	},
	{
		pattern: "unknown unit conversion",
		msg: UserMessage{
			Message: "No conversion between these units is known",
			Action:  "Add the conversion factor to the units table",
			Code:    "VAL005",
		},
	},
	{
		pattern: "duplicate observation",
		msg: UserMessage{
			Message: "Two rows describe the same observation",
			Action:  "Remove duplicate rows in the transform",
			Code:    "VAL006",
		},
	},

	// File errors
	{
		pattern: "no such file or directory",
		msg: UserMessage{
			Message: "The input file does not exist",
			Action:  "Fetch the source first or place the file in the input directory",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Re-fetch the source",
			Code:    "FILE003",
		},
	},

	{
		pattern: "no output written",
		msg: UserMessage{
			Message: "The dataset has no output yet",
			Action:  "Process the dataset first",
			Code:    "FILE004",
		},
	},

	// Run errors
	{pattern: "pipeline busy", msg: msgBusy},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Retry, or raise the HTTP timeout for large downloads",
			Code:    "RUN003",
		},
	},

	// Database errors (publishing)
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Database operation timed out",
			Action:  "Please try again later",
			Code:    "DB002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log output for details",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. If no pattern
// matches, a generic fallback message with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("resolve: %w", country.ErrUnknownCountry))
//	// msg.Code == "CTY001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
