package cli

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid flag or configuration key. Field is the
// flag name or the dotted key, e.g. "from" or "storage.backend".
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// CommandError reports a call history command that failed. Backend and
// Records say how far the command got against the store; both are left out
// of the message when unset.
type CommandError struct {
	Command string
	Backend string
	Records int64
	Err     error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	b.WriteString(e.Command)
	b.WriteString(" failed")
	if e.Backend != "" {
		fmt.Fprintf(&b, " on %s storage", e.Backend)
	}
	if e.Records > 0 {
		fmt.Fprintf(&b, " after %d records", e.Records)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError creates a CommandError for a failure before any storage
// was involved.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// NewStorageError creates a CommandError for a command that failed against
// backend after handling records records.
func NewStorageError(command, backend string, records int64, err error) *CommandError {
	return &CommandError{Command: command, Backend: backend, Records: records, Err: err}
}
