// Package zkerr provides rich, contextual errors for user-facing failures
// (bad config, unresolvable whitelist entries, malformed AST from the
// collaborator parser). Internal invariant violations use package
// invariant instead; zkerr is for recoverable, reportable conditions.
package zkerr

import "strings"

// Error carries what zkFuzz was doing when it failed, plus an optional
// suggestion and example.
type Error struct {
	Message    string // what went wrong
	Context    string // what zkFuzz was doing
	Suggestion string // how to fix it
	Example    string // a valid example, if applicable
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Context != "" {
		b.WriteString(e.Context)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Suggestion != "" {
		b.WriteString("\n")
		b.WriteString(e.Suggestion)
	}
	if e.Example != "" {
		b.WriteString("\n")
		b.WriteString(e.Example)
	}
	return b.String()
}

// New builds a bare Error with just a message.
func New(message string) *Error {
	return &Error{Message: message}
}

// Wrap attaches context to an existing message.
func Wrap(context, message string) *Error {
	return &Error{Context: context, Message: message}
}
