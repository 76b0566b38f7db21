package settings

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-roomsync/rules"
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "settings: invalid"
	}
	parts := make([]string, len(e.Fields))
	for i, field := range e.Fields {
		parts[i] = field.String()
	}
	return "settings: invalid: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate reports a *ValidationError when a name is blank, the interval is
// not positive, the poll rule is blank, or the rule engine is unknown.
func (e Effective) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(e.Namespace) == "" {
		verr.add("bridge.namespace", "must not be empty")
	}
	if strings.TrimSpace(e.Accessor) == "" {
		verr.add("bridge.accessor", "must not be empty")
	}
	if strings.TrimSpace(e.NotifierKey) == "" {
		verr.add("bridge.notifier_key", "must not be empty")
	}
	if e.PollInterval <= 0 {
		verr.add("bridge.poll_interval_ms", "must be positive, got %d", e.PollInterval.Milliseconds())
	}
	if strings.TrimSpace(e.PollWhen) == "" {
		verr.add("bridge.poll_when", "must not be empty")
	}
	if !rules.KnownEngine(e.RuleEngine) {
		verr.add("bridge.rule_engine", "unknown engine %q", e.RuleEngine)
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
