package failure

import (
	"errors"
	"fmt"
	"regexp"
)

// Legacy result files store every nested failure of a test in two blobs. The
// message blob separates entries with a dash-only line and prefixes inner
// entries with "<Type> : ". The stack trace blob separates entries with a fixed
// banner line. The two separators differ and are scanned independently.
var (
	nestedMessagesPattern = regexp.MustCompile(
		`(?s)-*\s*(?:(?P<type>[^\r\n]*?) :\s*)?(?P<message>.+?)(?:\r?\n-+[ \t]*(?:\r?\n|\z)|\z)`)
	nestedStackTracesPattern = regexp.MustCompile(`\r?\n----- Inner Stack Trace -----\r?\n`)

	messageTypeGroup = nestedMessagesPattern.SubexpIndex("type")
	messageBodyGroup = nestedMessagesPattern.SubexpIndex("message")
)

// ErrNilArgument is matched by every ArgumentError.
var ErrNilArgument = errors.New("argument must not be nil")

// ArgumentError reports a required input that was not supplied.
type ArgumentError struct {
	Param string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Param, ErrNilArgument)
}

func (e *ArgumentError) Unwrap() error { return ErrNilArgument }

// LegacyText is the raw content of a legacy failure record. A nil blob means
// the record did not contain it at all.
type LegacyText struct {
	ExceptionType string
	Messages      *string
	StackTraces   *string
}

// Validate fails with an *ArgumentError when a required blob is missing.
func (t LegacyText) Validate() error {
	if t.Messages == nil {
		return &ArgumentError{Param: "messages"}
	}
	if t.StackTraces == nil {
		return &ArgumentError{Param: "stackTraces"}
	}
	return nil
}

// Chain parses the record, see FromLegacyText.
func (t LegacyText) Chain() (Chain, error) {
	return FromLegacyText(t.ExceptionType, t.Messages, t.StackTraces)
}

// FromLegacyText re-segments the concatenated message and stack trace blobs of
// a legacy failure record. outermostType fills in the type of the first entry,
// which the message blob leaves unprefixed.
//
// The number of entries follows the stack trace blob. The message blob is
// segmented on its own and may yield a different count; the result is then
// not Consistent and is returned as parsed.
func FromLegacyText(outermostType string, messages, stackTraces *string) (Chain, error) {
	if err := (LegacyText{ExceptionType: outermostType, Messages: messages, StackTraces: stackTraces}).Validate(); err != nil {
		return Chain{}, err
	}

	types, bodies := splitMessages(*messages)
	if len(types) > 0 && *types[0] == "" {
		types[0] = String(outermostType)
	}

	traces := nestedStackTracesPattern.Split(*stackTraces, -1)
	traceValues := make([]*string, len(traces))
	parentIndices := make([]int, len(traces))
	for i := range traces {
		traceValues[i] = &traces[i]
		parentIndices[i] = i - 1
	}

	return New(types, bodies, traceValues, parentIndices), nil
}

func splitMessages(blob string) ([]*string, []string) {
	matches := nestedMessagesPattern.FindAllStringSubmatch(blob, -1)
	types := make([]*string, 0, len(matches))
	bodies := make([]string, 0, len(matches))
	for _, m := range matches {
		types = append(types, String(m[messageTypeGroup]))
		bodies = append(bodies, m[messageBodyGroup])
	}
	return types, bodies
}
