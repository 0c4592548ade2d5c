package failure

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
)

// RethrowMarker is injected into a stack trace where a runtime grafted frames
// on after a controlled re-raise. Everything from the marker onward is dropped.
const RethrowMarker = "$$RethrowMarker$$"

// Node is one link of an in-process failure chain.
type Node interface {
	TypeName() string
	Message() string
	// StackTrace reports false when no trace was captured.
	StackTrace() (string, bool)
	// Cause returns the node that triggered this one, or nil.
	Cause() Node
}

// StackTracer is implemented by errors that carry their own stack trace.
type StackTracer interface {
	StackTrace() string
}

// FromLiveChain walks head and its causes, outermost first. A nil head yields
// an empty Chain.
func FromLiveChain(head Node) Chain {
	var (
		types         []*string
		messages      []string
		stackTraces   []*string
		parentIndices []int
	)
	parentIndex := -1

	for node := head; node != nil; node = node.Cause() {
		var stackTrace *string
		if trace, ok := node.StackTrace(); ok {
			if idx := strings.Index(trace, RethrowMarker); idx >= 0 {
				trace = trace[:idx]
			}
			stackTrace = &trace
		}

		types = append(types, String(node.TypeName()))
		messages = append(messages, node.Message())
		stackTraces = append(stackTraces, stackTrace)
		parentIndices = append(parentIndices, parentIndex)

		parentIndex = len(parentIndices) - 1
	}

	return New(types, messages, stackTraces, parentIndices)
}

// FromError normalizes err and the errors reachable through errors.Unwrap.
// Multi-errors exposing only Unwrap() []error end the chain.
func FromError(err error) Chain {
	if err == nil {
		return FromLiveChain(nil)
	}
	return FromLiveChain(nodeFor(err))
}

type errorNode struct {
	err   error
	stack *string
}

// nodeFor hides WithStack wrappers: the wrapped error takes the captured stack
// unless it carries its own.
func nodeFor(err error) Node {
	if err == nil {
		return nil
	}
	var stack *string
	for {
		se, ok := err.(*stackError)
		if !ok {
			break
		}
		if stack == nil {
			stack = &se.stack
		}
		err = se.err
	}
	return errorNode{err: err, stack: stack}
}

func (n errorNode) TypeName() string { return TypeNameOf(n.err) }

func (n errorNode) Message() string { return n.err.Error() }

func (n errorNode) StackTrace() (string, bool) {
	if st, ok := n.err.(StackTracer); ok {
		return st.StackTrace(), true
	}
	if n.stack != nil {
		return *n.stack, true
	}
	return "", false
}

func (n errorNode) Cause() Node {
	return nodeFor(errors.Unwrap(n.err))
}

type stackError struct {
	err   error
	stack string
}

// WithStack records the calling goroutine's stack on err so FromError reports
// a trace for it. A nil err stays nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return &stackError{err: err, stack: string(debug.Stack())}
}

func (e *stackError) Error() string { return e.err.Error() }

func (e *stackError) Unwrap() error { return e.err }

// TypeNameOf returns the package-qualified dynamic type of v, such as
// "*io/fs.PathError".
func TypeNameOf(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return prefix + t.String()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}

// PanicError carries a recovered panic value and the stack captured at recovery.
type PanicError struct {
	Value any
	Stack string
}

// Recovered wraps a value returned by recover together with the stack from
// runtime/debug.Stack.
func Recovered(value any, stack []byte) *PanicError {
	return &PanicError{Value: value, Stack: string(stack)}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// StackTrace implements StackTracer.
func (e *PanicError) StackTrace() string { return e.Stack }

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
