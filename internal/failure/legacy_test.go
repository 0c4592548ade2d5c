package failure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLegacyText_Messages(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		outermostType string
		messages      string
		expectedTypes []*string
		expectedMsgs  []string
	}{
		{
			name:          "outer type supplied separately",
			outermostType: "System.Exception",
			messages:      "OuterMsg\n-----\nInnerType : InnerMsg",
			expectedTypes: strs("System.Exception", "InnerType"),
			expectedMsgs:  []string{"OuterMsg", "InnerMsg"},
		},
		{
			name:          "three levels with CRLF separators",
			outermostType: "System.AggregateException",
			messages:      "One or more errors occurred.\r\n----\r\nSystem.IO.IOException : disk\r\n----\r\nSystem.Exception : root",
			expectedTypes: strs("System.AggregateException", "System.IO.IOException", "System.Exception"),
			expectedMsgs:  []string{"One or more errors occurred.", "disk", "root"},
		},
		{
			name:          "first type already prefixed",
			outermostType: "Ignored",
			messages:      "Outer.Type : outer\n---\nInner.Type : inner",
			expectedTypes: strs("Outer.Type", "Inner.Type"),
			expectedMsgs:  []string{"outer", "inner"},
		},
		{
			name:          "back-fill with empty outer type",
			outermostType: "",
			messages:      "just a message",
			expectedTypes: strs(""),
			expectedMsgs:  []string{"just a message"},
		},
		{
			name:          "multi-line body with dash-led line",
			outermostType: "Xunit.Sdk.EqualException",
			messages:      "Assert.Equal() Failure\n- expected: 1\n- actual: 2",
			expectedTypes: strs("Xunit.Sdk.EqualException"),
			expectedMsgs:  []string{"Assert.Equal() Failure\n- expected: 1\n- actual: 2"},
		},
		{
			name:          "trailing separator",
			outermostType: "T",
			messages:      "only\n-----",
			expectedTypes: strs("T"),
			expectedMsgs:  []string{"only"},
		},
		{
			name:          "empty blob",
			outermostType: "T",
			messages:      "",
			expectedTypes: []*string{},
			expectedMsgs:  []string{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			messages := tc.messages
			chain, err := FromLegacyText(tc.outermostType, &messages, String("trace"))
			require.NoError(t, err)

			assert.Equal(t, tc.expectedTypes, chain.Types())
			assert.Equal(t, tc.expectedMsgs, chain.Messages())
		})
	}
}

func TestFromLegacyText_StackTraces(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		stackTraces     string
		expectedTraces  []*string
		expectedParents []int
	}{
		{
			name:            "two traces",
			stackTraces:     "trace1\n----- Inner Stack Trace -----\ntrace2",
			expectedTraces:  strs("trace1", "trace2"),
			expectedParents: []int{-1, 0},
		},
		{
			name:            "CRLF banner",
			stackTraces:     "at A\r\n----- Inner Stack Trace -----\r\nat B\r\n----- Inner Stack Trace -----\r\nat C",
			expectedTraces:  strs("at A", "at B", "at C"),
			expectedParents: []int{-1, 0, 1},
		},
		{
			name:            "message separator is not a banner",
			stackTraces:     "at A\n-----\nat B",
			expectedTraces:  strs("at A\n-----\nat B"),
			expectedParents: []int{-1},
		},
		{
			name:            "empty blob",
			stackTraces:     "",
			expectedTraces:  strs(""),
			expectedParents: []int{-1},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			traces := tc.stackTraces
			chain, err := FromLegacyText("T", String("m"), &traces)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedTraces, chain.StackTraces())
			assert.Equal(t, tc.expectedParents, chain.ParentIndices())
			assert.Equal(t, len(tc.expectedParents), chain.Len())
		})
	}
}

func TestFromLegacyText_NilArguments(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		messages    *string
		stackTraces *string
		param       string
	}{
		{name: "nil messages", messages: nil, stackTraces: String(""), param: "messages"},
		{name: "nil stack traces", messages: String(""), stackTraces: nil, param: "stackTraces"},
		{name: "both nil reports messages first", messages: nil, stackTraces: nil, param: "messages"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			chain, err := FromLegacyText("T", tc.messages, tc.stackTraces)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNilArgument))

			var argErr *ArgumentError
			require.True(t, errors.As(err, &argErr))
			assert.Equal(t, tc.param, argErr.Param)
			assert.Contains(t, err.Error(), tc.param)
			assert.Equal(t, 0, chain.Len())
		})
	}
}

// The two blobs are segmented independently and their counts are not
// reconciled. These cases pin down what callers receive when they disagree.
func TestFromLegacyText_CountMismatch(t *testing.T) {
	t.Parallel()

	t.Run("more traces than messages", func(t *testing.T) {
		t.Parallel()
		chain, err := FromLegacyText("Outer",
			String("outer\n---\nInner : inner"),
			String("t0\n----- Inner Stack Trace -----\nt1\n----- Inner Stack Trace -----\nt2"))
		require.NoError(t, err)

		assert.Equal(t, 3, chain.Len())
		assert.Len(t, chain.Types(), 2)
		assert.Len(t, chain.Messages(), 2)
		assert.Len(t, chain.StackTraces(), 3)
		assert.Equal(t, []int{-1, 0, 1}, chain.ParentIndices())
		assert.False(t, chain.Consistent())
	})

	t.Run("more messages than traces", func(t *testing.T) {
		t.Parallel()
		chain, err := FromLegacyText("Outer",
			String("outer\n---\nA : a\n---\nB : b"),
			String("only one trace"))
		require.NoError(t, err)

		assert.Equal(t, 1, chain.Len())
		assert.Len(t, chain.Messages(), 3)
		assert.False(t, chain.Consistent())
	})

	t.Run("matching counts are consistent", func(t *testing.T) {
		t.Parallel()
		chain, err := LegacyText{
			ExceptionType: "Outer",
			Messages:      String("outer\n---\nInner : inner"),
			StackTraces:   String("t0\n----- Inner Stack Trace -----\nt1"),
		}.Chain()
		require.NoError(t, err)
		assert.True(t, chain.Consistent())
	})
}
