package extractors

import (
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-failchain/internal/failure"
)

const (
	// Test result element as written by the v1 runner, two nested failures.
	xmlNestedFailure = `<?xml version="1.0" encoding="utf-8"?>
<assembly name="Tests.dll">
  <class name="Tests.Sample">
    <test name="Tests.Sample.Fails" result="Fail">
      <failure exception-type="System.InvalidOperationException">
        <message>outer &lt;op&gt;
-----
System.IO.IOException : disk full</message>
        <stack-trace><![CDATA[at Tests.Sample.Fails()
----- Inner Stack Trace -----
at System.IO.File.Write()]]></stack-trace>
      </failure>
    </test>
  </class>
</assembly>`

	xmlRootFailureNoStack = `<failure exception-type="Xunit.Sdk.TrueException"><message>Assert.True() Failure</message></failure>`

	xmlMissingMessage = `<failure exception-type="System.Exception"><stack-trace>at X()</stack-trace></failure>`

	xmlMissingType = `<failure><message>plain</message><stack-trace>at X()</stack-trace></failure>`
)

func TestXMLExtractor_Extract(t *testing.T) {
	t.Parallel()
	extractor := NewXMLExtractor()

	testCases := []struct {
		name           string
		input          string
		expectedType   string
		expectedTypes  []string
		expectedMsgs   []string
		expectedTraces []string
	}{
		{
			name:           "Nested Failure Inside Assembly",
			input:          xmlNestedFailure,
			expectedType:   "System.InvalidOperationException",
			expectedTypes:  []string{"System.InvalidOperationException", "System.IO.IOException"},
			expectedMsgs:   []string{"outer <op>", "disk full"},
			expectedTraces: []string{"at Tests.Sample.Fails()", "at System.IO.File.Write()"},
		},
		{
			name:           "Root Failure Without Stack Trace",
			input:          xmlRootFailureNoStack,
			expectedType:   "Xunit.Sdk.TrueException",
			expectedTypes:  []string{"Xunit.Sdk.TrueException"},
			expectedMsgs:   []string{"Assert.True() Failure"},
			expectedTraces: []string{""},
		},
		{
			name:           "Missing Exception Type Attribute",
			input:          xmlMissingType,
			expectedType:   "",
			expectedTypes:  []string{""},
			expectedMsgs:   []string{"plain"},
			expectedTraces: []string{"at X()"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			record, err := extractor.Extract([]byte(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.expectedType, record.ExceptionType)

			chain, err := record.Chain()
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTypes, deref(chain.Types()))
			assert.Equal(t, tc.expectedMsgs, chain.Messages())
			assert.Equal(t, tc.expectedTraces, deref(chain.StackTraces()))
		})
	}
}

func TestXMLExtractor_Errors(t *testing.T) {
	t.Parallel()
	extractor := NewXMLExtractor()

	t.Run("Malformed XML", func(t *testing.T) {
		t.Parallel()
		_, err := extractor.Extract([]byte(`<failure><message>x</failure>`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse failure xml")
	})

	t.Run("No Failure Element", func(t *testing.T) {
		t.Parallel()
		_, err := extractor.Extract([]byte(`<test result="Pass"/>`))
		assert.True(t, errors.Is(err, ErrNoFailureElement))
	})

	t.Run("Missing Message Is A Contract Violation", func(t *testing.T) {
		t.Parallel()
		record, err := extractor.Extract([]byte(xmlMissingMessage))
		require.NoError(t, err)
		assert.Nil(t, record.Messages)

		_, err = record.Chain()
		var argErr *failure.ArgumentError
		require.True(t, errors.As(err, &argErr))
		assert.Equal(t, "messages", argErr.Param)
	})

	t.Run("Nil Element", func(t *testing.T) {
		t.Parallel()
		var el *etree.Element
		_, err := extractor.ExtractElement(el)
		assert.True(t, errors.Is(err, failure.ErrNilArgument))
	})
}

func deref(values []*string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}
