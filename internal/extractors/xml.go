package extractors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/miradorstack/mirador-failchain/internal/failure"
)

// ErrNoFailureElement is returned when a document holds no <failure> element.
var ErrNoFailureElement = errors.New("no failure element found")

// XMLExtractor reads legacy failure records from xUnit v1 result XML:
//
//	<failure exception-type="System.Exception">
//	  <message>...</message>
//	  <stack-trace>...</stack-trace>
//	</failure>
type XMLExtractor struct{}

// NewXMLExtractor constructs an XML failure extractor.
func NewXMLExtractor() *XMLExtractor {
	return &XMLExtractor{}
}

// Extract parses data and extracts the first failure element, which may be the
// document root or any descendant.
func (e *XMLExtractor) Extract(data []byte) (failure.LegacyText, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return failure.LegacyText{}, fmt.Errorf("parse failure xml: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return failure.LegacyText{}, ErrNoFailureElement
	}
	el := root
	if root.Tag != "failure" {
		el = root.FindElement(".//failure")
	}
	if el == nil {
		return failure.LegacyText{}, ErrNoFailureElement
	}
	return e.ExtractElement(el)
}

// ExtractElement reads the failure record from el. A missing message element is
// left nil so the parser rejects it; a missing stack-trace element reads as empty.
func (e *XMLExtractor) ExtractElement(el *etree.Element) (failure.LegacyText, error) {
	if el == nil {
		return failure.LegacyText{}, &failure.ArgumentError{Param: "failureNode"}
	}

	out := failure.LegacyText{
		ExceptionType: el.SelectAttrValue("exception-type", ""),
	}
	if msg := el.SelectElement("message"); msg != nil {
		out.Messages = failure.String(innerText(msg))
	}
	stackTrace := ""
	if st := el.SelectElement("stack-trace"); st != nil {
		stackTrace = innerText(st)
	}
	out.StackTraces = &stackTrace
	return out, nil
}

// innerText concatenates all character data below el, CDATA included.
func innerText(el *etree.Element) string {
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return b.String()
}
