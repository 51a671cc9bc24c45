package contract

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// Kind discriminates the matcher variant of a Value.
type Kind int

const (
	// KindPlain is a literal value matched by equality.
	KindPlain Kind = iota
	// KindLike matches by type, with the example as documentation.
	KindLike
	// KindTerm matches a regular expression, generating the example.
	KindTerm
)

// Value is a contract body element: either a plain value or a matcher.
// The explicit tag replaces shape-based detection of matcher objects.
type Value struct {
	kind    Kind
	example any
	regex   string
}

// Plain wraps a literal value.
func Plain(v any) Value { return Value{kind: KindPlain, example: v} }

// Like declares a type-based matcher with an example.
func Like(example any) Value { return Value{kind: KindLike, example: example} }

// Term declares a regex matcher generating the example.
func Term(regex string, example any) Value {
	return Value{kind: KindTerm, example: example, regex: regex}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Example returns the wrapped example value.
func (v Value) Example() any { return v.example }

// MarshalJSON renders the pact wire form of the value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindPlain:
		return json.Marshal(v.example)
	case KindLike:
		return sjson.SetBytes([]byte(`{"json_class":"Pact::SomethingLike"}`), "contents", v.example)
	case KindTerm:
		b := []byte(`{"json_class":"Pact::Term","data":{"matcher":{"json_class":"Regexp","o":0}}}`)
		b, err := sjson.SetBytes(b, "data.generate", v.example)
		if err != nil {
			return nil, err
		}
		return sjson.SetBytes(b, "data.matcher.s", v.regex)
	default:
		return nil, fmt.Errorf("contract: unknown value kind %d", v.kind)
	}
}
