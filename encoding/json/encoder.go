package json

import (
	"encoding/json"

	"github.com/bububa/ljson"
	"github.com/effective-security/toolchat/pkg/llmutils"
)

// Encoder writes indented JSON, and reads JSON leniently:
// the text around the JSON object, and the code fences are ignored.
type Encoder struct {
	indent string
}

func NewEncoder() *Encoder {
	return &Encoder{indent: "  "}
}

// WithIndent sets the indent, empty indent writes compact JSON
func (e *Encoder) WithIndent(indent string) *Encoder {
	e.indent = indent
	return e
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	if e.indent == "" {
		return json.Marshal(v)
	}
	bs, err := json.MarshalIndent(v, "", e.indent)
	if err != nil {
		return nil, err
	}
	return append(bs, '\n'), nil
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.CleanJSON(bs)
	return ljson.Unmarshal(data, ret)
}
