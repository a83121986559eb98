package toml

import (
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/effective-security/toolchat/pkg/llmutils"
)

// DefaultTable is the name of the table of a top level list
const DefaultTable = "items"

// Encoder writes TOML. TOML documents are tables,
// so a top level list is written as the DefaultTable array.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Pointer && !val.IsNil() {
		val = val.Elem()
	}
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		v = map[string]any{DefaultTable: v}
	}
	return toml.Marshal(v)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.TrimFences(bs)
	return toml.Unmarshal(data, ret)
}
