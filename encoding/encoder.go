// Package encoding provides the encoders of the command line output,
// and the decoders of the tool arguments given on the command line.
package encoding

import (
	"strings"

	"github.com/cockroachdb/errors"
	jsonenc "github.com/effective-security/toolchat/encoding/json"
	tomlenc "github.com/effective-security/toolchat/encoding/toml"
	yamlenc "github.com/effective-security/toolchat/encoding/yaml"
)

// Encoder marshals and unmarshals values in a format
type Encoder interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(bs []byte, ret any) error
}

type Format = string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported formats
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML}

var (
	_ Encoder = (*jsonenc.Encoder)(nil)
	_ Encoder = (*tomlenc.Encoder)(nil)
	_ Encoder = (*yamlenc.Encoder)(nil)
)

// NewEncoder returns the encoder for the format, case insensitive
func NewEncoder(format Format) (Encoder, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return jsonenc.NewEncoder(), nil
	case FormatYAML, "yml":
		return yamlenc.NewEncoder(), nil
	case FormatTOML:
		return tomlenc.NewEncoder(), nil
	}
	return nil, errors.Newf("unsupported format: %q", format)
}

// DecodeArguments decodes the tool arguments in the format.
// Empty input returns empty arguments.
func DecodeArguments(format Format, bs []byte) (map[string]any, error) {
	args := map[string]any{}
	if len(strings.TrimSpace(string(bs))) == 0 {
		return args, nil
	}

	enc, err := NewEncoder(format)
	if err != nil {
		return nil, err
	}
	if err := enc.Unmarshal(bs, &args); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s arguments", format)
	}
	return args, nil
}
