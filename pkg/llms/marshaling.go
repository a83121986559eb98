package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSON models of the conversation transcript.
// Parts are tagged with a `type` discriminator.

const (
	partTypeText         = "text"
	partTypeToolCall     = "tool_call"
	partTypeToolResponse = "tool_response"
)

// ContentPartJSON represents the JSON structure for content parts
type ContentPartJSON struct {
	Type         string            `json:"type" yaml:"type"`
	Text         string            `json:"text,omitempty" yaml:"text,omitempty"`
	ToolCall     *ToolCall         `json:"tool_call,omitempty" yaml:"tool_call,omitempty"`
	ToolResponse *ToolCallResponse `json:"tool_response,omitempty" yaml:"tool_response,omitempty"`
}

// MessageJSON represents the JSON structure for Message
type MessageJSON struct {
	Role  Role              `json:"role" yaml:"role"`
	Parts []ContentPartJSON `json:"parts" yaml:"parts"`
}

// ToJSONModel converts Message to MessageJSON
func (m Message) ToJSONModel() MessageJSON {
	res := MessageJSON{
		Role:  m.Role,
		Parts: make([]ContentPartJSON, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		switch typ := p.(type) {
		case TextContent:
			res.Parts = append(res.Parts, ContentPartJSON{Type: partTypeText, Text: typ.Text})
		case ToolCall:
			tc := typ
			res.Parts = append(res.Parts, ContentPartJSON{Type: partTypeToolCall, ToolCall: &tc})
		case ToolCallResponse:
			tr := typ
			res.Parts = append(res.Parts, ContentPartJSON{Type: partTypeToolResponse, ToolResponse: &tr})
		}
	}
	return res
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToJSONModel())
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var msgJSON MessageJSON
	if err := json.Unmarshal(data, &msgJSON); err != nil {
		return err
	}

	m.Role = msgJSON.Role
	m.Parts = nil
	for _, p := range msgJSON.Parts {
		part, err := unmarshalContentPart(p)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func unmarshalContentPart(partJSON ContentPartJSON) (ContentPart, error) {
	switch partJSON.Type {
	case partTypeText, "":
		return TextContent{Text: partJSON.Text}, nil
	case partTypeToolCall:
		if partJSON.ToolCall == nil {
			return nil, errors.New("tool_call field is required for tool_call type")
		}
		tc := *partJSON.ToolCall
		if tc.FunctionCall == nil {
			tc.FunctionCall = &FunctionCall{}
		}
		return tc, nil
	case partTypeToolResponse:
		if partJSON.ToolResponse == nil {
			return nil, errors.New("tool_response field is required for tool_response type")
		}
		if partJSON.ToolResponse.ToolCallID == "" {
			return nil, errors.New("missing tool_call_id field in tool_response")
		}
		return *partJSON.ToolResponse, nil
	default:
		return nil, errors.Newf("unknown content type: '%s'", partJSON.Type)
	}
}
