package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// CallOption is a function that configures a CallOptions.
type CallOption func(*CallOptions)

// CallOptions is a set of options for calling models. Not all models support
// all options.
type CallOptions struct {
	// Model is the model to use.
	Model string
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int
	// Temperature is the temperature for sampling, between 0 and 1.
	Temperature float64
	// StopWords is a list of words to stop on.
	StopWords []string
	// TopP is the cumulative probability for top-p sampling.
	TopP float64
	// Seed is a seed for deterministic sampling.
	Seed int

	// Tools is a list of tools to use. Each tool can be a specific tool or a function.
	Tools []Tool
	// ToolChoice is the choice of tool to use, it can either be "none", "auto" (the default behavior),
	// or a specific tool as described in the ToolChoice type.
	ToolChoice any

	// Metadata is a map of metadata to include in the request.
	// The meaning of this field is specific to the backend in use.
	Metadata map[string]any
}

// Tool is a tool that can be used by the model.
type Tool struct {
	// Type is the type of the tool.
	Type string `json:"type" yaml:"type"`
	// Function is the function to call.
	Function *FunctionDefinition `json:"function,omitempty" yaml:"function,omitempty"`
}

// FunctionDefinition is a definition of a function that can be called by the model.
type FunctionDefinition struct {
	// Name is the name of the function.
	Name string `json:"name" yaml:"name"`
	// Description is a description of the function.
	Description string `json:"description" yaml:"description"`
	// Parameters is the JSON schema of the function arguments,
	// passed to the provider as is.
	Parameters any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// Strict is a flag to indicate if the function should be called strictly. Only used for openai llm structured output.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// ToolChoice is a specific tool to use.
type ToolChoice struct {
	// Type is the type of the tool.
	Type string `json:"type"`
	// Function is the function to call (if the tool is a function).
	Function *FunctionReference `json:"function,omitempty"`
}

// FunctionReference is a reference to a function.
type FunctionReference struct {
	// Name is the name of the function.
	Name string `json:"name"`
}

// FunctionCallBehavior is the behavior to use when calling functions.
type FunctionCallBehavior string

const (
	// FunctionCallBehaviorNone will not call any functions.
	FunctionCallBehaviorNone FunctionCallBehavior = "none"
	// FunctionCallBehaviorAuto will call functions automatically.
	FunctionCallBehaviorAuto FunctionCallBehavior = "auto"
)

// ToolChoiceString returns the string form of a tool choice option,
// or empty string for a specific tool or nil value.
func ToolChoiceString(choice any) string {
	switch v := choice.(type) {
	case string:
		return v
	case FunctionCallBehavior:
		return string(v)
	}
	return ""
}

// WithModel specifies which model name to use.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens specifies the max number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature specifies the model temperature, a hyperparameter that
// regulates the randomness, or creativity, of the AI's responses.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// WithStopWords specifies a list of words to stop generation on.
func WithStopWords(stopWords []string) CallOption {
	return func(o *CallOptions) {
		o.StopWords = stopWords
	}
}

// WithTopP	will add an option to use top-p sampling.
func WithTopP(topP float64) CallOption {
	return func(o *CallOptions) {
		o.TopP = topP
	}
}

// WithSeed will add an option to use deterministic sampling.
func WithSeed(seed int) CallOption {
	return func(o *CallOptions) {
		o.Seed = seed
	}
}

// WithToolChoice will add an option to set the choice of tool to use.
// It can either be "none", "auto" (the default behavior), or a specific tool as described in the ToolChoice type.
func WithToolChoice(choice any) CallOption {
	return func(o *CallOptions) {
		o.ToolChoice = choice
	}
}

// WithTools will add an option to set the tools to use.
func WithTools(tools []Tool) CallOption {
	return func(o *CallOptions) {
		o.Tools = tools
	}
}

// WithMetadata will add an option to set metadata to include in the request.
// The meaning of this field is specific to the backend in use.
func WithMetadata(metadata map[string]any) CallOption {
	return func(o *CallOptions) {
		o.Metadata = metadata
	}
}

// NewCallOptions applies the options over the defaults.
func NewCallOptions(defaults CallOptions, options ...CallOption) *CallOptions {
	opts := defaults
	for _, opt := range options {
		opt(&opts)
	}
	return &opts
}

// ParametersMap returns the Parameters schema as a generic JSON object,
// as required by provider SDKs.
// A nil schema yields an empty object schema.
func (f *FunctionDefinition) ParametersMap() (map[string]any, error) {
	switch v := f.Parameters.(type) {
	case nil:
		return map[string]any{"type": "object"}, nil
	case map[string]any:
		return v, nil
	case json.RawMessage:
		return unmarshalObject(v)
	case []byte:
		return unmarshalObject(v)
	case string:
		return unmarshalObject([]byte(v))
	}
	js, err := json.Marshal(f.Parameters)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal parameters of %q", f.Name)
	}
	return unmarshalObject(js)
}

func unmarshalObject(js []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "parameters schema is not a JSON object")
	}
	if m == nil {
		m = map[string]any{"type": "object"}
	}
	return m, nil
}
