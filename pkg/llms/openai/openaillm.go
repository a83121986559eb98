package openai

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/pkg/llms", "openai")

var (
	// ErrEmptyResponse is returned when the OpenAI API returns an empty response.
	ErrEmptyResponse = errors.New("openai: no response")
	// ErrMissingToken is returned when no API key is configured.
	ErrMissingToken = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
)

// LLM is a chat completion client for OpenAI compatible providers:
// OpenAI, Azure OpenAI and Perplexity.
type LLM struct {
	Client   openai.Client
	provider llms.ProviderType
	model    string
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		token:        os.Getenv(tokenEnvVarName),
		model:        os.Getenv(modelEnvVarName),
		baseURL:      os.Getenv(baseURLEnvVarName),
		organization: os.Getenv(organizationEnvVarName),
		provider:     llms.ProviderOpenAI,
		maxRetries:   DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		return nil, ErrMissingToken
	}

	sdkOpts := []option.RequestOption{
		option.WithMaxRetries(o.maxRetries),
	}
	if o.httpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(o.httpClient))
	}

	switch o.provider {
	case llms.ProviderAzure:
		if o.baseURL == "" {
			return nil, errors.New("azure: base URL is required")
		}
		if o.model == "" {
			return nil, errors.New(azureDeploymentError)
		}
		sdkOpts = append(sdkOpts,
			azure.WithEndpoint(o.baseURL, values.StringsCoalesce(o.apiVersion, DefaultAPIVersion)),
			azure.WithAPIKey(o.token),
		)
	case llms.ProviderPerplexity:
		o.model = values.StringsCoalesce(o.model, perplexityChatModel)
		sdkOpts = append(sdkOpts,
			option.WithAPIKey(o.token),
			option.WithBaseURL(values.StringsCoalesce(o.baseURL, PerplexityBaseURL)),
		)
	case llms.ProviderOpenAI:
		sdkOpts = append(sdkOpts, option.WithAPIKey(o.token))
		if o.baseURL != "" {
			sdkOpts = append(sdkOpts, option.WithBaseURL(o.baseURL))
		}
		if o.organization != "" {
			sdkOpts = append(sdkOpts, option.WithOrganization(o.organization))
		}
	default:
		return nil, errors.Errorf("openai: unsupported provider %q", o.provider)
	}

	return &LLM{
		Client:   openai.NewClient(sdkOpts...),
		provider: o.provider,
		model:    values.StringsCoalesce(o.model, DefaultChatModel),
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{Model: o.model}, options...)

	params, err := o.chatParams(messages, opts)
	if err != nil {
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"provider", o.provider,
		"model", opts.Model,
		"messages", len(messages),
		"tools", len(opts.Tools),
		"tool_choice", llms.ToolChoiceString(opts.ToolChoice),
	)

	result, err := o.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
				"ID":           result.ID,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: values.StringsCoalesce(tc.Type, "function"),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func (o *LLM) chatParams(messages []llms.Message, opts *llms.CallOptions) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(opts.Model),
		MaxCompletionTokens: openai.Int(int64(values.NumbersCoalesce(opts.MaxTokens, DefaultMaxTokens))),
	}

	for _, mc := range messages {
		msg, err := ChatMessage(mc)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, msg)
	}

	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.Seed != 0 {
		params.Seed = openai.Int(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}

	tools, err := ToTools(opts.Tools)
	if err != nil {
		return params, err
	}
	params.Tools = tools

	// tool_choice is only valid when tools are attached
	if len(tools) > 0 {
		if choice := llms.ToolChoiceString(opts.ToolChoice); choice != "" {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(choice),
			}
		}
	}
	return params, nil
}

// ChatMessage converts a conversation message to the OpenAI chat format.
func ChatMessage(mc llms.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch mc.Role {
	case llms.RoleSystem:
		return openai.SystemMessage(mc.GetText()), nil
	case llms.RoleHuman:
		return openai.UserMessage(mc.GetText()), nil
	case llms.RoleAI:
		msg := openai.ChatCompletionAssistantMessageParam{}
		if text := mc.GetText(); text != "" {
			msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: openai.String(text),
			}
		}
		for _, tc := range mc.GetToolCalls() {
			if tc.FunctionCall == nil {
				return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("openai: tool call %q has no function", tc.ID)
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      tc.FunctionCall.Name,
						Arguments: tc.FunctionCall.Arguments,
					},
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}, nil
	case llms.RoleTool:
		if len(mc.Parts) != 1 {
			return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("openai: expected exactly one part for role %v, got %v", mc.Role, len(mc.Parts))
		}
		p, ok := mc.Parts[0].(llms.ToolCallResponse)
		if !ok {
			return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("openai: expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
		}
		return openai.ToolMessage(p.Content, p.ToolCallID), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("openai: role %v not supported", mc.Role)
	}
}

// ToTools converts function tools to the OpenAI chat format.
// The parameters schema is passed as is.
func ToTools(tools []llms.Tool) ([]openai.ChatCompletionToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	res := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Type != "function" || t.Function == nil {
			return nil, errors.Errorf("openai: tool type %v not supported", t.Type)
		}
		params, err := t.Function.ParametersMap()
		if err != nil {
			return nil, errors.WithMessagef(err, "openai: tool %q", t.Function.Name)
		}
		def := openai.FunctionDefinitionParam{
			Name:       t.Function.Name,
			Parameters: openai.FunctionParameters(params),
		}
		if t.Function.Description != "" {
			def.Description = openai.String(t.Function.Description)
		}
		if t.Function.Strict {
			def.Strict = openai.Bool(true)
		}
		res = append(res, openai.ChatCompletionFunctionTool(def))
	}
	return res, nil
}
