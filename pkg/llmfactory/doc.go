// Package llmfactory provides configuration and a factory for chat completion models,
// supporting OpenAI compatible providers (OpenAI, Azure, Perplexity) and Anthropic.
package llmfactory
