// Package llms provides unified support for interacting with chat completion models
// from different providers.
//
// The `llms.go` file contains the Model interface every provider implements.
//
// The `generatecontent.go` file contains the conversation types: a Message has a Role
// and ordered parts (text, tool calls requested by the model, tool responses).
//
// The `options.go` file provides the call options, including the tools attached
// to a request and the tool choice ("auto" or "none").
//
// Each subpackage includes a provider-specific implementation of the Model interface.
package llms
