package tavily_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/tavily"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	t.Setenv(tavily.APIKeyEnvVarName, "testkey")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req tavilyModels.SearchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)

		assert.Equal(t, "What is capital of France", req.Query)

		resp := tavily.SearchResult{
			Results: []tavilyModels.SearchResult{
				{Title: "Test Result", URL: "https://example.com", Content: "Test content", Score: 0.9},
			},
		}
		if req.IncludeAnswer {
			resp.Answer = "Paris"
		}

		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	ctx := context.Background()

	tool, err := tavily.New()
	require.NoError(t, err)
	tool.WithBaseURL(server.URL).WithHTTPClient(server.Client())

	assert.Equal(t, tavily.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "Search the web")

	desc, err := tools.Descriptor[tavily.SearchRequest](tool)
	require.NoError(t, err)
	expParams := `{
	"properties": {
		"query": {
			"description": "The query to search web.",
			"title": "Search Query",
			"type": "string"
		}
	},
	"required": [
		"query"
	],
	"type": "object"
}`
	params, err := json.MarshalIndent(desc.InputSchema, "", "\t")
	require.NoError(t, err)
	assert.Equal(t, expParams, string(params))

	_, err = tool.Run(ctx, &tavily.SearchRequest{})
	assert.EqualError(t, err, "invalid request: empty query")

	resp, err := tool.Run(ctx, &tavily.SearchRequest{Query: "What is capital of France"})
	require.NoError(t, err)
	exp := `ANSWER: Paris
- URL: https://example.com
  TITLE: Test Result
  SCORE: 0.900000
  CONTENT: Test content
`
	assert.Equal(t, exp, resp)
}

func Test_MissingKey(t *testing.T) {
	t.Setenv(tavily.APIKeyEnvVarName, "")
	_, err := tavily.New()
	assert.ErrorIs(t, err, tavily.ErrMissingAPIKey)
}

func Test_Tool_Real(t *testing.T) {
	// uncomment to run Real Tests
	t.Skip("skipping real test")

	if os.Getenv(tavily.APIKeyEnvVarName) == "" {
		t.Skip("TAVILY_API_KEY is not set")
	}

	tool, err := tavily.New()
	require.NoError(t, err)

	resp, err := tool.Run(context.Background(), &tavily.SearchRequest{Query: "What is capital of France"})
	require.NoError(t, err)
	assert.Contains(t, resp, "Paris")
}
