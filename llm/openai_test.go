package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/models"
)

type stubCompleter struct {
	content string
	noReply bool
	err     error
	got     openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.got = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	if s.noReply {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.content}},
		},
	}, nil
}

func TestExtract_Records(t *testing.T) {
	stub := &stubCompleter{content: `{"records":[
		{"model":"GeForce RTX 4060","price":"R$ 1.899,99","memory_size":"8GB","memory_type":"GDDR6"},
		{"model":"GeForce RTX 4090","price":"","memory_size":"24GB","memory_type":" "}
	]}`}
	c := NewClientWithAPI(stub, "gpt-4o-2024-08-06")

	records, err := c.Extract(context.Background(), `{"props":{}}`)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.ProductRecord{
		Model: "GeForce RTX 4060", Price: "R$ 1.899,99", MemorySize: "8GB", MemoryType: "GDDR6",
	}, records[0])
	assert.Equal(t, models.NotAvailable, records[1].Price)
	assert.Equal(t, models.NotAvailable, records[1].MemoryType)

	// Request shape.
	assert.Equal(t, "gpt-4o-2024-08-06", stub.got.Model)
	require.Len(t, stub.got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.got.Messages[0].Role)
	assert.Contains(t, stub.got.Messages[0].Content, `"N/A"`)
	assert.Equal(t, openai.ChatMessageRoleUser, stub.got.Messages[1].Role)
	assert.Contains(t, stub.got.Messages[1].Content, `{"props":{}}`)
	require.NotNil(t, stub.got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, stub.got.ResponseFormat.Type)
	assert.True(t, stub.got.ResponseFormat.JSONSchema.Strict)
	assert.Equal(t, "gpu_listing", stub.got.ResponseFormat.JSONSchema.Name)
}

func TestExtract_ReplyShapes(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode string
		wantLen  int
	}{
		{"empty content", "", models.ErrCodeLLMEmptyResponse, 0},
		{"whitespace content", "  \n", models.ErrCodeLLMEmptyResponse, 0},
		{"invalid json", `{"records": [`, models.ErrCodeLLMFailure, 0},
		{"missing field", `{"items": []}`, "", 0},
		{"field not array", `{"records": "none"}`, "", 0},
		{"null field", `{"records": null}`, "", 0},
		{"top-level array", `[{"model":"x"}]`, "", 0},
		{"empty array", `{"records": []}`, "", 0},
		{"skips malformed item", `{"records": ["oops", {"model":"RTX 3060","price":"R$ 1,00","memory_size":"12GB","memory_type":"GDDR6"}]}`, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientWithAPI(&stubCompleter{content: tt.content}, "m")
			records, err := c.Extract(context.Background(), "raw")
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, models.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Len(t, records, tt.wantLen)
		})
	}
}

func TestExtract_NoChoices(t *testing.T) {
	c := NewClientWithAPI(&stubCompleter{noReply: true}, "m")
	_, err := c.Extract(context.Background(), "raw")
	assert.Equal(t, models.ErrCodeLLMEmptyResponse, models.CodeOf(err))
}

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api 401", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, models.ErrCodeLLMAuthFailure},
		{"api 403", &openai.APIError{HTTPStatusCode: 403}, models.ErrCodeLLMAuthFailure},
		{"api 429", &openai.APIError{HTTPStatusCode: 429}, models.ErrCodeLLMRateLimited},
		{"api 500", &openai.APIError{HTTPStatusCode: 500}, models.ErrCodeLLMFailure},
		{"request 429", &openai.RequestError{HTTPStatusCode: 429, Err: errors.New("slow down")}, models.ErrCodeLLMRateLimited},
		{"transport", errors.New("connection refused"), models.ErrCodeLLMFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := classifyLLMError(tt.err)
			assert.Equal(t, tt.want, se.Code)
			assert.ErrorIs(t, se, tt.err)
		})
	}
}

func TestNewClient_AgainstServer(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant",
				"content": "{\"records\":[{\"model\":\"RTX 5070\",\"price\":\"R$ 4.999,00\",\"memory_size\":\"12GB\",\"memory_type\":\"GDDR7\"}]}"},
				"finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{
		APIKey:  "sk-test",
		Model:   "gpt-4o-2024-08-06",
		BaseURL: srv.URL + "/v1/",
		Timeout: 5 * time.Second,
	})

	records, err := c.Extract(context.Background(), "raw")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GDDR7", records[0].MemoryType)

	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok, "response_format sent")
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, true, schema["strict"])
	inner := schema["schema"].(map[string]any)
	assert.Equal(t, false, inner["additionalProperties"])
	assert.Equal(t, []any{"records"}, inner["required"])
}

func TestNewClient_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m", Timeout: 5 * time.Second})
	_, err := c.Extract(context.Background(), "raw")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeLLMAuthFailure, models.CodeOf(err))
}
