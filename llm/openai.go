package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/use-agent/vgascout/cleaner"
	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/models"
)

// ChatCompleter is the slice of the OpenAI client the extractor needs.
// *openai.Client satisfies it; tests pass a stub.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client turns raw listing data into product records with a structured-output
// chat completion.
type Client struct {
	api         ChatCompleter
	model       string
	temperature float32
}

// NewClient builds a Client backed by the OpenAI API (or any compatible
// endpoint set in cfg.BaseURL).
func NewClient(cfg config.LLMConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// NewClientWithAPI builds a Client on top of an existing completer.
func NewClientWithAPI(api ChatCompleter, model string) *Client {
	return &Client{api: api, model: model}
}

// Extract sends the raw page data and returns the records the model found.
//
// An empty reply is an LLM_EMPTY_RESPONSE error. A reply that is valid JSON
// but has no "records" array yields an empty slice and no error.
func (c *Client) Extract(ctx context.Context, raw string) ([]models.ProductRecord, error) {
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(raw)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: recordsSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, classifyLLMError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeLLMEmptyResponse, "LLM returned no choices", nil)
	}

	records, err := decodeRecords(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	slog.Info("extraction complete",
		"model", c.model,
		"records", len(records),
		"prompt_tokens_est", cleaner.EstimateTokens(raw),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return records, nil
}

// decodeRecords parses the model's JSON reply.
func decodeRecords(content string) ([]models.ProductRecord, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewScrapeError(models.ErrCodeLLMEmptyResponse, "LLM returned empty content", nil)
	}
	if !json.Valid([]byte(content)) {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned invalid JSON", nil)
	}

	records := []models.ProductRecord{}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		slog.Warn("LLM reply is not an object, treating as no records")
		return records, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(envelope[schemaField], &items); err != nil {
		slog.Warn("LLM reply has no records array, treating as no records")
		return records, nil
	}

	for i, item := range items {
		var r models.ProductRecord
		if err := json.Unmarshal(item, &r); err != nil {
			slog.Warn("skipping malformed record", "index", i, "error", err)
			continue
		}
		r.Normalize()
		records = append(records, r)
	}
	return records, nil
}

// classifyLLMError maps client errors to error codes by HTTP status.
func classifyLLMError(err error) *models.ScrapeError {
	status := 0
	msg := "LLM request failed"

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		msg = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeLLMAuthFailure, msg, err)
	case status == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeLLMRateLimited, msg, err)
	case status != 0:
		return models.NewScrapeError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", status, msg), err)
	default:
		return models.NewScrapeError(models.ErrCodeLLMFailure, msg, err)
	}
}

const (
	schemaName  = "gpu_listing"
	schemaField = "records"
)

// recordsSchema is the strict response schema: one array of records, every
// field required, nothing extra allowed.
var recordsSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		schemaField: {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"model":       {Type: jsonschema.String, Description: "Full product model name"},
					"price":       {Type: jsonschema.String, Description: "Price as displayed, e.g. R$ 1.299,99"},
					"memory_size": {Type: jsonschema.String, Description: "Video memory with unit, e.g. 8GB"},
					"memory_type": {Type: jsonschema.String, Description: "Video memory type, e.g. GDDR6X"},
				},
				Required:             []string{"model", "price", "memory_size", "memory_type"},
				AdditionalProperties: false,
			},
		},
	},
	Required:             []string{schemaField},
	AdditionalProperties: false,
}

const systemPrompt = `You extract graphics card listings from raw e-commerce page data.

For every graphics card in the data, return:
- model: the complete model name (brand, chip and variant).
- price: the price exactly as displayed, keeping currency and separators (e.g. "R$ 1.299,99").
- memory_size: the video memory amount with its unit (e.g. "8GB").
- memory_type: the video memory type (e.g. "GDDR6X").

Rules:
- Use "N/A" for any field you cannot identify.
- Do not invent products that are not in the data.
- Return only the JSON object required by the schema.`

func buildUserPrompt(raw string) string {
	return "Extract the graphics cards from this page data:\n\n" + raw
}
