package annotate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/polifund/fundscan/internal/common"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI calls the chat completions API with the receipt crop inlined as
// a data URL.
type OpenAI struct {
	cfg        common.VisionConfig
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAI builds the provider, filling zero values with defaults.
func NewOpenAI(cfg common.VisionConfig, logger *slog.Logger) *OpenAI {
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{
		cfg:        cfg,
		baseURL:    defaultOpenAIBaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *OpenAI) Name() string  { return "openai" }
func (c *OpenAI) Model() string { return c.cfg.OpenAIModel }

// Annotate sends one crop and returns the model's raw JSON document.
func (c *OpenAI) Annotate(ctx context.Context, imageJPEG []byte) ([]byte, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageJPEG)

	body := map[string]any{
		"model":           c.cfg.OpenAIModel,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildInstruction()},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(BuildAnnotationJSONSchema())},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": "Read this receipt and return the JSON."},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.OpenAIKey}

	raw, _, err := sendJSON(ctx, c.httpClient, endpoint, body, headers, c.logger)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}
	return []byte(strings.TrimSpace(cc.Choices[0].Message.Content)), nil
}
