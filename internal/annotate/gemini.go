package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/polifund/fundscan/internal/common"
)

// Gemini annotates crops through the generative-ai-go SDK.
type Gemini struct {
	cfg    common.VisionConfig
	client *genai.Client
	logger *slog.Logger
}

// NewGemini dials the API. Callers own the returned client and should
// Close it when done.
func NewGemini(ctx context.Context, cfg common.VisionConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{cfg: cfg, client: client, logger: logger}, nil
}

func (c *Gemini) Name() string  { return "gemini" }
func (c *Gemini) Model() string { return c.cfg.GeminiModel }

func (c *Gemini) Close() error { return c.client.Close() }

// Annotate sends one crop and returns the model's raw JSON document.
func (c *Gemini) Annotate(ctx context.Context, imageJPEG []byte) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.cfg.GeminiModel)
	model.SetTemperature(c.cfg.Temperature)

	prompt := buildInstruction() + "\n\nJSON Schema:\n" + mustJSON(BuildAnnotationJSONSchema())

	start := time.Now()
	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData("jpeg", imageJPEG),
	)
	if err != nil {
		c.logger.Error("vision.gemini.error", "model", c.cfg.GeminiModel, "error", err)
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.logger.Debug("vision.gemini.response",
		"model", c.cfg.GeminiModel,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in gemini response")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected part type in gemini response")
	}
	return []byte(cleanJSONResponse(string(text))), nil
}

// cleanJSONResponse strips markdown code fences the model sometimes wraps
// around its JSON.
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
