package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polifund/fundscan/internal/common"
)

// ServiceError is a non-2xx or failed-operation outcome from the OCR
// service. Transient errors are eligible for retry, everything else is
// treated as a permanent failure for the file.
type ServiceError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("document intelligence: status %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("document intelligence: status %d: %s", e.Status, e.Message)
}

// Transient reports whether the failure is worth retrying.
func (e *ServiceError) Transient() bool {
	return e.Status == http.StatusRequestTimeout ||
		e.Status == http.StatusTooManyRequests ||
		e.Status >= 500
}

// Wire shapes for the Document Intelligence analyze API.
type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

type analyzeEnvelope struct {
	Status        string             `json:"status"`
	Error         *azureError        `json:"error"`
	AnalyzeResult azureAnalyzeResult `json:"analyzeResult"`
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type azureAnalyzeResult struct {
	APIVersion string          `json:"apiVersion"`
	ModelID    string          `json:"modelId"`
	Content    string          `json:"content"`
	Pages      []azurePage     `json:"pages"`
	Documents  []azureDocument `json:"documents"`
}

type azurePage struct {
	PageNumber int     `json:"pageNumber"`
	Angle      float64 `json:"angle"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       string  `json:"unit"`
}

type azureDocument struct {
	DocType    string                `json:"docType"`
	Confidence float64               `json:"confidence"`
	Fields     map[string]azureField `json:"fields"`
}

type azureField struct {
	Type            string                `json:"type"`
	ValueString     string                `json:"valueString"`
	Content         string                `json:"content"`
	Confidence      float64               `json:"confidence"`
	BoundingRegions []azureBoundingRegion `json:"boundingRegions"`
	ValueArray      []azureField          `json:"valueArray"`
}

type azureBoundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

// AzureClient calls the Document Intelligence REST API: one POST to start
// the analysis, then polling of the returned operation until it settles.
type AzureClient struct {
	cfg        common.AzureConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAzureClient builds a client from config, filling zero values with
// defaults.
func NewAzureClient(cfg common.AzureConfig, logger *slog.Logger) *AzureClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-11-30"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &AzureClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Analyze runs one document through the given custom model and returns the
// reduced result. The call blocks until the service operation settles, the
// configured timeout elapses, or ctx is cancelled. Request and run ids on
// ctx are picked up for log correlation.
func (c *AzureClient) Analyze(ctx context.Context, modelID string, content []byte) (*Result, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	logger := c.logger
	if runID := common.RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	start := time.Now()

	logger.Info("ocr.analyze.start",
		"req_id", rid,
		"model", modelID,
		"bytes", len(content),
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	opURL, err := c.submit(ctx, rid, modelID, content)
	if err != nil {
		logger.Error("ocr.analyze.submit_error",
			"req_id", rid, "model", modelID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	env, err := c.poll(ctx, rid, opURL)
	if err != nil {
		logger.Error("ocr.analyze.poll_error",
			"req_id", rid, "model", modelID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	result := reduceResult(env.AnalyzeResult)
	logger.Info("ocr.analyze.ok",
		"req_id", rid,
		"model", modelID,
		"pages", len(result.Pages),
		"fields", len(result.Fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (c *AzureClient) submit(ctx context.Context, rid, modelID string, content []byte) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), modelID, c.cfg.APIVersion)

	body, err := json.Marshal(analyzeRequest{Base64Source: base64.StdEncoding.EncodeToString(content)})
	if err != nil {
		return "", fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit analyze: %w", err)
	}
	defer closeBody(resp.Body, c.logger, rid)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return "", serviceError(resp.StatusCode, raw)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", &ServiceError{Status: resp.StatusCode, Message: "no Operation-Location header"}
	}
	return opURL, nil
}

func (c *AzureClient) poll(ctx context.Context, rid, opURL string) (*analyzeEnvelope, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll analyze: %w", err)
		}
		raw, _ := io.ReadAll(resp.Body)
		closeBody(resp.Body, c.logger, rid)

		if resp.StatusCode/100 != 2 {
			return nil, serviceError(resp.StatusCode, raw)
		}

		var env analyzeEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode analyze result: %w", err)
		}

		switch env.Status {
		case "succeeded":
			return &env, nil
		case "failed":
			se := &ServiceError{Status: resp.StatusCode, Message: "analysis failed"}
			if env.Error != nil {
				se.Code = env.Error.Code
				se.Message = env.Error.Message
			}
			return nil, se
		}

		c.logger.Debug("ocr.analyze.poll", "req_id", rid, "status", env.Status)
	}
}

// reduceResult flattens the service envelope: page geometry plus one Field
// entry per labeled value, with array fields expanded item by item.
func reduceResult(ar azureAnalyzeResult) *Result {
	result := &Result{ModelID: ar.ModelID}

	for _, p := range ar.Pages {
		result.Pages = append(result.Pages, Page{
			Number: p.PageNumber,
			Width:  p.Width,
			Height: p.Height,
			Unit:   p.Unit,
		})
	}

	for _, doc := range ar.Documents {
		for name, f := range doc.Fields {
			if f.Type == "array" {
				for _, item := range f.ValueArray {
					result.Fields = append(result.Fields, reduceField(name, item))
				}
				continue
			}
			result.Fields = append(result.Fields, reduceField(name, f))
		}
	}
	return result
}

func reduceField(name string, f azureField) Field {
	value := f.ValueString
	if value == "" {
		value = f.Content
	}

	field := Field{Name: name, Value: value, Confidence: f.Confidence}
	for _, br := range f.BoundingRegions {
		region := FieldRegion{Page: br.PageNumber}
		for i := 0; i+1 < len(br.Polygon); i += 2 {
			region.Polygon = append(region.Polygon, Point{X: br.Polygon[i], Y: br.Polygon[i+1]})
		}
		field.Regions = append(field.Regions, region)
	}
	return field
}

func serviceError(status int, raw []byte) *ServiceError {
	se := &ServiceError{Status: status, Message: strings.TrimSpace(string(raw))}
	var body struct {
		Error *azureError `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil {
		se.Code = body.Error.Code
		se.Message = body.Error.Message
	}
	return se
}

func closeBody(body io.ReadCloser, logger *slog.Logger, rid string) {
	if err := body.Close(); err != nil {
		logger.Warn("ocr.http.response_body_close_error", "req_id", rid, "error", err)
	}
}
