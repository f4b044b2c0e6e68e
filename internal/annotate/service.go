package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/polifund/fundscan/internal/receipt"
)

// Service runs the annotation flow for one crop: cache lookup, provider
// call with one retry, schema validation with a sanitize fallback, cache
// write. It never fails the batch; a crop that cannot be annotated
// yields nil.
type Service struct {
	provider Provider
	cache    *Cache
	schema   map[string]any
	attempts int
	logger   *slog.Logger
}

// NewService builds the flow around a provider. provider may be nil,
// which disables annotation.
func NewService(provider Provider, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		cache:    cache,
		schema:   BuildAnnotationJSONSchema(),
		attempts: 2,
		logger:   logger,
	}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool { return s != nil && s.provider != nil }

// Annotate returns the annotation for one receipt crop, or nil when the
// provider is disabled or keeps failing.
func (s *Service) Annotate(ctx context.Context, region receipt.Region, imageJPEG []byte) *Annotation {
	if !s.Enabled() {
		return nil
	}

	key := CacheKey(s.provider.Name(), s.provider.Model(), imageJPEG)
	if s.cache != nil {
		if doc, ok := s.cache.Get(ctx, key); ok {
			ann, err := decodeAnnotation(doc)
			if err == nil {
				s.logger.Debug("vision.annotate.cache_hit",
					"file", region.File, "page", region.Page, "receipt_index", region.Index)
				return ann
			}
			s.logger.Warn("vision.annotate.cache_decode_error", "key", key, "error", err)
		}
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		raw, err := s.provider.Annotate(ctx, imageJPEG)
		if err != nil {
			s.logger.Warn("vision.annotate.attempt_error",
				"provider", s.provider.Name(), "attempt", attempt,
				"file", region.File, "page", region.Page, "receipt_index", region.Index,
				"error", err)
			continue
		}
		doc, ann, err := s.parse(raw)
		if err != nil {
			s.logger.Warn("vision.annotate.parse_error",
				"provider", s.provider.Name(), "attempt", attempt,
				"file", region.File, "page", region.Page, "receipt_index", region.Index,
				"error", err)
			continue
		}
		if s.cache != nil {
			s.cache.Put(ctx, key, doc)
		}
		s.logger.Debug("vision.annotate.ok",
			"provider", s.provider.Name(),
			"file", region.File, "page", region.Page, "receipt_index", region.Index)
		return ann
	}

	s.logger.Error("vision.annotate.failed",
		"provider", s.provider.Name(),
		"file", region.File, "page", region.Page, "receipt_index", region.Index)
	return nil
}

// parse checks the raw document against the schema, sanitizing once when
// the strict pass fails. Returns the document that validated.
func (s *Service) parse(raw []byte) ([]byte, *Annotation, error) {
	doc := raw
	if err := ValidateJSONAgainstSchema(s.schema, doc); err != nil {
		sanitized, dropped, serr := SanitizeAnnotation(raw)
		if serr != nil {
			return nil, nil, fmt.Errorf("sanitize annotation: %w", serr)
		}
		if verr := ValidateJSONAgainstSchema(s.schema, sanitized); verr != nil {
			return nil, nil, fmt.Errorf("annotation does not match schema after sanitize: %w", verr)
		}
		if len(dropped) > 0 {
			s.logger.Debug("vision.annotate.sanitized", "dropped", dropped)
		}
		doc = sanitized
	}
	ann, err := decodeAnnotation(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, ann, nil
}

func decodeAnnotation(doc []byte) (*Annotation, error) {
	var ann Annotation
	if err := json.Unmarshal(doc, &ann); err != nil {
		return nil, fmt.Errorf("decode annotation: %w", err)
	}
	return &ann, nil
}
