package annotate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polifund/fundscan/internal/common"
)

// NewProvider builds the vision provider named by the configuration.
// Callers should run common.Config.ValidateVision first; an unknown
// provider name here is a configuration error.
func NewProvider(ctx context.Context, cfg common.VisionConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg, logger), nil
	case "gemini":
		return NewGemini(ctx, cfg, logger)
	default:
		return nil, common.NewAppError("VISION_ERROR",
			fmt.Sprintf("unknown vision provider %q, supported providers are openai and gemini", cfg.Provider),
			common.ErrInvalidInput)
	}
}
