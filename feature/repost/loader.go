package repost

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	engine  *Engine
	handler *Handler
}

// NewFeature creates the repost feature around an existing engine.
func NewFeature(engine *Engine, logger *zap.Logger) *Feature {
	return &Feature{
		engine:  engine,
		handler: NewHandler(engine, logger),
	}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "repost"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
