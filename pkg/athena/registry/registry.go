// Package registry discovers which generation model is usable at runtime.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"athena-be/internal/pkg/logger"
	"athena-be/pkg/llm"
	"athena-be/pkg/llm/gemini"
)

const logModule = "REGISTRY"

// GenerateContentMethod marks models usable for text generation.
const GenerateContentMethod = "generateContent"

// ErrUnavailable means discovery produced no usable model.
var ErrUnavailable = errors.New("model discovery unavailable")

// preference is matched in order against the full listing name.
var preference = []string{"flash", "pro"}

type Registry struct {
	lister  llm.ModelLister
	timeout time.Duration
	logger  logger.ILogger
}

func NewRegistry(lister llm.ModelLister, timeout time.Duration, logger logger.ILogger) *Registry {
	return &Registry{
		lister:  lister,
		timeout: timeout,
		logger:  logger,
	}
}

// Discover lists models once and applies the selection policy. Any failure,
// including an empty usable set, is reported as ErrUnavailable.
func (r *Registry) Discover(ctx context.Context) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	models, err := r.lister.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	r.logger.Debug(logModule, "Available models", map[string]interface{}{"models": names})

	id, ok := Select(models)
	if !ok {
		return "", fmt.Errorf("%w: no text generation models found", ErrUnavailable)
	}
	return id, nil
}

// Select keeps models supporting generateContent, then picks the first whose
// name contains "flash", else "pro", else the first usable one. The returned
// id has its "models/" prefix stripped.
func Select(models []llm.ModelInfo) (string, bool) {
	usable := make([]string, 0, len(models))
	for _, m := range models {
		if supports(m, GenerateContentMethod) {
			usable = append(usable, m.Name)
		}
	}
	if len(usable) == 0 {
		return "", false
	}

	for _, needle := range preference {
		for _, name := range usable {
			if strings.Contains(name, needle) {
				return gemini.StripModelPrefix(name), true
			}
		}
	}
	return gemini.StripModelPrefix(usable[0]), true
}

func supports(m llm.ModelInfo, method string) bool {
	for _, s := range m.SupportedGenerationMethods {
		if s == method {
			return true
		}
	}
	return false
}

// Selection is the process-wide active model, assigned at most once at
// startup and read-only afterwards.
type Selection struct {
	mu       sync.RWMutex
	id       string
	assigned bool
	fallback string
}

func NewSelection(fallback string) *Selection {
	return &Selection{fallback: fallback}
}

// Assign records the discovered id. Later calls are ignored and return false.
func (s *Selection) Assign(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assigned || id == "" {
		return false
	}
	s.id = id
	s.assigned = true
	return true
}

// ModelID returns the discovered id, or the fallback if discovery never
// succeeded.
func (s *Selection) ModelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.assigned {
		return s.id
	}
	return s.fallback
}

func (s *Selection) Discovered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assigned
}

func (s *Selection) Fallback() string {
	return s.fallback
}

// Initialize runs discovery once and assigns the result. On failure the
// selection keeps serving the fallback.
func Initialize(ctx context.Context, r *Registry, s *Selection) {
	id, err := r.Discover(ctx)
	if err != nil {
		r.logger.Warn(logModule, "Model discovery failed, using fallback", map[string]interface{}{
			"error":    err.Error(),
			"fallback": s.Fallback(),
		})
		return
	}
	s.Assign(id)
	r.logger.Info(logModule, "Athena selected model", map[string]interface{}{"model": id})
}
