package pipeline

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/repopulse/repopulse/internal/store"
)

// Params carries the schedule's JSON parameters, decoded.
type Params map[string]any

func ParseParams(raw *string) (Params, error) {
	if raw == nil || *raw == "" {
		return Params{}, nil
	}
	p := Params{}
	if err := json.Unmarshal([]byte(*raw), &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (p Params) String(key, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

func (p Params) Int64(key string, fallback int64) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return fallback
}

// Runner executes one pipeline stage and reports how many items it touched.
type Runner interface {
	Run(ctx context.Context, params Params) (int64, error)
}

// Registry maps pipeline types to their runners. The scheduler validates
// schedule types against it and resolves the runner at execution time.
type Registry struct {
	mu      sync.RWMutex
	runners map[store.PipelineType]Runner
}

func NewRegistry() *Registry {
	return &Registry{runners: make(map[store.PipelineType]Runner)}
}

func (r *Registry) Register(t store.PipelineType, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[t] = runner
}

func (r *Registry) Resolve(t store.PipelineType) (Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[t]
	return runner, ok
}

func (r *Registry) Has(t store.PipelineType) bool {
	_, ok := r.Resolve(t)
	return ok
}

func (r *Registry) Types() []store.PipelineType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]store.PipelineType, 0, len(r.runners))
	for t := range r.runners {
		types = append(types, t)
	}
	return types
}
