package tts

import (
	"strings"

	"slidecast/internal/config"
)

// EngineDescriptor describes one speech backend's availability.
type EngineDescriptor struct {
	Name               string
	Priority           int
	RequiresCredential bool
	CredentialPresent  bool
	Enabled            bool
	Detail             string
}

// Registry tracks the configured speech engines in dispatch priority order.
// Descriptors come from configuration; concrete Engine implementations are
// registered separately so tests can substitute fakes.
type Registry struct {
	order       []string
	descriptors map[string]EngineDescriptor
	engines     map[string]Engine
}

// NewRegistry builds engine descriptors from configuration. An engine is
// enabled when it is not explicitly disabled and its credential is present.
func NewRegistry(cfg *config.Config) *Registry {
	registry := &Registry{
		descriptors: make(map[string]EngineDescriptor),
		engines:     make(map[string]Engine),
	}

	order := cfg.TTS.EngineOrder
	if len(order) == 0 {
		order = config.EngineNames
	}

	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, seen := registry.descriptors[name]; seen {
			continue
		}
		descriptor, known := describeEngine(cfg, name)
		if !known {
			continue
		}
		descriptor.Priority = len(registry.order)
		registry.order = append(registry.order, name)
		registry.descriptors[name] = descriptor
	}

	return registry
}

func describeEngine(cfg *config.Config, name string) (EngineDescriptor, bool) {
	switch name {
	case "edge":
		descriptor := EngineDescriptor{Name: name, CredentialPresent: true, Enabled: !cfg.TTS.Edge.Disabled}
		if cfg.TTS.Edge.Disabled {
			descriptor.Detail = "disabled in config"
		}
		return descriptor, true
	case "fish":
		present := strings.TrimSpace(cfg.TTS.Fish.APIKey) != ""
		descriptor := EngineDescriptor{Name: name, RequiresCredential: true, CredentialPresent: present, Enabled: present}
		if !present {
			descriptor.Detail = "api key missing"
		}
		return descriptor, true
	case "openai":
		present := strings.TrimSpace(cfg.TTS.OpenAI.APIKey) != ""
		descriptor := EngineDescriptor{Name: name, RequiresCredential: true, CredentialPresent: present, Enabled: present}
		if !present {
			descriptor.Detail = "api key missing"
		}
		return descriptor, true
	case "azure":
		present := strings.TrimSpace(cfg.TTS.Azure.SubscriptionKey) != "" && strings.TrimSpace(cfg.TTS.Azure.Region) != ""
		descriptor := EngineDescriptor{Name: name, RequiresCredential: true, CredentialPresent: present, Enabled: present}
		if !present {
			descriptor.Detail = "subscription key or region missing"
		}
		return descriptor, true
	default:
		return EngineDescriptor{}, false
	}
}

// Register attaches a concrete engine implementation to a known descriptor.
// Registering an unknown name is a no-op so callers can register the full set
// unconditionally.
func (r *Registry) Register(name string, engine Engine) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, known := r.descriptors[name]; !known || engine == nil {
		return
	}
	r.engines[name] = engine
}

// Describe returns the descriptor for a named engine.
func (r *Registry) Describe(name string) (EngineDescriptor, bool) {
	descriptor, ok := r.descriptors[strings.ToLower(strings.TrimSpace(name))]
	return descriptor, ok
}

// Engine returns the registered implementation for an enabled engine.
func (r *Registry) Engine(name string) (Engine, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	descriptor, ok := r.descriptors[name]
	if !ok || !descriptor.Enabled {
		return nil, false
	}
	engine, ok := r.engines[name]
	return engine, ok
}

// List returns all descriptors in priority order, including disabled engines.
func (r *Registry) List() []EngineDescriptor {
	out := make([]EngineDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.descriptors[name])
	}
	return out
}

// ListEnabled returns the enabled descriptors in priority order.
func (r *Registry) ListEnabled() []EngineDescriptor {
	out := make([]EngineDescriptor, 0, len(r.order))
	for _, name := range r.order {
		if descriptor := r.descriptors[name]; descriptor.Enabled {
			out = append(out, descriptor)
		}
	}
	return out
}
