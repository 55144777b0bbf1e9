package compose

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"text/template"

	"github.com/garrulax/garrulax/pkg/markov"
)

// Manager is the central controller for the composition engine. It
// holds a registry of trained models, the engine configuration, and the
// template function map. All methods are concurrent-safe.
type Manager struct {
	logger  *slog.Logger
	gen     *markov.Generator
	config  Config
	models  map[string]*markov.Model
	funcMap template.FuncMap
	rng     *rand.Rand
	mu      sync.RWMutex
	rngMu   sync.Mutex
}

// NewManager creates a Manager around the given generator. The manager
// starts with no models registered; use AddModel to make trained models
// available to templates. Logging is discarded until SetLogger is
// called.
func NewManager(gen *markov.Generator, config Config) *Manager {
	m := &Manager{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		gen:    gen,
		config: config,
		models: make(map[string]*markov.Model),
	}
	m.funcMap = m.makeFuncMap()
	return m
}

func (m *Manager) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Model-backed text generation (funcs.go)
		"word":       m.word,
		"sentence":   m.sentence,
		"seeded":     m.seeded,
		"paragraph":  m.paragraph,
		"paragraphs": m.paragraphs,

		// Composition control (funcs.go)
		"repeat":  repeat,
		"list":    list,
		"choose":  m.choose,
		"randInt": m.randInt,

		// Arithmetic for counts and loops (funcs.go)
		"add":  add,
		"sub":  sub,
		"mult": mult,
		"div":  div,
		"mod":  mod,
		"inc":  inc,
		"dec":  dec,
	}
}

// SetLogger sets the logger used by the manager. Passing nil is a
// no-op.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetRand installs a deterministic random source. All renders draw
// counts and generation randomness from it afterwards, serialized
// through the manager, so a seeded source makes output reproducible.
// Passing nil reverts to the shared random source.
func (m *Manager) SetRand(rng *rand.Rand) {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	m.rng = rng
}

// SetConfig applies a new configuration to the manager.
func (m *Manager) SetConfig(config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

// GetConfig returns a copy of the current configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// AddModel registers a trained model under its own name, replacing any
// model previously registered with that name.
func (m *Manager) AddModel(model *markov.Model) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model.Name()] = model
	m.logger.Debug("Model registered",
		slog.String("model_name", model.Name()),
		slog.Int("model_order", model.Order()),
	)
}

// RemoveModel drops a model from the registry. Removing an unknown name
// is a no-op.
func (m *Manager) RemoveModel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.models, name)
}

// ModelNames returns the names of all registered models in sorted
// order.
func (m *Manager) ModelNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.models))
	for name := range m.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) model(name string) (*markov.Model, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	model, ok := m.models[name]
	return model, ok
}

// Render parses content as a template and executes it to w. The name
// only identifies the template in error messages. Parsing is done per
// call, so templates never observe state from earlier renders.
func (m *Manager) Render(w io.Writer, name, content string, data any) error {
	tmpl, err := template.New(name).Funcs(m.funcMap).Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", name, err)
	}
	return nil
}

// generate runs a generation call against the manager's random source.
// Calls are serialized so a seeded source yields a reproducible stream.
func (m *Manager) generate(model *markov.Model, opts []markov.GenerateOption) (string, error) {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	if m.rng != nil {
		opts = append(opts, markov.WithRand(m.rng))
	}
	return m.gen.Generate(model, opts...)
}

func (m *Manager) generateFrom(model *markov.Model, seed string, opts []markov.GenerateOption) (string, error) {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	if m.rng != nil {
		opts = append(opts, markov.WithRand(m.rng))
	}
	return m.gen.GenerateFrom(model, seed, opts...)
}

// intN draws from the manager's random source, preferring the seeded
// one when set.
func (m *Manager) intN(n int) int {
	if n <= 0 {
		return 0
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	if m.rng != nil {
		return m.rng.IntN(n)
	}
	return rand.IntN(n)
}
