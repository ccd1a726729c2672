package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/snow-ghost/geosynth/symbols"
	"gopkg.in/yaml.v3"
)

// Loader handles loading the generator catalogue
type Loader struct {
	configPath string
}

// NewLoader creates a new catalogue loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// LoadRegistry loads the catalogue from the configuration file. Keys missing
// from the file keep their defaults.
func (l *Loader) LoadRegistry() (*Registry, error) {
	if configPath := os.Getenv("GEOSYNTH_CONFIG"); configPath != "" {
		l.configPath = configPath
	}
	if l.configPath == "" {
		l.configPath = "geosynth.yaml"
	}

	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		return GetDefaultRegistry(), nil
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", l.configPath, err)
	}
	return LoadRegistryFromBytes(data)
}

// LoadRegistryFromBytes parses YAML over the default catalogue and validates it.
func LoadRegistryFromBytes(data []byte) (*Registry, error) {
	registry := GetDefaultRegistry()
	if err := yaml.Unmarshal(data, registry); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return registry, nil
}

// SaveRegistry saves the catalogue to a YAML file
func (l *Loader) SaveRegistry(registry *Registry) error {
	configPath := l.configPath
	if configPath == "" {
		configPath = "geosynth.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(registry)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetDefaultRegistry returns the catalogue the generator was tuned with.
func GetDefaultRegistry() *Registry {
	return &Registry{
		Alphabet: append([]string(nil), symbols.DefaultAlphabet...),
		Families: []FamilyConfig{
			{Name: "perp", Arity: 4, Weight: 0.2, Generatable: true},
			{Name: "para", Arity: 4, Weight: 0.12, UniqueArgs: true, Generatable: true},
			{Name: "cong", Arity: 4, Weight: 0.2, Generatable: true},
			{Name: "coll", Arity: 3, Weight: 0.24, UniqueArgs: true, Generatable: true},
			{Name: "eqangle", Arity: 6, Weight: 0.12, Generatable: true},
			{Name: "cyclic", Arity: 4, Weight: 0.12, Generatable: false},
		},
		Primitives: []PrimitiveConfig{
			{Name: "triangle", Arity: 3, Weight: 0.5},
			{Name: "isquare", Arity: 4, Weight: 0.2},
			{Name: "segment", Arity: 2, Weight: 0.3},
			{
				Name:  "k2_9",
				Arity: 7,
				Clauses: []string{
					"{a1} {a2} {a3} = triangle {a1} {a2} {a3}",
					"{a4} = midpoint {a4} {a1} {a2}",
					"{a6} = on_line {a6} {a3} {a4}",
					"{a7} = on_line {a7} {a2} {a3}, on_pline {a7} {a6} {a1} {a2}",
					"{a5} = on_line {a5} {a1} {a2}, on_pline {a5} {a7} {a4} {a3}",
				},
			},
			{
				Name:  "jgex_02_06_01_20_10",
				Arity: 6,
				Clauses: []string{
					"{a1} {a2} {a3} {a4} = quadrangle {a1} {a2} {a3} {a4}",
					"{a5} = on_line {a5} {a2} {a3}, on_line {a5} {a1} {a4}",
					"{a6} = circle {a6} {a3} {a4} {a5}",
				},
			},
			{
				Name:  "jgex_02_06_41_6_57",
				Arity: 5,
				Clauses: []string{
					"{a1} {a2} {a3} = triangle {a1} {a2} {a3}",
					"{a4} = foot {a4} {a1} {a2} {a3}",
					"{a5} = midpoint {a5} {a1} {a4}",
				},
			},
			{
				Name:  "jgex_aux2_22",
				Arity: 6,
				Clauses: []string{
					"{a3} {a1} {a2} = iso_triangle {a3} {a1} {a2}",
					"{a4} = on_line {a4} {a1} {a3}",
					"{a5} = on_line {a5} {a2} {a3}, eqdistance {a5} {a2} {a1} {a4}",
					"{a6} = on_line {a6} {a1} {a2}, on_line {a6} {a4} {a5}",
				},
			},
		},
		Search: SearchConfig{
			MaxRejectedRounds: 20,
			MaxRounds:         200,
			MinAux:            1,
			MaxAux:            6,
			MaxAttempts:       24,
			MinPredicates:     1,
			MaxPredicates:     2,
			MaxLevel:          20,
			SolveTimeout:      10 * time.Second,
			MinProofLength:    3,
			MinScore:          3,
		},
	}
}
