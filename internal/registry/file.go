package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// fileState is the on-disk layout of a FileRegistry.
type fileState struct {
	// Aliases maps prompt name → alias → version.
	Aliases map[string]map[string]int `json:"aliases"`
	// Templates maps prompt name → version (as string) → template text.
	Templates map[string]map[string]string `json:"templates,omitempty"`
}

// FileRegistry keeps aliases in a JSON file next to an offline run snapshot.
// With an empty path it is purely in-memory.
type FileRegistry struct {
	path string

	mu    sync.Mutex
	state fileState
}

// NewMemoryRegistry returns an empty in-memory registry.
func NewMemoryRegistry() *FileRegistry {
	return &FileRegistry{state: fileState{Aliases: map[string]map[string]int{}}}
}

// OpenFileRegistry loads path, or starts empty when the file does not exist yet.
func OpenFileRegistry(path string) (*FileRegistry, error) {
	r := NewMemoryRegistry()
	r.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading registry %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &r.state); err != nil {
		return nil, fmt.Errorf("parsing registry %q: %w", path, err)
	}
	if r.state.Aliases == nil {
		r.state.Aliases = map[string]map[string]int{}
	}
	return r, nil
}

// LoadVersion resolves name@alias.
func (r *FileRegistry) LoadVersion(_ context.Context, name, alias string) (PromptVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.state.Aliases[name][alias]
	if !ok {
		return PromptVersion{}, fmt.Errorf("%w: %s@%s", ErrAliasNotFound, name, alias)
	}
	pv := PromptVersion{Name: name, Version: v}
	if tmpl, ok := r.state.Templates[name]; ok {
		pv.Template = tmpl[fmt.Sprint(v)]
	}
	return pv, nil
}

// SetAlias points name@alias at version and persists the file.
func (r *FileRegistry) SetAlias(_ context.Context, name, alias string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Aliases[name] == nil {
		r.state.Aliases[name] = map[string]int{}
	}
	r.state.Aliases[name][alias] = version

	if r.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

// Ensure FileRegistry satisfies Registry.
var _ Registry = (*FileRegistry)(nil)
