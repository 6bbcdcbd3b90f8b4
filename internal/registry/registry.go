// Package registry loads flow definitions from TOML files and keeps them
// current as the definition directory changes.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	charmlog "github.com/charmbracelet/log"

	"github.com/Dicklesworthstone/flowtx/internal/utils"
	"github.com/Dicklesworthstone/flowtx/pkg/flow"
)

// ErrFlowNotFound is returned when a flow ID is not registered.
var ErrFlowNotFound = errors.New("flow not found")

// flowFile is the on-disk shape of a flow definition.
type flowFile struct {
	ID                 string            `toml:"id"`
	PersistenceContext bool              `toml:"persistence_context"`
	Attributes         map[string]string `toml:"attributes"`
	States             []stateFile       `toml:"states"`
	EndStates          []endStateFile    `toml:"end_states"`
}

type stateFile struct {
	ID         string            `toml:"id"`
	Attributes map[string]string `toml:"attributes"`
}

type endStateFile struct {
	ID         string            `toml:"id"`
	Commit     *bool             `toml:"commit"`
	Attributes map[string]string `toml:"attributes"`
}

// Registry holds flow definitions keyed by flow ID.
type Registry struct {
	dir string
	log *charmlog.Logger

	mu   sync.RWMutex
	defs map[string]*flow.Definition
}

// New creates a registry over the given definitions directory.
func New(dir string) *Registry {
	return &Registry{
		dir:  dir,
		log:  utils.WithPrefix("registry"),
		defs: make(map[string]*flow.Definition),
	}
}

// Dir returns the definitions directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Load parses every *.toml file in the registry directory, replacing the
// current definition set. A missing directory yields an empty registry.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.mu.Lock()
			r.defs = make(map[string]*flow.Definition)
			r.mu.Unlock()
			return nil
		}
		return fmt.Errorf("reading flows dir %s: %w", r.dir, err)
	}

	defs := make(map[string]*flow.Definition)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		def, err := parseFile(path)
		if err != nil {
			return err
		}
		if _, dup := defs[def.ID]; dup {
			return fmt.Errorf("duplicate flow id %q in %s", def.ID, path)
		}
		defs[def.ID] = def
	}

	r.mu.Lock()
	r.defs = defs
	r.mu.Unlock()
	r.log.Debug("flow definitions loaded", "dir", r.dir, "count", len(defs))
	return nil
}

// Get returns the definition for a flow ID.
func (r *Registry) Get(id string) (*flow.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFlowNotFound, id)
	}
	return def, nil
}

// List returns all definitions sorted by flow ID.
func (r *Registry) List() []*flow.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*flow.Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered flows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

func parseFile(path string) (*flow.Definition, error) {
	var file flowFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("parsing flow file %s: %w", path, err)
	}
	if file.ID == "" {
		return nil, fmt.Errorf("flow file %s: id is required", path)
	}

	def := flow.NewDefinition(file.ID)
	if file.PersistenceContext {
		def.Attributes.Put("persistenceContext", true)
	}
	for k, v := range file.Attributes {
		def.Attributes.Put(k, v)
	}

	for _, s := range file.States {
		state := &flow.State{ID: s.ID, Attributes: flow.NewAttributeMap()}
		for k, v := range s.Attributes {
			state.Attributes.Put(k, v)
		}
		if err := def.AddState(state); err != nil {
			return nil, fmt.Errorf("flow file %s: %w", path, err)
		}
	}
	for _, s := range file.EndStates {
		state := &flow.State{ID: s.ID, Attributes: flow.NewAttributeMap(), End: true}
		if s.Commit != nil {
			state.Attributes.Put("commit", *s.Commit)
		}
		for k, v := range s.Attributes {
			state.Attributes.Put(k, v)
		}
		if err := def.AddState(state); err != nil {
			return nil, fmt.Errorf("flow file %s: %w", path, err)
		}
	}
	if len(file.EndStates) == 0 {
		return nil, fmt.Errorf("flow file %s: at least one end state is required", path)
	}
	return def, nil
}
