// Package tool implements C6: a declarative, machine-readable inventory
// of actions the orchestrator may take, per spec.md §4.6. Grounded on
// Tangerg-lynx's ai/model/tool/{definition,registry,metadata}.go
// Builder/Registry shape, adapted from an LLM-framework callable-tool
// abstraction to the spec's data-only ToolDescriptor bound to a
// loopback HTTP endpoint.
package tool

import (
	"sync"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
)

// Builder constructs an immutable model.ToolDescriptor with validation,
// mirroring Tangerg-lynx's DefinitionBuilder.
type Builder struct {
	name        string
	description string
	params      []model.ParamSpec
	response    []model.ParamSpec
	binding     model.ToolBinding
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) WithDescription(desc string) *Builder {
	b.description = desc
	return b
}

func (b *Builder) WithParam(p model.ParamSpec) *Builder {
	b.params = append(b.params, p)
	return b
}

func (b *Builder) WithResponseField(p model.ParamSpec) *Builder {
	b.response = append(b.response, p)
	return b
}

func (b *Builder) WithBinding(method, urlTemplate string) *Builder {
	b.binding = model.ToolBinding{HTTPMethod: method, URLTemplate: urlTemplate}
	return b
}

func (b *Builder) Build() (model.ToolDescriptor, error) {
	if b.name == "" {
		return model.ToolDescriptor{}, errs.New(errs.InvalidInput, "tool: name is required")
	}
	if b.description == "" {
		return model.ToolDescriptor{}, errs.New(errs.InvalidInput, "tool: description is required")
	}
	if b.binding.URLTemplate == "" {
		return model.ToolDescriptor{}, errs.New(errs.InvalidInput, "tool: binding URL is required")
	}
	return model.ToolDescriptor{
		Name:        b.name,
		Description: b.description,
		Params:      b.params,
		Response:    b.response,
		Binding:     b.binding,
	}, nil
}

// MustBuild builds the descriptor, panicking on validation failure.
// Intended for the fixed catalog built at startup.
func (b *Builder) MustBuild() model.ToolDescriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Registry is a thread-safe, name-indexed collection of tool
// descriptors, grounded on Tangerg-lynx's Registry.
type Registry struct {
	mu    sync.RWMutex
	store map[string]model.ToolDescriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{store: make(map[string]model.ToolDescriptor)}
}

// Register adds one or more descriptors, indexed by name. Re-registering
// the same name overwrites the previous descriptor, since the registry
// is the startup-time catalog, not a concurrent multi-writer structure.
func (r *Registry) Register(descriptors ...model.ToolDescriptor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descriptors {
		r.store[d.Name] = d
	}
	return r
}

func (r *Registry) Find(name string) (model.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.store[name]
	return d, ok
}

func (r *Registry) All() []model.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]model.ToolDescriptor, 0, len(r.store))
	for _, d := range r.store {
		list = append(list, d)
	}
	return list
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.store))
	for name := range r.store {
		names = append(names, name)
	}
	return names
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}
