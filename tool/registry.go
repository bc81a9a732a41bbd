package tool

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/agentchat/model"
)

// Plugin groups related functions under a common namespace. Its functions
// are registered as "<plugin>.<function>".
type Plugin struct {
	Name        string
	Description string
	Functions   []Tool
}

// NewPlugin creates a plugin from the given functions.
func NewPlugin(name, description string, functions ...Tool) Plugin {
	return Plugin{Name: name, Description: description, Functions: functions}
}

// QualifiedName joins a plugin and function name.
func QualifiedName(plugin, function string) string {
	if plugin == "" {
		return function
	}
	return plugin + "." + function
}

// Registry maps capability names to tools. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	descs map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}, descs: map[string]string{}}
}

// Register adds standalone tools under their own names.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		if err := r.add(t.Name(), t); err != nil {
			return err
		}
	}

	return nil
}

// AddPlugin registers every function of p under "<plugin>.<function>".
func (r *Registry) AddPlugin(p Plugin) error {
	if p.Name == "" || strings.Contains(p.Name, ".") {
		return fmt.Errorf("invalid plugin name %q", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, fn := range p.Functions {
		if strings.Contains(fn.Name(), ".") {
			return fmt.Errorf("invalid function name %q in plugin %s", fn.Name(), p.Name)
		}
		if err := r.add(QualifiedName(p.Name, fn.Name()), fn); err != nil {
			return err
		}
	}

	r.descs[p.Name] = p.Description

	return nil
}

func (r *Registry) add(name string, t Tool) error {
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Lookup resolves a capability name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered capability names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	slices.Sort(names)

	return names
}

// Definitions returns model tool definitions for every capability accepted by
// allow, sorted by name. A nil allow accepts everything.
func (r *Registry) Definitions(allow func(name string) bool) []model.ToolDefinition {
	var defs []model.ToolDefinition

	for _, name := range r.Names() {
		if allow != nil && !allow(name) {
			continue
		}

		t, _ := r.Lookup(name)

		desc := t.Description()
		if plugin, _, ok := strings.Cut(name, "."); ok {
			r.mu.RLock()
			if pd := r.descs[plugin]; pd != "" {
				desc = fmt.Sprintf("%s (%s)", desc, pd)
			}
			r.mu.RUnlock()
		}

		params := t.Parameters()
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        name,
				Description: desc,
				Parameters:  params,
			},
		})
	}

	return defs
}
