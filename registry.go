package adminkit

import (
	"sync"
)

// Registry collects scope and resource permissions at startup.
// Call Build once all scopes are defined to get the read-only PermissionTable
// the resolver works with; the registry itself is only a builder.
type Registry struct {
	mu     sync.RWMutex
	scopes map[Scope]*ScopeDefinition
}

// ScopeDefinition holds the resources granted to one scope.
type ScopeDefinition struct {
	name      Scope
	resources map[string]*ResourceDefinition
	registry  *Registry
}

// ResourceDefinition holds the actions a scope may perform on a resource.
type ResourceDefinition struct {
	name    string
	actions []Action
	scope   *ScopeDefinition
}

// NewRegistry creates a new permission registry.
func NewRegistry() *Registry {
	return &Registry{
		scopes: make(map[Scope]*ScopeDefinition),
	}
}

// DefineScope starts (or continues) defining a scope.
// Returns a ScopeDefinition builder for fluent configuration.
//
// Example:
//
//	registry.DefineScope("_user:admin").
//	    Resource("skill").Allow(adminkit.ActionView, adminkit.ActionEdit).
//	    Resource("employee").Allow(adminkit.ActionView)
func (r *Registry) DefineScope(name Scope) *ScopeDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scope, ok := r.scopes[name]; ok {
		return scope
	}
	scope := &ScopeDefinition{
		name:      name,
		resources: make(map[string]*ResourceDefinition),
		registry:  r,
	}
	r.scopes[name] = scope
	return scope
}

// GetScope returns the scope definition, or nil if the scope is not defined.
func (r *Registry) GetScope(name Scope) *ScopeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scopes[name]
}

// Build returns an immutable snapshot of everything defined so far.
// Later changes to the registry do not affect tables already built.
func (r *Registry) Build() *PermissionTable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table := &PermissionTable{scopes: make(map[Scope]map[string]ActionSet, len(r.scopes))}
	for name, scope := range r.scopes {
		resources := make(map[string]ActionSet, len(scope.resources))
		for resName, res := range scope.resources {
			resources[resName] = NewActionSet(res.actions...)
		}
		table.scopes[name] = resources
	}
	return table
}

// Resource starts defining a resource within this scope.
// Declaring a resource without calling Allow records an empty action set,
// which denies every action just like an absent resource.
func (s *ScopeDefinition) Resource(name string) *ResourceDefinition {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	if res, ok := s.resources[name]; ok {
		return res
	}
	res := &ResourceDefinition{
		name:  name,
		scope: s,
	}
	s.resources[name] = res
	return res
}

// Name returns the scope name.
func (s *ScopeDefinition) Name() Scope {
	return s.name
}

// Allow grants actions on this resource. Invalid actions are ignored.
func (r *ResourceDefinition) Allow(actions ...Action) *ResourceDefinition {
	r.scope.registry.mu.Lock()
	defer r.scope.registry.mu.Unlock()

	for _, a := range actions {
		if a.Valid() {
			r.actions = append(r.actions, a)
		}
	}
	return r
}

// AllowAll grants all six actions on this resource.
func (r *ResourceDefinition) AllowAll() *ResourceDefinition {
	return r.Allow(allActions...)
}

// Resource continues defining resources in the parent scope (fluent API).
func (r *ResourceDefinition) Resource(name string) *ResourceDefinition {
	return r.scope.Resource(name)
}

// DefineScope continues defining scopes on the registry (fluent API).
func (r *ResourceDefinition) DefineScope(name Scope) *ScopeDefinition {
	return r.scope.registry.DefineScope(name)
}

// Name returns the resource name.
func (r *ResourceDefinition) Name() string {
	return r.name
}
