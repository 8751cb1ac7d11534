package adminkit

import "fmt"

// Resolver answers whether a scope may perform an action on a resource.
// It only reads its PermissionTable, so one Resolver can be shared freely.
type Resolver struct {
	table *PermissionTable
}

// NewResolver creates a Resolver over table. A nil table denies everything.
func NewResolver(table *PermissionTable) *Resolver {
	return &Resolver{table: table}
}

// Table returns the permission table the resolver reads.
func (r *Resolver) Table() *PermissionTable {
	return r.table
}

// Can reports whether scope may perform action on resource.
//
// The module argument is part of the signature so call sites can already pass
// the module a screen belongs to, but the current policy does not use it:
// permissions are keyed by scope and resource only. Unknown scopes and
// resources are simply not permitted; Can never panics.
//
// Example:
//
//	if resolver.Can(scope, "", "skill", adminkit.ActionEdit) {
//	    // render the edit control
//	}
func (r *Resolver) Can(scope Scope, module, resource string, action Action) bool {
	if r == nil {
		return false
	}
	set, ok := r.table.Lookup(scope, resource)
	if !ok {
		return false
	}
	return set.Contains(action)
}

// Require is Can returning ErrPermissionDenied instead of false.
func (r *Resolver) Require(scope Scope, module, resource string, action Action) error {
	if r.Can(scope, module, resource, action) {
		return nil
	}
	return NewError(ErrPermissionDenied, fmt.Sprintf("%s on %s", action, resource)).
		WithScope(scope).
		WithResource(resource, action)
}

// CanAny reports whether at least one of actions is permitted.
func (r *Resolver) CanAny(scope Scope, module, resource string, actions ...Action) bool {
	for _, a := range actions {
		if r.Can(scope, module, resource, a) {
			return true
		}
	}
	return false
}

// CanAll reports whether every action is permitted. An empty list is vacuously true.
func (r *Resolver) CanAll(scope Scope, module, resource string, actions ...Action) bool {
	for _, a := range actions {
		if !r.Can(scope, module, resource, a) {
			return false
		}
	}
	return true
}

// Allowed returns the actions scope may perform on resource, in table order.
func (r *Resolver) Allowed(scope Scope, resource string) []Action {
	if r == nil {
		return nil
	}
	set, ok := r.table.Lookup(scope, resource)
	if !ok {
		return nil
	}
	return set.Actions()
}

// For binds the resolver to one scope.
func (r *Resolver) For(scope Scope) *Checker {
	return &Checker{scope: scope, resolver: r}
}

// Checker is a Resolver bound to a single caller scope.
// It is typically created once per session and stored in context.
type Checker struct {
	scope    Scope
	resolver *Resolver
}

// Scope returns the scope this checker is for.
func (c *Checker) Scope() Scope {
	return c.scope
}

// Can checks an action for the bound scope.
func (c *Checker) Can(module, resource string, action Action) bool {
	if c == nil {
		return false
	}
	return c.resolver.Can(c.scope, module, resource, action)
}

// Require checks an action for the bound scope and returns ErrPermissionDenied on failure.
func (c *Checker) Require(module, resource string, action Action) error {
	if c == nil {
		return NewError(ErrPermissionDenied, "no checker").WithResource(resource, action)
	}
	return c.resolver.Require(c.scope, module, resource, action)
}

// Gates lists which controls a screen may render for the bound scope.
type Gates struct {
	CanCreate bool
	CanView   bool
	CanDetail bool
	CanEdit   bool
	CanDelete bool
	CanUpload bool
}

// Gates derives the controls of an entity screen. Controls that are false
// are meant to be left out entirely, not disabled.
func (c *Checker) Gates(desc EntityDescriptor) Gates {
	return Gates{
		CanCreate: c.Can(desc.Module, desc.Resource, ActionAdd),
		CanView:   c.Can(desc.Module, desc.Resource, ActionView),
		CanDetail: c.Can(desc.Module, desc.Resource, ActionDetail),
		CanEdit:   c.Can(desc.Module, desc.Resource, ActionEdit),
		CanDelete: c.Can(desc.Module, desc.Resource, ActionDelete),
		CanUpload: c.Can(desc.Module, desc.Resource, ActionUpload),
	}
}
