package adminkit

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scope identifies a caller's role class, e.g. "_user:admin".
// It is assigned at authentication time and never changes for a session.
type Scope string

// Action is one of the six operations a resource can permit.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
	ActionUpload Action = "upload"
	ActionDetail Action = "detail"
)

var allActions = []Action{ActionView, ActionEdit, ActionAdd, ActionDelete, ActionUpload, ActionDetail}

// AllActions returns the closed set of actions in canonical order.
func AllActions() []Action {
	return slices.Clone(allActions)
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return slices.Contains(allActions, a)
}

// ParseAction converts a string into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", NewError(ErrInvalidAction, fmt.Sprintf("unknown action %q", s))
	}
	return a, nil
}

// ActionSet is an ordered set of actions. Insertion order is kept and
// duplicates are dropped.
type ActionSet struct {
	actions []Action
}

// NewActionSet builds a set from actions, ignoring repeats.
func NewActionSet(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		if !slices.Contains(s.actions, a) {
			s.actions = append(s.actions, a)
		}
	}
	return s
}

// Contains reports whether a is in the set.
func (s ActionSet) Contains(a Action) bool {
	return slices.Contains(s.actions, a)
}

// Actions returns a copy of the actions in insertion order.
func (s ActionSet) Actions() []Action {
	return slices.Clone(s.actions)
}

// Len returns the number of actions in the set.
func (s ActionSet) Len() int {
	return len(s.actions)
}

// PermissionTable maps scope -> resource -> allowed actions.
//
// A table is read-only once built: it is produced by Registry.Build or
// LoadPermissionTable and exposes no mutators, so it can be shared between
// goroutines without locking.
type PermissionTable struct {
	scopes map[Scope]map[string]ActionSet
}

// Lookup returns the action set of resource under scope.
// ok is false when either the scope or the resource is absent.
func (t *PermissionTable) Lookup(scope Scope, resource string) (ActionSet, bool) {
	if t == nil {
		return ActionSet{}, false
	}
	resources, ok := t.scopes[scope]
	if !ok {
		return ActionSet{}, false
	}
	set, ok := resources[resource]
	return set, ok
}

// Scopes returns all scopes in the table, sorted.
func (t *PermissionTable) Scopes() []Scope {
	if t == nil {
		return nil
	}
	out := make([]Scope, 0, len(t.scopes))
	for s := range t.scopes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resources returns the resources declared for scope, sorted.
func (t *PermissionTable) Resources(scope Scope) []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.scopes[scope]))
	for r := range t.scopes[scope] {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// permissionFile is the YAML layout accepted by LoadPermissionTable:
//
//	scopes:
//	  "_user:admin":
//	    skill: [view, edit, add, delete]
//	    employee: [view, detail]
type permissionFile struct {
	Scopes map[string]map[string][]string `yaml:"scopes"`
}

// LoadPermissionTable decodes a YAML permission table.
// Unknown action names are rejected so typos cannot silently deny access.
func LoadPermissionTable(r io.Reader) (*PermissionTable, error) {
	var file permissionFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode permission table: %w", err)
	}

	registry := NewRegistry()
	for scope, resources := range file.Scopes {
		def := registry.DefineScope(Scope(scope))
		for resource, names := range resources {
			actions := make([]Action, 0, len(names))
			for _, name := range names {
				a, err := ParseAction(name)
				if err != nil {
					return nil, fmt.Errorf("scope %q resource %q: %w", scope, resource, err)
				}
				actions = append(actions, a)
			}
			def.Resource(resource).Allow(actions...)
		}
	}
	return registry.Build(), nil
}

// LoadPermissionTableFile reads a YAML permission table from disk.
func LoadPermissionTableFile(path string) (*PermissionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPermissionTable(f)
}
