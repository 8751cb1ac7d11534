package adminkit

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Capability is a renderer or handler bound to a stable symbolic key,
// such as a menu icon or a row action.
type Capability struct {
	Key     string
	Label   string
	Handler any
}

// CapabilityRegistry is a closed set of capabilities. Keys are registered
// once at startup and validated before the first screen renders, so a
// missing icon or action is a startup error rather than a blank control.
type CapabilityRegistry struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

// NewCapabilityRegistry creates a registry preloaded with caps.
func NewCapabilityRegistry(caps ...Capability) (*CapabilityRegistry, error) {
	r := &CapabilityRegistry{caps: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a capability. Empty and duplicate keys are rejected.
func (r *CapabilityRegistry) Register(c Capability) error {
	if c.Key == "" {
		return NewError(ErrInvalidCapability, "capability key cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[c.Key]; exists {
		return NewError(ErrInvalidCapability, fmt.Sprintf("capability %q already registered", c.Key))
	}
	r.caps[c.Key] = c
	return nil
}

// Lookup returns the capability for key. Unknown keys return false.
func (r *CapabilityRegistry) Lookup(key string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[key]
	return c, ok
}

// Keys returns all registered keys, sorted.
func (r *CapabilityRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.caps))
	for k := range r.caps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every required key is registered and reports all
// missing keys in one error.
func (r *CapabilityRegistry) Validate(required ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []string
	for _, key := range required {
		if _, ok := r.caps[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return NewError(ErrInvalidCapability, "missing capabilities: "+strings.Join(missing, ", "))
	}
	return nil
}
