package adminkit

import (
	"fmt"
	"sort"
)

// MenuEntry is one navigation entry of the admin shell.
type MenuEntry struct {
	Key   string
	Title string
	Icon  Capability
}

// RequiredIcons returns the icon keys the descriptors refer to, sorted and
// without duplicates. Pass them to CapabilityRegistry.Validate at startup.
func (d Descriptors) RequiredIcons() []string {
	seen := make(map[string]bool)
	var icons []string
	for _, key := range d.Keys() {
		if icon := d[key].Icon; icon != "" && !seen[icon] {
			seen[icon] = true
			icons = append(icons, icon)
		}
	}
	sort.Strings(icons)
	return icons
}

// BuildMenu returns the entries checker may open, in key order. Entities
// the scope cannot view are left out. An icon key missing from icons is an
// error; icons may be nil when no descriptor names an icon.
func BuildMenu(checker *Checker, descs Descriptors, icons *CapabilityRegistry) ([]MenuEntry, error) {
	var entries []MenuEntry
	for _, key := range descs.Keys() {
		desc := descs[key]
		if !checker.Can(desc.Module, desc.Resource, ActionView) {
			continue
		}
		entry := MenuEntry{Key: desc.Key, Title: desc.Title}
		if entry.Title == "" {
			entry.Title = desc.Key
		}
		if desc.Icon != "" {
			var ok bool
			if icons != nil {
				entry.Icon, ok = icons.Lookup(desc.Icon)
			}
			if !ok {
				return nil, NewError(ErrInvalidCapability, fmt.Sprintf("icon %q is not registered", desc.Icon)).
					WithEntity(desc.Key)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
