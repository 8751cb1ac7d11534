package adminkit

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Descriptors is a set of entity descriptors by key.
type Descriptors map[string]EntityDescriptor

// Get returns the descriptor of key.
func (d Descriptors) Get(key string) (EntityDescriptor, error) {
	desc, ok := d[key]
	if !ok {
		return EntityDescriptor{}, NewError(ErrInvalidDescriptor, fmt.Sprintf("unknown entity %q", key))
	}
	return desc, nil
}

// Keys returns the entity keys, sorted.
func (d Descriptors) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type descriptorFile struct {
	Entities []EntityDescriptor `yaml:"entities"`
}

// LoadDescriptors reads entity descriptors from YAML:
//
//	entities:
//	  - key: employee
//	    resource: employee
//	    primaryKeys: [id]
//	    labelField: name
//	    filters: {department: string, hiredAfter: time}
//	    columns:
//	      - {key: name, title: Name, visible: true, sortable: true}
//
// Every descriptor is validated and keys must be unique.
func LoadDescriptors(r io.Reader) (Descriptors, error) {
	var file descriptorFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, NewError(ErrInvalidDescriptor, "failed to parse entities: "+err.Error())
	}
	out := make(Descriptors, len(file.Entities))
	for _, desc := range file.Entities {
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[desc.Key]; dup {
			return nil, NewError(ErrInvalidDescriptor, "duplicate entity").WithEntity(desc.Key)
		}
		out[desc.Key] = desc
	}
	return out, nil
}

// LoadDescriptorsFile reads entity descriptors from a YAML file.
func LoadDescriptorsFile(path string) (Descriptors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDescriptors(f)
}
