package module

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrModuleExists    = errors.New("module already exists")
	ErrModuleNil       = errors.New("module is nil")
	ErrModuleNotFound  = errors.New("module not found")
	ErrInvalidMetadata = errors.New("invalid module metadata")
)

// Registry stores modules by name. It is filled once at startup and read
// afterwards.
type Registry struct {
	items map[string]Module
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Module)}
}

// ValidateMetadata checks required metadata fields and name format.
func ValidateMetadata(meta Metadata) error {
	name := strings.TrimSpace(meta.Name)
	if name == "" || strings.TrimSpace(meta.Description) == "" {
		return fmt.Errorf("%w: name and description are required", ErrInvalidMetadata)
	}
	if !isValidName(name) {
		return fmt.Errorf("%w: invalid name format %q", ErrInvalidMetadata, name)
	}
	return nil
}

func (r *Registry) Register(m Module) error {
	if m == nil {
		return ErrModuleNil
	}
	meta := m.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if _, ok := r.items[meta.Name]; ok {
		return fmt.Errorf("%w: %s", ErrModuleExists, meta.Name)
	}
	r.items[meta.Name] = m
	return nil
}

// MustRegister is Register for startup tables, where a failure is a
// programming error.
func (r *Registry) MustRegister(mods ...Module) *Registry {
	for _, m := range mods {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Resolve(name string) (Module, error) {
	m, ok := r.items[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return m, nil
}

// ListMetadata returns metadata ordered by name.
func (r *Registry) ListMetadata() []Metadata {
	list := make([]Metadata, 0, len(r.items))
	for _, m := range r.items {
		list = append(list, m.Metadata())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func isValidName(name string) bool {
	lastSep := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '_' || c == '-'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(name)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return name != ""
}
