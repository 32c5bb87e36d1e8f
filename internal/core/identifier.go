package core

import (
	"fmt"
	"strings"
)

// Identifier names a logical component object, e.g. "shop:database.table.users".
// Component is the owning component, Path the object kind and Name the entity.
type Identifier struct {
	Component string
	Path      []string
	Name      string
}

// ParseIdentifier parses "component.name" or "component:path.name" forms.
func ParseIdentifier(s string) (Identifier, error) {
	var id Identifier
	rest := s
	if i := strings.Index(s, ":"); i >= 0 {
		id.Component = s[:i]
		rest = s[i+1:]
		parts := strings.Split(rest, ".")
		if len(parts) < 2 {
			return Identifier{}, fmt.Errorf("invalid identifier %q", s)
		}
		id.Path = parts[:len(parts)-1]
		id.Name = parts[len(parts)-1]
	} else {
		parts := strings.SplitN(rest, ".", 2)
		if len(parts) != 2 {
			return Identifier{}, fmt.Errorf("invalid identifier %q", s)
		}
		id.Component = parts[0]
		id.Name = parts[1]
		id.Path = []string{"database", "table"}
	}
	if id.Component == "" || id.Name == "" {
		return Identifier{}, fmt.Errorf("invalid identifier %q", s)
	}
	return id, nil
}

// Clone returns a copy that can be mutated independently.
func (id Identifier) Clone() Identifier {
	out := id
	out.Path = append([]string(nil), id.Path...)
	return out
}

// SetPath returns a copy with the given path.
func (id Identifier) SetPath(path ...string) Identifier {
	out := id.Clone()
	out.Path = append([]string(nil), path...)
	return out
}

// SetName returns a copy with the given name.
func (id Identifier) SetName(name string) Identifier {
	out := id.Clone()
	out.Name = name
	return out
}

// Key is the short "component.name" form used for configuration lookups.
func (id Identifier) Key() string {
	return id.Component + "." + id.Name
}

func (id Identifier) String() string {
	if len(id.Path) == 0 {
		return id.Component + ":" + id.Name
	}
	return id.Component + ":" + strings.Join(id.Path, ".") + "." + id.Name
}
