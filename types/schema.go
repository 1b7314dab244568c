package types

import "time"

// Attribute describes one field of a schema. The Sortable and Searchable
// flags gate what the query translator may order and filter on when
// attribute-flag enforcement is enabled.
type Attribute struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Sortable   bool   `json:"sortable"`
	Searchable bool   `json:"searchable"`
}

// Schema is a named, versioned description of a record type. Schemas are
// consumed read-only by the dispatcher; they never change during a request.
type Schema struct {
	ID         string      `json:"id"`
	Reference  string      `json:"reference,omitempty"`
	Name       string      `json:"name"`
	Persist    bool        `json:"persist"`
	Attributes []Attribute `json:"attributes,omitempty"`
	CreatedAt  time.Time   `json:"dateCreated"`
}

// Attribute returns the named attribute definition, if present.
func (s *Schema) Attribute(name string) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// SortableAttributes returns the names of attributes flagged sortable.
func (s *Schema) SortableAttributes() []string {
	var names []string
	for _, a := range s.Attributes {
		if a.Sortable {
			names = append(names, a.Name)
		}
	}
	return names
}

// SearchableAttributes returns the names of attributes flagged searchable.
func (s *Schema) SearchableAttributes() []string {
	var names []string
	for _, a := range s.Attributes {
		if a.Searchable {
			names = append(names, a.Name)
		}
	}
	return names
}
