package types

import "context"

// ScopeSet maps a schema name to the HTTP methods a caller may use on it.
type ScopeSet map[string]map[string]bool

// Allows reports whether the scope set grants the given method on the
// given schema name.
func (s ScopeSet) Allows(schemaName, method string) bool {
	methods, ok := s[schemaName]
	if !ok {
		return false
	}
	return methods[method]
}

// ScopeSource supplies per-user scope sets. Implemented by the external
// authorization collaborator; the dispatcher only consumes it.
type ScopeSource interface {
	ScopesFor(ctx context.Context, user string) (ScopeSet, error)
}

// AllowAll is a ScopeSource granting every operation, used when no
// authorization collaborator is configured.
type AllowAll struct{}

// ScopesFor implements ScopeSource. It returns a nil set; the dispatcher
// treats a nil set as unrestricted.
func (AllowAll) ScopesFor(context.Context, string) (ScopeSet, error) {
	return nil, nil
}
