package types

// DescriptorKind tags how a request body names its schema.
type DescriptorKind int

const (
	// Unresolved means the body carries no usable self-descriptor.
	Unresolved DescriptorKind = iota
	// ByIdentifier means the body names its schema by id.
	ByIdentifier
	// ByReference means the body names its schema by reference URI.
	ByReference
)

// String returns the string representation of DescriptorKind.
func (k DescriptorKind) String() string {
	switch k {
	case ByIdentifier:
		return "by_identifier"
	case ByReference:
		return "by_reference"
	default:
		return "unresolved"
	}
}

// Descriptor is the schema self-descriptor decoded once from a request
// body's _self.schema block. It replaces repeated untyped inspection of
// the payload shape with a single tagged value.
type Descriptor struct {
	Kind  DescriptorKind
	Value string
}

// Resolved reports whether the descriptor names a schema at all.
func (d Descriptor) Resolved() bool {
	return d.Kind != Unresolved
}

// DecodeDescriptor extracts the schema self-descriptor from a request
// body. It understands {"_self": {"schema": {"id": ...}}} and the "ref"
// and "reference" spellings for references. An id wins over a reference
// when both are present.
func DecodeDescriptor(body map[string]any) Descriptor {
	self, ok := body["_self"].(map[string]any)
	if !ok {
		return Descriptor{}
	}
	schema, ok := self["schema"].(map[string]any)
	if !ok {
		return Descriptor{}
	}

	if id, ok := schema["id"].(string); ok && id != "" {
		return Descriptor{Kind: ByIdentifier, Value: id}
	}
	if ref, ok := schema["ref"].(string); ok && ref != "" {
		return Descriptor{Kind: ByReference, Value: ref}
	}
	if ref, ok := schema["reference"].(string); ok && ref != "" {
		return Descriptor{Kind: ByReference, Value: ref}
	}
	return Descriptor{}
}
