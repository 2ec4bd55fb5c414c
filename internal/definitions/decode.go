package definitions

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownResourceType is returned for a document whose resourceType is not
// one of the supported kinds.
var ErrUnknownResourceType = errors.New("unknown resourceType")

// Decode reads one JSON document and returns the record selected by its
// resourceType tag.
func Decode(data []byte) (Resource, error) {
	var tag struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("reading resourceType: %w", err)
	}

	var r Resource
	switch NodeKind(tag.ResourceType) {
	case KindStructureDefinition:
		r = &StructureDefinition{}
	case KindBundle:
		r = &Bundle{}
	case KindCodeSystem:
		r = &CodeSystem{}
	case KindValueSet:
		r = &ValueSet{}
	case KindCapabilityStatement:
		r = &CapabilityStatement{}
	case KindOperationDefinition:
		r = &OperationDefinition{}
	case KindCompartmentDefinition:
		r = &CompartmentDefinition{}
	case "":
		return nil, fmt.Errorf("%w: missing", ErrUnknownResourceType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, tag.ResourceType)
	}

	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", tag.ResourceType, err)
	}
	return r, nil
}

// UnmarshalJSON decodes the entry resource through Decode.
func (e *BundleEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Resource json.RawMessage `json:"resource"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Resource) == 0 {
		return errors.New("bundle entry without resource")
	}

	r, err := Decode(raw.Resource)
	if err != nil {
		return err
	}
	e.Resource = r
	return nil
}

// Flatten returns r itself, or every entry resource in order when r is a
// Bundle.
func Flatten(r Resource) []Resource {
	b, ok := r.(*Bundle)
	if !ok {
		return []Resource{r}
	}

	var out []Resource
	for _, entry := range b.Entry {
		out = append(out, Flatten(entry.Resource)...)
	}
	return out
}
