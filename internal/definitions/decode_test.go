package definitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientJSON = `{
  "resourceType": "StructureDefinition",
  "id": "Patient",
  "url": "http://hl7.org/fhir/StructureDefinition/Patient",
  "name": "Patient",
  "type": "Patient",
  "kind": "resource",
  "abstract": false,
  "derivation": "specialization",
  "baseDefinition": "http://hl7.org/fhir/StructureDefinition/DomainResource",
  "snapshot": {
    "element": [
      {"id": "Patient", "path": "Patient", "min": 0, "max": "*"},
      {"id": "Patient.active", "path": "Patient.active", "min": 0, "max": "1",
       "base": {"path": "Patient.active", "min": 0, "max": "1"},
       "type": [{"code": "boolean"}]},
      {"id": "Patient.deceased[x]", "path": "Patient.deceased[x]", "min": 0, "max": "1",
       "type": [{"code": "boolean"}, {"code": "dateTime"}]}
    ]
  }
}`

func TestDecode_StructureDefinition(t *testing.T) {
	r, err := Decode([]byte(patientJSON))
	require.NoError(t, err)

	sd, ok := r.(*StructureDefinition)
	require.True(t, ok, "got %T", r)

	assert.Equal(t, "Patient", sd.ResourceID())
	assert.Equal(t, StructureResource, sd.Kind)
	assert.Equal(t, DerivationSpecialization, sd.Derivation)
	assert.Equal(t, "http://hl7.org/fhir/StructureDefinition/DomainResource", sd.BaseDefinition)
	require.Len(t, sd.Snapshot.Element, 3)

	active := sd.Snapshot.Element[1]
	assert.Equal(t, "Patient.active", active.Path.String())
	assert.Equal(t, "1", active.Max)
	require.NotNil(t, active.Base)
	assert.Equal(t, "Patient.active", active.Base.Path)

	deceased := sd.Snapshot.Element[2]
	assert.Equal(t, []string{"boolean", "dateTime"}, deceased.Codes())
	assert.False(t, deceased.HasBackbone())
}

func TestDecode_Bundle(t *testing.T) {
	data := `{
	  "resourceType": "Bundle",
	  "id": "types",
	  "type": "collection",
	  "entry": [
	    {"resource": {"resourceType": "CodeSystem", "id": "cs"}},
	    {"resource": ` + patientJSON + `},
	    {"resource": {"resourceType": "ValueSet", "id": "vs", "url": "http://example.org/vs"}}
	  ]
	}`

	r, err := Decode([]byte(data))
	require.NoError(t, err)

	resources := Flatten(r)
	require.Len(t, resources, 3)
	assert.Equal(t, KindCodeSystem, resources[0].NodeKind())
	assert.Equal(t, KindStructureDefinition, resources[1].NodeKind())
	assert.Equal(t, KindValueSet, resources[2].NodeKind())
	assert.Equal(t, "vs", resources[2].ResourceID())
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"resourceType": "Patient", "id": "x"}`))
	assert.ErrorIs(t, err, ErrUnknownResourceType)

	_, err = Decode([]byte(`{"id": "x"}`))
	assert.ErrorIs(t, err, ErrUnknownResourceType)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"resourceType": "Bundle", "entry": [{"fullUrl": "x"}]}`))
	assert.Error(t, err)
}

func TestFlatten_SingleResource(t *testing.T) {
	sd := &StructureDefinition{ID: "x"}
	assert.Equal(t, []Resource{sd}, Flatten(sd))
}
