package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://hl7.org/fhir/StructureDefinition/"

func sample() *Output {
	str := &Type{Kind: KindPrimitive, URL: base + "string", Name: "string"}
	boolean := &Type{Kind: KindPrimitive, URL: base + "boolean", Name: "boolean"}
	element := &Type{Kind: KindComplex, URL: base + "Element", Name: "Element"}
	humanName := &Type{Kind: KindComplex, URL: base + "HumanName", Name: "HumanName", Base: element,
		Properties: []Property{{Name: "family", Min: 0, Max: 1, Types: []*Type{str}}}}
	contact := &Type{Kind: KindComplex, URL: base + "Patient", Name: "PatientContact", Inline: true,
		Properties: []Property{{Name: "name", Min: 0, Max: 1, Types: []*Type{humanName}}}}
	patient := &Type{Kind: KindComplex, URL: base + "Patient", Name: "Patient", Base: element,
		Properties: []Property{
			{Name: "active", Min: 0, Max: 1, Types: []*Type{boolean}},
			{Name: "name", Min: 0, Max: Unbounded, Types: []*Type{humanName}},
			{Name: "deceased", Min: 0, Max: 1, Types: []*Type{boolean, str}},
			{Name: "contact", Min: 0, Max: Unbounded, Types: []*Type{contact}},
		}}

	return &Output{Types: []*Type{str, boolean, element, humanName, contact, patient}}
}

func TestType_Dependencies(t *testing.T) {
	out := sample()
	patient, ok := out.Lookup("Patient")
	require.True(t, ok)

	var names []string
	for _, d := range patient.Dependencies() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Element", "boolean", "HumanName", "string", "PatientContact"}, names)

	str, _ := out.Lookup("string")
	assert.Empty(t, str.Dependencies())
}

func TestType_Module(t *testing.T) {
	out := sample()
	str, _ := out.Lookup("string")
	contact, _ := out.Lookup("PatientContact")

	assert.Equal(t, "primitives", str.Module())
	assert.Equal(t, "patient", contact.Module())
}

func TestType_Ancestors(t *testing.T) {
	out := sample()
	hn, _ := out.Lookup("HumanName")
	require.Len(t, hn.Ancestors(), 1)
	assert.Equal(t, "Element", hn.Ancestors()[0].Name)
}

func TestProperty_Cardinality(t *testing.T) {
	out := sample()
	patient, _ := out.Lookup("Patient")

	name, ok := patient.Property("name")
	require.True(t, ok)
	assert.True(t, name.IsList())
	assert.True(t, name.IsOptional())
	assert.False(t, name.IsChoice())

	deceased, ok := patient.Property("deceased")
	require.True(t, ok)
	assert.True(t, deceased.IsChoice())
	assert.False(t, deceased.IsList())
	assert.Equal(t, []string{"boolean", "string"}, deceased.TypeNames())

	_, ok = patient.Property("missing")
	assert.False(t, ok)

	assert.True(t, Property{Max: 0}.IsProhibited())
}

func TestOutput_Families(t *testing.T) {
	out := sample()

	assert.Len(t, out.Primitives(), 2)
	assert.Len(t, out.Complex(), 4)

	families := out.Families()
	require.Len(t, families, 3)

	patient := families[2]
	assert.Equal(t, base+"Patient", patient.URL)
	require.Len(t, patient.Types, 2)
	assert.Equal(t, "PatientContact", patient.Types[0].Name)
	assert.Equal(t, "Patient", patient.Types[1].Name)
	assert.Equal(t, "patient", patient.Module())
	assert.Equal(t, []string{"humanname", "element", "primitives"}, patient.Imports())
}
