package config

// DefaultBaseURL is the canonical base of the FHIR core definitions.
const DefaultBaseURL = "http://hl7.org/fhir"

// DefaultPreset is the embedded preset used when no template root is given.
const DefaultPreset = "gostruct"

// DefaultSource returns the R4 definition archive with its type and
// resource bundles.
func DefaultSource() SourceConfig {
	return SourceConfig{
		URL:     "https://hl7.org/fhir/R4/definitions.json.zip",
		Version: "4.0.1",
		Sources: []string{
			"profiles-types.json",
			"profiles-resources.json",
		},
	}
}

// systemTypes maps FHIRPath system types to the FHIR primitive that carries
// them.
var systemTypes = map[string]string{
	"http://hl7.org/fhirpath/System.String":   "string",
	"http://hl7.org/fhirpath/System.Boolean":  "boolean",
	"http://hl7.org/fhirpath/System.Integer":  "integer",
	"http://hl7.org/fhirpath/System.Decimal":  "decimal",
	"http://hl7.org/fhirpath/System.Date":     "date",
	"http://hl7.org/fhirpath/System.DateTime": "dateTime",
	"http://hl7.org/fhirpath/System.Time":     "time",
}

// DefaultMappings returns the rename table sending FHIRPath system type
// urls to the primitive StructureDefinitions under baseURL.
func DefaultMappings(baseURL string) map[string]string {
	mappings := make(map[string]string, len(systemTypes))
	for system, primitive := range systemTypes {
		mappings[system] = baseURL + "/StructureDefinition/" + primitive
	}
	return mappings
}

// DefaultVariables returns the template variables every run starts with.
func DefaultVariables() map[string]any {
	return map[string]any{
		"package_name": "fhir",
	}
}
