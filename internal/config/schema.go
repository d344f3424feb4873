package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema describes the Sentinelfile layout for editors and validators.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		ExpandedStruct:             true,
		FieldNameTag:               "toml",
		RequiredFromJSONSchemaTags: true,
	}
	s := reflector.Reflect(&File{})
	if s.Version == "" {
		s.Version = jsonschema.Version
	}
	s.Title = "Sentinelfile"
	return s
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
