package schemas

import _ "embed"

// ConfigSchemaJSON is the JSON schema for .streamauc.yaml.
//
//go:embed config.schema.json
var ConfigSchemaJSON string
