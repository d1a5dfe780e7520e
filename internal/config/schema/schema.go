// Package schema embeds the CUE schema of the probekit config file.
package schema

import _ "embed"

// SchemaCUE is the schema placed next to config.cue by init.
//
//go:embed schema.cue
var SchemaCUE string
