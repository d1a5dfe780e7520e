package runspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

// Load reads a spec from a YAML or JSON file. JSON is valid YAML, so the
// extension only matters for error messages.
func Load(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("failed to read run specification: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a spec. name is used in errors.
func Parse(data []byte, name string) (Spec, error) {
	var spec Spec
	if err := yaml.UnmarshalWithOptions(data, &spec, yaml.Strict()); err != nil {
		return Spec{}, pkerrors.NewConfigError("invalid run specification", err).WithFile(name)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks that every entry names a source and at least one test.
func (s Spec) Validate() error {
	switch s.TaskOrigin {
	case "", OriginManual, OriginBackground:
	default:
		return pkerrors.NewValidationError("taskOrigin", fmt.Sprintf("unknown origin %q", s.TaskOrigin)).
			WithExpected(string(OriginManual)+" or "+string(OriginBackground), string(s.TaskOrigin))
	}
	for i, e := range s.Tests {
		field := fmt.Sprintf("tests[%d]", i)
		switch e.Source.Kind {
		case descriptor.SourceDefault, descriptor.SourceInstalled:
		default:
			return pkerrors.NewValidationError(field+".source.kind", fmt.Sprintf("unknown source kind %q", e.Source.Kind))
		}
		if e.Source.Key == "" {
			return pkerrors.NewValidationError(field+".source.key", "key is empty")
		}
		if len(e.NetTests) == 0 && len(e.LongRunningNetTests) == 0 {
			return pkerrors.NewValidationError(field, "no net-tests selected")
		}
	}
	return nil
}

// Marshal encodes spec as JSON when asJSON is set, otherwise as YAML.
func Marshal(spec Spec, asJSON bool) ([]byte, error) {
	if asJSON {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(spec); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.MarshalWithOptions(spec, yaml.Indent(2))
}

// Write writes spec to path, as JSON for a .json extension and YAML
// otherwise.
func Write(path string, spec Spec) error {
	asJSON := strings.EqualFold(filepath.Ext(path), ".json")
	data, err := Marshal(spec, asJSON)
	if err != nil {
		return fmt.Errorf("failed to encode run specification: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run specification: %w", err)
	}
	return nil
}
