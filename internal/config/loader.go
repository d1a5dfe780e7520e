package config

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/probekit/probekit/internal/config/schema"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

// Loader evaluates config.cue against the embedded schema.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	ctx := cuecontext.New()
	return &Loader{
		ctx:    ctx,
		schema: ctx.CompileString(schema.SchemaCUE, cue.Filename(SchemaFileName)),
	}
}

// Parse evaluates CUE source and returns the config block with schema
// defaults filled in. A source without a config block yields the defaults.
// name is used for error positions.
func (l *Loader) Parse(data []byte, name string) (*Config, error) {
	if err := l.schema.Err(); err != nil {
		return nil, pkerrors.NewConfigError("invalid embedded schema", err).WithFile(SchemaFileName)
	}

	value := l.ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, configError("failed to parse config", err, name)
	}

	if !value.LookupPath(cue.ParsePath("config")).Exists() {
		return DefaultConfig(), nil
	}

	unified := l.schema.Unify(value)
	if err := unified.Err(); err != nil {
		return nil, configError("config does not match schema", err, name)
	}

	configValue := unified.LookupPath(cue.ParsePath("config"))
	if err := configValue.Validate(); err != nil {
		return nil, configError("config does not match schema", err, name)
	}

	var cfg Config
	if err := configValue.Decode(&cfg); err != nil {
		return nil, configError("failed to decode config", err, name)
	}
	if _, err := cfg.Interval(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configError attaches the first CUE error position to a ConfigError.
func configError(message string, err error, name string) *pkerrors.ConfigError {
	cfgErr := pkerrors.NewConfigError(message, err).WithFile(name)
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		if pos := errs[0].Position(); pos.IsValid() {
			cfgErr.WithLocation(pos.Line(), pos.Column())
		}
	}
	return cfgErr
}
