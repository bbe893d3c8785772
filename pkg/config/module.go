package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	J "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

var ErrUnsupportedFormat = errors.New("not in a valid format")

func buildYAML(ctx *cue.Context, name string, data []byte) (cue.Value, error) {
	file, err := yaml.Extract(name, data)
	if err != nil {
		return cue.Value{}, err
	}

	value := ctx.BuildFile(file)
	return value, value.Err()
}

func buildJSON(ctx *cue.Context, name string, data []byte) (cue.Value, error) {
	expr, err := J.Extract(name, data)
	if err != nil {
		return cue.Value{}, err
	}

	value := ctx.BuildExpr(expr)
	return value, value.Err()
}

func readFile(ctx *cue.Context, path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, err
	}

	switch filepath.Ext(path) {
	case ".json":
		return buildJSON(ctx, path, data)
	case ".yaml", ".yml":
		return buildYAML(ctx, path, data)
	}

	return cue.Value{}, ErrUnsupportedFormat
}

// Process reads the provided configuration files in order and unifies them
// with the schema, which supplies defaults for anything left unset. With no
// files the embedded default configuration is used.
func Process(configPaths []string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaFile)
	if err := schema.Err(); err != nil {
		return nil, err
	}

	if len(configPaths) == 0 {
		value, err := buildYAML(ctx, "<default>", DEFAULT)
		if err != nil {
			return nil, err
		}

		schema = schema.Unify(value)
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf("invalid default config file: %w", err)
		}
	}

	for _, path := range configPaths {
		value, err := readFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("could not process config file %s: %w", path, err)
		}

		schema = schema.Unify(value)
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf("could not merge config file %s: %w", path, err)
		}

		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("config file %s is not valid: %w", path, err)
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("could not aggregate config: %w", err)
	}

	config := Config{}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if _, err := config.Movement.Tuning(); err != nil {
		return nil, err
	}
	if _, err := config.Region.MasterID(); err != nil {
		return nil, err
	}

	return &config, nil
}
