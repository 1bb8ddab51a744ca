/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package catalog

import (
	"context"
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ai4os/ai4-papi/pkg/errors"
)

//go:embed etc/*.yaml
var schemaFS embed.FS

// Field is one user-facing parameter of a config schema.
type Field struct {
	Name        string        `json:"name" yaml:"name"`
	Value       interface{}   `json:"value" yaml:"value"`
	Options     []interface{} `json:"options,omitempty" yaml:"options,omitempty"`
	Range       []float64     `json:"range,omitempty" yaml:"range,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// Section groups fields, e.g. "general", "hardware", "storage".
type Section map[string]Field

// ConfSchema is the whole user-facing parameter schema of a workload kind.
type ConfSchema map[string]Section

// UserConf is a user's submitted parameter map, section -> field -> value.
type UserConf map[string]map[string]interface{}

var schemaFiles = map[Kind]string{
	KindModule: "etc/module.yaml",
	KindTool:   "etc/tool.yaml",
}

// batch jobs deploy catalog modules, so batch is not a catalog kind of its
// own and keeps its schema aside
const batchSchemaFile = "etc/batch.yaml"

func loadSchema(file string) (ConfSchema, error) {
	data, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("missing embedded schema %s: %v", file, err))
	}
	var schema ConfSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed embedded schema %s: %v", file, err))
	}
	return schema, nil
}

// KindSchemas returns the raw per-kind parameter schemas, without any
// catalog item's defaults filled in.
func KindSchemas() (map[string]ConfSchema, error) {
	out := make(map[string]ConfSchema, len(schemaFiles)+1)
	for kind, file := range schemaFiles {
		schema, err := loadSchema(file)
		if err != nil {
			return nil, err
		}
		out[string(kind)] = schema
	}
	batch, err := loadSchema(batchSchemaFile)
	if err != nil {
		return nil, err
	}
	out["batch"] = batch
	return out, nil
}

// ConfigSchema returns the schema of one catalog item, with the item's
// docker image and tags filled in as defaults.
func ConfigSchema(ctx context.Context, cat Catalog, kind Kind, name string) (ConfSchema, error) {
	file, ok := schemaFiles[kind]
	if !ok {
		return nil, errors.NewBadRequest(fmt.Sprintf("unknown catalog kind %q", kind))
	}
	schema, err := loadSchema(file)
	if err != nil {
		return nil, err
	}
	meta, err := cat.Metadata(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	general := schema["general"]
	if f, ok := general["docker_image"]; ok {
		f.Value = meta.DockerImage
		general["docker_image"] = f
	}
	if f, ok := general["docker_tag"]; ok && len(meta.DockerTags) > 0 {
		f.Value = meta.DockerTags[0]
		f.Options = make([]interface{}, len(meta.DockerTags))
		for i, tag := range meta.DockerTags {
			f.Options[i] = tag
		}
		general["docker_tag"] = f
	}
	return schema, nil
}

// BatchSchema returns the batch-inference schema for a catalog module.
func BatchSchema(ctx context.Context, cat Catalog, name string) (ConfSchema, error) {
	schema, err := loadSchema(batchSchemaFile)
	if err != nil {
		return nil, err
	}
	meta, err := cat.Metadata(ctx, KindModule, name)
	if err != nil {
		return nil, err
	}
	general := schema["general"]
	if f, ok := general["docker_image"]; ok {
		f.Value = meta.DockerImage
		general["docker_image"] = f
	}
	return schema, nil
}

// Validate checks a submitted parameter map against a schema: unknown fields
// are rejected, closed option sets and numeric ranges are enforced. The
// returned error names the offending field.
func Validate(schema ConfSchema, conf UserConf) error {
	for sectionName, fields := range conf {
		section, ok := schema[sectionName]
		if !ok {
			return errors.NewBadRequest(fmt.Sprintf("unknown config section %q", sectionName))
		}
		for fieldName, value := range fields {
			field, ok := section[fieldName]
			if !ok {
				return errors.NewBadRequest(fmt.Sprintf("unknown field %q in section %q", fieldName, sectionName))
			}
			if err := validateValue(sectionName, fieldName, field, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateValue(section, name string, field Field, value interface{}) error {
	if len(field.Options) > 0 {
		for _, opt := range field.Options {
			if fmt.Sprintf("%v", opt) == fmt.Sprintf("%v", value) {
				return nil
			}
		}
		return errors.NewBadRequest(fmt.Sprintf(
			"%s.%s: value %v is not among the allowed options %v", section, name, value, field.Options))
	}
	if len(field.Range) == 2 {
		num, ok := toFloat(value)
		if !ok {
			return errors.NewBadRequest(fmt.Sprintf("%s.%s: value %v is not a number", section, name, value))
		}
		if num < field.Range[0] || num > field.Range[1] {
			return errors.NewBadRequest(fmt.Sprintf(
				"%s.%s: value %v is out of range [%v, %v]", section, name, value, field.Range[0], field.Range[1]))
		}
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Merge applies the user's values over the schema defaults and returns the
// effective value map, section -> field -> value.
func Merge(schema ConfSchema, conf UserConf) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(schema))
	for sectionName, fields := range schema {
		section := make(map[string]interface{}, len(fields))
		for fieldName, field := range fields {
			section[fieldName] = field.Value
		}
		out[sectionName] = section
	}
	for sectionName, fields := range conf {
		if _, ok := out[sectionName]; !ok {
			continue
		}
		for fieldName, value := range fields {
			if _, ok := out[sectionName][fieldName]; ok {
				out[sectionName][fieldName] = value
			}
		}
	}
	return out
}
