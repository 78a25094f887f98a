/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// language=JSON
const appConfigSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["config_version", "script", "build", "logging"],
  "properties": {
    "config_version": {"type": "integer", "minimum": 1},
    "script": {
      "type": "object",
      "required": ["character_delim", "syntax"],
      "properties": {
        "character_delim": {"type": "string", "minLength": 1},
        "syntax": {
          "type": "object",
          "required": ["ignore", "call", "jump"],
          "properties": {
            "ignore": {"type": "string", "minLength": 1},
            "call": {"type": "string", "minLength": 1},
            "jump": {"type": "string", "minLength": 1}
          }
        },
        "characters": {
          "type": ["object", "null"],
          "additionalProperties": {"type": "string", "minLength": 1, "pattern": "^\\S+$"}
        }
      }
    },
    "build": {
      "type": "object",
      "properties": {
        "ext": {"type": "string", "pattern": "^\\.[A-Za-z0-9]+$"},
        "workers": {"type": "integer", "minimum": 0, "maximum": 256}
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "warning", "error"]},
        "format": {"enum": ["console", "json"]}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(appConfigSchema)

// Validate checks cfg against the config schema and the script option rules.
func Validate(cfg AppConfig) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	if err := cfg.Script.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
