package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const settingsSchemaURL = "https://github.com/cmsfix/https-migrator/settings.schema.json"

//go:embed settings.schema.json
var settingsSchemaJSON []byte

var (
	compileOnce    sync.Once
	settingsSchema *jsonschema.Schema
	compileErr     error
)

// Settings is the optional YAML settings file. Every key may be omitted.
type Settings struct {
	BaseURL     string `yaml:"base_url"`
	Environment string `yaml:"environment"`
	PageSize    int    `yaml:"page_size"`
	AuditIndex  string `yaml:"audit_index"`
	DryRun      bool   `yaml:"dry_run"`
}

func (s *Settings) apply(cfg *Config) {
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	if s.Environment != "" {
		cfg.Environment = s.Environment
	}
	if s.PageSize > 0 {
		cfg.PageSize = s.PageSize
	}
	if s.AuditIndex != "" {
		cfg.AuditIndex = s.AuditIndex
	}
	cfg.DryRun = cfg.DryRun || s.DryRun
}

// LoadSettings reads and validates a YAML settings file
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Problems: []string{err.Error()}}
	}
	return parseSettings(path, data)
}

func parseSettings(path string, data []byte) (*Settings, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{File: path, Problems: []string{err.Error()}}
	}
	if doc == nil {
		// Empty file
		return &Settings{}, nil
	}

	if problems := validateSettings(doc); len(problems) > 0 {
		return nil, &Error{File: path, Problems: problems}
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &Error{File: path, Problems: []string{err.Error()}}
	}
	return &s, nil
}

func compileSettingsSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(settingsSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse settings schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(settingsSchemaURL, schemaDoc); err != nil {
			compileErr = fmt.Errorf("add settings schema: %w", err)
			return
		}
		settingsSchema, compileErr = compiler.Compile(settingsSchemaURL)
	})
	return settingsSchema, compileErr
}

// validateSettings checks a decoded YAML document against the embedded schema
func validateSettings(doc map[string]interface{}) []string {
	schema, err := compileSettingsSchema()
	if err != nil {
		return []string{err.Error()}
	}

	// Round-trip through JSON so the validator sees JSON numbers and plain maps
	raw, err := json.Marshal(doc)
	if err != nil {
		return []string{err.Error()}
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return []string{err.Error()}
	}

	if err := schema.Validate(instance); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return schemaProblems(validationErr)
		}
		return []string{err.Error()}
	}
	return nil
}

// schemaProblems flattens a validation error tree into one line per failing location
func schemaProblems(validationErr *jsonschema.ValidationError) []string {
	if len(validationErr.Causes) == 0 {
		path := "$"
		if len(validationErr.InstanceLocation) > 0 {
			path = "$." + strings.Join(validationErr.InstanceLocation, ".")
		}
		return []string{fmt.Sprintf("%s: %s", path, lastLine(validationErr.Error()))}
	}

	var problems []string
	for _, cause := range validationErr.Causes {
		problems = append(problems, schemaProblems(cause)...)
	}
	return problems
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimLeft(s, "- ")
}
