package categorize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rico-rbls/smart-budget-tracker/constants"
)

// configFile is the on-disk shape of a keyword table override. Category
// order in the file becomes the matching order.
type configFile struct {
	Categories []struct {
		Name     string   `json:"name"`
		Keywords []string `json:"keywords"`
	} `json:"categories"`
}

func keywordSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"categories"},
		"properties": map[string]any{
			"categories": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "keywords"},
					"properties": map[string]any{
						"name": map[string]any{
							"type": "string",
							"enum": constants.AsStringSlice(),
						},
						"keywords": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items":    map[string]any{"type": "string", "minLength": 1},
						},
					},
				},
			},
		},
	}
}

// NewFromConfigFile builds a categorizer from a JSON keyword file, validated
// against the embedded schema before use.
func NewFromConfigFile(path string, logger *slog.Logger) (*Categorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword config: %w", err)
	}
	if err := validateKeywordConfig(data); err != nil {
		return nil, err
	}

	var cfg configFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode keyword config: %w", err)
	}

	rules := make([]rule, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		cat, ok := constants.Canonicalize(c.Name)
		if !ok {
			return nil, fmt.Errorf("keyword config: unknown category %q", c.Name)
		}
		rules = append(rules, rule{category: cat, keywords: normalizeKeywords(c.Keywords)})
	}

	logger.Info("keyword table loaded", "path", path, "categories", len(rules))
	return &Categorizer{rules: rules, logger: logger}, nil
}

func validateKeywordConfig(data []byte) error {
	b, err := json.Marshal(keywordSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("keywords.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("keywords.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("parse keyword config: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("keyword config does not match schema: %w", err)
	}
	return nil
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		k := normalizeKeyword(kw)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
