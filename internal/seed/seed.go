// Package seed ships the default workflow rules and reads rule files.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

//go:embed default_rules.yaml
var defaultRules []byte

// DefaultRules returns a fresh copy of the built-in rule set.
func DefaultRules() ([]models.WorkflowRule, error) {
	var rules []models.WorkflowRule
	if err := yaml.Unmarshal(defaultRules, &rules); err != nil {
		return nil, fmt.Errorf("decode default rules: %w", err)
	}
	return rules, nil
}

// ReadRules decodes a YAML or JSON list of rules.
func ReadRules(r io.Reader) ([]models.WorkflowRule, error) {
	var rules []models.WorkflowRule
	if err := yaml.NewDecoder(r).Decode(&rules); err != nil {
		if errors.Is(err, io.EOF) {
			return []models.WorkflowRule{}, nil
		}
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return rules, nil
}
