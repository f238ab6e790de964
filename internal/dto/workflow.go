package dto

import "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"

// RuleRequest creates or replaces a workflow rule.
type RuleRequest struct {
	Name        string                 `json:"name" validate:"required,max=120"`
	Description string                 `json:"description" validate:"max=500"`
	Enabled     *bool                  `json:"enabled"`
	Priority    int                    `json:"priority" validate:"min=0"`
	Conditions  []models.RuleCondition `json:"conditions" validate:"required,min=1,dive"`
	Actions     []models.RuleAction    `json:"actions" validate:"required,min=1,dive"`
}

// ToggleRuleRequest flips a rule on or off.
type ToggleRuleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SweepResult summarises a pass over open grievances.
type SweepResult struct {
	Evaluated int `json:"evaluated"`
	Changed   int `json:"changed"`
	Failed    int `json:"failed"`
}
