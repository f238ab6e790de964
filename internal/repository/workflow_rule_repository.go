package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/oklog/ulid/v2"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const workflowRuleColumns = "id, name, description, enabled, priority, conditions, actions, created_by, created_at, updated_at"

type workflowRuleRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Enabled     bool           `db:"enabled"`
	Priority    int            `db:"priority"`
	Conditions  types.JSONText `db:"conditions"`
	Actions     types.JSONText `db:"actions"`
	CreatedBy   string         `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// WorkflowRuleRepository stores automation rules.
type WorkflowRuleRepository struct {
	db *sqlx.DB
}

// NewWorkflowRuleRepository constructs the repository.
func NewWorkflowRuleRepository(db *sqlx.DB) *WorkflowRuleRepository {
	return &WorkflowRuleRepository{db: db}
}

// List returns every rule ordered by priority, then id.
func (r *WorkflowRuleRepository) List(ctx context.Context) ([]models.WorkflowRule, error) {
	query := "SELECT " + workflowRuleColumns + " FROM workflow_rules ORDER BY priority ASC, id ASC"
	var rows []workflowRuleRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list workflow rules: %w", err)
	}
	out := make([]models.WorkflowRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// Get returns one rule or sql.ErrNoRows.
func (r *WorkflowRuleRepository) Get(ctx context.Context, id string) (*models.WorkflowRule, error) {
	query := "SELECT " + workflowRuleColumns + " FROM workflow_rules WHERE id = $1"
	var row workflowRuleRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get workflow rule: %w", err)
	}
	rule, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Count returns the number of stored rules.
func (r *WorkflowRuleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM workflow_rules"); err != nil {
		return 0, fmt.Errorf("count workflow rules: %w", err)
	}
	return n, nil
}

// Create inserts a rule. Rules without an id receive a ULID.
func (r *WorkflowRuleRepository) Create(ctx context.Context, rule *models.WorkflowRule) error {
	if rule.ID == "" {
		rule.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	row, err := fromWorkflowRule(*rule)
	if err != nil {
		return err
	}
	const query = `INSERT INTO workflow_rules (id, name, description, enabled, priority, conditions, actions, created_by, created_at, updated_at) VALUES (:id, :name, :description, :enabled, :priority, :conditions, :actions, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create workflow rule: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a rule.
func (r *WorkflowRuleRepository) Update(ctx context.Context, rule *models.WorkflowRule) error {
	rule.UpdatedAt = time.Now().UTC()
	row, err := fromWorkflowRule(*rule)
	if err != nil {
		return err
	}
	const query = `UPDATE workflow_rules SET name = :name, description = :description, enabled = :enabled, priority = :priority, conditions = :conditions, actions = :actions, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update workflow rule: %w", err)
	}
	return expectAffected(res)
}

// SetEnabled toggles a rule on or off.
func (r *WorkflowRuleRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE workflow_rules SET enabled = $1, updated_at = $2 WHERE id = $3`, enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("toggle workflow rule: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a rule.
func (r *WorkflowRuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workflow_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow rule: %w", err)
	}
	return expectAffected(res)
}

func fromWorkflowRule(rule models.WorkflowRule) (workflowRuleRow, error) {
	row := workflowRuleRow{
		ID:          rule.ID,
		Name:        rule.Name,
		Description: rule.Description,
		Enabled:     rule.Enabled,
		Priority:    rule.Priority,
		CreatedBy:   rule.CreatedBy,
		CreatedAt:   rule.CreatedAt,
		UpdatedAt:   rule.UpdatedAt,
	}
	var err error
	if row.Conditions, err = encodeJSON(nonNil(rule.Conditions)); err != nil {
		return row, err
	}
	if row.Actions, err = encodeJSON(nonNil(rule.Actions)); err != nil {
		return row, err
	}
	return row, nil
}

func (row workflowRuleRow) toModel() (models.WorkflowRule, error) {
	rule := models.WorkflowRule{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Enabled:     row.Enabled,
		Priority:    row.Priority,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if err := decodeJSON(row.Conditions, &rule.Conditions); err != nil {
		return rule, fmt.Errorf("decode conditions for %s: %w", row.ID, err)
	}
	if err := decodeJSON(row.Actions, &rule.Actions); err != nil {
		return rule, fmt.Errorf("decode actions for %s: %w", row.ID, err)
	}
	return rule, nil
}
