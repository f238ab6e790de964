package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const grievanceColumns = "id, user_id, user_name, user_role, subject, description, category, priority, status, assignee_id, assigned_to, replies, attachments, ai_insights, applied_rules, tags, rating, feedback, escalation_count, last_escalated_at, created_at, updated_at"

// grievanceRow is the storage shape; nested values live in JSONB columns.
type grievanceRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	UserName        string         `db:"user_name"`
	UserRole        string         `db:"user_role"`
	Subject         string         `db:"subject"`
	Description     string         `db:"description"`
	Category        string         `db:"category"`
	Priority        string         `db:"priority"`
	Status          string         `db:"status"`
	AssigneeID      sql.NullString `db:"assignee_id"`
	AssignedTo      types.JSONText `db:"assigned_to"`
	Replies         types.JSONText `db:"replies"`
	Attachments     types.JSONText `db:"attachments"`
	AIInsights      types.JSONText `db:"ai_insights"`
	AppliedRules    types.JSONText `db:"applied_rules"`
	Tags            types.JSONText `db:"tags"`
	Rating          sql.NullInt64  `db:"rating"`
	Feedback        sql.NullString `db:"feedback"`
	EscalationCount int            `db:"escalation_count"`
	LastEscalatedAt sql.NullTime   `db:"last_escalated_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// GrievanceRepository persists grievances in PostgreSQL.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs the repository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

// FindByID returns one grievance or sql.ErrNoRows.
func (r *GrievanceRepository) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	query := "SELECT " + grievanceColumns + " FROM grievances WHERE id = $1 LIMIT 1"
	var row grievanceRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find grievance: %w", err)
	}
	g, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// All returns every grievance in submission order.
func (r *GrievanceRepository) All(ctx context.Context) ([]models.Grievance, error) {
	return r.selectRows(ctx, psql.Select(grievanceColumns).From("grievances").OrderBy("created_at ASC", "id ASC"))
}

// Open returns Pending and In Progress grievances in submission order.
func (r *GrievanceRepository) Open(ctx context.Context) ([]models.Grievance, error) {
	return r.selectRows(ctx, psql.Select(grievanceColumns).
		From("grievances").
		Where(sq.Eq{"status": []string{string(models.StatusPending), string(models.StatusInProgress)}}).
		OrderBy("created_at ASC", "id ASC"))
}

// List returns a filtered page of grievances, newest first, with the total match count.
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	where := sq.And{}
	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, s := range filter.Status {
			statuses = append(statuses, string(s))
		}
		where = append(where, sq.Eq{"status": statuses})
	}
	if filter.Category != "" {
		where = append(where, sq.Eq{"category": string(filter.Category)})
	}
	if filter.Priority != "" {
		where = append(where, sq.Eq{"priority": string(filter.Priority)})
	}
	if filter.AssigneeID != "" {
		where = append(where, sq.Eq{"assignee_id": filter.AssigneeID})
	}
	if filter.UserID != "" {
		where = append(where, sq.Eq{"user_id": filter.UserID})
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	items, err := r.selectRows(ctx, psql.Select(grievanceColumns).
		From("grievances").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page-1)*pageSize)))
	if err != nil {
		return nil, 0, err
	}

	countQuery, args, err := psql.Select("COUNT(*)").From("grievances").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build grievance count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}
	return items, total, nil
}

// Create inserts a grievance, assigning an id and timestamps when missing.
func (r *GrievanceRepository) Create(ctx context.Context, g *models.Grievance) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.Before(g.CreatedAt) {
		g.UpdatedAt = g.CreatedAt
	}

	row, err := fromGrievance(*g)
	if err != nil {
		return err
	}
	const query = `INSERT INTO grievances (id, user_id, user_name, user_role, subject, description, category, priority, status, assignee_id, assigned_to, replies, attachments, ai_insights, applied_rules, tags, rating, feedback, escalation_count, last_escalated_at, created_at, updated_at)
VALUES (:id, :user_id, :user_name, :user_role, :subject, :description, :category, :priority, :status, :assignee_id, :assigned_to, :replies, :attachments, :ai_insights, :applied_rules, :tags, :rating, :feedback, :escalation_count, :last_escalated_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create grievance: %w", err)
	}
	return nil
}

// Update writes every mutable column of the grievance.
func (r *GrievanceRepository) Update(ctx context.Context, g *models.Grievance) error {
	row, err := fromGrievance(*g)
	if err != nil {
		return err
	}
	const query = `UPDATE grievances SET subject = :subject, description = :description, category = :category, priority = :priority, status = :status, assignee_id = :assignee_id, assigned_to = :assigned_to, replies = :replies, attachments = :attachments, ai_insights = :ai_insights, applied_rules = :applied_rules, tags = :tags, rating = :rating, feedback = :feedback, escalation_count = :escalation_count, last_escalated_at = :last_escalated_at, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update grievance: %w", err)
	}
	return expectAffected(res)
}

func (r *GrievanceRepository) selectRows(ctx context.Context, builder sq.SelectBuilder) ([]models.Grievance, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build grievance query: %w", err)
	}
	var rows []grievanceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select grievances: %w", err)
	}
	out := make([]models.Grievance, 0, len(rows))
	for _, row := range rows {
		g, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func fromGrievance(g models.Grievance) (grievanceRow, error) {
	row := grievanceRow{
		ID:              g.ID,
		UserID:          g.UserID,
		UserName:        g.UserName,
		UserRole:        g.UserRole,
		Subject:         g.Subject,
		Description:     g.Description,
		Category:        string(g.Category),
		Priority:        string(g.Priority),
		Status:          string(g.Status),
		EscalationCount: g.EscalationCount,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
	if g.AssignedTo != nil {
		row.AssigneeID = sql.NullString{String: g.AssignedTo.ID, Valid: true}
	}
	if g.Rating != nil {
		row.Rating = sql.NullInt64{Int64: int64(*g.Rating), Valid: true}
	}
	if g.Feedback != nil {
		row.Feedback = sql.NullString{String: *g.Feedback, Valid: true}
	}
	if g.LastEscalatedAt != nil {
		row.LastEscalatedAt = sql.NullTime{Time: *g.LastEscalatedAt, Valid: true}
	}

	var err error
	if row.AssignedTo, err = encodeJSON(g.AssignedTo); err != nil {
		return row, err
	}
	if row.Replies, err = encodeJSON(nonNil(g.Replies)); err != nil {
		return row, err
	}
	if row.Attachments, err = encodeJSON(nonNil(g.Attachments)); err != nil {
		return row, err
	}
	if row.AIInsights, err = encodeJSON(g.AIInsights); err != nil {
		return row, err
	}
	if row.AppliedRules, err = encodeJSON(nonNil(g.AppliedRules)); err != nil {
		return row, err
	}
	if row.Tags, err = encodeJSON(nonNil(g.Tags)); err != nil {
		return row, err
	}
	return row, nil
}

func (row grievanceRow) toModel() (models.Grievance, error) {
	g := models.Grievance{
		ID:              row.ID,
		UserID:          row.UserID,
		UserName:        row.UserName,
		UserRole:        row.UserRole,
		Subject:         row.Subject,
		Description:     row.Description,
		Category:        models.GrievanceCategory(row.Category),
		Priority:        models.Priority(row.Priority),
		Status:          models.GrievanceStatus(row.Status),
		EscalationCount: row.EscalationCount,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.Rating.Valid {
		rating := int(row.Rating.Int64)
		g.Rating = &rating
	}
	if row.Feedback.Valid {
		feedback := row.Feedback.String
		g.Feedback = &feedback
	}
	if row.LastEscalatedAt.Valid {
		ts := row.LastEscalatedAt.Time
		g.LastEscalatedAt = &ts
	}

	var assignee models.Assignee
	if err := decodeJSON(row.AssignedTo, &assignee); err != nil {
		return g, fmt.Errorf("decode assigned_to for %s: %w", row.ID, err)
	}
	if assignee.ID != "" {
		g.AssignedTo = &assignee
	}
	var insights models.AIInsights
	if err := decodeJSON(row.AIInsights, &insights); err != nil {
		return g, fmt.Errorf("decode ai_insights for %s: %w", row.ID, err)
	}
	if insights != (models.AIInsights{}) {
		g.AIInsights = &insights
	}
	if err := decodeJSON(row.Replies, &g.Replies); err != nil {
		return g, fmt.Errorf("decode replies for %s: %w", row.ID, err)
	}
	if err := decodeJSON(row.Attachments, &g.Attachments); err != nil {
		return g, fmt.Errorf("decode attachments for %s: %w", row.ID, err)
	}
	if err := decodeJSON(row.AppliedRules, &g.AppliedRules); err != nil {
		return g, fmt.Errorf("decode applied_rules for %s: %w", row.ID, err)
	}
	if err := decodeJSON(row.Tags, &g.Tags); err != nil {
		return g, fmt.Errorf("decode tags for %s: %w", row.ID, err)
	}
	return g, nil
}

func encodeJSON(v interface{}) (types.JSONText, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return types.JSONText(raw), nil
}

func decodeJSON(raw types.JSONText, dest interface{}) error {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
