package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

var workflowRuleRowColumns = []string{"id", "name", "description", "enabled", "priority", "conditions", "actions", "created_by", "created_at", "updated_at"}

func TestListWorkflowRules(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkflowRuleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(workflowRuleRowColumns).
		AddRow("rule-1", "Route academic", "", true, 1,
			[]byte(`[{"field":"category","operator":"equals","value":"Academic"}]`),
			[]byte(`[{"type":"assign","targetRole":"HOD"}]`), "admin", now, now).
		AddRow("rule-2", "Escalate old", "", false, 2,
			[]byte(`[{"field":"priority","operator":"includes","value":["High","Medium"]}]`),
			[]byte(`[{"type":"escalate"}]`), "admin", now, now)
	mock.ExpectQuery("FROM workflow_rules ORDER BY priority ASC, id ASC").WillReturnRows(rows)

	rules, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, models.FieldCategory, rules[0].Conditions[0].Field)
	assert.Equal(t, "Academic", rules[0].Conditions[0].Value.String())
	assert.Equal(t, models.ActionAssign, rules[0].Actions[0].Type)
	assert.True(t, rules[1].Conditions[0].Value.IsSet())
	assert.Contains(t, rules[1].Conditions[0].Value.Values, "Medium")
	assert.False(t, rules[1].Enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWorkflowRuleNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkflowRuleRepository(db)

	mock.ExpectQuery("FROM workflow_rules WHERE id = \\$1").WithArgs("x").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "x")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateWorkflowRuleAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkflowRuleRepository(db)

	mock.ExpectExec("INSERT INTO workflow_rules").WillReturnResult(sqlmock.NewResult(1, 1))

	rule := &models.WorkflowRule{Name: "Tag hostel", Enabled: true}
	require.NoError(t, repo.Create(context.Background(), rule))
	assert.Len(t, rule.ID, 26)
	assert.NoError(t, mock.ExpectationsWereMet())

	row, err := fromWorkflowRule(*rule)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(row.Conditions))
	assert.Equal(t, "[]", string(row.Actions))
}

func TestSetEnabledAndDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkflowRuleRepository(db)

	mock.ExpectExec("UPDATE workflow_rules SET enabled = \\$1").
		WithArgs(false, sqlmock.AnyArg(), "rule-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM workflow_rules").
		WithArgs("rule-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetEnabled(context.Background(), "rule-1", false))
	assert.ErrorIs(t, repo.Delete(context.Background(), "rule-9"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountWorkflowRules(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkflowRuleRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM workflow_rules").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
