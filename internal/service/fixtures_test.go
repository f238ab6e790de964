package service

import (
	"fmt"
	"time"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func categoryPtr(c models.GrievanceCategory) *models.GrievanceCategory { return &c }

func testUsers() []models.User {
	return []models.User{
		{ID: "s1", Name: "Asha", Email: "asha@example.edu", Role: models.RoleStudent, Department: "CSE"},
		{ID: "f1", Name: "Ravi", Email: "ravi@example.edu", Role: models.RoleFaculty, Department: "CSE"},
		{ID: "h1", Name: "Meera", Email: "meera@example.edu", Role: models.RoleHOD, Department: "CSE"},
		{ID: "d1", Name: "Kiran", Email: "kiran@example.edu", Role: models.RoleDeptAdmin, Department: "Finance", AssignedCategory: categoryPtr(models.CategoryFinancial)},
		{ID: "c1", Name: "Nisha", Email: "nisha@example.edu", Role: models.RoleFaculty, Department: "ECE", AssignedCategory: categoryPtr(models.CategoryAcademic)},
		{ID: "s2", Name: "Vikram", Email: "vikram@example.edu", Role: models.RoleStudent, Department: "MECH"},
	}
}

func newGrievance(id string, age time.Duration, opts ...func(*models.Grievance)) models.Grievance {
	created := testNow.Add(-age)
	g := models.Grievance{
		ID:          id,
		UserID:      "s1",
		UserName:    "Asha",
		Subject:     "Subject " + id,
		Description: "Description " + id,
		Category:    models.CategoryGeneral,
		Priority:    models.PriorityMedium,
		Status:      models.StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func withCategory(c models.GrievanceCategory) func(*models.Grievance) {
	return func(g *models.Grievance) { g.Category = c }
}

func withPriority(p models.Priority) func(*models.Grievance) {
	return func(g *models.Grievance) { g.Priority = p }
}

func withStatus(s models.GrievanceStatus) func(*models.Grievance) {
	return func(g *models.Grievance) { g.Status = s }
}

func withSubmitter(id, name string) func(*models.Grievance) {
	return func(g *models.Grievance) {
		g.UserID = id
		g.UserName = name
	}
}

func withAssignee(id, name string) func(*models.Grievance) {
	return func(g *models.Grievance) { g.AssignedTo = &models.Assignee{ID: id, Name: name} }
}

func withSentiment(s models.Sentiment) func(*models.Grievance) {
	return func(g *models.Grievance) { g.AIInsights = &models.AIInsights{Sentiment: s} }
}

// resolvedAfter marks the grievance resolved the given number of days after creation.
func resolvedAfter(days float64) func(*models.Grievance) {
	return func(g *models.Grievance) {
		g.Status = models.StatusResolved
		g.UpdatedAt = g.CreatedAt.Add(time.Duration(days * float64(day)))
	}
}
