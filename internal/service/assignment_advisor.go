package service

import (
	"math"
	"time"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

// DefaultSLAHours is the response window before an open grievance is considered overdue.
const DefaultSLAHours = 24

// LeastBusyMember returns the candidate with the fewest open grievances assigned.
// Ties resolve to the first candidate encountered; nil when there are no candidates.
func LeastBusyMember(candidates []models.User, grievances []models.Grievance) *models.User {
	if len(candidates) == 0 {
		return nil
	}
	best := -1
	bestCount := math.MaxInt
	for i, candidate := range candidates {
		count := 0
		for _, g := range grievances {
			if g.AssignedTo != nil && g.AssignedTo.ID == candidate.ID && g.Status.IsOpen() {
				count++
			}
		}
		if count < bestCount {
			best, bestCount = i, count
		}
	}
	user := candidates[best]
	return &user
}

// EligibleAssignees resolves staff for a grievance: cell leads of its category first,
// then staff of the submitter's department, then all staff.
func EligibleAssignees(grievance models.Grievance, users []models.User) []models.User {
	byCategory := filterStaff(users, func(u models.User) bool {
		return u.OwnsCategory(grievance.Category)
	})
	if len(byCategory) > 0 {
		return byCategory
	}

	if submitter := findUser(users, grievance.UserID); submitter != nil {
		byDepartment := filterStaff(users, func(u models.User) bool {
			return u.Department == submitter.Department
		})
		if len(byDepartment) > 0 {
			return byDepartment
		}
	}

	return filterStaff(users, func(models.User) bool { return true })
}

// NeedsEscalation reports whether an open grievance has exceeded the SLA window.
// A zero window makes any elapsed time overdue; negative slaHours fall back to DefaultSLAHours.
func NeedsEscalation(grievance models.Grievance, slaHours int, now time.Time) bool {
	if grievance.Status.IsClosed() {
		return false
	}
	if slaHours < 0 {
		slaHours = DefaultSLAHours
	}
	elapsed := now.Sub(grievance.CreatedAt).Hours()
	return elapsed > float64(slaHours)
}

// CalculateEscalationMetrics summarises escalation counters across grievances.
func CalculateEscalationMetrics(grievances []models.Grievance) models.EscalationMetrics {
	var metrics models.EscalationMetrics
	for _, g := range grievances {
		if g.EscalationCount > 0 {
			metrics.EscalatedCount++
		}
		metrics.TotalEscalations += g.EscalationCount
	}
	if len(grievances) > 0 {
		metrics.AverageEscalationsPerGrievance = roundTo(float64(metrics.TotalEscalations)/float64(len(grievances)), 2)
	}
	return metrics
}

func filterStaff(users []models.User, keep func(models.User) bool) []models.User {
	out := make([]models.User, 0)
	for _, u := range users {
		if u.Role.IsStaff() && keep(u) {
			out = append(out, u)
		}
	}
	return out
}
