// Package domain defines the progress state machine shared by the task,
// site and project aggregation levels.
package domain

import "github.com/shopspring/decimal"

type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "TO_DO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusQCPending  TaskStatus = "QC_PENDING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
)

// Valid reports whether the status belongs to the closed task status set.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusQCPending, TaskStatusCompleted, TaskStatusBlocked:
		return true
	}
	return false
}

type SiteStatus string

const (
	SiteStatusToDo       SiteStatus = "TO_DO"
	SiteStatusInProgress SiteStatus = "IN_PROGRESS"
	SiteStatusCompleted  SiteStatus = "COMPLETED"
)

type ProjectStatus string

const (
	ProjectStatusPreparation ProjectStatus = "PREPARATION"
	ProjectStatusInProgress  ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted   ProjectStatus = "COMPLETED"
	ProjectStatusInvoiced    ProjectStatus = "INVOICED"
	ProjectStatusPaid        ProjectStatus = "PAID"
)

// Sticky reports whether the status is terminal for aggregation purposes.
// The cascade never overwrites an invoiced or paid project.
func (s ProjectStatus) Sticky() bool {
	return s == ProjectStatusInvoiced || s == ProjectStatusPaid
}

var (
	hundred     = decimal.NewFromInt(100)
	fifty       = decimal.NewFromInt(50)
	seventyFive = decimal.NewFromInt(75)
)

// DeriveProgress maps a task status to its canonical progress percentage.
// BLOCKED has no mapping: ok is false and the caller keeps the previous value.
func DeriveProgress(status TaskStatus) (decimal.Decimal, bool) {
	switch status {
	case TaskStatusToDo:
		return decimal.Zero, true
	case TaskStatusInProgress:
		return fifty, true
	case TaskStatusQCPending:
		return seventyFive, true
	case TaskStatusCompleted:
		return hundred, true
	default:
		return decimal.Zero, false
	}
}

// SiteStatusFor derives a site status from its aggregated percentage.
func SiteStatusFor(progress decimal.Decimal) SiteStatus {
	switch {
	case progress.GreaterThanOrEqual(hundred):
		return SiteStatusCompleted
	case progress.GreaterThan(decimal.Zero):
		return SiteStatusInProgress
	default:
		return SiteStatusToDo
	}
}

// ProjectStatusFor derives a project status from its aggregated percentage,
// preserving sticky terminal states.
func ProjectStatusFor(progress decimal.Decimal, current ProjectStatus) ProjectStatus {
	if current.Sticky() {
		return current
	}
	switch {
	case progress.GreaterThanOrEqual(hundred):
		return ProjectStatusCompleted
	case progress.GreaterThan(decimal.Zero):
		return ProjectStatusInProgress
	default:
		return ProjectStatusPreparation
	}
}

// Mean computes the arithmetic mean of the percentages rounded to two
// decimal places, zero for an empty set. Aggregation is unweighted.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero.Round(2)
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2)
}
