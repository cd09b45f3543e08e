package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var (
	ErrStructureNotFound = errors.New("salary_structure_not_found")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidDuration   = errors.New("invalid_duration")
	ErrInvalidCompletion = errors.New("invalid_completion")
	ErrDuplicate         = errors.New("duplicate_structure")
)

type CreateSalaryStructureRequest struct {
	CountryID  snowflake.ID `json:"country_id"`
	Role       string       `json:"role"`
	BaseAmount string       `json:"base_amount"`
	Currency   string       `json:"currency"`
}

type RecordWorkRequest struct {
	TaskID               snowflake.ID `json:"task_id"`
	WorkDate             *time.Time   `json:"work_date"`
	DurationHours        string       `json:"duration_hours"`
	CompletionPercentage int          `json:"completion_percentage"`
	Notes                string       `json:"notes"`
}

// PriceResult is the outcome of rating an employee's time. Priced is false
// when no salary structure matched; rate and cost are then zero and the work
// is still recorded.
type PriceResult struct {
	HourlyRate decimal.Decimal
	Cost       decimal.Decimal
	Priced     bool
}

type Service interface {
	CreateSalaryStructure(ctx context.Context, req CreateSalaryStructureRequest) (*SalaryStructure, error)

	// Price rates the employee's time against the salary structure of their
	// first active assignment.
	Price(ctx context.Context, employeeID snowflake.ID, durationHours decimal.Decimal) (PriceResult, error)

	// RecordWork prices and stores a work record for the calling actor, then
	// refreshes the task's reported completion.
	RecordWork(ctx context.Context, req RecordWorkRequest) (*WorkCompletionRecord, error)

	ListWorkRecords(ctx context.Context, taskID snowflake.ID) ([]WorkCompletionRecord, error)

	// TaskCost sums the cost of all unpaid work on a task.
	TaskCost(ctx context.Context, taskID snowflake.ID) (decimal.Decimal, error)
}
