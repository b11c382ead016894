// Package syncengine brings per-company, per-platform metrics up to date in
// paced batches ordered by staleness.
package syncengine

import (
	"time"

	"github.com/ifuryst/agencylens/internal/models"
)

// Outcome is the result class of one (company, platform) task
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeAuthRequired Outcome = "auth_required"
	OutcomeAPIError     Outcome = "api_error"
	OutcomeStoreError   Outcome = "store_error"
)

// Failed reports whether the outcome counts against the company
func (o Outcome) Failed() bool {
	return o == OutcomeAuthRequired || o == OutcomeAPIError || o == OutcomeStoreError
}

// Clock is injected so budget and window logic can be tested
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock
var SystemClock Clock = systemClock{}

// TaskResult describes one (company, platform) task
type TaskResult struct {
	CompanyID  string          `json:"companyId"`
	Platform   models.Platform `json:"platform"`
	Outcome    Outcome         `json:"outcome"`
	Rows       int             `json:"rows"`
	WindowFrom string          `json:"windowFrom,omitempty"`
	WindowTo   string          `json:"windowTo,omitempty"`
	Backfill   bool            `json:"backfill,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
}

// CompanyResult aggregates one company's tasks within a run
type CompanyResult struct {
	CompanyID   string       `json:"companyId"`
	CompanyName string       `json:"companyName"`
	Success     bool         `json:"success"`
	Platforms   []TaskResult `json:"platforms"`
	Error       string       `json:"error,omitempty"`
}

// NewCompanyResult marks the company successful unless some task failed
func NewCompanyResult(company models.Company, tasks []TaskResult) CompanyResult {
	res := CompanyResult{CompanyID: company.ID, CompanyName: company.Name, Success: true, Platforms: tasks}
	for _, t := range tasks {
		if t.Outcome.Failed() {
			res.Success = false
			if res.Error == "" {
				res.Error = string(t.Platform) + ": " + t.Error
			}
		}
	}
	return res
}
