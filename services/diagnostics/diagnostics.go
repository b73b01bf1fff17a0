// Package diagnostics probes every upstream the backend depends on and reports raw
// outcomes for operators.
package diagnostics

import (
	"context"
	"errors"
	"time"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
)

const (
	CheckCredentials = "credentials"
	CheckModel       = "model"
	CheckStore       = "store"
	CheckSearch      = "search"
)

// ErrSkipped marks a check whose upstream is not configured.
var ErrSkipped = errors.New("not configured")

type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type Result struct {
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
}

type Report struct {
	OK      bool              `json:"ok"`
	Results map[string]Result `json:"results"`
}

type Service struct {
	logger logger.Logger
	checks []Check
	now    func() time.Time
}

func New(logger logger.Logger, checks ...Check) *Service {
	return &Service{logger: logger, checks: checks, now: time.Now}
}

// Run executes the checks one after another. Configuration errors count as skipped.
func (s *Service) Run(ctx context.Context) Report {
	report := Report{OK: true, Results: make(map[string]Result, len(s.checks))}

	for _, check := range s.checks {
		started := s.now()
		err := check.Run(ctx)
		result := Result{OK: true, LatencyMs: s.now().Sub(started).Milliseconds()}

		switch {
		case err == nil:
		case errors.Is(err, ErrSkipped), errors.Is(err, errs.ErrConfiguration):
			result.Skipped = true
			result.Error = err.Error()
		default:
			result.OK = false
			result.Error = err.Error()
			report.OK = false
			s.logger.Warn("diagnostic check failed", "check", check.Name, "err", err.Error())
		}

		report.Results[check.Name] = result
	}

	return report
}
