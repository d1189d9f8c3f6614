package monitoring

import "time"

// Summary surfaces aggregated monitoring data for administrative dashboards.
type Summary struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	Matching      MatchingSummary     `json:"matching"`
	Notifications NotificationSummary `json:"notifications"`
	Realtime      RealtimeSummary     `json:"realtime"`
	Maintenance   MaintenanceSummary  `json:"maintenance"`
}

type MatchingSummary struct {
	Runs              uint64    `json:"runs"`
	CandidatesTotal   uint64    `json:"candidates_total"`
	AverageCandidates float64   `json:"average_candidates"`
	Exclusions        uint64    `json:"exclusions"`
	LastRunAt         time.Time `json:"last_run_at"`
	LastCandidates    int64     `json:"last_candidates"`
}

type NotificationSummary struct {
	Sent         uint64 `json:"sent"`
	Deduplicated uint64 `json:"deduplicated"`
	Suppressed   uint64 `json:"suppressed"`
	Failed       uint64 `json:"failed"`
}

type FailureRecord struct {
	Stream   string    `json:"stream"`
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Occurred time.Time `json:"occurred_at"`
}

type RealtimeSummary struct {
	ActiveConnections int64          `json:"active_connections"`
	Broadcasts        uint64         `json:"broadcasts"`
	Failures          uint64         `json:"failures"`
	LastFailure       *FailureRecord `json:"last_failure,omitempty"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := ensureModule(); module != nil && module.stats != nil {
		return module.stats.summary()
	}
	return Summary{GeneratedAt: time.Now()}
}
