package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	matchRuns           atomic.Uint64
	matchCandidates     atomic.Uint64
	matchExclusions     atomic.Uint64
	matchLastRunAt      atomic.Int64
	matchLastCandidates atomic.Int64

	notificationsSent         atomic.Uint64
	notificationsDeduplicated atomic.Uint64
	notificationsSuppressed   atomic.Uint64
	notificationsFailed       atomic.Uint64

	realtimeConnections atomic.Int64
	realtimeBroadcasts  atomic.Uint64
	realtimeFailures    atomic.Uint64
	realtimeLastFailure atomic.Value // *FailureRecord

	maintenance sync.Map // string -> *maintenanceStats
}

func newStatStore() *statStore {
	store := &statStore{}
	store.realtimeLastFailure.Store((*FailureRecord)(nil))
	return store
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	return summaries
}

func (s *statStore) summary() Summary {
	lastFailure, _ := s.realtimeLastFailure.Load().(*FailureRecord)

	runs := s.matchRuns.Load()
	candidates := s.matchCandidates.Load()
	var avgCandidates float64
	if runs > 0 {
		avgCandidates = float64(candidates) / float64(runs)
	}

	return Summary{
		GeneratedAt: time.Now(),
		Matching: MatchingSummary{
			Runs:              runs,
			CandidatesTotal:   candidates,
			AverageCandidates: avgCandidates,
			Exclusions:        s.matchExclusions.Load(),
			LastRunAt:         time.Unix(0, s.matchLastRunAt.Load()),
			LastCandidates:    s.matchLastCandidates.Load(),
		},
		Notifications: NotificationSummary{
			Sent:         s.notificationsSent.Load(),
			Deduplicated: s.notificationsDeduplicated.Load(),
			Suppressed:   s.notificationsSuppressed.Load(),
			Failed:       s.notificationsFailed.Load(),
		},
		Realtime: RealtimeSummary{
			ActiveConnections: s.realtimeConnections.Load(),
			Broadcasts:        s.realtimeBroadcasts.Load(),
			Failures:          s.realtimeFailures.Load(),
			LastFailure:       lastFailure,
		},
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) recordMatchRun(candidates int) {
	if candidates < 0 {
		candidates = 0
	}
	s.matchRuns.Add(1)
	s.matchCandidates.Add(uint64(candidates))
	s.matchLastRunAt.Store(time.Now().UnixNano())
	s.matchLastCandidates.Store(int64(candidates))
}

func (s *statStore) recordNotification(outcome string) {
	switch outcome {
	case "sent":
		s.notificationsSent.Add(1)
	case "deduplicated":
		s.notificationsDeduplicated.Add(1)
	case "suppressed":
		s.notificationsSuppressed.Add(1)
	default:
		s.notificationsFailed.Add(1)
	}
}

func (s *statStore) recordRealtimeConnection(delta int64) {
	newValue := s.realtimeConnections.Add(delta)
	if newValue < 0 {
		s.realtimeConnections.Store(0)
	}
}

func (s *statStore) recordRealtimeBroadcast() {
	s.realtimeBroadcasts.Add(1)
}

func (s *statStore) recordRealtimeFailure(record FailureRecord) {
	s.realtimeFailures.Add(1)
	cloned := record
	s.realtimeLastFailure.Store(&cloned)
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	stats := &maintenanceStats{}
	actual, _ := s.maintenance.LoadOrStore(job, stats)
	return actual.(*maintenanceStats)
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)
	lastRun := time.Unix(0, m.lastRun.Load())
	lastSuccess := time.Unix(0, m.lastSuccessfulRun.Load())

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           lastRun,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		LastSuccessAt:       lastSuccess,
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case "success":
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}
