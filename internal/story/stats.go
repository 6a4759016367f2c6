package story

import (
	"sync"
	"time"
)

// Stats tracks generation pipeline outcomes since startup.
type Stats struct {
	mu sync.Mutex

	totalRequests uint64
	successes     uint64
	fallbacks     uint64
	jsonFailures  uint64
	retriesUsed   uint64
	scoreSum      float64
	scoreCount    uint64
	durationSum   time.Duration
	durationCount uint64
	stations      map[string]uint64
	scoreBuckets  map[string]uint64
}

// Snapshot is a point-in-time copy of the pipeline counters.
type Snapshot struct {
	TotalRequests     uint64            `json:"total_requests"`
	Successes         uint64            `json:"successes"`
	Fallbacks         uint64            `json:"fallbacks"`
	JSONFailures      uint64            `json:"json_failures"`
	RetriesUsed       uint64            `json:"retries_used"`
	AvgQualityScore   float64           `json:"avg_quality_score"`
	AvgDurationMS     float64           `json:"avg_duration_ms"`
	StationRequests   map[string]uint64 `json:"station_requests"`
	ScoreDistribution map[string]uint64 `json:"score_distribution"`
}

func NewStats() *Stats {
	return &Stats{
		stations:     make(map[string]uint64),
		scoreBuckets: make(map[string]uint64),
	}
}

func (s *Stats) RecordRequest(station string) {
	s.mu.Lock()
	s.totalRequests++
	s.stations[station]++
	s.mu.Unlock()
}

// RecordSuccess counts a served generation. Unscored successes (the
// batch pipeline does not grade) pass score 0 and are excluded from
// the quality average and distribution.
func (s *Stats) RecordSuccess(score float64, retries int, elapsed time.Duration) {
	s.mu.Lock()
	s.successes++
	s.retriesUsed += uint64(retries)
	s.durationSum += elapsed
	s.durationCount++
	if score > 0 {
		s.scoreSum += score
		s.scoreCount++
		s.scoreBuckets[scoreBucket(score)]++
	}
	s.mu.Unlock()
}

func (s *Stats) RecordFallback(retries int, elapsed time.Duration) {
	s.mu.Lock()
	s.fallbacks++
	s.retriesUsed += uint64(retries)
	s.durationSum += elapsed
	s.durationCount++
	s.mu.Unlock()
}

func (s *Stats) RecordJSONFailure() {
	s.mu.Lock()
	s.jsonFailures++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalRequests:     s.totalRequests,
		Successes:         s.successes,
		Fallbacks:         s.fallbacks,
		JSONFailures:      s.jsonFailures,
		RetriesUsed:       s.retriesUsed,
		StationRequests:   make(map[string]uint64, len(s.stations)),
		ScoreDistribution: make(map[string]uint64, len(s.scoreBuckets)),
	}
	for station, n := range s.stations {
		snap.StationRequests[station] = n
	}
	for bucket, n := range s.scoreBuckets {
		snap.ScoreDistribution[bucket] = n
	}
	if s.scoreCount > 0 {
		snap.AvgQualityScore = s.scoreSum / float64(s.scoreCount)
	}
	if s.durationCount > 0 {
		snap.AvgDurationMS = float64(s.durationSum.Milliseconds()) / float64(s.durationCount)
	}
	return snap
}

func scoreBucket(score float64) string {
	switch {
	case score < 60:
		return "0-59"
	case score < 70:
		return "60-69"
	case score < 80:
		return "70-79"
	case score < 90:
		return "80-89"
	default:
		return "90-100"
	}
}
