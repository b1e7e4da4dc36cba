package regulator

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity maps free-form severities onto the three supported levels.
// Anything unrecognised (including the generic "error") becomes medium.
func ParseSeverity(value string) Severity {
	switch Severity(value) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(value)
	case "critical", "fatal":
		return SeverityHigh
	case "info", "warning", "warn":
		return SeverityLow
	}
	return SeverityMedium
}

type Source string

const (
	SourceClient Source = "client"
	SourceServer Source = "server"
	SourceAPI    Source = "api"
)

type ActionType string

const (
	ActionNotify         ActionType = "notify"
	ActionAdjust         ActionType = "adjust"
	ActionFallback       ActionType = "fallback"
	ActionThrottle       ActionType = "throttle"
	ActionCircuitBreaker ActionType = "circuit_breaker"
	ActionDisable        ActionType = "disable"
)

type RegulationState string

const (
	StatusActive   RegulationState = "active"
	StatusInactive RegulationState = "inactive"
	StatusTesting  RegulationState = "testing"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrorRecord is the partial error a caller reports. Missing fields are
// defaulted by LogError.
type ErrorRecord struct {
	Name       string
	Message    string
	Code       string
	Severity   Severity
	Source     Source
	Context    map[string]any
	RetryCount int
}

type OutfitError struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Message    string         `json:"message"`
	Code       string         `json:"code"`
	Severity   Severity       `json:"severity"`
	Source     Source         `json:"source"`
	Timestamp  time.Time      `json:"timestamp"`
	Context    map[string]any `json:"context,omitempty"`
	Resolved   bool           `json:"resolved"`
	Resolution *string        `json:"resolution,omitempty"`
	RetryCount int            `json:"retry_count"`
}

type Condition struct {
	ErrorCode         string     `yaml:"error_code" json:"error_code,omitempty"`
	Pattern           string     `yaml:"pattern" json:"pattern,omitempty"`
	ErrorCount        int        `yaml:"error_count" json:"error_count"`
	TimeWindowMinutes int        `yaml:"time_window_minutes" json:"time_window_minutes"`
	Severity          []Severity `yaml:"severity" json:"severity,omitempty"`
	Source            []Source   `yaml:"source" json:"source,omitempty"`
}

type Action struct {
	Type   ActionType     `yaml:"type" json:"type"`
	Params map[string]any `yaml:"params" json:"params,omitempty"`
}

type Regulation struct {
	ID              string          `yaml:"id" json:"id"`
	Name            string          `yaml:"name" json:"name"`
	Condition       Condition       `yaml:"condition" json:"condition"`
	Action          Action          `yaml:"action" json:"action"`
	Status          RegulationState `yaml:"status" json:"status"`
	LastTriggered   *time.Time      `yaml:"-" json:"last_triggered,omitempty"`
	CooldownSeconds int             `yaml:"cooldown_seconds" json:"cooldown_seconds,omitempty"`
}

type CircuitBreakerState struct {
	Key          string       `json:"key"`
	IsOpen       bool         `json:"is_open"`
	State        BreakerState `json:"state"`
	LastFailure  time.Time    `json:"last_failure"`
	FailureCount int          `json:"failure_count"`
	SuccessCount int          `json:"success_count"`
	NextAttempt  time.Time    `json:"next_attempt"`
	LastError    *OutfitError `json:"last_error,omitempty"`

	cooldown time.Duration
}

type Metrics struct {
	TotalErrors         int                `json:"total_errors"`
	ResolvedErrors      int                `json:"resolved_errors"`
	ErrorsByCode        map[string]int     `json:"errors_by_code"`
	ErrorsBySeverity    map[Severity]int   `json:"errors_by_severity"`
	ErrorsBySource      map[Source]int     `json:"errors_by_source"`
	RegulationTriggers  map[string]int     `json:"regulation_triggers"`
	ActionsApplied      map[ActionType]int `json:"actions_applied"`
	CircuitBreakerTrips int                `json:"circuit_breaker_trips"`
	NotificationsFailed int                `json:"notifications_failed"`
	LastErrorAt         *time.Time         `json:"last_error_at,omitempty"`
}

func newMetrics() Metrics {
	return Metrics{
		ErrorsByCode:       map[string]int{},
		ErrorsBySeverity:   map[Severity]int{},
		ErrorsBySource:     map[Source]int{},
		RegulationTriggers: map[string]int{},
		ActionsApplied:     map[ActionType]int{},
	}
}

func (m Metrics) clone() Metrics {
	out := m
	out.ErrorsByCode = copyMap(m.ErrorsByCode)
	out.ErrorsBySeverity = copyMap(m.ErrorsBySeverity)
	out.ErrorsBySource = copyMap(m.ErrorsBySource)
	out.RegulationTriggers = copyMap(m.RegulationTriggers)
	out.ActionsApplied = copyMap(m.ActionsApplied)
	if m.LastErrorAt != nil {
		at := *m.LastErrorAt
		out.LastErrorAt = &at
	}
	return out
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// RecentFilter narrows GetRecentErrors. Zero values mean "any", except
// Window which defaults to one hour.
type RecentFilter struct {
	Window   time.Duration
	Code     string
	Severity Severity
	Source   Source
}

type SeverityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

func (c *SeverityCounts) add(s Severity) {
	switch s {
	case SeverityLow:
		c.Low++
	case SeverityHigh:
		c.High++
	default:
		c.Medium++
	}
}

type RegulationStatus struct {
	LastHour                SeverityCounts `json:"last_hour"`
	LastDay                 SeverityCounts `json:"last_day"`
	ActiveRegulations       int            `json:"active_regulations"`
	OpenCircuitBreakers     int            `json:"open_circuit_breakers"`
	LastError               *OutfitError   `json:"last_error,omitempty"`
	LastTriggeredRegulation *Regulation    `json:"last_triggered_regulation,omitempty"`
}

type CodeCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

type ErrorSummary struct {
	Total      int            `json:"total"`
	Unresolved int            `json:"unresolved"`
	BySeverity SeverityCounts `json:"by_severity"`
	BySource   map[Source]int `json:"by_source"`
	TopCodes   []CodeCount    `json:"top_codes"`
	Recent     []OutfitError  `json:"recent"`
}
