// Package regulator keeps a bounded, process-wide history of error events and
// evaluates configured regulations against it. Matching regulations trigger
// actions: notifications, circuit breakers, advisory adjustments or
// self-disabling.
//
// A Regulator never returns errors from LogError. Failures inside actions or
// notifiers are recovered and logged.
package regulator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultHistoryCapacity = 1000
	DefaultBreakerCooldown = 30 * time.Second
	defaultRecentWindow    = time.Hour
	notifyTimeout          = 10 * time.Second
)

var ErrRegulationNotFound = errors.New("regulation not found")

type Option func(*Regulator)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(r *Regulator) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Regulator) {
		if now != nil {
			r.now = now
		}
	}
}

func WithCapacity(capacity int) Option {
	return func(r *Regulator) {
		if capacity > 0 {
			r.capacity = capacity
		}
	}
}

func WithNotifiers(notifiers ...Notifier) Option {
	return func(r *Regulator) {
		r.notifiers = append(r.notifiers, notifiers...)
	}
}

func WithRegulations(regulations ...Regulation) Option {
	return func(r *Regulator) {
		for _, reg := range regulations {
			r.addRegulation(reg)
		}
	}
}

type Regulator struct {
	mu              sync.Mutex
	history         []OutfitError
	capacity        int
	regulations     []*Regulation
	patterns        map[string]*regexp.Regexp
	breakers        map[string]*CircuitBreakerState
	metrics         Metrics
	lastTriggeredID string

	notifiers []Notifier
	inflight  sync.WaitGroup

	logger *zap.SugaredLogger
	now    func() time.Time
}

func New(opts ...Option) *Regulator {
	r := &Regulator{
		capacity: DefaultHistoryCapacity,
		patterns: map[string]*regexp.Regexp{},
		breakers: map[string]*CircuitBreakerState{},
		metrics:  newMetrics(),
		logger:   zap.NewNop().Sugar(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Regulator) addRegulation(reg Regulation) {
	if reg.Status == "" {
		reg.Status = StatusActive
	}
	if reg.Condition.Pattern != "" {
		compiled, err := regexp.Compile(reg.Condition.Pattern)
		if err != nil {
			r.logger.Warnw("ignoring invalid regulation pattern", "regulation", reg.ID, "pattern", reg.Condition.Pattern, "error", err)
		} else {
			r.patterns[reg.ID] = compiled
		}
	}
	r.regulations = append(r.regulations, &reg)
}

// BreakerKey is the circuit breaker key for errors of the given source and code.
func BreakerKey(source Source, code string) string {
	return fmt.Sprintf("%s:%s", source, code)
}

// LogError stores the error, evaluates regulations and returns the new error id.
func (r *Regulator) LogError(record ErrorRecord) string {
	entry := r.newError(record)

	r.mu.Lock()
	r.appendLocked(entry)
	pending := r.checkLocked(entry)
	r.mu.Unlock()

	r.logEntry(entry)
	r.dispatch(pending)
	return entry.ID
}

type coder interface {
	ErrorCode() string
}

type severityCarrier interface {
	ErrorSeverity() Severity
}

// HandleError logs a Go error. The code and severity are taken from the error
// when it implements ErrorCode() / ErrorSeverity(); otherwise UNHANDLED_ERROR
// with high severity. A "source" entry in ctx overrides the default source.
func (r *Regulator) HandleError(err error, ctx map[string]any) string {
	if err == nil {
		return ""
	}
	record := ErrorRecord{
		Name:     strings.TrimPrefix(fmt.Sprintf("%T", err), "*"),
		Message:  err.Error(),
		Code:     "UNHANDLED_ERROR",
		Severity: SeverityHigh,
		Source:   SourceServer,
		Context:  ctx,
	}
	var c coder
	if errors.As(err, &c) && c.ErrorCode() != "" {
		record.Code = c.ErrorCode()
	}
	var s severityCarrier
	if errors.As(err, &s) {
		record.Severity = s.ErrorSeverity()
	}
	if source, ok := ctx["source"].(string); ok && source != "" {
		record.Source = Source(source)
	}
	return r.LogError(record)
}

// CheckRegulations re-evaluates all regulations against the given error.
// LogError already does this; it is exposed for replaying stored errors.
func (r *Regulator) CheckRegulations(entry OutfitError) {
	r.mu.Lock()
	pending := r.checkLocked(entry)
	r.mu.Unlock()
	r.dispatch(pending)
}

// ApplyRegulation runs the action of the regulation with the given id as if
// it had been triggered by trigger.
func (r *Regulator) ApplyRegulation(regulationID string, trigger OutfitError) error {
	r.mu.Lock()
	reg := r.findRegulationLocked(regulationID)
	if reg == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRegulationNotFound, regulationID)
	}
	pending := r.applyLocked(reg, trigger)
	r.mu.Unlock()
	r.dispatch(pending)
	return nil
}

func (r *Regulator) newError(record ErrorRecord) OutfitError {
	entry := OutfitError{
		ID:         uuid.NewString(),
		Name:       record.Name,
		Message:    record.Message,
		Code:       record.Code,
		Severity:   ParseSeverity(string(record.Severity)),
		Source:     record.Source,
		Timestamp:  r.now(),
		Context:    record.Context,
		RetryCount: record.RetryCount,
	}
	if entry.Source == "" {
		entry.Source = SourceServer
	}
	if entry.Name == "" {
		entry.Name = "OutfitError"
	}
	if entry.Code == "" {
		entry.Code = "UNKNOWN_ERROR"
	}
	return entry
}

func (r *Regulator) appendLocked(entry OutfitError) {
	r.history = append(r.history, entry)
	if overflow := len(r.history) - r.capacity; overflow > 0 {
		r.history = append(r.history[:0:0], r.history[overflow:]...)
	}
	r.metrics.TotalErrors++
	r.metrics.ErrorsByCode[entry.Code]++
	r.metrics.ErrorsBySeverity[entry.Severity]++
	r.metrics.ErrorsBySource[entry.Source]++
	at := entry.Timestamp
	r.metrics.LastErrorAt = &at
}

func (r *Regulator) logEntry(entry OutfitError) {
	fields := []interface{}{"id", entry.ID, "code", entry.Code, "source", entry.Source, "message", entry.Message}
	switch entry.Severity {
	case SeverityHigh:
		r.logger.Errorw("outfit error", fields...)
	case SeverityMedium:
		r.logger.Warnw("outfit error", fields...)
	default:
		r.logger.Infow("outfit error", fields...)
	}
}

// checkLocked fires every active regulation matched by entry at most once.
// Single-signal regulations (ErrorCount <= 1) fire on the match itself;
// aggregate ones fire once the matching errors inside the time window reach
// ErrorCount.
func (r *Regulator) checkLocked(entry OutfitError) []Notification {
	var pending []Notification
	now := r.now()
	for _, reg := range r.regulations {
		if reg.Status != StatusActive || r.coolingDown(reg, now) {
			continue
		}
		if !r.matchesLocked(entry, reg) {
			continue
		}
		if reg.Condition.ErrorCount <= 1 {
			pending = append(pending, r.applyLocked(reg, entry)...)
			continue
		}
		// Aggregate regulations have no immediate trigger on the match alone,
		// otherwise they would fire before the threshold and twice at it.
		if r.countInWindowLocked(reg, now) >= reg.Condition.ErrorCount {
			pending = append(pending, r.applyLocked(reg, entry)...)
		}
	}
	return pending
}

func (r *Regulator) coolingDown(reg *Regulation, now time.Time) bool {
	if reg.CooldownSeconds <= 0 || reg.LastTriggered == nil {
		return false
	}
	return now.Before(reg.LastTriggered.Add(time.Duration(reg.CooldownSeconds) * time.Second))
}

func (r *Regulator) matchesLocked(entry OutfitError, reg *Regulation) bool {
	cond := reg.Condition
	if cond.ErrorCode != "" && cond.ErrorCode != entry.Code {
		return false
	}
	if cond.Pattern != "" {
		pattern, ok := r.patterns[reg.ID]
		if !ok || !(pattern.MatchString(entry.Code) || pattern.MatchString(entry.Message)) {
			return false
		}
	}
	if len(cond.Severity) > 0 && !contains(cond.Severity, entry.Severity) {
		return false
	}
	if len(cond.Source) > 0 && !contains(cond.Source, entry.Source) {
		return false
	}
	return true
}

func (r *Regulator) countInWindowLocked(reg *Regulation, now time.Time) int {
	window := time.Duration(reg.Condition.TimeWindowMinutes) * time.Minute
	if window <= 0 {
		window = defaultRecentWindow
	}
	cutoff := now.Add(-window)
	count := 0
	for _, entry := range r.history {
		if entry.Timestamp.Before(cutoff) {
			continue
		}
		if r.matchesLocked(entry, reg) {
			count++
		}
	}
	return count
}

func (r *Regulator) findRegulationLocked(id string) *Regulation {
	for _, reg := range r.regulations {
		if reg.ID == id {
			return reg
		}
	}
	return nil
}

func (r *Regulator) applyLocked(reg *Regulation, trigger OutfitError) (pending []Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("regulation action failed", "regulation", reg.ID, "action", reg.Action.Type, "panic", rec)
			pending = nil
		}
	}()

	now := r.now()
	log := r.logger.With("regulation", reg.ID, "action", reg.Action.Type, "code", trigger.Code)
	switch reg.Action.Type {
	case ActionNotify:
		log.Infow("regulation notify")
		pending = append(pending, Notification{
			RegulationID:   reg.ID,
			RegulationName: reg.Name,
			Action:         reg.Action.Type,
			Params:         reg.Action.Params,
			Error:          trigger,
			Message:        fmt.Sprintf("Regulation %q triggered by %s (%s): %s", reg.Name, trigger.Code, trigger.Severity, trigger.Message),
			TriggeredAt:    now,
		})
	case ActionAdjust:
		log.Infow("regulation adjusting generation parameters", "params", reg.Action.Params)
	case ActionFallback:
		log.Warnw("regulation activating fallback mode", "params", reg.Action.Params)
	case ActionThrottle:
		log.Warnw("regulation activating throttle", "params", reg.Action.Params)
	case ActionCircuitBreaker:
		state := r.tripLocked(reg, trigger, now)
		log.Warnw("circuit breaker opened", "key", state.Key, "failures", state.FailureCount, "next_attempt", state.NextAttempt)
	case ActionDisable:
		reg.Status = StatusInactive
		log.Warnw("regulation disabled itself")
	default:
		log.Warnw("unknown regulation action")
	}

	reg.LastTriggered = &now
	r.lastTriggeredID = reg.ID
	r.metrics.RegulationTriggers[reg.ID]++
	r.metrics.ActionsApplied[reg.Action.Type]++
	return pending
}

func (r *Regulator) tripLocked(reg *Regulation, trigger OutfitError, now time.Time) *CircuitBreakerState {
	key := BreakerKey(trigger.Source, trigger.Code)
	state, ok := r.breakers[key]
	if !ok {
		state = &CircuitBreakerState{Key: key}
		r.breakers[key] = state
	}
	state.cooldown = paramDuration(reg.Action.Params, "cooldown_seconds", DefaultBreakerCooldown)
	state.IsOpen = true
	state.State = BreakerOpen
	state.FailureCount++
	state.LastFailure = now
	state.NextAttempt = now.Add(state.cooldown)
	lastError := trigger
	state.LastError = &lastError
	r.metrics.CircuitBreakerTrips++
	return state
}

func paramDuration(params map[string]any, key string, fallback time.Duration) time.Duration {
	switch v := params[key].(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case time.Duration:
		return v
	}
	return fallback
}

// AllowRequest reports whether an operation guarded by the breaker key may
// run. An open breaker refuses until NextAttempt, then moves to half-open and
// lets a single trial request through per cooldown period.
func (r *Regulator) AllowRequest(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.breakers[key]
	if !ok || !state.IsOpen {
		return true
	}
	now := r.now()
	if now.Before(state.NextAttempt) {
		return false
	}
	state.State = BreakerHalfOpen
	cooldown := state.cooldown
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	state.NextAttempt = now.Add(cooldown)
	return true
}

// RecordSuccess closes a half-open breaker.
func (r *Regulator) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.breakers[key]
	if !ok {
		return
	}
	state.SuccessCount++
	if state.State == BreakerHalfOpen {
		state.IsOpen = false
		state.State = BreakerClosed
		r.logger.Infow("circuit breaker closed", "key", key, "successes", state.SuccessCount)
	}
}

func (r *Regulator) CircuitBreaker(key string) (CircuitBreakerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.breakers[key]
	if !ok {
		return CircuitBreakerState{}, false
	}
	return *state, true
}

func (r *Regulator) Breakers() []CircuitBreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CircuitBreakerState, 0, len(r.breakers))
	for _, state := range r.breakers {
		out = append(out, *state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *Regulator) Regulations() []Regulation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Regulation, 0, len(r.regulations))
	for _, reg := range r.regulations {
		out = append(out, *reg)
	}
	return out
}

// GetRecentErrors returns errors newer than the filter window, oldest first.
func (r *Regulator) GetRecentErrors(filter RecentFilter) []OutfitError {
	window := filter.Window
	if window <= 0 {
		window = defaultRecentWindow
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-window)
	out := []OutfitError{}
	for _, entry := range r.history {
		if entry.Timestamp.Before(cutoff) {
			continue
		}
		if filter.Code != "" && entry.Code != filter.Code {
			continue
		}
		if filter.Severity != "" && entry.Severity != filter.Severity {
			continue
		}
		if filter.Source != "" && entry.Source != filter.Source {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (r *Regulator) GetRegulationStatus() RegulationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	hourAgo, dayAgo := now.Add(-time.Hour), now.Add(-24*time.Hour)

	var status RegulationStatus
	for _, entry := range r.history {
		if !entry.Timestamp.Before(dayAgo) {
			status.LastDay.add(entry.Severity)
		}
		if !entry.Timestamp.Before(hourAgo) {
			status.LastHour.add(entry.Severity)
		}
	}
	for _, reg := range r.regulations {
		if reg.Status == StatusActive {
			status.ActiveRegulations++
		}
	}
	for _, state := range r.breakers {
		if state.IsOpen {
			status.OpenCircuitBreakers++
		}
	}
	if n := len(r.history); n > 0 {
		last := r.history[n-1]
		status.LastError = &last
	}
	if reg := r.findRegulationLocked(r.lastTriggeredID); reg != nil {
		copied := *reg
		status.LastTriggeredRegulation = &copied
	}
	return status
}

const (
	summaryTopCodes = 5
	summaryRecent   = 10
)

func (r *Regulator) GetErrorSummary() ErrorSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := ErrorSummary{
		Total:    len(r.history),
		BySource: map[Source]int{},
		TopCodes: []CodeCount{},
		Recent:   []OutfitError{},
	}
	byCode := map[string]int{}
	for _, entry := range r.history {
		if !entry.Resolved {
			summary.Unresolved++
		}
		summary.BySeverity.add(entry.Severity)
		summary.BySource[entry.Source]++
		byCode[entry.Code]++
	}
	for code, count := range byCode {
		summary.TopCodes = append(summary.TopCodes, CodeCount{Code: code, Count: count})
	}
	sort.Slice(summary.TopCodes, func(i, j int) bool {
		if summary.TopCodes[i].Count != summary.TopCodes[j].Count {
			return summary.TopCodes[i].Count > summary.TopCodes[j].Count
		}
		return summary.TopCodes[i].Code < summary.TopCodes[j].Code
	})
	if len(summary.TopCodes) > summaryTopCodes {
		summary.TopCodes = summary.TopCodes[:summaryTopCodes]
	}
	for i := len(r.history) - 1; i >= 0 && len(summary.Recent) < summaryRecent; i-- {
		summary.Recent = append(summary.Recent, r.history[i])
	}
	return summary
}

// MarkAsResolved flags the error as resolved. It reports whether the id was
// found in the history.
func (r *Regulator) MarkAsResolved(id string, resolution string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.history {
		if r.history[i].ID != id {
			continue
		}
		if !r.history[i].Resolved {
			r.metrics.ResolvedErrors++
		}
		r.history[i].Resolved = true
		if resolution != "" {
			note := resolution
			r.history[i].Resolution = &note
		}
		return true
	}
	return false
}

func (r *Regulator) ClearHistory() {
	r.mu.Lock()
	r.history = nil
	r.mu.Unlock()
}

func (r *Regulator) HistorySize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

func (r *Regulator) GetMetrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics.clone()
}

func (r *Regulator) dispatch(pending []Notification) {
	if len(pending) == 0 || len(r.notifiers) == 0 {
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		for _, note := range pending {
			for _, notifier := range r.notifiers {
				r.notify(notifier, note)
			}
		}
	}()
}

func (r *Regulator) notify(notifier Notifier, note Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("notifier panicked", "regulation", note.RegulationID, "panic", rec)
			r.countFailedNotification()
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := notifier.Notify(ctx, note); err != nil {
		r.logger.Errorw("regulation notification failed", "regulation", note.RegulationID, "notifier", fmt.Sprintf("%T", notifier), "error", err)
		r.countFailedNotification()
	}
}

func (r *Regulator) countFailedNotification() {
	r.mu.Lock()
	r.metrics.NotificationsFailed++
	r.mu.Unlock()
}

// Flush waits for in-flight notifications, up to timeout. It reports whether
// everything was delivered in time.
func (r *Regulator) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func contains[T comparable](items []T, value T) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
