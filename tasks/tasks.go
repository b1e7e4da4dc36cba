package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wardrobeapi/models"
	"wardrobeapi/outfits"
	"wardrobeapi/regulator"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const (
	TypeGenerateOutfit  = "generate:outfit"
	TypeRegulatorNotify = "regulator:notify"
	TypeRegulatorDigest = "regulator:digest"

	QueueGenerate = "generate"
	QueueNotify   = "notify"
)

type OutfitGenerationPayload struct {
	OutfitID uint                    `json:"outfit_id"`
	Request  models.GenerateOutfitIn `json:"request"`
}

func NewOutfitGenerationTask(outfitID uint, in models.GenerateOutfitIn) (*asynq.Task, error) {
	payload, err := json.Marshal(OutfitGenerationPayload{OutfitID: outfitID, Request: in})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateOutfit, payload), nil
}

func NewRegulatorNotifyTask(note regulator.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(note)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRegulatorNotify, payload), nil
}

func NewRegulatorDigestTask() *asynq.Task {
	return asynq.NewTask(TypeRegulatorDigest, []byte{})
}

// HandleOutfitGenerationTask fills a pending outfit and tells the owner when it
// is ready. An open generation breaker makes asynq retry later; generator
// failures are final.
func HandleOutfitGenerationTask(ctx context.Context, t *asynq.Task, service *services.OutfitService, push services.PushSender) error {
	var p OutfitGenerationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	fmt.Printf("[Outfit %v] Generating outfit\n", p.OutfitID)

	outfit, err := service.GeneratePending(ctx, p.OutfitID, p.Request)
	if errors.Is(err, services.ErrOutfitNotPending) {
		fmt.Printf("[Outfit %v] Already %s, skipping\n", p.OutfitID, outfit.Status)
		return nil
	}
	if errors.Is(err, services.ErrGenerationUnavailable) {
		if !finalAttempt(ctx) {
			fmt.Printf("[Outfit %v] Generation paused by circuit breaker, retrying later\n", p.OutfitID)
			return err
		}
		fmt.Printf("[Outfit %v] Generation still paused after the last retry, giving up\n", p.OutfitID)
		if markErr := service.MarkOutfitFailed(ctx, p.OutfitID, "outfit generation was unavailable"); markErr != nil {
			sentry.CaptureException(markErr)
			return markErr
		}
		outfit.Status = models.OutfitStatusFailed
		notifyOwner(ctx, service.DB, push, *outfit, "We could not build your outfit", "Outfit generation is busy, please try again later")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if errors.Is(err, outfits.ErrGenerationFailed) {
		sentry.CaptureException(fmt.Errorf("[Outfit %v] %w", p.OutfitID, err))
		if outfit != nil {
			notifyOwner(ctx, service.DB, push, *outfit, "We could not build your outfit", "Please try again with a different selection")
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Outfit %v] %w", p.OutfitID, err))
		return err
	}

	fmt.Printf("[Outfit %v] Generated with %d items, complete: %v\n", outfit.ID, len(outfit.Items), outfit.Complete)
	notifyOwner(ctx, service.DB, push, *outfit, "Your outfit is ready", outfit.Name)
	return nil
}

// finalAttempt reports whether asynq will not run the task again after this
// attempt. Outside a worker there is no retry information and it is false.
var finalAttempt = func(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= maxRetry
}

func notifyOwner(ctx context.Context, db *gorm.DB, push services.PushSender, outfit models.Outfit, title, message string) {
	if push == nil {
		return
	}
	var owner models.UserAccount
	if err := db.WithContext(ctx).Select("id", "receive_notifications").First(&owner, outfit.UserAccountID).Error; err != nil || !owner.ReceiveNotifications {
		return
	}
	data := map[string]string{
		"type":      "outfit_ready",
		"outfit_id": fmt.Sprintf("%d", outfit.ID),
		"status":    outfit.Status,
	}
	if err := push.SendNotification(ctx, db, outfit.UserAccountID, title, message, data); err != nil {
		fmt.Printf("[Outfit %v] Failed to notify user %d: %v\n", outfit.ID, outfit.UserAccountID, err)
	}
}

// QueueNotifier hands regulator notifications to the worker so delivery gets
// asynq retries instead of blocking the process that logged the error.
type QueueNotifier struct {
	Client   *asynq.Client
	MaxRetry int
}

func (n QueueNotifier) Notify(ctx context.Context, note regulator.Notification) error {
	task, err := NewRegulatorNotifyTask(note)
	if err != nil {
		return err
	}
	maxRetry := n.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	_, err = n.Client.EnqueueContext(ctx, task, asynq.MaxRetry(maxRetry), asynq.Queue(QueueNotify))
	return err
}

func HandleRegulatorNotifyTask(ctx context.Context, t *asynq.Task, notifier regulator.Notifier) error {
	var note regulator.Notification
	if err := json.Unmarshal(t.Payload(), &note); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if err := notifier.Notify(ctx, note); err != nil {
		fmt.Printf("[Regulator] Delivering %s notification failed: %v\n", note.RegulationID, err)
		return err
	}
	return nil
}

// DigestSender delivers the periodic regulator digest to operators.
type DigestSender interface {
	SendDigest(ctx context.Context, text string) error
}

type OutfitCounts struct {
	Completed int64
	Failed    int64
	Pending   int64
}

// HandleRegulatorDigestTask reports the last day of outfit generation and the
// worker's regulator state.
func HandleRegulatorDigestTask(ctx context.Context, t *asynq.Task, db *gorm.DB, reg *regulator.Regulator, sender DigestSender) error {
	since := time.Now().Add(-24 * time.Hour)
	var counts OutfitCounts
	for status, target := range map[string]*int64{
		models.OutfitStatusCompleted: &counts.Completed,
		models.OutfitStatusFailed:    &counts.Failed,
		models.OutfitStatusPending:   &counts.Pending,
	} {
		if err := db.WithContext(ctx).Model(&models.Outfit{}).Where("status = ? AND created_at >= ?", status, since).Count(target).Error; err != nil {
			sentry.CaptureException(fmt.Errorf("[Digest] Error counting %s outfits: %v", status, err))
			return err
		}
	}

	text := FormatDigest(counts, reg.GetRegulationStatus(), reg.GetErrorSummary(), reg.Breakers())
	if err := sender.SendDigest(ctx, text); err != nil {
		sentry.CaptureException(fmt.Errorf("[Digest] Error sending digest: %v", err))
		return err
	}
	return nil
}

func FormatDigest(counts OutfitCounts, status regulator.RegulationStatus, summary regulator.ErrorSummary, breakers []regulator.CircuitBreakerState) string {
	b := strings.Builder{}
	b.WriteString("Wardrobe digest (24h)\n")
	b.WriteString(fmt.Sprintf("Outfits: %d completed, %d failed, %d pending\n", counts.Completed, counts.Failed, counts.Pending))
	b.WriteString(fmt.Sprintf("Errors last hour: %d high, %d medium, %d low\n", status.LastHour.High, status.LastHour.Medium, status.LastHour.Low))
	b.WriteString(fmt.Sprintf("Errors last day: %d high, %d medium, %d low\n", status.LastDay.High, status.LastDay.Medium, status.LastDay.Low))
	b.WriteString(fmt.Sprintf("Unresolved: %d of %d\n", summary.Unresolved, summary.Total))
	for _, code := range summary.TopCodes {
		b.WriteString(fmt.Sprintf("  %s: %d\n", code.Code, code.Count))
	}
	b.WriteString(fmt.Sprintf("Active regulations: %d\n", status.ActiveRegulations))
	for _, breaker := range breakers {
		if breaker.IsOpen {
			b.WriteString(fmt.Sprintf("Breaker %s is %s until %s\n", breaker.Key, breaker.State, breaker.NextAttempt.Format(time.RFC3339)))
		}
	}
	return b.String()
}
