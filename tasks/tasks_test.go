package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wardrobeapi/dbhelper"
	"wardrobeapi/models"
	"wardrobeapi/outfits"
	"wardrobeapi/regulator"
	"wardrobeapi/services"
	"wardrobeapi/test"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type digestRecorder struct {
	texts []string
}

func (d *digestRecorder) SendDigest(_ context.Context, text string) error {
	d.texts = append(d.texts, text)
	return nil
}

func TestOutfitGenerationTask(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, false)
	db.Model(user).Update("receive_notifications", true)
	test.FakeCasualCloset(db, user)
	service := test.NewOutfitService(db)
	push := &test.PushSenderMock{}

	pending, err := service.NewPendingOutfit(context.Background(), *user)
	require.NoError(t, err)
	task, err := NewOutfitGenerationTask(pending.ID, models.GenerateOutfitIn{Occasion: []string{"office"}})
	require.NoError(t, err)

	require.NoError(t, HandleOutfitGenerationTask(context.Background(), task, service, push))

	var stored models.Outfit
	require.NoError(t, db.Preload("Items").First(&stored, pending.ID).Error)
	assert.Equal(t, models.OutfitStatusCompleted, stored.Status)
	assert.True(t, stored.Complete)
	assert.GreaterOrEqual(t, len(stored.Items), 3)
	assert.Equal(t, []string{"office"}, []string(stored.Occasion))

	require.Len(t, push.Calls, 1)
	assert.Equal(t, user.ID, push.Calls[0].UserID)
	assert.Equal(t, fmt.Sprintf("%d", pending.ID), push.Calls[0].Data["outfit_id"])

	// a retried job leaves the finished outfit alone
	require.NoError(t, HandleOutfitGenerationTask(context.Background(), task, service, push))
	var items int64
	db.Model(&models.OutfitItem{}).Where("outfit_id = ?", pending.ID).Count(&items)
	assert.Equal(t, int64(len(stored.Items)), items)
	assert.Len(t, push.Calls, 1)
}

func TestOutfitGenerationTaskWaitsForBreaker(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, false)
	test.FakeCasualCloset(db, user)
	service := test.NewOutfitService(db)
	for i := 0; i < 3; i++ {
		service.Regulator.LogError(regulator.ErrorRecord{Code: outfits.CodeGenerationFailed, Severity: regulator.SeverityHigh})
	}

	pending, err := service.NewPendingOutfit(context.Background(), *user)
	require.NoError(t, err)
	task, err := NewOutfitGenerationTask(pending.ID, models.GenerateOutfitIn{})
	require.NoError(t, err)

	err = HandleOutfitGenerationTask(context.Background(), task, service, &test.PushSenderMock{})
	assert.ErrorIs(t, err, services.ErrGenerationUnavailable)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	var stored models.Outfit
	require.NoError(t, db.First(&stored, pending.ID).Error)
	assert.Equal(t, models.OutfitStatusPending, stored.Status)
}

func TestOutfitGenerationTaskFailsAfterLastRetry(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, false)
	db.Model(user).Update("receive_notifications", true)
	test.FakeCasualCloset(db, user)
	service := test.NewOutfitService(db)
	for i := 0; i < 3; i++ {
		service.Regulator.LogError(regulator.ErrorRecord{Code: outfits.CodeGenerationFailed, Severity: regulator.SeverityHigh})
	}
	push := &test.PushSenderMock{}

	original := finalAttempt
	finalAttempt = func(context.Context) bool { return true }
	defer func() { finalAttempt = original }()

	pending, err := service.NewPendingOutfit(context.Background(), *user)
	require.NoError(t, err)
	task, err := NewOutfitGenerationTask(pending.ID, models.GenerateOutfitIn{})
	require.NoError(t, err)

	err = HandleOutfitGenerationTask(context.Background(), task, service, push)
	assert.ErrorIs(t, err, services.ErrGenerationUnavailable)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var stored models.Outfit
	require.NoError(t, db.First(&stored, pending.ID).Error)
	assert.Equal(t, models.OutfitStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)

	require.Len(t, push.Calls, 1)
	assert.Equal(t, models.OutfitStatusFailed, push.Calls[0].Data["status"])
}

func TestMarkOutfitFailedKeepsFinishedOutfits(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, false)
	test.FakeCasualCloset(db, user)
	service := test.NewOutfitService(db)

	done, err := service.Generate(context.Background(), *user, models.GenerateOutfitIn{})
	require.NoError(t, err)
	require.NoError(t, service.MarkOutfitFailed(context.Background(), done.ID, "late failure"))

	var stored models.Outfit
	require.NoError(t, db.First(&stored, done.ID).Error)
	assert.Equal(t, models.OutfitStatusCompleted, stored.Status)
	assert.Nil(t, stored.ErrorMessage)
}

func TestOutfitGenerationTaskBadPayload(t *testing.T) {
	task := asynq.NewTask(TypeGenerateOutfit, []byte("{"))
	err := HandleOutfitGenerationTask(context.Background(), task, nil, nil)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRegulatorNotifyTask(t *testing.T) {
	note := regulator.Notification{
		RegulationID: "incomplete-outfit-notify",
		Action:       regulator.ActionNotify,
		Error:        regulator.OutfitError{ID: "e1", Code: outfits.CodeIncompleteOutfit, Severity: regulator.SeverityHigh},
		Message:      "Incomplete outfits spike",
		TriggeredAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	task, err := NewRegulatorNotifyTask(note)
	require.NoError(t, err)

	var delivered []regulator.Notification
	notifier := regulator.NotifierFunc(func(_ context.Context, n regulator.Notification) error {
		delivered = append(delivered, n)
		return nil
	})
	require.NoError(t, HandleRegulatorNotifyTask(context.Background(), task, notifier))
	require.Len(t, delivered, 1)
	assert.Equal(t, note.RegulationID, delivered[0].RegulationID)
	assert.Equal(t, note.Error.Code, delivered[0].Error.Code)
	assert.True(t, note.TriggeredAt.Equal(delivered[0].TriggeredAt))

	failing := regulator.NotifierFunc(func(context.Context, regulator.Notification) error {
		return errors.New("webhook down")
	})
	assert.Error(t, HandleRegulatorNotifyTask(context.Background(), task, failing))
}

func TestRegulatorDigestTask(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, false)
	db.Create(&models.Outfit{Name: "done", UserAccountID: user.ID, Status: models.OutfitStatusCompleted})
	db.Create(&models.Outfit{Name: "broken", UserAccountID: user.ID, Status: models.OutfitStatusFailed})

	reg := regulator.New(regulator.WithRegulations(regulator.DefaultRegulations()...))
	for i := 0; i < 3; i++ {
		reg.LogError(regulator.ErrorRecord{Code: outfits.CodeGenerationFailed, Severity: regulator.SeverityHigh})
	}
	sender := &digestRecorder{}

	require.NoError(t, HandleRegulatorDigestTask(context.Background(), NewRegulatorDigestTask(), db, reg, sender))
	require.Len(t, sender.texts, 1)
	text := sender.texts[0]
	assert.Contains(t, text, "Outfits: 1 completed, 1 failed, 0 pending")
	assert.Contains(t, text, "Errors last hour: 3 high, 0 medium, 0 low")
	assert.Contains(t, text, "GENERATION_FAILED: 3")
	assert.Contains(t, text, "Breaker server:GENERATION_FAILED is open")
}
