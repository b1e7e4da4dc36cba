package services

import (
	"context"
	"fmt"

	"wardrobeapi/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

// PushSender delivers user push notifications. The firebase implementation is
// swapped for a mock in tests.
type PushSender interface {
	SendNotification(ctx context.Context, db *gorm.DB, userId uint, title string, message string, customData map[string]string) error
}

type FirebasePushSender struct {
	App *firebase.App
}

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	interfaceMap := make(map[string]interface{})
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

// SendNotification pushes to every active token of the user through FCM,
// which also relays to APNS for iOS devices.
func (s FirebasePushSender) SendNotification(ctx context.Context, db *gorm.DB, userId uint, title string, message string, customData map[string]string) error {
	if s.App == nil {
		return nil
	}
	client, err := s.App.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("init firebase messaging: %w", err)
	}
	var tokens []models.UserPushToken
	result := db.Model(models.UserPushToken{}).Where(
		"user_account_id = ? and active = ?", userId, true,
	).Find(&tokens)
	if result.Error != nil {
		return fmt.Errorf("load push tokens: %w", result.Error)
	}
	if len(tokens) == 0 {
		return nil
	}

	var iosCustomData map[string]interface{}
	if customData != nil {
		iosCustomData = stringMapToInterfaceMap(customData)
	}
	var messages []*messaging.Message
	for _, token := range tokens {
		messages = append(messages, &messaging.Message{
			Notification: &messaging.Notification{
				Title: title,
				Body:  message,
			},
			APNS: &messaging.APNSConfig{
				FCMOptions: &messaging.APNSFCMOptions{
					AnalyticsLabel: "wardrobe",
				},
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						ContentAvailable: true,
						Alert: &messaging.ApsAlert{
							Title: title,
							Body:  message,
						},
						Sound: "default",
					},
					CustomData: iosCustomData,
				},
			},
			Android: &messaging.AndroidConfig{
				Notification: &messaging.AndroidNotification{
					Priority:  messaging.AndroidNotificationPriority(messaging.PriorityMax),
					ChannelID: "wardrobe-outfits",
				},
				Data: customData,
			},
			Token: token.Token,
		})
	}

	br, err := client.SendEach(ctx, messages)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	if br.FailureCount > 0 {
		for _, resp := range br.Responses {
			if resp != nil && resp.Error != nil {
				sentry.CaptureException(resp.Error)
			}
		}
	}
	return nil
}
