package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// FCMService pushes reminders to registered browser and phone tokens.
type FCMService struct {
	client *messaging.Client
}

func NewFCMService(ctx context.Context, app *firebase.App) (*FCMService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendPush sends one message per token; the batch endpoint is not used.
func (s *FCMService) SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	successCount := 0
	failureCount := 0

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Webpush: &messaging.WebpushConfig{
				Notification: &messaging.WebpushNotification{
					Title: title,
					Body:  body,
				},
			},
		}

		if _, err := s.client.Send(ctx, message); err != nil {
			zap.S().Warnf("FCM: failed to send to token %s: %v", token, err)
			failureCount++
			continue
		}
		successCount++
	}

	zap.S().Infof("FCM: sent %d messages, %d failed", successCount, failureCount)

	if successCount == 0 && failureCount > 0 {
		return 0, fmt.Errorf("all push notifications failed")
	}

	return successCount, nil
}
