package notification

import (
	"context"
	"errors"
	"fmt"

	providerRepo "moveo/database/repository/provider"
	"moveo/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var ErrNoPushToken = errors.New("provider has no FCM token")

// MessagingClient is the part of *messaging.Client used for delivery.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender pushes notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client    MessagingClient
	providers providerRepo.ProviderRepository
	logger    *zap.Logger
}

// NewFirebaseMessaging builds a messaging client from a service account file.
func NewFirebaseMessaging(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase: initialize app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: messaging client: %w", err)
	}
	return client, nil
}

func NewFCMSender(client MessagingClient, providers providerRepo.ProviderRepository, logger *zap.Logger) *FCMSender {
	return &FCMSender{client: client, providers: providers, logger: logger.With(zap.String("component", "fcm"))}
}

func (s *FCMSender) Send(ctx context.Context, n models.Notification) error {
	p, err := s.providers.GetByID(ctx, n.ProviderID)
	if err != nil {
		return fmt.Errorf("fcm: load provider %s: %w", n.ProviderID, err)
	}
	if p.FCMToken == "" {
		return fmt.Errorf("fcm: provider %s: %w", n.ProviderID, ErrNoPushToken)
	}

	id, err := s.client.Send(ctx, buildMessage(p.FCMToken, n))
	if err != nil {
		return fmt.Errorf("fcm: send %s: %w", n.Type, err)
	}
	s.logger.Debug("push sent", zap.String("provider_id", n.ProviderID), zap.String("message_id", id))
	return nil
}

func buildMessage(token string, n models.Notification) *messaging.Message {
	data := make(map[string]string, len(n.Data)+3)
	for k, v := range n.Data {
		data[k] = v
	}
	data["type"] = n.Type
	data["notificationId"] = n.ID
	if _, ok := data["role"]; !ok {
		data["role"] = "provider"
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "missions",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
