package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Notifier pushes assignment notices to worker devices.
type Notifier interface {
	NotifyZoneAssigned(ctx context.Context, tokens []string, zone string, stops int, version int64) error
}

// NoopNotifier is used when no Firebase credentials are configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyZoneAssigned(ctx context.Context, tokens []string, zone string, stops int, version int64) error {
	return nil
}

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(ctx context.Context, credentialsFile string) (*FCMService, error) {
	return newFCMService(ctx, option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials.
// Useful on hosts where uploading a credentials file is awkward.
func NewFCMServiceFromBase64(ctx context.Context, credentialsBase64 string) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(ctx, option.WithCredentialsJSON(credentialsJSON))
}

func newFCMService(ctx context.Context, opt option.ClientOption) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// NewNotifier picks the FCM service when credentials are configured and a
// no-op notifier otherwise.
func NewNotifier(ctx context.Context, credentialsFile, credentialsBase64 string) Notifier {
	var (
		svc *FCMService
		err error
	)
	switch {
	case credentialsBase64 != "":
		svc, err = NewFCMServiceFromBase64(ctx, credentialsBase64)
	case credentialsFile != "":
		svc, err = NewFCMService(ctx, credentialsFile)
	default:
		log.Info().Msg("🔕 Push notifications disabled (no Firebase credentials)")
		return NoopNotifier{}
	}
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  Failed to initialize FCM, push notifications disabled")
		return NoopNotifier{}
	}
	log.Info().Msg("🔔 FCM push notifications enabled")
	return svc
}

// ZoneAssignedMessage builds the multicast sent when a zone changes hands.
func ZoneAssignedMessage(tokens []string, zone string, stops int, version int64) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "New Zone Assigned!",
			Body:  fmt.Sprintf("%s is now on your route (%d stops).", zone, stops),
		},
		Data: map[string]string{
			"type":    "zone_assigned",
			"zone":    zone,
			"stops":   strconv.Itoa(stops),
			"version": strconv.FormatInt(version, 10),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}
}

// NotifyZoneAssigned sends the assignment notice to every registered device
func (s *FCMService) NotifyZoneAssigned(ctx context.Context, tokens []string, zone string, stops int, version int64) error {
	if len(tokens) == 0 {
		return nil
	}

	response, err := s.client.SendEachForMulticast(ctx, ZoneAssignedMessage(tokens, zone, stops, version))
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Info().Msgf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return nil
}
