package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
)

// FCMProvider sends notifications via Firebase Cloud Messaging.
type FCMProvider struct {
	serverKey string
	endpoint  string
	client    *http.Client
	logger    *slog.Logger
}

func NewFCMProvider(serverKey, endpoint string, timeout time.Duration, logger *slog.Logger) *FCMProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FCMProvider{
		serverKey: serverKey,
		endpoint:  endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (p *FCMProvider) Name() string {
	return "fcm"
}

// Send delivers the payload to one registration token.
func (p *FCMProvider) Send(ctx context.Context, token string, payload models.NotificationPayload) error {
	if token == "" {
		return fmt.Errorf("fcm: empty token")
	}

	body, err := json.Marshal(map[string]interface{}{
		"to": token,
		"notification": map[string]string{
			"title": payload.Title,
			"body":  payload.Body,
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.serverKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fcm: received status %d", resp.StatusCode)
	}

	var fcmResp fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&fcmResp); err != nil {
		return err
	}
	if len(fcmResp.Results) == 0 {
		if fcmResp.Failure > 0 {
			return fmt.Errorf("fcm: reported %d failures without detail", fcmResp.Failure)
		}
		return nil
	}

	if errCode := fcmResp.Results[0].Error; errCode != "" {
		if isTokenFatal(errCode) {
			return fmt.Errorf("fcm: %s: %w", errCode, models.ErrRecipientGone)
		}
		return fmt.Errorf("fcm: %s", errCode)
	}
	return nil
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// isTokenFatal reports whether the FCM error code means the registration
// token will never resolve to a live destination again.
func isTokenFatal(code string) bool {
	switch code {
	case "NotRegistered", "InvalidRegistration", "MismatchSenderId":
		return true
	default:
		return false
	}
}
