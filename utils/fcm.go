package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrFCMNotConfigured is returned when no server key is available.
var ErrFCMNotConfigured = errors.New("fcm server key not configured")

const fcmSendEndpoint = "https://fcm.googleapis.com/fcm/send"

var fcmHTTPClient = &http.Client{Timeout: 10 * time.Second}

// FCMClient delivers push notifications through Firebase Cloud Messaging.
type FCMClient struct {
	serverKey string
	endpoint  string
	http      *http.Client
}

// NewFCMClient builds a client; serverKey is required.
func NewFCMClient(serverKey string) (*FCMClient, error) {
	if serverKey == "" {
		return nil, ErrFCMNotConfigured
	}
	return &FCMClient{serverKey: serverKey, endpoint: fcmSendEndpoint, http: fcmHTTPClient}, nil
}

type fcmMessage struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type fcmSendResp struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Send pushes one notification to a single device token.
func (f *FCMClient) Send(ctx context.Context, token, title, body, imageURL string) error {
	msg := fcmMessage{
		To:           token,
		Notification: fcmNotification{Title: title, Body: body, Image: imageURL},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "key="+f.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fcm send failed: status %d", resp.StatusCode)
	}

	var body2 fcmSendResp
	if err := json.NewDecoder(resp.Body).Decode(&body2); err != nil {
		return fmt.Errorf("fcm send decode: %w", err)
	}
	if body2.Failure > 0 {
		return errors.New("fcm rejected the token")
	}
	return nil
}
