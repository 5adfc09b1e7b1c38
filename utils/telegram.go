package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrTelegramNotConfigured is returned when no bot token is available.
var ErrTelegramNotConfigured = errors.New("telegram bot token not configured")

var telegramHTTPClient = &http.Client{Timeout: 10 * time.Second}

// TelegramClient talks to the Bot API of the bot that hosts the audio files.
// getFile exchanges a stable file_id for a file_path; the resulting direct URL
// is only valid for about an hour on Telegram's side.
type TelegramClient struct {
	token   string
	apiBase string
	http    *http.Client
}

// NewTelegramClient builds a client; token must be non-empty.
func NewTelegramClient(token, apiBase string) (*TelegramClient, error) {
	if token == "" {
		return nil, ErrTelegramNotConfigured
	}
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	return &TelegramClient{token: token, apiBase: apiBase, http: telegramHTTPClient}, nil
}

type telegramFileResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		FileID   string `json:"file_id"`
		FilePath string `json:"file_path"`
		FileSize int64  `json:"file_size"`
	} `json:"result"`
}

// ResolveDirectURL asks the Bot API for the current file_path of fileID and
// returns the direct download URL built from it.
func (t *TelegramClient) ResolveDirectURL(ctx context.Context, fileID string) (string, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", t.apiBase, t.token, url.QueryEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body telegramFileResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("telegram getFile decode: %w", err)
	}
	if !body.OK || body.Result.FilePath == "" {
		detail := body.Description
		if detail == "" {
			detail = fmt.Sprintf("http status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("telegram getFile failed: %s", detail)
	}
	return fmt.Sprintf("%s/file/bot%s/%s", t.apiBase, t.token, body.Result.FilePath), nil
}
