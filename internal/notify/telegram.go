package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/store177/shop-backend/pkg/logger"
)

// TelegramSender posts messages through the Bot API sendMessage method.
type TelegramSender struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewTelegramSender(baseURL, token string) *TelegramSender {
	return &TelegramSender{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (s *TelegramSender) Notify(ctx context.Context, chatID int64, msg Message) error {
	if s.token == "" {
		return fmt.Errorf("telegram bot token is not configured")
	}
	if msg.Text == "" {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram: %w", err)
	}
	defer resp.Body.Close()

	var result botResponse
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != http.StatusOK || !result.OK {
		logger.Warn("Telegram rejected message", map[string]interface{}{
			"chat_id":     chatID,
			"status_code": resp.StatusCode,
			"description": result.Description,
		})
		return fmt.Errorf("telegram sendMessage failed: status %d: %s", resp.StatusCode, result.Description)
	}

	logger.Debug("Telegram message sent", map[string]interface{}{
		"chat_id": chatID,
		"event":   msg.Event,
	})
	return nil
}
