// Package notify delivers plain text notifications about invitations and reviews.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

// Events.
const (
	EventMemberInvited        = "member.invited"
	EventSubmittedForApproval = "review.submitted"
	EventReviewed             = "review.completed"
)

type Message struct {
	Event     string `json:"event"`
	Recipient string `json:"recipient,omitempty"`
	Text      string `json:"text"`
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Slack posts messages to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
}

func NewSlack(webhookURL string, timeout time.Duration) *Slack {
	return &Slack{webhookURL: webhookURL, client: &http.Client{Timeout: timeout}}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Send(ctx context.Context, m Message) error {
	text := m.Text
	if m.Recipient != "" {
		text = fmt.Sprintf("[%s] %s", m.Recipient, text)
	}
	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("encoding slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.External("slack notify", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.External("slack notify", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	return nil
}

// Log writes messages to the logger. Used when no webhook is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, m Message) error {
	l.logger.Info("notification", "event", m.Event, "recipient", m.Recipient, "text", m.Text)
	return nil
}
