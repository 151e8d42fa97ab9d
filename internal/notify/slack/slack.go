// Package slack announces escalated tickets to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

const (
	maxTextLen  = 2900
	httpTimeout = 10 * time.Second
)

// Notifier posts ticket hand-offs and operational alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send and Alert are no-ops.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Send posts an escalated ticket so a human can pick it up.
func (n *Notifier) Send(ctx context.Context, result *ticket.RunResult) error {
	if n.webhookURL == "" {
		return nil
	}
	return n.post(ctx, buildEscalationMessage(result))
}

// Alert posts a warning that an escalation record could not be persisted.
func (n *Notifier) Alert(ctx context.Context, result *ticket.RunResult, cause error) error {
	if n.webhookURL == "" {
		n.logger.Warn(ctx, "slack webhook not configured, dropping alert", "ticket_id", result.ID)
		return nil
	}
	return n.post(ctx, buildAlertMessage(result, cause))
}

func (n *Notifier) post(ctx context.Context, msg map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildEscalationMessage(r *ticket.RunResult) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock("\U0001f7e0 Ticket Escalated", r.Ticket.Subject),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			textBlock("Final draft", r.FinalDraft, "_No draft available._"),
			textBlock("Reviewer feedback", r.Review.Feedback, "_No feedback._"),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func buildAlertMessage(r *ticket.RunResult, cause error) map[string]any {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock("\U0001f534 Escalation Not Recorded", r.Ticket.Subject),
			{"type": "divider"},
			textBlock("Cause", reason, ""),
			textBlock("Description", r.Ticket.Description, "_No description._"),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(title, subject string) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": truncate(fmt.Sprintf("%s: %s", title, subject), 150),
		},
	}
}

func fieldsBlock(r *ticket.RunResult) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Category:* %s", r.Category),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Attempts:* %d", r.AttemptCount),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", r.Duration),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Model:* %s", shortModel(r.Model)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Tokens:* %d", r.TokensIn+r.TokensOut),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Documents:* %d", len(r.Retrieval.Documents)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func textBlock(title, body, empty string) map[string]any {
	text := truncate(body, maxTextLen)
	if text == "" {
		text = empty
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n\n%s", title, text),
		},
	}
}

func contextBlock(r *ticket.RunResult) map[string]any {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("helpdesk • ticket %s • %s", r.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

// dateModelRe matches model names ending with a YYYYMMDD date suffix.
var dateModelRe = regexp.MustCompile(`-\d{8}$`)

func shortModel(model string) string {
	return dateModelRe.ReplaceAllString(model, "")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
