// Package notify posts a short analysis summary to Slack or Discord via
// incoming webhooks. The webhook URL comes from configuration or the
// NOTIFY_WEBHOOK_URL environment variable and is never logged.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

// maxExcerpt bounds how much of the solution is inlined in a message.
// Discord rejects embed descriptions over 4096 characters.
const maxExcerpt = 1500

// AnalysisUpdate is the data passed to SendAnalysis.
type AnalysisUpdate struct {
	Context   *observability.AnalysisContext
	Diagnosis *llm.Diagnosis
	// IssueURL is set when the analysis was also published to GitHub.
	IssueURL string
}

// NotificationClient sends webhook messages to Slack or Discord.
// Auto-detected from the URL: discord.com → Discord format, otherwise Slack.
type NotificationClient struct {
	WebhookURL string
	http       *http.Client
}

// NewNotificationClient creates a client. An empty URL silently no-ops all sends.
func NewNotificationClient(webhookURL string) *NotificationClient {
	return &NotificationClient{
		WebhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// SendAnalysis posts a formatted message to the configured webhook.
// Returns nil (no-op) when WebhookURL is empty.
func (n *NotificationClient) SendAnalysis(ctx context.Context, u AnalysisUpdate) error {
	if n.WebhookURL == "" {
		return nil
	}

	var payload any
	if isDiscord(n.WebhookURL) {
		payload = buildDiscordPayload(u)
	} else {
		payload = buildSlackPayload(u)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func isDiscord(url string) bool {
	return strings.Contains(url, "discord.com") || strings.Contains(url, "discordapp.com")
}

// excerpt shortens s to at most n bytes on a line boundary where possible.
func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := strings.ToValidUTF8(s[:n], "")
	if i := strings.LastIndexByte(cut, '\n'); i > n/2 {
		cut = cut[:i]
	}
	return cut + "\n…"
}

func inputLine(ac *observability.AnalysisContext) string {
	line := fmt.Sprintf("%s (%s, %s)", ac.Source, ac.Mode, humanize.IBytes(uint64(ac.SizeBytes)))
	if ac.Sections > 0 {
		line += fmt.Sprintf(", %d error section(s)", ac.Sections)
	}
	return line
}

// --- Slack Block Kit payload ---

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildSlackPayload(u AnalysisUpdate) slackPayload {
	header := fmt.Sprintf("*Analysed* `%s`", inputLine(u.Context))
	if len(u.Context.Categories) > 0 {
		header += fmt.Sprintf("\n*Likely areas:* %s", strings.Join(u.Context.Categories, ", "))
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "🐹 Gopher Triage Analysis"}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: header}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: excerpt(u.Diagnosis.Solution, maxExcerpt)}},
	}
	if u.IssueURL != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("🔗 <%s|Full analysis on GitHub>", u.IssueURL)},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})
	return slackPayload{Blocks: blocks}
}

// --- Discord webhook payload ---

type discordPayload struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"` // decimal RGB
	Fields      []discordField `json:"fields,omitempty"`
	URL         string         `json:"url,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

func buildDiscordPayload(u AnalysisUpdate) discordPayload {
	color := 0x57F287 // green
	if u.Context.Sampled {
		color = 0xFEE75C // yellow: no error lines were found
	}

	fields := []discordField{
		{Name: "Input", Value: inputLine(u.Context), Inline: false},
		{Name: "Model", Value: u.Diagnosis.Model, Inline: true},
	}
	if len(u.Context.Categories) > 0 {
		fields = append(fields, discordField{Name: "Likely areas", Value: strings.Join(u.Context.Categories, ", "), Inline: true})
	}

	embed := discordEmbed{
		Title:       "🐹 Gopher Triage analysed " + u.Context.Source,
		Description: excerpt(u.Diagnosis.Solution, maxExcerpt),
		Color:       color,
		Fields:      fields,
		URL:         u.IssueURL,
		Footer:      &discordFooter{Text: "Gopher Triage • " + time.Now().UTC().Format("2006-01-02 15:04 UTC")},
	}

	return discordPayload{
		Username: "Gopher Triage",
		Embeds:   []discordEmbed{embed},
	}
}
