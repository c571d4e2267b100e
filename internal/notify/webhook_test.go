package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

func update() AnalysisUpdate {
	return AnalysisUpdate{
		Context: &observability.AnalysisContext{
			Source:     "file:app.log",
			Mode:       config.ModePreprocessed,
			SizeBytes:  2048,
			Sections:   2,
			Categories: []string{"kubernetes"},
		},
		Diagnosis: &llm.Diagnosis{
			Solution: "## Problem Identification\nThe container was OOMKilled.",
			Model:    "gpt-4o-mini",
		},
		IssueURL: "https://github.com/acme/api/issues/7#issuecomment-1",
	}
}

var _ = Describe("NotificationClient", func() {
	var (
		body []byte
		srv  *httptest.Server
	)

	BeforeEach(func() {
		body = nil
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		}))
		DeferCleanup(srv.Close)
	})

	It("is a no-op without a webhook URL", func() {
		Expect(NewNotificationClient("").SendAnalysis(context.Background(), update())).To(Succeed())
	})

	It("posts a Slack Block Kit message", func() {
		Expect(NewNotificationClient(srv.URL+"/services/T000").SendAnalysis(context.Background(), update())).To(Succeed())

		var p slackPayload
		Expect(json.Unmarshal(body, &p)).To(Succeed())
		Expect(p.Blocks[0].Text.Text).To(ContainSubstring("Gopher Triage"))
		Expect(p.Blocks[1].Text.Text).To(ContainSubstring("file:app.log (preprocessed, 2.0 KiB), 2 error section(s)"))
		Expect(p.Blocks[2].Text.Text).To(ContainSubstring("OOMKilled"))
		Expect(p.Blocks[3].Text.Text).To(ContainSubstring("Full analysis on GitHub"))
	})

	It("surfaces non-2xx responses", func() {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer failing.Close()

		err := NewNotificationClient(failing.URL).SendAnalysis(context.Background(), update())
		Expect(err).To(MatchError("webhook returned HTTP 403"))
	})
})

var _ = Describe("payloads", func() {
	It("builds a Discord embed", func() {
		p := buildDiscordPayload(update())
		Expect(p.Embeds).To(HaveLen(1))
		Expect(p.Embeds[0].Title).To(HaveSuffix("file:app.log"))
		Expect(p.Embeds[0].URL).To(HavePrefix("https://github.com/acme/api"))
		Expect(p.Embeds[0].Fields).To(ContainElement(discordField{Name: "Model", Value: "gpt-4o-mini", Inline: true}))
	})

	It("detects Discord URLs", func() {
		Expect(isDiscord("https://discord.com/api/webhooks/1/abc")).To(BeTrue())
		Expect(isDiscord("https://hooks.slack.com/services/T/B/X")).To(BeFalse())
	})

	It("truncates long solutions", func() {
		long := strings.Repeat("step\n", 1000)
		out := excerpt(long, maxExcerpt)
		Expect(len(out)).To(BeNumerically("<=", maxExcerpt+len("\n…")))
		Expect(out).To(HaveSuffix("…"))
	})

	It("never splits a multi-byte character when truncating", func() {
		for _, pad := range []string{"", "a", "ab"} {
			out := excerpt(pad+strings.Repeat("界", maxExcerpt), maxExcerpt)
			Expect(utf8.ValidString(out)).To(BeTrue(), "pad %q", pad)
			Expect(len(out)).To(BeNumerically("<=", maxExcerpt+len("\n…")))
		}
	})
})
