// Package github publishes analysis results to GitHub issues: either as a
// comment on an existing issue or as a new issue in a repository.
//
// Targets use the familiar short forms:
//
//	owner/repo#42   comment on issue (or pull request) 42
//	owner/repo      open a new issue
package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gogithub "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

const (
	// maxBodyChars stays under GitHub's 65536 character limit for issue
	// and comment bodies.
	maxBodyChars = 60000

	issueLabel = "gopher-triage"
)

// IssueRef identifies a repository and, optionally, an issue number.
type IssueRef struct {
	Owner string
	Repo  string
	// Number is zero when a new issue should be opened.
	Number int
}

func (r IssueRef) String() string {
	if r.Number == 0 {
		return r.Owner + "/" + r.Repo
	}
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// PublishRequest carries everything needed to publish one analysis.
type PublishRequest struct {
	Target    IssueRef
	Context   *observability.AnalysisContext
	Diagnosis *llm.Diagnosis
}

// PublishResult is returned after a successful publish.
type PublishResult struct {
	// URL is the HTML URL of the created comment or issue.
	URL string
	// Created is true when a new issue was opened.
	Created bool
}

// IssuePublisher uses the GitHub REST API to post analyses.
type IssuePublisher struct {
	gh *gogithub.Client
}

// NewIssuePublisher creates an authenticated GitHub client using a personal
// access token or GitHub App installation token.
func NewIssuePublisher(token string) *IssuePublisher {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &IssuePublisher{gh: gogithub.NewClient(tc)}
}

// NewIssuePublisherWithClient wraps an existing go-github client, e.g. one
// pointed at GitHub Enterprise.
func NewIssuePublisherWithClient(gh *gogithub.Client) *IssuePublisher {
	return &IssuePublisher{gh: gh}
}

// Publish comments on req.Target when it names an issue and opens a new
// issue otherwise.
func (p *IssuePublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	body := buildIssueBody(req)

	if req.Target.Number > 0 {
		c, _, err := p.gh.Issues.CreateComment(ctx, req.Target.Owner, req.Target.Repo, req.Target.Number,
			&gogithub.IssueComment{Body: gogithub.String(body)})
		if err != nil {
			return nil, fmt.Errorf("commenting on %s: %w", req.Target, err)
		}
		return &PublishResult{URL: c.GetHTMLURL()}, nil
	}

	issue, _, err := p.gh.Issues.Create(ctx, req.Target.Owner, req.Target.Repo, &gogithub.IssueRequest{
		Title:  gogithub.String(issueTitle(req.Context)),
		Body:   gogithub.String(body),
		Labels: &[]string{issueLabel},
	})
	if err != nil {
		return nil, fmt.Errorf("opening issue in %s: %w", req.Target, err)
	}
	return &PublishResult{URL: issue.GetHTMLURL(), Created: true}, nil
}

func issueTitle(ac *observability.AnalysisContext) string {
	title := "Error analysis: " + ac.Source
	if len(ac.Categories) > 0 {
		title += " [" + strings.Join(ac.Categories, ", ") + "]"
	}
	return title
}

// buildIssueBody produces the structured issue or comment body.
func buildIssueBody(req PublishRequest) string {
	ac := req.Context
	var sb strings.Builder
	sb.WriteString("## 🐹 Gopher Triage: Error Analysis\n\n")

	sb.WriteString("### Input\n")
	fmt.Fprintf(&sb, "- **Source**: `%s`\n", ac.Source)
	fmt.Fprintf(&sb, "- **Mode**: %s\n", ac.Mode)
	if ac.TotalLines > 0 {
		fmt.Fprintf(&sb, "- **Lines**: %d total, %d matched, %d sent in %d section(s)\n",
			ac.TotalLines, ac.MatchedLines, ac.KeptLines, ac.Sections)
	}
	if len(ac.Categories) > 0 {
		fmt.Fprintf(&sb, "- **Likely areas**: %s\n", strings.Join(ac.Categories, ", "))
	}
	if len(ac.ErrorCodes) > 0 {
		fmt.Fprintf(&sb, "- **Codes**: `%s`\n", strings.Join(ac.ErrorCodes, "`, `"))
	}
	fmt.Fprintf(&sb, "- **Model**: `%s`\n\n", req.Diagnosis.Model)

	sb.WriteString("### Analysis\n")
	sb.WriteString(req.Diagnosis.Solution)
	sb.WriteString("\n\n")

	if ac.Stats != nil {
		sb.WriteString("<details><summary>Error statistics</summary>\n\n```\n")
		sb.WriteString(ac.Stats.Summary())
		sb.WriteString("```\n</details>\n\n")
	}

	sb.WriteString("---\n")
	sb.WriteString("⚠️ *Generated by an LLM. Review the suggested commands before running them.*\n")

	body := sb.String()
	if len(body) > maxBodyChars {
		// Cutting by bytes can split a rune; drop the partial tail.
		body = strings.ToValidUTF8(body[:maxBodyChars], "") + "\n\n*[truncated]*\n"
	}
	return body
}

// ParseIssueRef parses "owner/repo#N" or "owner/repo".
func ParseIssueRef(s string) (IssueRef, error) {
	repoPart, numPart, hasNum := strings.Cut(s, "#")
	owner, repo, err := SplitRepo(repoPart)
	if err != nil {
		return IssueRef{}, err
	}
	ref := IssueRef{Owner: owner, Repo: repo}
	if hasNum {
		n, err := strconv.Atoi(numPart)
		if err != nil || n <= 0 {
			return IssueRef{}, fmt.Errorf("invalid issue number in %q", s)
		}
		ref.Number = n
	}
	return ref, nil
}

// SplitRepo splits "owner/repo" into (owner, repo).
// Returns an error if the format is invalid.
func SplitRepo(gitRepo string) (owner, repo string, err error) {
	parts := strings.SplitN(gitRepo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected \"owner/repo\"", gitRepo)
	}
	return parts[0], parts[1], nil
}
