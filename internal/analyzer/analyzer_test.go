/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	ggithub "github.com/tonyjoanes/gopher-triage/internal/github"
	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/notify"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
	"github.com/tonyjoanes/gopher-triage/internal/preprocess"
	"github.com/tonyjoanes/gopher-triage/internal/report"
)

type fakeLLM struct {
	got *observability.AnalysisContext
	err error
}

func (f *fakeLLM) Diagnose(_ context.Context, ac *observability.AnalysisContext) (*llm.Diagnosis, error) {
	f.got = ac
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Diagnosis{Solution: "Increase the connection pool size.", Model: "fake"}, nil
}

type fakePublisher struct {
	req ggithub.PublishRequest
	err error
}

func (f *fakePublisher) Publish(_ context.Context, req ggithub.PublishRequest) (*ggithub.PublishResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &ggithub.PublishResult{URL: "https://github.com/acme/api/issues/9", Created: true}, nil
}

type fakeNotifier struct {
	updates []notify.AnalysisUpdate
}

func (f *fakeNotifier) SendAnalysis(_ context.Context, u notify.AnalysisUpdate) error {
	f.updates = append(f.updates, u)
	return errors.New("webhook down")
}

func logWithErrors(n int, errorsAt ...int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		msg := "INFO request served"
		for _, e := range errorsAt {
			if e == i {
				msg = "ERROR connection pool exhausted"
			}
		}
		fmt.Fprintf(&sb, "%04d %s\n", i, msg)
	}
	return sb.String()
}

var _ = Describe("Analyzer", func() {
	var (
		ctx     context.Context
		out     *bytes.Buffer
		model   *fakeLLM
		subject *Analyzer
	)

	BeforeEach(func() {
		ctx = context.Background()
		out = &bytes.Buffer{}
		model = &fakeLLM{}

		cfg := config.Default().Preprocess
		cfg.Mode = config.ModePreprocessed
		r, err := preprocess.NewReducer(preprocess.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		subject = &Analyzer{
			Collector: observability.NewCollector(cfg, r),
			LLM:       model,
			Console:   &report.Console{Out: out, Plain: true},
		}
	})

	It("sends only the error sections and prints the answer", func() {
		res, err := subject.Run(ctx, observability.TextSource{Text: logWithErrors(100, 20, 75)})
		Expect(err).NotTo(HaveOccurred())

		Expect(model.got.Sections).To(Equal(2))
		Expect(model.got.Text).To(ContainSubstring("==== ERROR SECTION (lines 19-23) ===="))
		Expect(model.got.Text).To(ContainSubstring("==== ERROR SECTION (lines 74-78) ===="))
		Expect(model.got.Text).NotTo(ContainSubstring("0050 INFO"))

		Expect(res.Diagnosis.Solution).To(Equal("Increase the connection pool size."))
		Expect(out.String()).To(ContainSubstring(report.Title))
		Expect(out.String()).To(ContainSubstring("Increase the connection pool size."))
	})

	It("refuses to call the model on empty input", func() {
		_, err := subject.Run(ctx, observability.TextSource{Text: ""})
		Expect(err).To(MatchError(ErrNothingToAnalyze))
		Expect(model.got).To(BeNil())
	})

	It("prints the prompt on a dry run without calling the model", func() {
		subject.DryRun = true
		res, err := subject.Run(ctx, observability.TextSource{Text: logWithErrors(30, 10)})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Diagnosis).To(BeNil())
		Expect(model.got).To(BeNil())
		Expect(out.String()).To(ContainSubstring("SYSTEM PROMPT"))
		Expect(out.String()).To(ContainSubstring("ERROR connection pool exhausted"))
	})

	It("wraps model failures", func() {
		model.err = errors.New("boom")
		_, err := subject.Run(ctx, observability.TextSource{Text: logWithErrors(30, 10)})
		Expect(err).To(MatchError(ContainSubstring("analyzing log: boom")))
	})

	It("saves to a file when an output path is set", func() {
		subject.OutputPath = filepath.Join(GinkgoT().TempDir(), "out.txt")
		_, err := subject.Run(ctx, observability.TextSource{Text: logWithErrors(30, 10)})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("Analysis saved to " + subject.OutputPath + "\n"))
		data, err := os.ReadFile(subject.OutputPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("Increase the connection pool size."))
	})

	It("publishes and notifies, tolerating notifier failures", func() {
		pub := &fakePublisher{}
		notifier := &fakeNotifier{}
		subject.Publisher = pub
		subject.IssueTarget = &ggithub.IssueRef{Owner: "acme", Repo: "api"}
		subject.Notifier = notifier

		res, err := subject.Run(ctx, observability.TextSource{Text: logWithErrors(30, 10)})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.req.Target.Repo).To(Equal("api"))
		Expect(res.IssueURL).To(Equal("https://github.com/acme/api/issues/9"))
		Expect(notifier.updates).To(HaveLen(1))
		Expect(notifier.updates[0].IssueURL).To(Equal(res.IssueURL))
	})

	It("still notifies when publishing fails", func() {
		subject.Publisher = &fakePublisher{err: errors.New("403")}
		subject.IssueTarget = &ggithub.IssueRef{Owner: "acme", Repo: "api", Number: 1}
		notifier := &fakeNotifier{}
		subject.Notifier = notifier

		res, err := subject.Run(ctx, observability.TextSource{Text: logWithErrors(30, 10)})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IssueURL).To(BeEmpty())
		Expect(notifier.updates).To(HaveLen(1))
	})
})
