package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tonyjoanes/gopher-triage/internal/config"
)

// envDir is where .env discovery starts, so a checkout's own .env never
// leaks into the tests.
var envDir string

func execute(stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &out, &errOut, envDir)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func sampleLog(n int, errorsAt ...int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		msg := "INFO GET /healthz 200"
		for _, e := range errorsAt {
			if i == e {
				msg = "ERROR upstream connect error: connection refused"
			}
		}
		fmt.Fprintf(&sb, "2024-05-01T10:00:%02d %s\n", i%60, msg)
	}
	return sb.String()
}

var _ = Describe("gopher-triage", func() {
	BeforeEach(func() {
		envDir = GinkgoT().TempDir()
		// Keep the developer's LLM settings out of the tests.
		for _, k := range []string{
			config.EnvProvider, config.EnvAPIKey, config.EnvAzureAPIKey,
			config.EnvEndpoint, config.EnvDeployment, config.EnvContextLines,
			config.EnvWebhookURL, config.EnvGitHubToken,
		} {
			if v, ok := os.LookupEnv(k); ok {
				Expect(os.Unsetenv(k)).To(Succeed())
				DeferCleanup(os.Setenv, k, v)
			}
		}
	})

	It("prints the version", func() {
		out, _, err := execute("", "version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("gopher-triage dev"))
	})

	Describe("patterns", func() {
		It("lists the built-in signatures", func() {
			out, _, err := execute("", "patterns")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HavePrefix("KIND"))
			Expect(out).To(MatchRegexp(`(?m)^literal\s+error$`))
			Expect(out).To(ContainSubstring("regex"))
		})

		It("replaces and extends the set", func() {
			out, _, err := execute("", "patterns", "--pattern", "boom", "--extra-pattern", `re:E\d{4}`)
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(out), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[1]).To(MatchRegexp(`^literal\s+boom$`))
			Expect(lines[2]).To(MatchRegexp(`^regex\s+E\\d\{4\}$`))
		})

		It("rejects a malformed regex", func() {
			_, _, err := execute("", "patterns", "--extra-pattern", "re:(unclosed")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("analyze --dry-run", func() {
		It("prints the reduced prompt for a file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "app.log")
			Expect(os.WriteFile(path, []byte(sampleLog(100, 20, 75)), 0o644)).To(Succeed())

			out, _, err := execute("", "analyze", "--file", path, "--mode", "preprocessed", "--dry-run", "--no-color")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("SYSTEM PROMPT"))
			Expect(out).To(ContainSubstring("==== ERROR SECTION (lines 19-23) ===="))
			Expect(out).To(ContainSubstring("==== ERROR SECTION (lines 74-78) ===="))
			Expect(out).To(ContainSubstring("ERROR STATISTICS SUMMARY"))
			Expect(out).NotTo(ContainSubstring("10:00:50 INFO"))
		})

		It("reads stdin with --file -", func() {
			out, _, err := execute("FATAL: database system is shutting down\n", "analyze", "--file", "-", "--raw", "--dry-run")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("FATAL: database system is shutting down"))
		})

		It("sends --text as written", func() {
			out, _, err := execute("", "analyze", "--text", "Error: ImagePullBackOff", "--dry-run", "--no-color")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("provide a solution:\n\nError: ImagePullBackOff"))
			Expect(out).NotTo(ContainSubstring("ERROR SECTION"))
		})

		It("loads a .env file from the start directory", func() {
			Expect(os.WriteFile(filepath.Join(envDir, ".env"), []byte(config.EnvContextLines+"=1\n"), 0o600)).To(Succeed())
			DeferCleanup(os.Unsetenv, config.EnvContextLines)

			out, _, err := execute("", "analyze", "--text", sampleLog(100, 20, 75), "--mode", "preprocessed", "--dry-run", "--no-color")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("==== ERROR SECTION (lines 20-22) ===="))
		})

		It("saves the preprocessed log", func() {
			dir := GinkgoT().TempDir()
			saved := filepath.Join(dir, "reduced.log")
			_, _, err := execute("", "analyze", "--text", sampleLog(40, 10), "--mode", "preprocessed",
				"--context-lines", "1", "--save-preprocessed", saved, "--dry-run")
			Expect(err).NotTo(HaveOccurred())
			data, err := os.ReadFile(saved)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("==== ERROR SECTION (lines 10-12) ===="))
		})
	})

	Describe("analyze errors", func() {
		It("requires a source", func() {
			_, _, err := execute("", "analyze", "--dry-run")
			Expect(err).To(MatchError(errNoSource))
		})

		It("rejects two sources", func() {
			_, _, err := execute("", "analyze", "--text", "x", "--file", "y", "--dry-run")
			Expect(err).To(HaveOccurred())
		})

		It("rejects a negative context", func() {
			_, _, err := execute("", "analyze", "--text", "x", "--context-lines", "-1", "--dry-run")
			Expect(err).To(MatchError(ContainSubstring("contextLines")))
		})

		It("needs Azure settings without a dry run", func() {
			_, _, err := execute("", "analyze", "--text", "ERROR x")
			Expect(err).To(MatchError(ContainSubstring("azure provider requires an endpoint")))
		})

		It("fails on a missing file", func() {
			_, _, err := execute("", "analyze", "--file", filepath.Join(GinkgoT().TempDir(), "nope.log"), "--dry-run")
			Expect(err).To(HaveOccurred())
		})
	})
})
