package preprocess

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Matcher", func() {
	var m *Matcher

	BeforeEach(func() {
		var err error
		m, err = NewMatcher(DefaultPatterns())
		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("default signatures",
		func(line string, want bool) {
			Expect(m.Match(line)).To(Equal(want))
		},
		Entry("uppercase ERROR", "2024-01-01 ERROR db unreachable", true),
		Entry("java exception", "java.lang.NullPointerException at Foo.bar", true),
		Entry("failed", "job failed after 3 attempts", true),
		Entry("connection refused", "dial tcp 10.0.0.1:5432: connect: Connection Refused", true),
		Entry("http 503", `10.1.1.1 "GET /api HTTP/1.1" 503 120`, true),
		Entry("status code 500", "upstream returned status=500", true),
		Entry("OOMKilled", "Last State: Terminated Reason: OOMKilled", true),
		Entry("plain info", "INFO request served in 12ms", false),
		Entry("room is not oom", "INFO booked meeting room 4", false),
		Entry("http 200", `"GET / HTTP/1.1" 200 512`, false),
	)

	It("classifies independently per line and records each index once", func() {
		lines := []LogLine{
			{Index: 0, Text: "boot ok"},
			{Index: 1, Text: "ERROR: fatal exception, connection refused"},
			{Index: 2, Text: "still ok"},
			{Index: 3, Text: "warning: disk almost full"},
		}
		got := m.Classify(lines)
		Expect(got.Len()).To(Equal(2))
		Expect(got.Has(1)).To(BeTrue())
		Expect(got.Has(3)).To(BeTrue())
	})

	It("returns an empty set for empty input", func() {
		Expect(m.Classify(nil).Len()).To(BeZero())
	})

	It("honours caller-supplied literal and regex signatures", func() {
		custom, err := NewMatcher([]Pattern{Literal("Disk Full"), Regex(`exit code [1-9]\d*`)})
		Expect(err).NotTo(HaveOccurred())
		Expect(custom.Match("node reports disk full")).To(BeTrue())
		Expect(custom.Match("process exited with EXIT CODE 137")).To(BeTrue())
		Expect(custom.Match("process exited with exit code 0")).To(BeFalse())
		Expect(custom.Match("ERROR something")).To(BeFalse())
	})

	DescribeTable("rejects malformed pattern sets",
		func(patterns []Pattern) {
			_, err := NewMatcher(patterns)
			var cfgErr *ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		},
		Entry("no patterns", []Pattern{}),
		Entry("invalid regex", []Pattern{Regex(`(unclosed`)}),
		Entry("empty literal", []Pattern{Literal("  ")}),
		Entry("unknown kind", []Pattern{{Kind: "glob", Expr: "*.err"}}),
	)

	It("parses the textual pattern form", func() {
		ps, err := ParsePatterns([]string{"re:^FATAL", "segfault"})
		Expect(err).NotTo(HaveOccurred())
		Expect(ps).To(Equal([]Pattern{Regex("^FATAL"), Literal("segfault")}))
		Expect(ps[0].String()).To(Equal("re:^FATAL"))

		_, err = ParsePattern("re:")
		Expect(err).To(HaveOccurred())
	})
})
