package observability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PrometheusClient", func() {
	It("queries CPU and memory for a pod", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			value := "64"
			if strings.Contains(r.Form.Get("query"), "cpu") {
				value = "250.5"
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,%q]}]}}`, value)
		}))
		DeferCleanup(srv.Close)

		p, err := NewPrometheusClient(srv.URL)
		Expect(err).NotTo(HaveOccurred())
		snap, err := p.QueryPod(context.Background(), "prod", "api-7f9c")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.CPUUsageMillicores).To(BeNumerically("~", 250.5))
		Expect(snap.MemUsageMiB).To(BeNumerically("~", 64))
	})

	It("treats an empty vector as zero", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
		}))
		DeferCleanup(srv.Close)

		p, err := NewPrometheusClient(srv.URL)
		Expect(err).NotTo(HaveOccurred())
		snap, err := p.QueryPod(context.Background(), "prod", "api")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.CPUUsageMillicores).To(BeZero())
	})
})
