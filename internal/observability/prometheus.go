package observability

import (
	"context"
	"fmt"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// PrometheusClient queries a Prometheus-compatible HTTP API for pod metrics.
type PrometheusClient struct {
	// URL is the base URL of the Prometheus server, e.g.
	// "http://prometheus-operated.monitoring.svc.cluster.local:9090"
	URL     string
	api     promv1.API
	timeout time.Duration
}

// NewPrometheusClient creates a client with a short per-query timeout.
func NewPrometheusClient(prometheusURL string) (*PrometheusClient, error) {
	c, err := promapi.NewClient(promapi.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("creating prometheus client: %w", err)
	}
	return &PrometheusClient{
		URL:     prometheusURL,
		api:     promv1.NewAPI(c),
		timeout: 5 * time.Second,
	}, nil
}

// QueryPod fetches CPU (millicores) and memory (MiB) for one pod.
func (p *PrometheusClient) QueryPod(ctx context.Context, namespace, pod string) (*PrometheusSnapshot, error) {
	now := time.Now()

	cpuQuery := fmt.Sprintf(
		`sum(rate(container_cpu_usage_seconds_total{namespace=%q, pod=%q, container!=""}[2m])) * 1000`,
		namespace, pod,
	)
	cpu, err := p.instantQuery(ctx, cpuQuery, now)
	if err != nil {
		return nil, fmt.Errorf("prometheus CPU query: %w", err)
	}

	memQuery := fmt.Sprintf(
		`sum(container_memory_working_set_bytes{namespace=%q, pod=%q, container!=""}) / 1024 / 1024`,
		namespace, pod,
	)
	mem, err := p.instantQuery(ctx, memQuery, now)
	if err != nil {
		return nil, fmt.Errorf("prometheus memory query: %w", err)
	}

	return &PrometheusSnapshot{
		CPUUsageMillicores: cpu,
		MemUsageMiB:        mem,
		QueryTime:          now,
	}, nil
}

func (p *PrometheusClient) instantQuery(ctx context.Context, query string, ts time.Time) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	val, warnings, err := p.api.Query(ctx, query, ts)
	if err != nil {
		return 0, err
	}
	if len(warnings) > 0 {
		log.FromContext(ctx).V(1).Info("prometheus returned warnings", "query", query, "warnings", warnings)
	}

	vec, ok := val.(model.Vector)
	if !ok {
		return 0, fmt.Errorf("unexpected result type %s", val.Type())
	}
	if len(vec) == 0 {
		return 0, nil // metric not yet available
	}
	return float64(vec[0].Value), nil
}
