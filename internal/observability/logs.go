package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// DefaultTailLines is the number of log lines fetched per container.
const DefaultTailLines int64 = 1000

// PodSource reads a container's log from a Kubernetes pod.
type PodSource struct {
	// KubeClient is the clientset required for pod log streaming.
	KubeClient kubernetes.Interface
	// CtrlClient is used for Events; nil skips event collection.
	CtrlClient client.Client
	// Prometheus is optional; nil skips metrics collection.
	Prometheus *PrometheusClient

	Namespace string
	Pod       string
	// Container defaults to the first container in the pod spec.
	Container string
	TailLines int64
	// Previous reads the last terminated instance only.
	Previous bool
}

// ParsePodRef splits "namespace/name" (or "name", namespace "default").
func ParsePodRef(ref string) (namespace, name string, err error) {
	parts := strings.SplitN(ref, "/", 2)
	switch {
	case len(parts) == 1 && parts[0] != "":
		return "default", parts[0], nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("invalid pod %q: expected \"namespace/name\"", ref)
}

func (s *PodSource) Read(ctx context.Context) (*RawLog, error) {
	container := s.Container
	if container == "" {
		pod, err := s.KubeClient.CoreV1().Pods(s.Namespace).Get(ctx, s.Pod, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("getting pod %s/%s: %w", s.Namespace, s.Pod, err)
		}
		if len(pod.Spec.Containers) == 0 {
			return nil, fmt.Errorf("pod %s/%s has no containers", s.Namespace, s.Pod)
		}
		container = pod.Spec.Containers[0].Name
	}

	tail := s.TailLines
	if tail <= 0 {
		tail = DefaultTailLines
	}

	var (
		logs     string
		previous = s.Previous
		err      error
	)
	if s.Previous {
		logs, err = streamLogs(ctx, s.KubeClient, s.Namespace, s.Pod, container, tail, true)
	} else {
		logs, previous, err = FetchContainerLogs(ctx, s.KubeClient, s.Namespace, s.Pod, container, tail)
	}
	if err != nil {
		return nil, err
	}
	return &RawLog{
		Name:     fmt.Sprintf("pod:%s/%s[%s]", s.Namespace, s.Pod, container),
		Text:     logs,
		Previous: previous,
	}, nil
}

// Enrich attaches Warning events and metrics for the pod. Failures are
// logged and skipped so the LLM still receives the logs.
func (s *PodSource) Enrich(ctx context.Context, ac *AnalysisContext) {
	logger := log.FromContext(ctx).WithValues("pod", s.Namespace+"/"+s.Pod)

	if s.CtrlClient != nil {
		events, err := FetchKubeEvents(ctx, s.CtrlClient, s.Namespace, map[string]bool{s.Pod: true})
		if err != nil {
			logger.V(1).Info("could not fetch kube events", "err", err)
		} else {
			ac.KubeEvents = events
		}
	}

	if s.Prometheus != nil {
		metrics, err := s.Prometheus.QueryPod(ctx, s.Namespace, s.Pod)
		if err != nil {
			logger.V(1).Info("prometheus query failed, continuing without metrics", "err", err)
		} else {
			ac.Metrics = metrics
		}
	}
}

// FetchContainerLogs retrieves the last tailLines lines from a container.
// It first tries the running container; if that fails or is empty (e.g. the
// container has crashed) it falls back to the previous terminated instance
// and reports previous as true.
func FetchContainerLogs(
	ctx context.Context,
	kube kubernetes.Interface,
	namespace, podName, containerName string,
	tailLines int64,
) (logs string, previous bool, err error) {
	logs, err = streamLogs(ctx, kube, namespace, podName, containerName, tailLines, false)
	if err == nil && logs != "" {
		return logs, false, nil
	}

	prev, prevErr := streamLogs(ctx, kube, namespace, podName, containerName, tailLines, true)
	if prevErr != nil {
		return "", false, fmt.Errorf("fetching logs for %s/%s[%s]: current: %v, previous: %v",
			namespace, podName, containerName, err, prevErr)
	}
	return prev, true, nil
}

func streamLogs(
	ctx context.Context,
	kube kubernetes.Interface,
	namespace, podName, containerName string,
	tailLines int64,
	previous bool,
) (string, error) {
	req := kube.CoreV1().Pods(namespace).GetLogs(podName, &corev1.PodLogOptions{
		Container: containerName,
		TailLines: &tailLines,
		Previous:  previous,
	})

	stream, err := req.Stream(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, stream); err != nil {
		return "", fmt.Errorf("reading log stream: %w", err)
	}
	return toValidUTF8(buf.Bytes()), nil
}
