package cli

import (
	"context"
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

// restConfig resolves the cluster connection the way kubectl does:
// --kubeconfig, then $KUBECONFIG, then ~/.kube/config, with an optional
// context override.
func restConfig(cfg config.KubernetesConfig) (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.Kubeconfig != "" {
		rules.ExplicitPath = cfg.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: cfg.Context}
	rc, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	return rc, nil
}

func newPodSource(ctx context.Context, cfg config.KubernetesConfig, o *analyzeOptions) (*observability.PodSource, error) {
	logger := log.FromContext(ctx)

	ns, name, err := observability.ParsePodRef(o.pod)
	if err != nil {
		return nil, err
	}
	rc, err := restConfig(cfg)
	if err != nil {
		return nil, err
	}
	kube, err := kubernetes.NewForConfig(rc)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}

	src := &observability.PodSource{
		KubeClient: kube,
		Namespace:  ns,
		Pod:        name,
		Container:  o.container,
		TailLines:  cfg.TailLines,
		Previous:   o.previous,
	}

	if o.events {
		c, err := client.New(rc, client.Options{})
		if err != nil {
			return nil, fmt.Errorf("creating events client: %w", err)
		}
		src.CtrlClient = c
	}

	if cfg.PrometheusURL != "" {
		prom, err := observability.NewPrometheusClient(cfg.PrometheusURL)
		if err != nil {
			return nil, err
		}
		src.Prometheus = prom
	}

	logger.V(1).Info("reading pod logs", "namespace", ns, "pod", name, "container", o.container, "previous", o.previous)
	return src, nil
}
