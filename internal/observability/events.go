package observability

import (
	"context"
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const maxEvents = 20

// FetchKubeEvents returns the events in the given namespace whose
// InvolvedObject name is one of involvedNames.
//
// Warning events sort before Normal ones, newest-first within each type, and
// the list is capped at maxEvents.
func FetchKubeEvents(
	ctx context.Context,
	c client.Client,
	namespace string,
	involvedNames map[string]bool,
) ([]KubeEvent, error) {
	var eventList corev1.EventList
	if err := c.List(ctx, &eventList, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("listing events in %s: %w", namespace, err)
	}

	var out []KubeEvent
	for _, ev := range eventList.Items {
		if !involvedNames[ev.InvolvedObject.Name] {
			continue
		}
		last := ev.LastTimestamp.Time
		if last.IsZero() {
			last = ev.EventTime.Time
		}
		out = append(out, KubeEvent{
			Type:           ev.Type,
			Reason:         ev.Reason,
			Message:        ev.Message,
			Count:          ev.Count,
			LastSeen:       last,
			InvolvedObject: ev.InvolvedObject.Kind + "/" + ev.InvolvedObject.Name,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == corev1.EventTypeWarning
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})

	if len(out) > maxEvents {
		out = out[:maxEvents]
	}
	return out, nil
}
