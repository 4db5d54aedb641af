// Package metrics pushes aggregate mount counts to a Prometheus
// pushgateway so the numbers stay alertable even when the local host is
// severely degraded.
package metrics

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the pushgateway job name under which gauges are grouped.
const Job = "mount_status_monitor"

// Pusher publishes the per-cycle mount counts as two gauges, grouped by
// the host's identity.
type Pusher struct {
	pusher *push.Pusher
	total  prometheus.Gauge
	dead   prometheus.Gauge
}

// NewPusher creates a Pusher targeting the given pushgateway address. The
// instance grouping label is the local hostname; failure to determine it is
// a startup error.
func NewPusher(gateway string) (*Pusher, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("determining hostname for instance label: %w", err)
	}
	return newPusher(gateway, hostname), nil
}

// newPusher is split out so tests can pin the instance label.
func newPusher(gateway, instance string) *Pusher {
	total := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "total_mountpoints",
		Help: "Total number of mountpoints",
	})
	dead := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dead_mountpoints",
		Help: "Number of unresponsive mountpoints",
	})

	// A private registry keeps process-default collectors out of the push.
	reg := prometheus.NewRegistry()
	reg.MustRegister(total, dead)

	return &Pusher{
		pusher: push.New(gateway, Job).
			Gatherer(reg).
			Grouping("instance", instance),
		total: total,
		dead:  dead,
	}
}

// Push sets the gauges and pushes them to the gateway. Counts are ints
// locally; the precision loss of the float conversion is irrelevant for
// counting mountpoints.
func (p *Pusher) Push(ctx context.Context, total, dead int) error {
	p.total.Set(float64(total))
	p.dead.Set(float64(dead))
	return p.pusher.PushContext(ctx)
}
