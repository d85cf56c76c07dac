// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbed

import (
	"context"
	"errors"
	"net/http"
	"time"

	mp "github.com/nbrownus/go-metrics-prometheus"
	"github.com/platinasystems/igbe/vnet/devices/ethernet/igbe"
	"github.com/platinasystems/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metrics_path = "/metrics"

// newPrometheus exports the soft counters of every controller, one
// subsystem per controller.
func newPrometheus(reg *igbe.Registry, interval time.Duration) *prometheus.Registry {
	pr := prometheus.NewRegistry()
	reg.Each(func(c *igbe.Controller) {
		p := mp.NewPrometheusProvider(c.Metrics(), "igbe", c.Name, pr, interval)
		go p.UpdatePrometheusMetrics()
	})
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "igbe",
		Name:      "info",
		Help:      "Controllers and their chip family",
	}, []string{"controller", "chip", "address"})
	pr.MustRegister(g)
	reg.Each(func(c *igbe.Controller) {
		g.WithLabelValues(c.Name, c.Chip(), c.HardwareAddr().String()).Set(1)
	})
	return pr
}

// serveMetrics serves /metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, pr *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle(metrics_path, promhttp.HandlerFor(pr, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Print("info", "prometheus stats listening on ", addr, " at ", metrics_path)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
