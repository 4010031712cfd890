package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry in the Prometheus exposition
// format. Scrape counts and handler errors are themselves recorded on the
// same registry as promhttp_metric_handler_* series.
func (c *Collector) Handler() http.Handler {
	inner := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		Registry:          c.registry,
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
	return promhttp.InstrumentMetricHandler(c.registry, inner)
}
