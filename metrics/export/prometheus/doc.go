// Package prometheus renders goAccount metrics in the Prometheus text
// exposition format.
//
// Counter names are goaccount_*_total; the histogram is
// goaccount_login_latency_seconds. Callers mount [PrometheusExporter.Handler];
// nothing is registered globally.
package prometheus
