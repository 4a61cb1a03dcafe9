// Package prometheus renders engine metrics in the Prometheus text
// exposition format. Counters are named sessionauth_*_total; latency
// histograms are sessionauth_{login,refresh}_latency_seconds.
//
// The exporter does not register with a global registry; mount Handler
// wherever /metrics should live.
package prometheus
