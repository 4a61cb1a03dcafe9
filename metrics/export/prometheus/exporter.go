package prometheus

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() sessionauth.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
}

// PrometheusExporter renders engine metrics on demand.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *sessionauth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any snapshot provider.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler streams the exposition straight to the response.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		bw := bufio.NewWriter(w)
		_ = p.Export(bw)
		_ = bw.Flush()
	})
}

// Render returns the current metrics, or "" when metrics are disabled.
func (p *PrometheusExporter) Render() string {
	var b strings.Builder
	b.Grow(8192)
	_ = p.Export(&b)
	return b.String()
}

// Export writes one scrape. Nothing is written while metrics are disabled
// and the audit counters are still zero.
func (p *PrometheusExporter) Export(w io.Writer) error {
	if p == nil || p.source == nil {
		return nil
	}

	snapshot := p.source.MetricsSnapshot()
	dropped, failed := p.source.AuditDropped(), p.source.AuditFailed()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 && failed == 0 {
		return nil
	}

	ew := &errWriter{w: w}
	for _, def := range internaldefs.CounterDefs {
		ew.counter(def.Name, def.Help, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		ew.histogram(def.Name, def.Help, buckets)
	}
	ew.counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, dropped)
	ew.counter(internaldefs.AuditFailedName, internaldefs.AuditFailedHelp, failed)
	return ew.err
}

// errWriter keeps the first write error and skips every later write.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) header(name, help, kind string) {
	e.printf("# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func (e *errWriter) counter(name, help string, value uint64) {
	e.header(name, help, "counter")
	e.printf("%s %d\n", name, value)
}

// histogram writes cumulative buckets. Snapshots carry no sample sum, so
// _sum is always 0.
func (e *errWriter) histogram(name, help string, cumulative [internaldefs.BucketCount]uint64) {
	e.header(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		e.printf("%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}
	e.printf("%s_sum 0\n%s_count %d\n", name, name, cumulative[internaldefs.BucketCount-1])
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
