package layer

import (
	"context"
	"io"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsLayer records operation counts and latencies as Prometheus
// metrics. It never alters results or errors.
type MetricsLayer struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewMetrics creates a new metrics layer registered against reg.
// A nil reg falls back to the default registerer.
func NewMetrics(reg prometheus.Registerer) (*MetricsLayer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ml := &MetricsLayer{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ustore",
			Name:      "operations_total",
			Help:      "Total operations dispatched to the backend, by outcome.",
		}, []string{"backend", "operation", "status"}),

		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ustore",
			Name:      "operation_duration_seconds",
			Help:      "Latency of backend operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
	}

	if err := reg.Register(ml.operations); err != nil {
		return nil, err
	}
	if err := reg.Register(ml.durations); err != nil {
		return nil, err
	}

	return ml, nil
}

func (ml *MetricsLayer) Apply(inner backend.Backend) backend.Backend {
	return &metricsBackend{
		inner:   inner,
		metrics: ml,
	}
}

type metricsBackend struct {
	inner   backend.Backend
	metrics *MetricsLayer
}

func (mb *metricsBackend) Name() string {
	return mb.inner.Name()
}

func (mb *metricsBackend) Open(ctx context.Context) error {
	return mb.inner.Open(ctx)
}

func (mb *metricsBackend) Close(ctx context.Context) error {
	return mb.inner.Close(ctx)
}

func (mb *metricsBackend) Capabilities() data.Capability {
	return mb.inner.Capabilities()
}

func (mb *metricsBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	start := time.Now()
	entry, err := mb.inner.Stat(ctx, key)
	mb.observe(data.OpStat, start, err)

	return entry, err
}

func (mb *metricsBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	start := time.Now()
	reader, err := mb.inner.Read(ctx, key, rng)
	mb.observe(data.OpRead, start, err)

	return reader, err
}

func (mb *metricsBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	start := time.Now()
	err := mb.inner.Write(ctx, key, reader, opts)
	mb.observe(data.OpWrite, start, err)

	return err
}

func (mb *metricsBackend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := mb.inner.Delete(ctx, key)
	mb.observe(data.OpDelete, start, err)

	return err
}

func (mb *metricsBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	start := time.Now()
	page, err := mb.inner.List(ctx, prefix, opts)
	mb.observe(data.OpList, start, err)

	return page, err
}

func (mb *metricsBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	start := time.Now()
	request, err := mb.inner.Presign(ctx, key, op, expiry)
	mb.observe(data.OpPresign, start, err)

	return request, err
}

func (mb *metricsBackend) Copy(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := mb.inner.Copy(ctx, src, dst)
	mb.observe(data.OpCopy, start, err)

	return err
}

func (mb *metricsBackend) Rename(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := mb.inner.Rename(ctx, src, dst)
	mb.observe(data.OpRename, start, err)

	return err
}

func (mb *metricsBackend) observe(op data.Operation, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = data.KindOf(err).String()
	}

	name := mb.inner.Name()
	mb.metrics.operations.WithLabelValues(name, string(op), status).Inc()
	mb.metrics.durations.WithLabelValues(name, string(op)).Observe(time.Since(start).Seconds())
}
