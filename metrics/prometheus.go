package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mutex       sync.RWMutex
	registerer  prometheus.Registerer
	initialized bool

	gauges     map[string]*prometheus.GaugeVec
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
)

func getLogger(metricName, metricType string) *log.Logger {
	return log.WithFields("metricName", metricName, "metricType", metricType)
}

// StartMetricsHttpServer initializes the metrics registry and serves it until ctx is done
func StartMetricsHttpServer(ctx context.Context, c Config) {
	if !c.Enabled {
		return
	}

	// Init metrics registry
	initMetrics(prometheus.DefaultRegisterer, c.Env)

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultMetricsEndpoint
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.Handler())
	srv := &http.Server{
		Addr:        ":" + c.Port,
		Handler:     mux,
		ReadTimeout: 5 * time.Second, //nolint:gomnd
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("metrics server listening on %s%s", srv.Addr, endpoint)
	err := srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Errorf("serve metrics http server error: %v", err)
	}
}

// register adds the collector built by newVec to vecs unless one with the same name exists
func register[V prometheus.Collector](vecs map[string]V, name, metricType string, newVec func() V) {
	logger := getLogger(name, metricType)
	if !initialized {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()

	if _, ok := vecs[name]; ok {
		return
	}
	collector := newVec()
	if err := registerer.Register(collector); err != nil {
		logger.Errorf("metrics register error: %v", err)
		return
	}
	vecs[name] = collector
	logger.Debugf("metrics register successfully")
}

func lookup[V any](vecs map[string]V, name, metricType string) (V, bool) {
	var zero V
	if !initialized {
		return zero, false
	}
	mutex.RLock()
	c, ok := vecs[name]
	mutex.RUnlock()
	if !ok {
		getLogger(name, metricType).Errorf("collector not found")
		return zero, false
	}
	return c, true
}

func registerGauge(opt prometheus.GaugeOpts, labelNames ...string) {
	register(gauges, opt.Name, typeGauge, func() *prometheus.GaugeVec { return prometheus.NewGaugeVec(opt, labelNames) })
}

func registerCounter(opt prometheus.CounterOpts, labelNames ...string) {
	register(counters, opt.Name, typeCounter, func() *prometheus.CounterVec { return prometheus.NewCounterVec(opt, labelNames) })
}

func registerHistogram(opt prometheus.HistogramOpts, labelNames ...string) {
	register(histograms, opt.Name, typeHistogram, func() *prometheus.HistogramVec { return prometheus.NewHistogramVec(opt, labelNames) })
}

func gaugeSet(name string, value float64, labelValues map[string]string) {
	if c, ok := lookup(gauges, name, typeGauge); ok {
		c.With(labelValues).Set(value)
	}
}

func counterInc(name string, labelValues map[string]string) {
	if c, ok := lookup(counters, name, typeCounter); ok {
		c.With(labelValues).Inc()
	}
}

func counterAdd(name string, value float64, labelValues map[string]string) {
	if c, ok := lookup(counters, name, typeCounter); ok {
		c.With(labelValues).Add(value)
	}
}

func histogramObserve(name string, value float64, labelValues map[string]string) {
	if c, ok := lookup(histograms, name, typeHistogram); ok {
		c.With(labelValues).Observe(value)
	}
}
