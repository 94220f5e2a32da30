package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gometrics "github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redlinedb/redline/pkg/common"
)

type ExposeMetricSink string

const (
	InMemorySink    ExposeMetricSink = "in-memory"
	PrometheusSink  ExposeMetricSink = "prometheus"
	AllMetricsSink  ExposeMetricSink = "all"
	ExposeMetricURL                  = "/metrics"
)

var (
	logger = common.InitLogger().WithName("client-metrics")

	instance      ClientMetricsCollector
	collectorOnce sync.Once
)

// labelPool is a simple object pool for label slices to reduce allocations
type labelPool struct {
	pool sync.Pool
}

func newLabelPool() *labelPool {
	return &labelPool{
		pool: sync.Pool{
			New: func() interface{} {
				slice := make([]gometrics.Label, 0, 3)
				return &slice
			},
		},
	}
}

func (p *labelPool) get() []gometrics.Label {
	slicePtr := p.pool.Get().(*[]gometrics.Label)
	*slicePtr = (*slicePtr)[:0]
	return *slicePtr
}

func (p *labelPool) put(labels []gometrics.Label) {
	p.pool.Put(&labels)
}

// ClientMetricsCollector defines the interface for collecting client metrics
type ClientMetricsCollector interface {
	// RecordCommandLatency records submit-to-reply latency for one command
	RecordCommandLatency(command string, duration time.Duration)

	// RecordOverallLatency records submit-to-reply latency without
	// distinguishing between commands
	RecordOverallLatency(duration time.Duration)

	// RecordPoolWait records how long a submitter waited for an idle connection
	RecordPoolWait(duration time.Duration)

	// IncrementActiveConnections Concurrency metrics
	IncrementActiveConnections()
	DecrementActiveConnections()

	// IncrementCommandCounter Command counter metrics
	IncrementCommandCounter(command string)
	// IncrementCounter Generic counter metrics (reconnects, pool waits, ...)
	IncrementCounter(label string)

	// IncrementErrorCounter Error metrics
	IncrementErrorCounter(errorType string)

	// Shutdown the metrics collector
	Shutdown()

	// Handler returns a Gin handler function for exposing metrics
	Handler() gin.HandlerFunc
}

// Config holds configuration for metrics
type Config struct {
	// Metrics prefix for namespacing
	ServiceName string

	// Time interval for in-memory metrics aggregation
	AggregationInterval time.Duration

	// Retention period for metrics
	RetentionPeriod time.Duration

	// ExposeSink determines which metrics sink to expose
	ExposeSink ExposeMetricSink

	// MetricsEndpoint is the HTTP path for metrics
	MetricsEndpoint string
}

func NewPrometheusConfig(serviceName string) *Config {
	config := DefaultConfig()
	config.ServiceName = serviceName
	config.ExposeSink = PrometheusSink
	return config
}

func NewInMemoryConfig(serviceName string) *Config {
	config := DefaultConfig()
	config.ServiceName = serviceName
	config.ExposeSink = InMemorySink
	return config
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		ServiceName:         "redline",
		AggregationInterval: 5 * time.Second,
		RetentionPeriod:     10 * time.Minute,
		MetricsEndpoint:     ExposeMetricURL,
		ExposeSink:          InMemorySink,
	}
}

func newPrometheusSink() (*prometheus.PrometheusSink, error) {
	promSink, err := prometheus.NewPrometheusSink()
	if err != nil {
		return nil, err
	}
	return promSink, nil
}

func newInMemSink(config *Config) *gometrics.InmemSink {
	return gometrics.NewInmemSink(
		config.AggregationInterval,
		config.RetentionPeriod,
	)
}

// NewMetricsCollector returns the process-wide metrics collector. The first
// call builds it from config; later calls return that same instance and
// ignore their config.
func NewMetricsCollector(config *Config) (ClientMetricsCollector, error) {
	var initErr error
	collectorOnce.Do(func() {
		if config == nil {
			config = DefaultConfig()
		}
		metricsConf := gometrics.DefaultConfig(config.ServiceName)
		// Fanout so one process can expose both the in-memory JSON view and
		// the prometheus endpoint.
		sink := &fanoutSink{sinks: make([]gometrics.MetricSink, 0)}
		var inm *gometrics.InmemSink
		var promSink *prometheus.PrometheusSink
		var err error
		switch config.ExposeSink {
		case InMemorySink:
			inm = newInMemSink(config)
			sink.sinks = append(sink.sinks, inm)
		case PrometheusSink:
			promSink, err = newPrometheusSink()
			if err != nil {
				initErr = err
				return
			}
			sink.sinks = append(sink.sinks, promSink)
		case AllMetricsSink:
			inm = newInMemSink(config)
			promSink, err = newPrometheusSink()
			if err != nil {
				initErr = err
				return
			}
			sink.sinks = append(sink.sinks, inm, promSink)
		}

		metricsImpl, err := gometrics.New(metricsConf, sink)
		if err != nil {
			initErr = err
			return
		}
		instance = &hashicorpMetricsCollector{
			metrics:            metricsImpl,
			inm:                inm,
			promSink:           promSink,
			exposeSink:         config.ExposeSink,
			metricsEndpoint:    config.MetricsEndpoint,
			serviceName:        config.ServiceName,
			serviceLabel:       gometrics.Label{Name: "service", Value: config.ServiceName},
			commandLabelPrefix: "command",
			errorLabelPrefix:   "type",
			labelPool:          newLabelPool(),
		}

		logger.Info("Metrics collector initialized",
			"serviceName", config.ServiceName,
			"sink", config.ExposeSink,
			"endpoint", config.MetricsEndpoint)
	})

	return instance, initErr
}

// hashicorpMetricsCollector implements ClientMetricsCollector using hashicorp/go-metrics
type hashicorpMetricsCollector struct {
	metrics         *gometrics.Metrics
	inm             *gometrics.InmemSink
	promSink        *prometheus.PrometheusSink
	exposeSink      ExposeMetricSink
	metricsEndpoint string
	serviceName     string

	// Pre-created labels for better performance
	serviceLabel       gometrics.Label
	commandLabelPrefix string
	errorLabelPrefix   string

	// Object pool for label slices
	labelPool *labelPool
}

func (h *hashicorpMetricsCollector) RecordCommandLatency(command string, duration time.Duration) {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel, gometrics.Label{Name: h.commandLabelPrefix, Value: command})

	h.metrics.AddSampleWithLabels([]string{"command", "latency"}, float32(duration.Microseconds()), labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) RecordOverallLatency(duration time.Duration) {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel)

	h.metrics.AddSampleWithLabels([]string{"overall", "latency"}, float32(duration.Microseconds()), labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) RecordPoolWait(duration time.Duration) {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel)

	h.metrics.AddSampleWithLabels([]string{"pool", "wait"}, float32(duration.Microseconds()), labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) IncrementActiveConnections() {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel)

	h.metrics.IncrCounterWithLabels([]string{"connections", "active"}, 1, labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) DecrementActiveConnections() {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel)

	h.metrics.IncrCounterWithLabels([]string{"connections", "active"}, -1, labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) IncrementCommandCounter(command string) {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel, gometrics.Label{Name: h.commandLabelPrefix, Value: command})

	h.metrics.IncrCounterWithLabels([]string{"command", "count"}, 1, labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) IncrementCounter(label string) {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel)

	h.metrics.IncrCounterWithLabels([]string{label, "count"}, 1, labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) IncrementErrorCounter(errorType string) {
	labels := h.labelPool.get()
	labels = append(labels, h.serviceLabel, gometrics.Label{Name: h.errorLabelPrefix, Value: errorType})

	h.metrics.IncrCounterWithLabels([]string{"errors"}, 1, labels)

	h.labelPool.put(labels)
}

func (h *hashicorpMetricsCollector) Shutdown() {
	// Sinks hold no goroutines that need stopping; the in-memory sink just
	// ages out intervals.
}

func (h *hashicorpMetricsCollector) Handler() gin.HandlerFunc {
	return gin.WrapH(h.CollectorHandler())
}

// CollectorHandler returns an HTTP handler for metrics based on the configured sink
func (h *hashicorpMetricsCollector) CollectorHandler() http.Handler {
	logger.Info("Creating metrics handler", "sink", h.exposeSink)
	switch h.exposeSink {
	case PrometheusSink, AllMetricsSink:
		return promHandler()
	case InMemorySink:
		return h.InMemoryHandler()
	default:
		return http.NotFoundHandler()
	}
}

// InMemoryHandler returns an HTTP handler for in-memory metrics
func (h *hashicorpMetricsCollector) InMemoryHandler() http.Handler {
	if h.inm == nil {
		logger.Error(nil, "In-memory sink is nil, cannot serve metrics")
		return http.NotFoundHandler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		data, err := h.inm.DisplayMetrics(w, r)
		if err != nil {
			logger.Error(err, "Failed to display metrics")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// DisplayMetrics returns the summary without writing it; marshal it
		// onto the response ourselves.
		if data != nil {
			jsonData, err := json.Marshal(data)
			if err != nil {
				logger.Error(err, "Failed to marshal metrics data to JSON")
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Write(jsonData)
		} else {
			w.Write([]byte("{}"))
		}
	})
}

// fanoutSink implements a sink that forwards to multiple sinks
type fanoutSink struct {
	sinks []gometrics.MetricSink
}

func (f *fanoutSink) SetGauge(key []string, val float32) {
	for _, s := range f.sinks {
		s.SetGauge(key, val)
	}
}

func (f *fanoutSink) SetGaugeWithLabels(key []string, val float32, labels []gometrics.Label) {
	for _, s := range f.sinks {
		s.SetGaugeWithLabels(key, val, labels)
	}
}

func (f *fanoutSink) EmitKey(key []string, val float32) {
	for _, s := range f.sinks {
		s.EmitKey(key, val)
	}
}

func (f *fanoutSink) IncrCounter(key []string, val float32) {
	for _, s := range f.sinks {
		s.IncrCounter(key, val)
	}
}

func (f *fanoutSink) IncrCounterWithLabels(key []string, val float32, labels []gometrics.Label) {
	for _, s := range f.sinks {
		s.IncrCounterWithLabels(key, val, labels)
	}
}

func (f *fanoutSink) AddSample(key []string, val float32) {
	for _, s := range f.sinks {
		s.AddSample(key, val)
	}
}

func (f *fanoutSink) AddSampleWithLabels(key []string, val float32, labels []gometrics.Label) {
	for _, s := range f.sinks {
		s.AddSampleWithLabels(key, val, labels)
	}
}

func promHandler() http.Handler {
	return promhttp.Handler()
}
