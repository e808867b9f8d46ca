package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector 指标收集器，持有独立的Prometheus注册表
type MetricsCollector struct {
	registry *prometheus.Registry

	predictions      *prometheus.CounterVec
	predictionErrors *prometheus.CounterVec
	predictionTime   prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	artifactChanges  prometheus.Counter
	expectedWidth    prometheus.Gauge
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churnguard_predictions_total",
				Help: "Completed predictions by verdict",
			},
			[]string{"verdict"},
		),
		predictionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churnguard_prediction_errors_total",
				Help: "Rejected or failed submissions by kind",
			},
			[]string{"kind"},
		),
		predictionTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "churnguard_prediction_duration_seconds",
				Help:    "Time spent encoding, scaling and predicting",
				Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .05},
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churnguard_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"path", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "churnguard_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		artifactChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "churnguard_artifact_changes_total",
				Help: "Changes to artifact files seen on disk since start",
			},
		),
		expectedWidth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "churnguard_artifact_expected_width",
				Help: "Input width the loaded artifact was fit against",
			},
		),
	}
	mc.registry.MustRegister(
		mc.predictions, mc.predictionErrors, mc.predictionTime,
		mc.httpRequests, mc.httpDuration,
		mc.artifactChanges, mc.expectedWidth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return mc
}

// Registry 返回底层注册表
func (mc *MetricsCollector) Registry() *prometheus.Registry { return mc.registry }

// Handler 导出Prometheus格式
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// RecordPrediction 记录一次预测结果及耗时
func (mc *MetricsCollector) RecordPrediction(churn bool, elapsed time.Duration) {
	verdict := "stay"
	if churn {
		verdict = "churn"
	}
	mc.predictions.WithLabelValues(verdict).Inc()
	mc.predictionTime.Observe(elapsed.Seconds())
}

// RecordError 记录一次失败的提交，kind如 "field"、"feature_mismatch"
func (mc *MetricsCollector) RecordError(kind string) {
	mc.predictionErrors.WithLabelValues(kind).Inc()
}

// RecordRequest 记录HTTP请求
func (mc *MetricsCollector) RecordRequest(path, method string, status int, elapsed time.Duration) {
	mc.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	mc.httpDuration.WithLabelValues(path, method).Observe(elapsed.Seconds())
}

// ArtifactChanged 记录模型文件变更
func (mc *MetricsCollector) ArtifactChanged() {
	mc.artifactChanges.Inc()
}

// SetExpectedWidth 设置模型输入维度
func (mc *MetricsCollector) SetExpectedWidth(width int) {
	mc.expectedWidth.Set(float64(width))
}
