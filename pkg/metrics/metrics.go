// Package metrics 暴露 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 持有一组指标及其注册表，nil Recorder 的方法都是空操作。
type Recorder struct {
	registry     *prometheus.Registry
	replies      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	rateLimited  prometheus.Counter
}

// New 创建一个使用独立注册表的 Recorder。
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_replies_total",
			Help: "Total replies resolved, by matched rule and transport",
		}, []string{"rule", "transport"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_http_requests_total",
			Help: "Total HTTP requests by method and status code",
		}, []string{"method", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nova_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
	r.registry.MustRegister(
		r.replies,
		r.httpRequests,
		r.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveReply 记录一次成功解析的回复。
func (r *Recorder) ObserveReply(rule, transport string) {
	if r == nil {
		return
	}
	r.replies.WithLabelValues(rule, transport).Inc()
}

// ObserveRequest 记录一次 HTTP 请求。
func (r *Recorder) ObserveRequest(method, status string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, status).Inc()
}

// ObserveRateLimited 记录一次被限流拒绝的请求。
func (r *Recorder) ObserveRateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

// Handler 返回 /metrics 的 http.Handler。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry 暴露底层注册表，供测试读取指标。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
