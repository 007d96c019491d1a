package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "analyzere_client"

// Recorder counts client side traffic. A nil Recorder records nothing.
type Recorder struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retries         prometheus.Counter
	tokenFetches    prometheus.Counter
	uploadChunks    prometheus.Counter
	uploadBytes     prometheus.Counter
	uploadPolls     prometheus.Counter
}

// New builds the collectors and registers them with registerer when it is
// not nil. Collectors already registered by an earlier Recorder are reused.
func New(registerer prometheus.Registerer) (*Recorder, error) {
	recorder := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests sent to the API, by purpose, method and status code.",
		}, []string{"purpose", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests sent to the API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"purpose", "method"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_after_retries_total",
			Help:      "Requests resent after a 503 Retry-After response.",
		}),
		tokenFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth2_token_fetches_total",
			Help:      "Client-credentials access tokens fetched.",
		}),
		uploadChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_chunks_total",
			Help:      "Upload chunks sent.",
		}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Upload payload bytes sent.",
		}),
		uploadPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_status_polls_total",
			Help:      "Upload status checks made while waiting for processing.",
		}),
	}
	if registerer == nil {
		return recorder, nil
	}

	var err error
	if recorder.requests, err = register(registerer, recorder.requests); err != nil {
		return nil, err
	}
	if recorder.requestDuration, err = register(registerer, recorder.requestDuration); err != nil {
		return nil, err
	}
	if recorder.retries, err = register(registerer, recorder.retries); err != nil {
		return nil, err
	}
	if recorder.tokenFetches, err = register(registerer, recorder.tokenFetches); err != nil {
		return nil, err
	}
	if recorder.uploadChunks, err = register(registerer, recorder.uploadChunks); err != nil {
		return nil, err
	}
	if recorder.uploadBytes, err = register(registerer, recorder.uploadBytes); err != nil {
		return nil, err
	}
	if recorder.uploadPolls, err = register(registerer, recorder.uploadPolls); err != nil {
		return nil, err
	}
	return recorder, nil
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, error) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

func (r *Recorder) ObserveRequest(purpose string, method string, statusCode int, elapsed time.Duration) {
	if r == nil {
		return
	}
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	r.requests.WithLabelValues(purpose, method, code).Inc()
	r.requestDuration.WithLabelValues(purpose, method).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveRetry() {
	if r == nil {
		return
	}
	r.retries.Inc()
}

func (r *Recorder) ObserveTokenFetch() {
	if r == nil {
		return
	}
	r.tokenFetches.Inc()
}

func (r *Recorder) ObserveUploadChunk(size int) {
	if r == nil {
		return
	}
	r.uploadChunks.Inc()
	r.uploadBytes.Add(float64(size))
}

func (r *Recorder) ObserveUploadPoll() {
	if r == nil {
		return
	}
	r.uploadPolls.Inc()
}
