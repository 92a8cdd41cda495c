// Package metrics registers the Prometheus collectors for serving and
// training.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stacktag_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stacktag_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stacktag_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Prediction
	PredictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stacktag_predictions_total",
			Help: "Total number of texts classified",
		},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stacktag_prediction_duration_seconds",
			Help:    "Duration of a prediction call (embed and classify) in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	PredictionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stacktag_prediction_errors_total",
			Help: "Total number of failed prediction calls",
		},
	)

	// Training
	TrainBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stacktag_train_batches_total",
			Help: "Total number of batches processed during training and evaluation",
		},
		[]string{"partition"}, // "train", "test"
	)

	TrainLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stacktag_train_loss",
			Help: "Mean training loss of the most recent epoch",
		},
	)

	TestAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stacktag_test_accuracy",
			Help: "Test accuracy of the most recent training run",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPrediction records one prediction call over n texts.
func RecordPrediction(n int, duration time.Duration, err error) {
	PredictionDuration.Observe(duration.Seconds())
	if err != nil {
		PredictionErrors.Inc()
		return
	}
	PredictionsTotal.Add(float64(n))
}

// RecordBatch counts one processed batch of the given partition.
func RecordBatch(partition string) {
	TrainBatchesTotal.WithLabelValues(partition).Inc()
}

// RecordEpoch publishes an epoch's mean loss.
func RecordEpoch(loss float64) {
	TrainLoss.Set(loss)
}

// RecordEvaluation publishes the test accuracy of a finished run.
func RecordEvaluation(accuracy float64) {
	TestAccuracy.Set(accuracy)
}
