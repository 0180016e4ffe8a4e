package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const DefaultRetries = 3

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusphere_storage_uploads_total",
		Help: "Object uploads by result",
	}, []string{"result"})

	uploadAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusphere_storage_upload_attempts_total",
		Help: "Individual upload attempts including retries",
	})

	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusphere_storage_upload_bytes",
		Help:    "Size of uploaded objects",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
)

// ErrPermanent marks an upload failure that must not be retried
var ErrPermanent = errors.New("permanent storage failure")

type retryStore struct {
	next       Store
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// WithRetry retries failed uploads with exponential backoff
func WithRetry(next Store, maxRetries uint64) Store {
	return &retryStore{
		next:       next,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.Multiplier = 2
			return b
		},
	}
}

func (s *retryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var url string
	attempt := 0

	operation := func() error {
		attempt++
		uploadAttempts.Inc()
		u, err := s.next.Put(ctx, key, data, contentType)
		if err != nil {
			if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			log.WithFields(log.Fields{
				"key":     key,
				"attempt": attempt,
				"error":   err,
			}).Warn("Upload failed, retrying")
			return err
		}
		url = u
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	uploadBytes.Observe(float64(len(data)))
	return url, nil
}
