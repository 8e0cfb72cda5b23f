package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Requests stay around for a day past their preferred time before the
// sweep soft-deletes them.
const softDeleteAfter = 24 * time.Hour

var (
	requestsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridematch_requests_expired_total",
		Help: "Matching requests flipped to EXPIRED by the sweep.",
	})
	requestsSoftDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridematch_requests_soft_deleted_total",
		Help: "Matching requests soft-deleted by the sweep.",
	})
)

// ExpireOldRequests flips every OPEN or WAITING request whose preferred time
// has passed to EXPIRED and reports how many were touched.
func (svc *Service) ExpireOldRequests(ctx context.Context) (int, error) {
	count, err := svc.Postgres.ExpireMatchingRequests(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if count > 0 {
		requestsExpired.Add(float64(count))
		svc.Logger.Info("expired matching requests", "count", count)
	}

	return count, nil
}

// SoftDeleteExpiredRequests marks requests 24h past their preferred time as
// deleted, in one atomic batch. Idempotent; safe to run from both the
// periodic sweep and an operator trigger.
func (svc *Service) SoftDeleteExpiredRequests(ctx context.Context) (int, error) {
	now := time.Now()

	count, err := svc.Postgres.SoftDeleteExpiredRequests(ctx, now, now.Add(-softDeleteAfter))
	if err != nil {
		return 0, err
	}

	if count > 0 {
		requestsSoftDeleted.Add(float64(count))
		svc.Logger.Info("soft deleted expired matching requests", "count", count)
	}

	return count, nil
}
