package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/repositories"
)

const reconcileBatchSize = 50

// Reconciler repairs reports whose candidate was never pointed at them,
// which can only happen for rows written before the transactional write or
// by hand.
type Reconciler interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
	RunOnce(ctx context.Context) (int, error)
}

type reconciler struct {
	reportRepo repositories.ReportRepository
	log        *zap.Logger
	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewReconciler(reportRepo repositories.ReportRepository, log *zap.Logger) Reconciler {
	return &reconciler{
		reportRepo: reportRepo,
		log:        logger.OrNop(log).Named("reconciler"),
		stopChan:   make(chan struct{}),
	}
}

// Start implements Reconciler. It polls every interval until Stop is called
// or ctx ends.
func (r *reconciler) Start(ctx context.Context, interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.log.Info("reconciler started", zap.Duration("interval", interval))
		for {
			select {
			case <-r.stopChan:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.RunOnce(ctx); err != nil {
					r.log.Warn("reconcile pass failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop implements Reconciler.
func (r *reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	r.log.Info("reconciler stopped")
}

// RunOnce implements Reconciler. Orphans come newest first, so a candidate
// with several orphans is linked to its latest report and the rest are left.
func (r *reconciler) RunOnce(ctx context.Context) (int, error) {
	orphans, err := r.reportRepo.FindOrphans(ctx, reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	linked := 0
	for i := range orphans {
		report := &orphans[i]
		ok, err := r.reportRepo.LinkOrphan(ctx, report)
		if err != nil {
			return linked, err
		}
		if ok {
			linked++
			r.log.Info("orphaned report linked",
				zap.String(logger.FieldReportID, report.ID.String()),
				zap.String(logger.FieldCandidateID, report.CandidateID.String()),
			)
		}
	}
	return linked, nil
}
