package workers

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"cvbuilder_backend/internal/logger"
)

const subscriptionWorkerName = "subscription_expiry"

// SubscriptionExpirer - то, что умеет понижать истекшие подписки
type SubscriptionExpirer interface {
	ExpireSubscriptions(ctx context.Context, db *gorm.DB) (int64, error)
}

// SubscriptionWorker периодически переводит истекшие подписки (в том числе отмененные) на free
type SubscriptionWorker struct {
	db       *gorm.DB
	expirer  SubscriptionExpirer
	interval time.Duration
	wg       sync.WaitGroup
}

func NewSubscriptionWorker(db *gorm.DB, expirer SubscriptionExpirer, interval time.Duration) *SubscriptionWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SubscriptionWorker{db: db, expirer: expirer, interval: interval}
}

// Start запускает проверку сразу и затем по тикеру, до отмены ctx
func (w *SubscriptionWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Wait блокируется до остановки воркера
func (w *SubscriptionWorker) Wait() {
	w.wg.Wait()
}

func (w *SubscriptionWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Subscription worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce - один проход; ошибки только логируются
func (w *SubscriptionWorker) RunOnce(ctx context.Context) int64 {
	n, err := w.expirer.ExpireSubscriptions(ctx, w.db)
	if err != nil {
		logger.WorkerLog(subscriptionWorkerName, "expire", err)
		return 0
	}
	if n > 0 {
		logger.WorkerLog(subscriptionWorkerName, "expire", nil, "downgraded", n)
	}
	return n
}
