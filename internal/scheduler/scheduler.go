package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/notify"
	"github.com/store177/shop-backend/pkg/logger"
)

const jobTimeout = 30 * time.Second

// CatalogWarmer rebuilds the cached storefront. service.ProductService implements it.
type CatalogWarmer interface {
	WarmCatalog(ctx context.Context) error
}

type Config struct {
	CatalogWarmSpec   string // empty disables the job
	LowStockSpec      string // empty disables the job
	LowStockThreshold int
	AdminIDs          []int64
}

// Scheduler runs the periodic catalog jobs.
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	catalog  CatalogWarmer
	variants repository.VariantRepository
	notifier notify.Notifier
}

func NewScheduler(cfg Config, catalog CatalogWarmer, variants repository.VariantRepository, notifier notify.Notifier) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		catalog:  catalog,
		variants: variants,
		notifier: notifier,
	}
}

// Start registers the configured jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.CatalogWarmSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.CatalogWarmSpec, s.warmCatalog); err != nil {
			logger.Error("Failed to add cron job for catalog warm-up", err, map[string]interface{}{
				"spec": s.cfg.CatalogWarmSpec,
			})
			return err
		}
	}

	if s.cfg.LowStockSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.LowStockSpec, s.lowStockDigest); err != nil {
			logger.Error("Failed to add cron job for low-stock digest", err, map[string]interface{}{
				"spec": s.cfg.LowStockSpec,
			})
			return err
		}
	}

	s.cron.Start()
	logger.Info("Scheduler started", map[string]interface{}{
		"catalog_warm": s.cfg.CatalogWarmSpec,
		"low_stock":    s.cfg.LowStockSpec,
	})
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped", nil)
}

func (s *Scheduler) warmCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.catalog.WarmCatalog(ctx); err != nil {
		logger.Error("Scheduled catalog warm-up failed", err, nil)
	}
}

func (s *Scheduler) lowStockDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := s.SendLowStockDigest(ctx)
	if err != nil {
		logger.Error("Scheduled low-stock digest failed", err, nil)
		return
	}
	logger.Info("Low-stock digest processed", map[string]interface{}{
		"items": sent,
	})
}

// SendLowStockDigest notifies admins about active variants at or below the
// threshold and returns how many were listed. Nothing is sent when none are.
func (s *Scheduler) SendLowStockDigest(ctx context.Context) (int, error) {
	items, err := s.variants.FindLowStock(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	notify.Broadcast(ctx, s.notifier, s.cfg.AdminIDs, notify.LowStockDigest(items))
	return len(items), nil
}
