package service

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
)

// Feed size bounds: callers get defaultActivityLimit when they don't ask for
// a limit, and never more than maxActivityLimit.
const (
	defaultActivityLimit = 10
	maxActivityLimit     = 50
)

// Activity source types as they appear in the feed.
const (
	ActivitySearch       = "search"
	ActivityTemplateFill = "template_fill"
	ActivityDocument     = "document"
	ActivitySync         = "sync"
)

// ActivityItem is one entry in the merged activity feed.
type ActivityItem struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Detail    map[string]interface{} `json:"detail"`
}

// DashboardStats summarizes a user's recent activity. LastSyncedAt is nil
// until the first sync job completes.
type DashboardStats struct {
	TotalDocuments    int64      `json:"total_documents"`
	TotalTemplates    int64      `json:"total_templates"`
	SearchesThisWeek  int64      `json:"searches_this_week"`
	FillsThisWeek     int64      `json:"fills_this_week"`
	ProcessedThisWeek int64      `json:"processed_this_week"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
}

// ActivityService merges recent searches, template fills, synced documents,
// and sync jobs into a single reverse-chronological feed.
type ActivityService struct {
	searchRepo   *repository.SearchQueryRepository
	templateRepo *repository.TemplateRepository
	documentRepo *repository.DocumentRepository
	syncRepo     *repository.SyncJobRepository
	logger       *logger.Logger
}

// NewActivityService creates a new ActivityService.
func NewActivityService(
	searchRepo *repository.SearchQueryRepository,
	templateRepo *repository.TemplateRepository,
	documentRepo *repository.DocumentRepository,
	syncRepo *repository.SyncJobRepository,
	log *logger.Logger,
) *ActivityService {
	return &ActivityService{
		searchRepo:   searchRepo,
		templateRepo: templateRepo,
		documentRepo: documentRepo,
		syncRepo:     syncRepo,
		logger:       log.WithField("component", "activity"),
	}
}

// perSourceLimit splits the feed budget evenly across the four sources,
// rounding up so a sparse source never starves the feed below the limit.
func perSourceLimit(limit int) int {
	return (limit + 3) / 4
}

// clampLimit normalizes the requested feed size: missing or non-positive
// limits default to 10, oversized ones cap at 50.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}

// mergeFeed orders items newest first and truncates to the limit. The sort
// is stable so same-timestamp items keep their per-source order.
func mergeFeed(items []ActivityItem, limit int) []ActivityItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Feed assembles the merged activity feed. The limit defaults to 10 and is
// capped at 50.
// Sources are fetched concurrently; the merged result is sorted newest first
// and truncated to the limit. Fewer items than the limit is normal for new
// accounts.
func (s *ActivityService) Feed(ctx context.Context, userID string, limit int) ([]ActivityItem, error) {
	limit = clampLimit(limit)
	per := perSourceLimit(limit)

	var (
		searches    []domain.SearchQuery
		generations []domain.PdfGeneration
		documents   []domain.Document
		jobs        []domain.SyncJob
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		searches, err = s.searchRepo.RecentByUser(gctx, userID, per)
		return err
	})
	g.Go(func() error {
		var err error
		generations, err = s.templateRepo.RecentGenerationsByUser(gctx, userID, per)
		return err
	})
	g.Go(func() error {
		var err error
		documents, err = s.documentRepo.RecentByUser(gctx, userID, per)
		return err
	})
	g.Go(func() error {
		var err error
		jobs, err = s.syncRepo.RecentByUser(gctx, userID, per)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(searches)+len(generations)+len(documents)+len(jobs))

	for _, q := range searches {
		items = append(items, ActivityItem{
			Type:      ActivitySearch,
			Timestamp: q.CreatedAt,
			Detail: map[string]interface{}{
				"query":        q.Query,
				"result_count": q.ResultCount,
			},
		})
	}
	for _, gen := range generations {
		detail := map[string]interface{}{
			"generation_id": gen.ID,
			"status":        string(gen.Status),
		}
		if gen.Template != nil {
			detail["template_name"] = gen.Template.Name
		}
		items = append(items, ActivityItem{
			Type:      ActivityTemplateFill,
			Timestamp: gen.CreatedAt,
			Detail:    detail,
		})
	}
	for _, doc := range documents {
		items = append(items, ActivityItem{
			Type:      ActivityDocument,
			Timestamp: doc.CreatedAt,
			Detail: map[string]interface{}{
				"document_id":   doc.ID,
				"document_name": doc.Name,
				"status":        string(doc.Status),
			},
		})
	}
	for _, job := range jobs {
		detail := map[string]interface{}{
			"job_id":          job.ID,
			"status":          string(job.Status),
			"files_processed": job.FilesProcessed,
		}
		items = append(items, ActivityItem{
			Type:      ActivitySync,
			Timestamp: job.CreatedAt,
			Detail:    detail,
		})
	}

	return mergeFeed(items, limit), nil
}

// Stats gathers dashboard counters over the trailing seven days.
func (s *ActivityService) Stats(ctx context.Context, userID string) (*DashboardStats, error) {
	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)

	stats := &DashboardStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalDocuments, err = s.documentRepo.CountByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalTemplates, err = s.templateRepo.CountByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.SearchesThisWeek, err = s.searchRepo.CountSince(gctx, userID, weekAgo)
		return err
	})
	g.Go(func() error {
		var err error
		stats.FillsThisWeek, err = s.templateRepo.CountGenerationsSince(gctx, userID, weekAgo)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ProcessedThisWeek, err = s.documentRepo.CountProcessedSince(gctx, userID, weekAgo, now)
		return err
	})
	g.Go(func() error {
		job, err := s.syncRepo.LastCompleted(gctx, userID)
		if repository.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		stats.LastSyncedAt = job.CompletedAt
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}
