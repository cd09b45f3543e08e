// Package cascade recomputes site and project progress from committed task
// rows. It subscribes to the task event pipeline, so every recomputation is a
// pure function of database state and safe to replay.
package cascade

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldtrack/internal/clock"
	"github.com/smallbiznis/fieldtrack/internal/events"
	"github.com/smallbiznis/fieldtrack/internal/observability/metrics"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	progressdomain "github.com/smallbiznis/fieldtrack/internal/progress/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RecomputerParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// Recomputer rolls task progress up into sites and projects. Recomputations
// for the same site are serialized with a per-site mutex so concurrent task
// events cannot interleave their read-aggregate-write cycles.
type Recomputer struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics

	locks sync.Map // snowflake.ID -> *sync.Mutex
}

type progressRow struct {
	Progress decimal.Decimal
}

func progressValues(rows []progressRow) []decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Progress)
	}
	return values
}

func NewRecomputer(p RecomputerParam) *Recomputer {
	return &Recomputer{
		db:      p.DB,
		log:     p.Log.Named("progress.cascade"),
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// Handle is the event pipeline entry point. Every task event, whatever its
// type, triggers a full recomputation of the task's site and its project.
func (r *Recomputer) Handle(ctx context.Context, event events.TaskEvent) error {
	if err := r.RecomputeSite(ctx, event.SiteID); err != nil {
		return err
	}
	r.metrics.TaskEventsPublished.Inc()
	return nil
}

func (r *Recomputer) lockSite(siteID snowflake.ID) func() {
	v, _ := r.locks.LoadOrStore(siteID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// RecomputeSite recalculates the site's progress as the unweighted mean of
// its tasks, then cascades into the owning project. A site that no longer
// exists is a no-op: deletion events may arrive after the parent is gone.
func (r *Recomputer) RecomputeSite(ctx context.Context, siteID snowflake.ID) error {
	defer r.lockSite(siteID)()

	var projectID snowflake.ID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var site projectdomain.Site
		if err := tx.First(&site, "id = ?", siteID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		projectID = site.ProjectID

		var rows []progressRow
		if err := tx.Raw(
			`SELECT progress FROM tasks WHERE site_id = ?`, siteID,
		).Scan(&rows).Error; err != nil {
			return err
		}

		progress := progressdomain.Mean(progressValues(rows))
		status := progressdomain.SiteStatusFor(progress)

		// An unchanged row stays untouched, updated_at included.
		if site.Progress.Equal(progress) && site.Status == status {
			return nil
		}

		return tx.Model(&projectdomain.Site{}).
			Where("id = ?", siteID).
			Updates(map[string]any{
				"progress":   progress,
				"status":     status,
				"updated_at": r.clock.Now(),
			}).Error
	})
	if err != nil {
		return err
	}
	if projectID == 0 {
		return nil
	}

	r.metrics.CascadeRecomputes.WithLabelValues("site").Inc()
	return r.RecomputeProject(ctx, projectID)
}

// RecomputeProject recalculates the project's progress as the unweighted mean
// of its sites. Invoiced and paid projects keep their status; their progress
// still tracks the sites underneath.
func (r *Recomputer) RecomputeProject(ctx context.Context, projectID snowflake.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project projectdomain.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}

		var rows []progressRow
		if err := tx.Raw(
			`SELECT progress FROM sites WHERE project_id = ?`, projectID,
		).Scan(&rows).Error; err != nil {
			return err
		}

		progress := progressdomain.Mean(progressValues(rows))
		status := progressdomain.ProjectStatusFor(progress, project.Status)
		completed := status == progressdomain.ProjectStatusCompleted || status.Sticky()

		if project.Progress.Equal(progress) && project.Status == status && project.IsCompleted == completed {
			return nil
		}

		return tx.Model(&projectdomain.Project{}).
			Where("id = ?", projectID).
			Updates(map[string]any{
				"progress":     progress,
				"status":       status,
				"is_completed": completed,
				"updated_at":   r.clock.Now(),
			}).Error
	})
	if err != nil {
		return err
	}

	r.metrics.CascadeRecomputes.WithLabelValues("project").Inc()
	return nil
}
