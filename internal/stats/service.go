package stats

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/activity"
)

const recentFeedSize = 10

// AccountCounter is the slice of the accounts repository the service needs.
type AccountCounter interface {
	CountTotal(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role accounts.Role) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// ActivityReader is the slice of the activity repository the service needs.
type ActivityReader interface {
	CountSince(ctx context.Context, action string, since time.Time) (int, error)
	Recent(ctx context.Context, limit int) ([]activity.Entry, error)
}

// Service computes the dashboard overview.
type Service struct {
	accounts   AccountCounter
	activities ActivityReader
	cache      *Cache
	logger     *slog.Logger
	startedAt  time.Time
}

// NewService wires the stats service.
func NewService(accountsRepo AccountCounter, activityRepo ActivityReader, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		accounts:   accountsRepo,
		activities: activityRepo,
		cache:      cache,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// Overview returns the dashboard overview, preferring the cached copy.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	return s.cache.FetchOverview(ctx, s.load)
}

// Refresh recomputes the overview and replaces the cached copy. The warmup
// job calls this on a schedule so dashboard loads rarely pay the query cost.
func (s *Service) Refresh(ctx context.Context) error {
	overview, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.cache.Store(ctx, overview)
	return nil
}

func (s *Service) load(ctx context.Context) (*Overview, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var (
		users  UserStats
		acts   ActivityStats
		recent []activity.Entry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users.Total, err = s.accounts.CountTotal(gctx)
		return err
	})
	g.Go(func() (err error) {
		users.Active, err = s.accounts.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		users.Admins, err = s.accounts.CountByRole(gctx, accounts.RoleAdmin)
		return err
	})
	g.Go(func() (err error) {
		users.NewThisMonth, err = s.accounts.CountCreatedSince(gctx, monthStart)
		return err
	})
	g.Go(func() (err error) {
		acts.TodayLogins, err = s.activities.CountSince(gctx, activity.ActionLogin, dayStart)
		return err
	})
	g.Go(func() (err error) {
		acts.TodayRegistrations, err = s.activities.CountSince(gctx, activity.ActionRegister, dayStart)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.activities.Recent(gctx, recentFeedSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acts.Recent = make([]ActivityEntry, 0, len(recent))
	for _, e := range recent {
		acts.Recent = append(acts.Recent, ActivityEntry{
			ID:          e.ID,
			Action:      e.Action,
			Description: e.Description,
			ActorName:   e.ActorName,
			CreatedAt:   e.CreatedAt,
		})
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &Overview{
		Users:    users,
		Activity: acts,
		System: SystemStats{
			UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
			Goroutines:     runtime.NumGoroutine(),
			HeapAllocBytes: mem.HeapAlloc,
		},
		GeneratedAt: now,
	}, nil
}
