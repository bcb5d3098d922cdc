package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/config"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/jobs"
)

type analyticsSessionReader interface {
	CountForScope(ctx context.Context, lecturerID, courseCode string) (int, error)
}

type analyticsAttendanceReader interface {
	RowsForScope(ctx context.Context, lecturerID, courseCode string) ([]models.SessionAttendanceRow, error)
}

// AnalyticsService derives per-student attendance percentages across a
// lecturer's sessions, optionally scoped to one course. Results are cached in
// Redis and re-warmed in the background after accepted submissions.
type AnalyticsService struct {
	sessions analyticsSessionReader
	records  analyticsAttendanceReader
	cache    *CacheService
	logger   *zap.Logger
	ttl      time.Duration
	queue    *jobs.Queue
}

type refreshPayload struct {
	LecturerID string
	CourseCode string
}

// NewAnalyticsService constructs the analytics service and its refresh queue.
func NewAnalyticsService(sessions analyticsSessionReader, records analyticsAttendanceReader, cache *CacheService, cfg config.AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnalyticsService{
		sessions: sessions,
		records:  records,
		cache:    cache,
		logger:   logger,
		ttl:      cfg.CacheTTL,
	}
	svc.queue = jobs.NewQueue("analytics-refresh", svc.handleRefresh, jobs.QueueConfig{
		Workers: cfg.WarmWorkers,
		Logger:  logger,
	})
	return svc
}

// Start launches the background refresh workers.
func (s *AnalyticsService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the refresh workers.
func (s *AnalyticsService) Stop() {
	s.queue.Stop()
}

// Stats returns the per-student report, serving from cache when possible.
// The boolean reports whether the cache was hit.
func (s *AnalyticsService) Stats(ctx context.Context, lecturerID, courseCode string) (*models.AttendanceStatsReport, bool, error) {
	key := statsCacheKey(lecturerID, courseCode)
	var cached models.AttendanceStatsReport
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	report, err := s.compute(ctx, lecturerID, courseCode)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, key, report, s.ttl); err != nil {
		s.logger.Warn("failed to cache analytics report", zap.String("key", key), zap.Error(err))
	}
	return report, false, nil
}

// OnSubmission invalidates cached reports for the lecturer and queues a
// background re-warm for the affected scopes.
func (s *AnalyticsService) OnSubmission(lecturerID, courseCode string) {
	ctx := context.Background()
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("analytics:stats:%s:*", lecturerID)); err != nil {
		s.logger.Warn("failed to invalidate analytics cache", zap.String("lecturer_id", lecturerID), zap.Error(err))
	}
	for _, scope := range []string{"", courseCode} {
		job := jobs.Job{
			ID:      fmt.Sprintf("refresh-%s-%s-%d", lecturerID, scope, time.Now().UnixNano()),
			Type:    "analytics.refresh",
			Payload: refreshPayload{LecturerID: lecturerID, CourseCode: scope},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue analytics refresh", zap.String("lecturer_id", lecturerID), zap.Error(err))
		}
	}
}

func (s *AnalyticsService) handleRefresh(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(refreshPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	report, err := s.compute(ctx, payload.LecturerID, payload.CourseCode)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, statsCacheKey(payload.LecturerID, payload.CourseCode), report, s.ttl)
}

func (s *AnalyticsService) compute(ctx context.Context, lecturerID, courseCode string) (*models.AttendanceStatsReport, error) {
	if lecturerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecturer id required")
	}

	total, err := s.sessions.CountForScope(ctx, lecturerID, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}

	report := &models.AttendanceStatsReport{
		LecturerID:    lecturerID,
		CourseCode:    courseCode,
		TotalSessions: total,
		Students:      []models.StudentAttendanceStat{},
	}
	if total == 0 {
		// No sessions in scope: nothing to divide by, percentage is 0 for everyone.
		return report, nil
	}

	rows, err := s.records.RowsForScope(ctx, lecturerID, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance rows")
	}

	byStudent := map[string]*models.StudentAttendanceStat{}
	for _, row := range rows {
		stat, ok := byStudent[row.RegistrationNumber]
		if !ok {
			stat = &models.StudentAttendanceStat{
				RegistrationNumber: row.RegistrationNumber,
				FullName:           row.FullName,
				Department:         row.Department,
				Level:              row.Level,
			}
			byStudent[row.RegistrationNumber] = stat
		}
		// Rows are unique per (session, registration number), so each row is
		// one attended session.
		stat.AttendedCount++
	}

	for _, stat := range byStudent {
		stat.MissedCount = total - stat.AttendedCount
		stat.Percentage = roundToOneDecimal(float64(stat.AttendedCount) / float64(total) * 100)
		stat.Standing = models.StandingForPercentage(stat.Percentage)
		report.Students = append(report.Students, *stat)
	}

	sort.Slice(report.Students, func(i, j int) bool {
		if report.Students[i].Percentage != report.Students[j].Percentage {
			return report.Students[i].Percentage > report.Students[j].Percentage
		}
		return report.Students[i].RegistrationNumber < report.Students[j].RegistrationNumber
	})
	return report, nil
}

func statsCacheKey(lecturerID, courseCode string) string {
	scope := courseCode
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("analytics:stats:%s:%s", lecturerID, scope)
}

func roundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
