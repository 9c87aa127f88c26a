package service

import (
	"context"
	"fmt"

	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/offline"
	"typingclash/internal/repository"
)

// Conflict resolutions
const (
	ResolutionLocal  = "local"
	ResolutionRemote = "remote"
)

// Conflict is a field where the live aggregate and the store disagree
type Conflict struct {
	Module     string `json:"module"`
	Field      string `json:"field"`
	Local      int    `json:"localValue"`
	Remote     int    `json:"remoteValue"`
	Resolution string `json:"resolution"`
}

// SyncReport summarises a sync. Each module is attempted even when an
// earlier one failed.
type SyncReport struct {
	Success   bool       `json:"success"`
	Synced    []string   `json:"synced"`
	Errors    []string   `json:"errors"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
	Pending   int        `json:"pending"`
}

func (r *SyncReport) fail(module string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", module, err))
}

// SyncService reconciles live practice state with the store and replays
// the offline queue.
type SyncService struct {
	practice     *PracticeService
	progressRepo *repository.ProgressRepository
	queue        *offline.Queue
	log          *logger.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(practice *PracticeService, progressRepo *repository.ProgressRepository, queue *offline.Queue, log *logger.Logger) *SyncService {
	return &SyncService{practice: practice, progressRepo: progressRepo, queue: queue, log: log}
}

// Flush replays the offline queue
func (s *SyncService) Flush(ctx context.Context) SyncReport {
	report := SyncReport{Synced: []string{}, Errors: []string{}}
	s.flushQueue(ctx, &report)
	report.Pending = s.queue.Len()
	report.Success = len(report.Errors) == 0
	return report
}

func (s *SyncService) flushQueue(ctx context.Context, report *SyncReport) {
	n, err := s.queue.Flush(ctx)
	if err != nil {
		report.fail("queue", err)
		return
	}
	report.Synced = append(report.Synced, "queue")
	if n > 0 {
		s.log.Info("offline queue replayed", "writes", n)
	}
}

// Sync replays queued writes, resolves conflicts on the user's progress
// with the larger value winning, and pushes the live aggregate.
func (s *SyncService) Sync(ctx context.Context, user *models.User) SyncReport {
	report := SyncReport{Synced: []string{}, Errors: []string{}}
	s.flushQueue(ctx, &report)

	local, loaded := s.practice.Loaded(user.ID)
	remote, err := s.progressRepo.Get(user.ID)
	if err != nil {
		report.fail("progress", err)
	} else if loaded {
		report.Conflicts = detectConflicts(local, *remote)
	}

	dayBehind, pointsBehind := false, false
	for _, c := range report.Conflicts {
		if c.Resolution != ResolutionRemote {
			continue
		}
		switch c.Field {
		case "currentDay":
			dayBehind = true
		case "totalPoints":
			pointsBehind = true
		}
	}

	if loaded {
		if dayBehind {
			// the store completed days this process never saw; drop the live copy
			report.Synced = append(report.Synced, "progress")
		} else if err := s.practice.Persist(user.ID); err != nil {
			report.fail("progress", err)
		} else {
			report.Synced = append(report.Synced, "progress", "letterStats")
		}
		if dayBehind || pointsBehind {
			s.practice.Unload(user.ID)
		}
	}

	report.Pending = s.queue.Len()
	report.Success = len(report.Errors) == 0
	if !report.Success {
		s.log.Warn("sync finished with errors", "user_id", user.ID, "errors", len(report.Errors))
	}
	return report
}

// detectConflicts compares the fields both sides may advance. The larger
// value wins.
func detectConflicts(local, remote models.Progress) []Conflict {
	var out []Conflict
	check := func(field string, l, r int) {
		if l == r {
			return
		}
		c := Conflict{Module: "progress", Field: field, Local: l, Remote: r, Resolution: ResolutionRemote}
		if l > r {
			c.Resolution = ResolutionLocal
		}
		out = append(out, c)
	}
	check("currentDay", local.CurrentDay, remote.CurrentDay)
	check("totalPoints", local.TotalPoints, remote.TotalPoints)
	return out
}
