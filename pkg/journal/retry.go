package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/skillcall/pkg/call"
	"github.com/harunnryd/skillcall/pkg/redact"
)

// RetryUnsaved re-sends every unsaved profile to saver and marks the ones
// that succeed as saved. It returns how many were saved.
func RetryUnsaved(ctx context.Context, s *Store, saver call.ProfileSaver, log *slog.Logger) (int, error) {
	pending, err := s.Unsaved(ctx)
	if err != nil {
		return 0, err
	}
	saved := 0
	for _, rec := range pending {
		resp, err := saver.SaveProfile(ctx, rec.Phone, rec.Profile)
		if err != nil {
			log.Warn("journal_retry_failed", slog.String("session_id", rec.SessionID), slog.String("phone", redact.Phone(rec.Phone)), slog.String("error", err.Error()))
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			continue
		}
		rec.Outcome = call.OutcomeSaved
		rec.WorkerID = resp.WorkerID
		rec.EndedAt = time.Now()
		if err := s.Record(ctx, rec); err != nil {
			return saved, err
		}
		saved++
		log.Info("journal_retry_saved", slog.String("session_id", rec.SessionID), slog.String("worker_id", resp.WorkerID))
	}
	return saved, nil
}
