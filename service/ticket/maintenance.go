package ticket

import (
	"context"
	"errors"

	"zestpass/db"
	"zestpass/service/metrics"
	"zestpass/util"

	"github.com/google/uuid"
)

type subjectKey struct {
	subjectType db.SubjectType
	id          uuid.UUID
}

// Expire every active ticket whose window is over (end + grace period, or a past date when there is no end)
// or whose event/activity is cancelled. Scans apply the same rules, this sweep only catches up on tickets
// nobody scanned. Returns the number of tickets expired
func (service *Service) ExpirePastTickets(ctx context.Context) (int, error) {
	start := service.now()
	defer metrics.ObserveSweep(start)

	subjects := map[subjectKey]*db.Subject{}
	expired := 0
	var cursor *db.SweepCursor
	for {
		now := service.now()
		candidates, err := service.store.ListExpirableTickets(ctx, db.ExpiryCutoff{
			EndedBefore:   now.Add(-GracePeriod),
			StartedBefore: service.day(now),
			After:         cursor,
		}, service.sweepBatch)
		if err != nil {
			return expired, err
		}

		batch := 0
		for i := range candidates {
			if err := ctx.Err(); err != nil {
				return expired, err
			}

			ticket := &candidates[i]
			key := subjectKey{ticket.SubjectType, ticket.SubjectID}
			subject, ok := subjects[key]
			if !ok {
				subject, err = service.store.GetSubject(ctx, ticket.SubjectType, ticket.SubjectID, false)
				if err != nil && !errors.Is(err, db.ErrNotFound) {
					return expired, err
				}
				subjects[key] = subject
			}

			windowStart, windowEnd := service.window(ticket, subject)
			reason := service.expiryReason(subject, windowStart, windowEnd, now)
			if reason == "" {
				continue
			}

			updated, err := service.expire(ctx, ticket, reason, now)
			if err != nil {
				return expired, err
			}
			if updated.Status == db.TicketExpired {
				batch++
			}
		}
		expired += batch

		if len(candidates) < service.sweepBatch {
			break
		}
		last := candidates[len(candidates)-1]
		cursor = &db.SweepCursor{WindowStart: last.WindowStart, ID: last.ID}
	}

	util.LOGGER.Info("Expiry sweep finished", "expired", expired)
	return expired, nil
}
