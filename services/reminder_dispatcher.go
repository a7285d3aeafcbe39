package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"runClubAPI/internal/cache"
	"runClubAPI/internal/notification"
	"runClubAPI/internal/store"
)

// ReminderDispatcher periodically reminds confirmed attendees of events that
// start within the lead window. Each event is attempted at most once, failed
// or not; with shared claims that holds across instances.
type ReminderDispatcher struct {
	service  *NotificationService
	events   store.Events
	lead     time.Duration
	interval time.Duration
	claims   cache.Claims
	now      func() time.Time
}

func NewReminderDispatcher(service *NotificationService, events store.Events, lead, interval time.Duration) *ReminderDispatcher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReminderDispatcher{
		service:  service,
		events:   events,
		lead:     lead,
		interval: interval,
		claims:   cache.NewMemoryClaims(),
		now:      time.Now,
	}
}

func (d *ReminderDispatcher) SetClaims(c cache.Claims) {
	d.claims = c
}

// Run blocks until ctx is cancelled.
func (d *ReminderDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.processDueReminders(ctx)
	for {
		select {
		case <-ticker.C:
			d.processDueReminders(ctx)
		case <-ctx.Done():
			zap.S().Info("reminder dispatcher stopped")
			return
		}
	}
}

// processDueReminders returns the number of events reminded in this pass.
func (d *ReminderDispatcher) processDueReminders(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	events, err := d.events.ListEvents(ctx, true)
	if err != nil {
		zap.S().Errorf("reminder dispatcher: failed to list events: %v", err)
		return 0
	}

	now := d.now()
	reminded := 0
	for _, ev := range events {
		if ev.Date.IsZero() || !ev.Date.After(now) || ev.Date.Sub(now) > d.lead {
			continue
		}
		claimed, err := d.claims.Claim(ctx, "reminder:"+ev.ID, d.lead+d.interval)
		if err != nil {
			zap.S().Errorf("reminder dispatcher: failed to claim event %s: %v", ev.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		resp, err := d.service.SendReminder(ctx, &notification.SendReminderRequest{
			EventID: ev.ID,
			Title:   "Reminder: " + ev.Name,
			Message: reminderMessage(ev),
		})
		if err != nil {
			zap.S().Errorf("reminder dispatcher: event %s: %v", ev.ID, err)
			continue
		}
		zap.S().Infof("reminder dispatcher: event %s reminded %d attendees", ev.ID, resp.Created)
		reminded++
	}
	return reminded
}
