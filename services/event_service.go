package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"runClubAPI/internal/store"
	"runClubAPI/internal/timestamp"
	"runClubAPI/internal/types/event"
)

type EventService struct {
	store store.Events
	now   func() time.Time
}

func NewEventService(st store.Events) *EventService {
	return &EventService{store: st, now: time.Now}
}

func (s *EventService) List(ctx context.Context, activeOnly bool) ([]*event.Event, error) {
	events, err := s.store.ListEvents(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if events == nil {
		events = []*event.Event{}
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*event.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

func (s *EventService) Create(ctx context.Context, req *event.UpsertEventRequest) (*event.Event, error) {
	now := s.now().UTC()
	ev := &event.Event{Active: true, CreatedAt: now}
	if err := applyEventRequest(ev, req); err != nil {
		return nil, err
	}
	ev.UpdatedAt = now

	id, err := s.store.SaveEvent(ctx, ev)
	if err != nil {
		return nil, err
	}
	ev.ID = id
	return ev, nil
}

// Update overwrites the canonical event. Bookings keep their own snapshot.
func (s *EventService) Update(ctx context.Context, id string, req *event.UpsertEventRequest) (*event.Event, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyEventRequest(ev, req); err != nil {
		return nil, err
	}
	ev.UpdatedAt = s.now().UTC()

	if _, err := s.store.SaveEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func applyEventRequest(ev *event.Event, req *event.UpsertEventRequest) error {
	date, ok := timestamp.Normalize(req.Date).Time()
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
	}

	ev.Name = strings.TrimSpace(req.Name)
	ev.Date = date.UTC()
	ev.Time = req.Time
	ev.Location = req.Location
	ev.Description = req.Description
	ev.Price = req.Price
	ev.Capacity = req.Capacity
	if req.Active != nil {
		ev.Active = *req.Active
	}
	return nil
}
