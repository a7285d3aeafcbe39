package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"runClubAPI/internal/notification"
	"runClubAPI/internal/store"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
)

// PushProvider delivers a notification to device tokens.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error)
}

type NotificationService struct {
	store store.Store
	push  PushProvider
	now   func() time.Time
}

func NewNotificationService(st store.Store) *NotificationService {
	return &NotificationService{store: st, now: time.Now}
}

// SetPushProvider enables push delivery. Without one, notifications are only
// stored.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

// SetReminder creates a reminder for the caller about an event.
func (s *NotificationService) SetReminder(ctx context.Context, userID, eventID string) (*notification.Notification, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	n := &notification.Notification{
		UserID:    userID,
		Title:     "Reminder: " + ev.Name,
		Message:   reminderMessage(ev),
		EventName: ev.Name,
		EventID:   ev.ID,
		CreatedAt: s.now().UTC(),
	}

	id, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	n.ID = id

	s.pushTo(ctx, []string{userID}, n.Title, n.Message, map[string]string{"eventId": ev.ID})
	return n, nil
}

// SendReminder notifies explicit users or everyone with a confirmed booking
// for the event.
func (s *NotificationService) SendReminder(ctx context.Context, req *notification.SendReminderRequest) (*notification.SendReminderResponse, error) {
	var eventName string
	targets := dedupe(req.UserIDs)

	if req.EventID != "" {
		ev, err := s.store.GetEvent(ctx, req.EventID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load event: %w", err)
		}
		eventName = ev.Name

		if len(targets) == 0 {
			bookings, err := s.store.ListBookings(ctx, booking.Filter{EventID: ev.ID, Status: booking.StatusConfirmed})
			if err != nil {
				return nil, fmt.Errorf("failed to list event bookings: %w", err)
			}
			ids := make([]string, 0, len(bookings))
			for _, b := range bookings {
				ids = append(ids, b.UserID)
			}
			targets = dedupe(ids)
		}
	}

	resp := &notification.SendReminderResponse{}
	now := s.now().UTC()
	for _, userID := range targets {
		n := &notification.Notification{
			UserID:    userID,
			Title:     req.Title,
			Message:   req.Message,
			EventName: eventName,
			EventID:   req.EventID,
			CreatedAt: now,
		}
		if _, err := s.store.CreateNotification(ctx, n); err != nil {
			zap.S().Errorf("failed to create reminder for %s: %v", userID, err)
			continue
		}
		resp.Created++
	}

	resp.Pushed = s.pushTo(ctx, targets, req.Title, req.Message, map[string]string{"eventId": req.EventID})
	zap.S().Infof("reminder sent: %d created, %d pushed", resp.Created, resp.Pushed)
	return resp, nil
}

func (s *NotificationService) List(ctx context.Context, userID string) (*notification.NotificationListResponse, error) {
	list, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}

	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return &notification.NotificationListResponse{
		Notifications: list,
		UnreadCount:   unread,
		TotalCount:    len(list),
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	resp, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	err := s.store.MarkNotificationRead(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token string) error {
	err := s.store.AddDeviceToken(ctx, userID, token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// pushTo sends to every device of the given users and returns the number
// of messages delivered. Push failures never fail the caller.
func (s *NotificationService) pushTo(ctx context.Context, userIDs []string, title, body string, data map[string]string) int {
	if s.push == nil {
		return 0
	}

	var tokens []string
	for _, id := range userIDs {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			continue
		}
		tokens = append(tokens, u.DeviceTokens...)
	}
	if len(tokens) == 0 {
		return 0
	}

	sent, err := s.push.SendPush(ctx, tokens, title, body, data)
	if err != nil {
		zap.S().Warnf("push delivery failed: %v", err)
	}
	return sent
}

func reminderMessage(ev *event.Event) string {
	parts := []string{ev.Name}
	if !ev.Date.IsZero() {
		parts = append(parts, "on "+ev.Date.Format("Mon, 02 Jan 2006"))
	}
	if ev.Time != "" {
		parts = append(parts, "at "+ev.Time)
	}
	msg := strings.Join(parts, " ")
	if ev.Location != "" {
		msg += ", " + ev.Location
	}
	return msg
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
