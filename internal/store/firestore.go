package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"runClubAPI/internal/achievement"
	"runClubAPI/internal/notification"
	"runClubAPI/internal/stats"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
	"runClubAPI/internal/types/user"
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreStore) getDoc(ctx context.Context, col, id string) (*firestore.DocumentSnapshot, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := s.client.Collection(col).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", col, id, err)
	}
	return snap, nil
}

func (s *FirestoreStore) exists(ctx context.Context, q firestore.Query) (bool, error) {
	docs, err := q.Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// ============= USERS =============

func (s *FirestoreStore) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.client.Collection(colUsers).Doc(u.ID).Create(ctx, userToDoc(u))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	snap, err := s.getDoc(ctx, colUsers, id)
	if err != nil {
		return nil, err
	}
	return userFromDoc(snap.Ref.ID, snap.Data()), nil
}

func (s *FirestoreStore) UpdateUser(ctx context.Context, u *user.User) error {
	_, err := s.client.Collection(colUsers).Doc(u.ID).Set(ctx, userToDoc(u), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListUsers(ctx context.Context, limit int) ([]*user.User, error) {
	q := s.client.Collection(colUsers).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var users []*user.User
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		users = append(users, userFromDoc(snap.Ref.ID, snap.Data()))
	}
	return users, nil
}

func (s *FirestoreStore) AddDeviceToken(ctx context.Context, userID, token string) error {
	_, err := s.client.Collection(colUsers).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "deviceTokens", Value: firestore.ArrayUnion(token)},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// writeJob is the part of *firestore.BulkWriterJob read after End.
type writeJob interface {
	Results() (*firestore.WriteResult, error)
}

// jobErrors blocks on every job and joins the failures.
func jobErrors(jobs []writeJob) error {
	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d deletes failed: %w", len(errs), len(jobs), errors.Join(errs...))
}

func (s *FirestoreStore) DeleteUserCascade(ctx context.Context, userID string) error {
	bw := s.client.BulkWriter(ctx)

	var refs []*firestore.DocumentRef
	owned := []firestore.Query{
		s.client.Collection(colBookings).Where("userId", "==", userID),
		s.client.Collection(colNotifications).Where("userId", "==", userID),
		s.client.Collection(colAchievements).Where("userId", "==", userID),
	}
	for _, q := range owned {
		docs, err := q.Documents(ctx).GetAll()
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to collect owned documents: %w", err)
		}
		for _, d := range docs {
			refs = append(refs, d.Ref)
		}
	}
	refs = append(refs,
		s.client.Collection(colStatistics).Doc(userID),
		s.client.Collection(colUsers).Doc(userID),
	)

	jobs := make([]writeJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			if queued := jobErrors(jobs); queued != nil {
				return fmt.Errorf("failed to queue delete: %w (%v)", err, queued)
			}
			return fmt.Errorf("failed to queue delete: %w", err)
		}
		jobs = append(jobs, job)
	}

	bw.End()
	if err := jobErrors(jobs); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}
	return nil
}

// ============= BOOKINGS =============

func (s *FirestoreStore) CreateBooking(ctx context.Context, b *booking.Booking) (string, error) {
	ref := s.client.Collection(colBookings).NewDoc()
	doc := bookingToDoc(b)
	doc["createdAt"] = firestore.ServerTimestamp

	var claims []*firestore.DocumentRef
	claimErr := ErrTrialClaimed
	switch {
	case b.IsFreeTrial:
		for _, key := range trialClaimKeys(b.PhoneNumber, b.UserID) {
			claims = append(claims, s.client.Collection(colTrialClaims).Doc(key))
		}
	case b.PaymentID != "":
		claims = append(claims, s.client.Collection(colPaymentClaims).Doc(b.PaymentID))
		claimErr = ErrPaymentUsed
	}

	if len(claims) == 0 {
		if _, err := ref.Create(ctx, doc); err != nil {
			return "", fmt.Errorf("failed to create booking: %w", err)
		}
		return ref.ID, nil
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, claimRef := range claims {
			if _, err := tx.Get(claimRef); err == nil {
				return claimErr
			} else if !isNotFound(err) {
				return err
			}
		}

		for _, claimRef := range claims {
			if err := tx.Create(claimRef, map[string]any{
				"userId":    b.UserID,
				"bookingId": ref.ID,
				"orderId":   b.OrderID,
				"claimedAt": firestore.ServerTimestamp,
			}); err != nil {
				return err
			}
		}
		return tx.Create(ref, doc)
	})
	if err != nil {
		if errors.Is(err, claimErr) {
			return "", claimErr
		}
		return "", fmt.Errorf("failed to create booking: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	snap, err := s.getDoc(ctx, colBookings, id)
	if err != nil {
		return nil, err
	}
	return bookingFromDoc(snap.Ref.ID, snap.Data()), nil
}

func (s *FirestoreStore) ListBookings(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	q := s.client.Collection(colBookings).Query
	if f.UserID != "" {
		q = q.Where("userId", "==", f.UserID)
	}
	if f.EventID != "" {
		q = q.Where("eventId", "==", f.EventID)
	}
	if f.Status != "" {
		q = q.Where("status", "==", string(f.Status))
	}
	q = q.OrderBy("createdAt", firestore.Desc)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*booking.Booking, 0, len(docs))
	for _, d := range docs {
		bookings = append(bookings, bookingFromDoc(d.Ref.ID, d.Data()))
	}
	return bookings, nil
}

func (s *FirestoreStore) HasBookingForUser(ctx context.Context, userID string) (bool, error) {
	found, err := s.exists(ctx, s.client.Collection(colBookings).Where("userId", "==", userID))
	if err != nil {
		return false, fmt.Errorf("failed to query bookings by user: %w", err)
	}
	return found, nil
}

func (s *FirestoreStore) HasBookingForPhone(ctx context.Context, phone string) (bool, error) {
	found, err := s.exists(ctx, s.client.Collection(colBookings).Where("phoneNumber", "==", phone))
	if err != nil {
		return false, fmt.Errorf("failed to query bookings by phone: %w", err)
	}
	return found, nil
}

func (s *FirestoreStore) TrialClaimed(ctx context.Context, phone string) (bool, error) {
	_, err := s.client.Collection(colTrialClaims).Doc("phone:" + phone).Get(ctx)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to read trial claim: %w", err)
}

func (s *FirestoreStore) UpdateBookingStatus(ctx context.Context, id string, upd booking.StatusUpdate) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(upd.Status)},
		{Path: "updatedAt", Value: upd.UpdatedAt},
	}
	if upd.UsedAt != nil {
		updates = append(updates,
			firestore.Update{Path: "usedAt", Value: *upd.UsedAt},
			firestore.Update{Path: "usedBy", Value: upd.UsedBy},
		)
	}

	ref := s.client.Collection(colBookings).Doc(id)
	if !upd.RequireUnused {
		if _, err := ref.Update(ctx, updates); err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		return nil
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		if current, _ := snap.Data()["status"].(string); current == string(booking.StatusUsed) {
			return ErrAlreadyUsed
		}
		return tx.Update(ref, updates)
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyUsed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

// ============= EVENTS =============

func (s *FirestoreStore) ListEvents(ctx context.Context, activeOnly bool) ([]*event.Event, error) {
	q := s.client.Collection(colEvents).Query
	if activeOnly {
		q = q.Where("active", "==", true)
	}
	q = q.OrderBy("date", firestore.Asc)

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*event.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, eventFromDoc(d.Ref.ID, d.Data()))
	}
	return events, nil
}

func (s *FirestoreStore) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	snap, err := s.getDoc(ctx, colEvents, id)
	if err != nil {
		return nil, err
	}
	return eventFromDoc(snap.Ref.ID, snap.Data()), nil
}

func (s *FirestoreStore) SaveEvent(ctx context.Context, e *event.Event) (string, error) {
	var ref *firestore.DocumentRef
	if e.ID == "" {
		ref = s.client.Collection(colEvents).NewDoc()
	} else {
		ref = s.client.Collection(colEvents).Doc(e.ID)
	}

	if _, err := ref.Set(ctx, eventToDoc(e)); err != nil {
		return "", fmt.Errorf("failed to save event: %w", err)
	}
	return ref.ID, nil
}

// ============= NOTIFICATIONS =============

func (s *FirestoreStore) CreateNotification(ctx context.Context, n *notification.Notification) (string, error) {
	ref, _, err := s.client.Collection(colNotifications).Add(ctx, notificationToDoc(n))
	if err != nil {
		return "", fmt.Errorf("failed to create notification: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) ListNotifications(ctx context.Context, userID string) ([]*notification.Notification, error) {
	docs, err := s.client.Collection(colNotifications).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]*notification.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, notificationFromDoc(d.Ref.ID, d.Data()))
	}
	return out, nil
}

func (s *FirestoreStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	snap, err := s.getDoc(ctx, colNotifications, id)
	if err != nil {
		return err
	}
	if getString(snap.Data(), "userId") != userID {
		return ErrNotFound
	}

	if _, err := snap.Ref.Update(ctx, []firestore.Update{{Path: "read", Value: true}}); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// ============= STATISTICS =============

func (s *FirestoreStore) GetStats(ctx context.Context, userID string) (*stats.UserStats, error) {
	snap, err := s.getDoc(ctx, colStatistics, userID)
	if errors.Is(err, ErrNotFound) {
		return &stats.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return statsFromDoc(userID, snap.Data()), nil
}

func (s *FirestoreStore) IncrementStats(ctx context.Context, userID string, booked, attended int, at time.Time) (*stats.UserStats, error) {
	doc := map[string]any{
		"userId":         userID,
		"eventsBooked":   firestore.Increment(booked),
		"eventsAttended": firestore.Increment(attended),
	}
	if attended > 0 {
		doc["lastAttendedAt"] = at
	}

	if _, err := s.client.Collection(colStatistics).Doc(userID).Set(ctx, doc, firestore.MergeAll); err != nil {
		return nil, fmt.Errorf("failed to update statistics: %w", err)
	}
	return s.GetStats(ctx, userID)
}

func (s *FirestoreStore) UnlockAchievement(ctx context.Context, ua achievement.UserAchievement) error {
	ref := s.client.Collection(colAchievements).Doc(ua.UserID + "_" + ua.AchievementID)
	_, err := ref.Create(ctx, map[string]any{
		"userId":        ua.UserID,
		"achievementId": ua.AchievementID,
		"unlockedAt":    ua.UnlockedAt,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListAchievements(ctx context.Context, userID string) ([]achievement.UserAchievement, error) {
	docs, err := s.client.Collection(colAchievements).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}

	out := make([]achievement.UserAchievement, 0, len(docs))
	for _, d := range docs {
		out = append(out, achievementFromDoc(d.Data()))
	}
	return out, nil
}
