package store

import (
	"time"

	"runClubAPI/internal/achievement"
	"runClubAPI/internal/notification"
	"runClubAPI/internal/stats"
	"runClubAPI/internal/timestamp"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
	"runClubAPI/internal/types/user"
)

// Document field readers. Dates always go through timestamp.Normalize so
// callers only ever see time.Time.

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func getInt64(m map[string]any, key string) int64 {
	switch n := m[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func getTime(m map[string]any, key string) time.Time {
	t, _ := timestamp.Normalize(m[key]).Time()
	return t
}

func getTimePtr(m map[string]any, key string) *time.Time {
	t, ok := timestamp.Normalize(m[key]).Time()
	if !ok {
		return nil
	}
	return &t
}

func getStrings(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func bookingFromDoc(id string, m map[string]any) *booking.Booking {
	return &booking.Booking{
		ID:            id,
		UserID:        getString(m, "userId"),
		UserName:      getString(m, "userName"),
		UserEmail:     getString(m, "userEmail"),
		PhoneNumber:   getString(m, "phoneNumber"),
		EventID:       getString(m, "eventId"),
		EventName:     getString(m, "eventName"),
		EventDate:     getTime(m, "eventDate"),
		EventTime:     getString(m, "eventTime"),
		EventLocation: getString(m, "eventLocation"),
		Status:        booking.Status(getString(m, "status")),
		IsFreeTrial:   getBool(m, "isFreeTrial"),
		Amount:        getInt64(m, "amount"),
		PaymentMethod: getString(m, "paymentMethod"),
		PaymentID:     getString(m, "paymentId"),
		OrderID:       getString(m, "orderId"),
		CreatedAt:     getTime(m, "createdAt"),
		UpdatedAt:     getTime(m, "updatedAt"),
		UsedAt:        getTimePtr(m, "usedAt"),
		UsedBy:        getString(m, "usedBy"),
	}
}

func bookingToDoc(b *booking.Booking) map[string]any {
	doc := map[string]any{
		"userId":        b.UserID,
		"userName":      b.UserName,
		"userEmail":     b.UserEmail,
		"phoneNumber":   b.PhoneNumber,
		"eventId":       b.EventID,
		"eventName":     b.EventName,
		"eventTime":     b.EventTime,
		"eventLocation": b.EventLocation,
		"status":        string(b.Status),
		"isFreeTrial":   b.IsFreeTrial,
		"amount":        b.Amount,
		"paymentMethod": b.PaymentMethod,
		"paymentId":     b.PaymentID,
		"orderId":       b.OrderID,
		"updatedAt":     b.UpdatedAt,
	}
	if !b.EventDate.IsZero() {
		doc["eventDate"] = b.EventDate
	}
	return doc
}

func userFromDoc(id string, m map[string]any) *user.User {
	return &user.User{
		ID:               id,
		Name:             getString(m, "name"),
		PhoneNumber:      getString(m, "phoneNumber"),
		Email:            getString(m, "email"),
		Profession:       getString(m, "profession"),
		Gender:           getString(m, "gender"),
		DateOfBirth:      getString(m, "dateOfBirth"),
		EmergencyContact: getString(m, "emergencyContact"),
		Instagram:        getString(m, "instagram"),
		JoinCrew:         getBool(m, "joinCrew"),
		DeviceTokens:     getStrings(m, "deviceTokens"),
		CreatedAt:        getTime(m, "createdAt"),
		UpdatedAt:        getTime(m, "updatedAt"),
	}
}

func userToDoc(u *user.User) map[string]any {
	return map[string]any{
		"name":             u.Name,
		"phoneNumber":      u.PhoneNumber,
		"email":            u.Email,
		"profession":       u.Profession,
		"gender":           u.Gender,
		"dateOfBirth":      u.DateOfBirth,
		"emergencyContact": u.EmergencyContact,
		"instagram":        u.Instagram,
		"joinCrew":         u.JoinCrew,
		"createdAt":        u.CreatedAt,
		"updatedAt":        u.UpdatedAt,
	}
}

func eventFromDoc(id string, m map[string]any) *event.Event {
	return &event.Event{
		ID:          id,
		Name:        getString(m, "name"),
		Date:        getTime(m, "date"),
		Time:        getString(m, "time"),
		Location:    getString(m, "location"),
		Description: getString(m, "description"),
		Price:       getInt64(m, "price"),
		Capacity:    int(getInt64(m, "capacity")),
		Active:      getBool(m, "active"),
		CreatedAt:   getTime(m, "createdAt"),
		UpdatedAt:   getTime(m, "updatedAt"),
	}
}

func eventToDoc(e *event.Event) map[string]any {
	return map[string]any{
		"name":        e.Name,
		"date":        e.Date,
		"time":        e.Time,
		"location":    e.Location,
		"description": e.Description,
		"price":       e.Price,
		"capacity":    e.Capacity,
		"active":      e.Active,
		"createdAt":   e.CreatedAt,
		"updatedAt":   e.UpdatedAt,
	}
}

func notificationFromDoc(id string, m map[string]any) *notification.Notification {
	return &notification.Notification{
		ID:        id,
		UserID:    getString(m, "userId"),
		Title:     getString(m, "title"),
		Message:   getString(m, "message"),
		EventName: getString(m, "eventName"),
		EventID:   getString(m, "eventId"),
		Read:      getBool(m, "read"),
		CreatedAt: getTime(m, "createdAt"),
	}
}

func notificationToDoc(n *notification.Notification) map[string]any {
	return map[string]any{
		"userId":    n.UserID,
		"title":     n.Title,
		"message":   n.Message,
		"eventName": n.EventName,
		"eventId":   n.EventID,
		"read":      n.Read,
		"createdAt": n.CreatedAt,
	}
}

func statsFromDoc(userID string, m map[string]any) *stats.UserStats {
	return &stats.UserStats{
		UserID:         userID,
		EventsBooked:   int(getInt64(m, "eventsBooked")),
		EventsAttended: int(getInt64(m, "eventsAttended")),
		LastAttendedAt: getTimePtr(m, "lastAttendedAt"),
	}
}

func achievementFromDoc(m map[string]any) achievement.UserAchievement {
	return achievement.UserAchievement{
		UserID:        getString(m, "userId"),
		AchievementID: getString(m, "achievementId"),
		UnlockedAt:    getTime(m, "unlockedAt"),
	}
}
