package stats

import "time"

type UserStats struct {
	UserID         string     `json:"userId"`
	EventsBooked   int        `json:"eventsBooked"`
	EventsAttended int        `json:"eventsAttended"`
	LastAttendedAt *time.Time `json:"lastAttendedAt,omitempty"`
}

type Analytics struct {
	TotalUsers    int            `json:"totalUsers"`
	CrewMembers   int            `json:"crewMembers"`
	TotalBookings int            `json:"totalBookings"`
	FreeTrials    int            `json:"freeTrials"`
	PaidBookings  int            `json:"paidBookings"`
	Revenue       int64          `json:"revenue"`
	ByStatus      map[string]int `json:"byStatus"`
	ByEvent       []EventCount   `json:"byEvent"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

type EventCount struct {
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`
	Bookings  int    `json:"bookings"`
	Attended  int    `json:"attended"`
}
