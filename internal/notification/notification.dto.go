package notification

type SetReminderRequest struct {
	EventID string `json:"eventId" validate:"required"`
}

// SendReminderRequest targets either explicit users or everyone booked on an event.
type SendReminderRequest struct {
	UserIDs []string `json:"userIds" validate:"required_without=EventID"`
	EventID string   `json:"eventId" validate:"required_without=UserIDs"`
	Title   string   `json:"title" validate:"required,max=120"`
	Message string   `json:"message" validate:"required,max=1000"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unreadCount"`
	TotalCount    int             `json:"totalCount"`
}

type SendReminderResponse struct {
	Created int `json:"created"`
	Pushed  int `json:"pushed"`
}
