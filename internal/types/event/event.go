package event

import "time"

type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Capacity    int       `json:"capacity,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UpsertEventRequest struct {
	Name        string `json:"name" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
	Active      *bool  `json:"active,omitempty"`
}
