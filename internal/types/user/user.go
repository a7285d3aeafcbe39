package user

import "time"

type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	PhoneNumber      string    `json:"phoneNumber"`
	Email            string    `json:"email,omitempty"`
	Profession       string    `json:"profession,omitempty"`
	Gender           string    `json:"gender,omitempty"`
	DateOfBirth      string    `json:"dateOfBirth,omitempty"`
	EmergencyContact string    `json:"emergencyContact,omitempty"`
	Instagram        string    `json:"instagram,omitempty"`
	JoinCrew         bool      `json:"joinCrew"`
	DeviceTokens     []string  `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
