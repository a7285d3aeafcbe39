package user

type CreateUserRequest struct {
	Name             string `json:"name" validate:"required,min=2,max=80"`
	Email            string `json:"email" validate:"omitempty,email"`
	Profession       string `json:"profession,omitempty"`
	Gender           string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	DateOfBirth      string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
	Instagram        string `json:"instagram,omitempty"`
	JoinCrew         bool   `json:"joinCrew"`
}

// UpdateProfileRequest only touches fields that are present.
type UpdateProfileRequest struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,min=2,max=80"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Profession       *string `json:"profession,omitempty"`
	Gender           *string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	DateOfBirth      *string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EmergencyContact *string `json:"emergencyContact,omitempty"`
	Instagram        *string `json:"instagram,omitempty"`
	JoinCrew         *bool   `json:"joinCrew,omitempty"`
}

type RegisterDeviceRequest struct {
	Token string `json:"token" validate:"required"`
}
