package dto

// SubmitAttendanceRequest is the student submission payload. The secure token
// may arrive in the body or as the `token` query parameter on the share link;
// the handler merges the two before validation.
type SubmitAttendanceRequest struct {
	SessionID          string   `json:"sessionId" validate:"required"`
	SecureToken        string   `json:"secureToken"`
	FullName           string   `json:"fullName" validate:"required"`
	RegistrationNumber string   `json:"registrationNumber" validate:"required"`
	Department         string   `json:"department" validate:"required"`
	Level              string   `json:"level" validate:"required"`
	Latitude           *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude          *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}
