package models

import (
	"time"
	"unicode"
)

// AttendanceRecord is one student's accepted submission against a session.
// Records are immutable once written; resubmission is rejected, never merged.
// The (session_id, registration_number) pair carries a unique index, which is
// the sole duplicate-prevention mechanism under concurrent submissions.
type AttendanceRecord struct {
	ID                 string    `db:"id" json:"id"`
	SessionID          string    `db:"session_id" json:"session_id"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	FullName           string    `db:"full_name" json:"full_name"`
	Department         string    `db:"department" json:"department"`
	Level              string    `db:"level" json:"level"`
	Latitude           *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64  `db:"longitude" json:"longitude,omitempty"`
	SubmittedAt        time.Time `db:"submitted_at" json:"submitted_at"`
}

// ValidRegistrationNumber is a deliberately loose shape check: institutions
// format student IDs very differently (CSC/2021/014, ENG-2020-88, 21_04532A),
// so the rule is only length >= 4, at least one letter and one digit, and a
// charset of letters, digits, hyphen, slash and underscore.
func ValidRegistrationNumber(s string) bool {
	if len(s) < 4 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '-' || r == '/' || r == '_':
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}
