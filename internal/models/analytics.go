package models

// AttendanceStanding buckets a student's attendance percentage.
type AttendanceStanding string

const (
	StandingExcellent AttendanceStanding = "Excellent"
	StandingGood      AttendanceStanding = "Good"
	StandingWarning   AttendanceStanding = "Warning"
	StandingCritical  AttendanceStanding = "Critical"
)

// StandingForPercentage maps a percentage to its standing.
// Banding: >=75 Excellent, 60-74 Good, 50-59 Warning, <50 Critical.
func StandingForPercentage(pct float64) AttendanceStanding {
	switch {
	case pct >= 75:
		return StandingExcellent
	case pct >= 60:
		return StandingGood
	case pct >= 50:
		return StandingWarning
	default:
		return StandingCritical
	}
}

// StudentAttendanceStat summarises one student across the sessions in scope.
type StudentAttendanceStat struct {
	RegistrationNumber string             `json:"registration_number"`
	FullName           string             `json:"full_name"`
	Department         string             `json:"department"`
	Level              string             `json:"level"`
	AttendedCount      int                `json:"attended_count"`
	MissedCount        int                `json:"missed_count"`
	Percentage         float64            `json:"percentage"`
	Standing           AttendanceStanding `json:"standing"`
}

// AttendanceStatsReport is the full analytics payload for a lecturer/course scope.
type AttendanceStatsReport struct {
	LecturerID    string                  `json:"lecturer_id"`
	CourseCode    string                  `json:"course_code,omitempty"`
	TotalSessions int                     `json:"total_sessions"`
	Students      []StudentAttendanceStat `json:"students"`
}

// SessionAttendanceRow is the raw join row analytics aggregates over.
type SessionAttendanceRow struct {
	SessionID          string `db:"session_id"`
	RegistrationNumber string `db:"registration_number"`
	FullName           string `db:"full_name"`
	Department         string `db:"department"`
	Level              string `db:"level"`
}
