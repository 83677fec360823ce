package models

// Attendance proves that a registration holder physically checked in.
// At most one row exists per registration; the row itself is the source
// of truth for "attended".
type Attendance struct {
	ID             int    `json:"id"`
	RegistrationID int    `json:"registrationId"`
	CheckinAt      string `json:"checkinAt"`
}
