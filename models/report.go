package models

type AttendanceSummaryRow struct {
	ActivityID         int     `json:"activityId"`
	Title              string  `json:"title"`
	Kind               string  `json:"kind"`
	Date               string  `json:"date,omitempty"`
	TotalRegistrations int     `json:"totalRegistrations"`
	TotalAttendances   int     `json:"totalAttendances"`
	AttendanceRate     float64 `json:"attendanceRate"`
}

type AttendanceDetailItem struct {
	RegistrationID int    `json:"registrationId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Attended       bool   `json:"attended"`
	CheckinAt      string `json:"checkinAt,omitempty"`
}

type AttendanceDetail struct {
	Activity           Activity               `json:"activity"`
	TotalRegistrations int                    `json:"totalRegistrations"`
	TotalAttendances   int                    `json:"totalAttendances"`
	AttendanceRate     float64                `json:"attendanceRate"`
	Items              []AttendanceDetailItem `json:"items"`
}
