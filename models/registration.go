package models

// Registration is a user's claim on a seat in an activity. Status moves
// PENDING -> CHECKED_IN exactly once, driven by the check-in workflow.
type Registration struct {
	ID         int    `json:"id"`
	UserID     int    `json:"userId"`
	ActivityID int    `json:"activityId"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	QRCodePath string `json:"qr,omitempty"`

	UserName   string `json:"name,omitempty"`
	UserEmail  string `json:"email,omitempty"`
	UserSchool string `json:"school,omitempty"`

	ActivityTitle string `json:"activityTitle,omitempty"`
	ActivityDate  string `json:"activityDate,omitempty"`

	Attended   bool   `json:"attended"`
	AttendedAt string `json:"attendedAt,omitempty"`
	DiplomaURL string `json:"diplomaUrl,omitempty"`
}
