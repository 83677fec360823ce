package models

// Winner records a placed result (1st, 2nd, ...) for an activity. At
// most one winner exists per (activity, place).
type Winner struct {
	ID          int    `json:"id"`
	ActivityID  int    `json:"activityId"`
	UserID      int    `json:"userId"`
	Place       int    `json:"place"`
	Description string `json:"description,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`

	UserName      string `json:"userName,omitempty"`
	ActivityTitle string `json:"activityTitle,omitempty"`
}
