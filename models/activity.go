package models

// Activity is a schedulable event (workshop, competition, ...) with a
// finite seat capacity.
type Activity struct {
	ID          int    `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Capacity    int    `json:"capacity"`
}

type ActivitySummary struct {
	ID          int    `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Capacity    int    `json:"capacity"`
	Registered  int    `json:"registered"`
	Available   int    `json:"available"`
}
