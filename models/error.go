package models

type Error struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
