package models

type Diploma struct {
	ID         int    `json:"id"`
	UserID     int    `json:"userId"`
	ActivityID int    `json:"activityId"`
	PDFPath    string `json:"pdfPath"`
}
