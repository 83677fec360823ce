package controllers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"registro-eventos/models"
	"registro-eventos/utils"

	"github.com/go-sql-driver/mysql"
)

type CheckinController struct{}

type checkinRequest struct {
	RegID     int    `json:"regId,omitempty"`
	QRPayload string `json:"qrPayload,omitempty"`
}

type checkinResponse struct {
	RegistrationID int    `json:"registrationId"`
	CheckinAt      string `json:"checkinAt"`
	AlreadyChecked bool   `json:"alreadyChecked"`
	Name           string `json:"name,omitempty"`
	ActivityTitle  string `json:"activityTitle,omitempty"`
}

// Checkin resolves a registration from a raw id or a scanned QR payload
// and records attendance. Repeated scans of the same registration never
// create duplicate attendance rows and never error: the original
// check-in time is returned with alreadyChecked set.
func (cc *CheckinController) Checkin(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkinRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid body"})
			return
		}
		defer r.Body.Close()

		hasRegID := body.RegID != 0
		hasPayload := body.QRPayload != ""
		if hasRegID == hasPayload {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Provide exactly one of regId or qrPayload"})
			return
		}

		regID := body.RegID
		if hasPayload {
			parsed, err := utils.ParseQRPayload(body.QRPayload)
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: err.Error(), Field: "qrPayload"})
				return
			}
			regID = parsed
		}
		if regID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid registration ID", Field: "regId"})
			return
		}

		var name, activityTitle string
		err := db.QueryRow("SELECT u.name, a.title FROM Registrations r JOIN Users u ON r.user_id = u.id JOIN Activities a ON r.activity_id = a.id WHERE r.id = ?", regID).
			Scan(&name, &activityTitle)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Registration not found"})
			return
		}
		if err != nil {
			log.Printf("Error resolving registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		var checkinAt string
		err = db.QueryRow("SELECT checkin_at FROM Attendances WHERE registration_id = ?", regID).Scan(&checkinAt)
		if err == nil {
			// Idempotent short-circuit: the existing row is the source of
			// truth and nothing is rewritten.
			utils.ResponseJSON(w, checkinResponse{
				RegistrationID: regID,
				CheckinAt:      checkinAt,
				AlreadyChecked: true,
				Name:           name,
				ActivityTitle:  activityTitle,
			})
			return
		}
		if err != sql.ErrNoRows {
			log.Printf("Error checking attendance for registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			log.Printf("Error starting check-in transaction for registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer tx.Rollback()

		now := utils.NowTimestamp()
		_, err = tx.Exec("INSERT INTO Attendances (registration_id, checkin_at) VALUES (?, ?)", regID, now)
		if err != nil {
			// A concurrent scan won the race; answer with its timestamp.
			if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
				tx.Rollback()
				var existing string
				if scanErr := db.QueryRow("SELECT checkin_at FROM Attendances WHERE registration_id = ?", regID).Scan(&existing); scanErr != nil {
					log.Printf("Error re-reading attendance for registration %d: %v", regID, scanErr)
					utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
					return
				}
				utils.ResponseJSON(w, checkinResponse{
					RegistrationID: regID,
					CheckinAt:      existing,
					AlreadyChecked: true,
					Name:           name,
					ActivityTitle:  activityTitle,
				})
				return
			}
			log.Printf("Error recording attendance for registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to record attendance"})
			return
		}

		if _, err := tx.Exec("UPDATE Registrations SET status = 'CHECKED_IN' WHERE id = ?", regID); err != nil {
			log.Printf("Error updating status for registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to update registration"})
			return
		}

		if err := tx.Commit(); err != nil {
			log.Printf("Error committing check-in for registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to complete check-in"})
			return
		}

		utils.ResponseJSONStatus(w, http.StatusCreated, checkinResponse{
			RegistrationID: regID,
			CheckinAt:      now,
			AlreadyChecked: false,
			Name:           name,
			ActivityTitle:  activityTitle,
		})
	}
}
