package controllers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"registro-eventos/models"
	"registro-eventos/utils"

	"github.com/gorilla/mux"
)

type DiplomaController struct{}

type diplomaItemError struct {
	RegistrationID int    `json:"registrationId"`
	Error          string `json:"error"`
}

type diplomaBatchResponse struct {
	Processed int                `json:"processed"`
	Created   int                `json:"created"`
	Updated   int                `json:"updated"`
	Skipped   int                `json:"skipped"`
	Errors    []diplomaItemError `json:"errors"`
}

type diplomaResponse struct {
	Diploma      models.Diploma `json:"diploma"`
	Created      bool           `json:"created"`
	EmailMode    string         `json:"emailMode,omitempty"`
	EmailPreview string         `json:"emailPreview,omitempty"`
	EmailError   string         `json:"emailError,omitempty"`
}

// GenerateOne generates or refreshes the diploma for a single
// registration and emails it with the PDF attached.
func (dc *DiplomaController) GenerateOne(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		regID, err := strconv.Atoi(mux.Vars(r)["regId"])
		if err != nil || regID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid registration ID"})
			return
		}

		diploma, created, mail, err := generateDiploma(db, regID)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Registration not found"})
			return
		}
		if err != nil {
			log.Printf("Error generating diploma for registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to generate diploma"})
			return
		}

		utils.ResponseJSON(w, diplomaResponse{
			Diploma:      diploma,
			Created:      created,
			EmailMode:    mail.Mode,
			EmailPreview: mail.Preview,
			EmailError:   mail.Error,
		})
	}
}

// GenerateForActivity runs the single-registration generation over every
// registration of an activity, optionally restricted to checked-in ones.
// Items are processed sequentially and each failure is isolated: a PDF
// or mail error counts the item as skipped and never halts the batch.
func (dc *DiplomaController) GenerateForActivity(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		activityID, err := strconv.Atoi(mux.Vars(r)["activityId"])
		if err != nil || activityID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid activity ID"})
			return
		}

		onlyAttended := false
		if raw := r.URL.Query().Get("onlyAttended"); raw != "" {
			onlyAttended, err = strconv.ParseBool(raw)
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid onlyAttended value", Field: "onlyAttended"})
				return
			}
		}

		var exists int
		if err := db.QueryRow("SELECT COUNT(*) FROM Activities WHERE id = ?", activityID).Scan(&exists); err != nil {
			log.Printf("Error checking activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if exists == 0 {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Activity not found"})
			return
		}

		query := "SELECT id FROM Registrations WHERE activity_id = ?"
		args := []interface{}{activityID}
		if onlyAttended {
			query += " AND status = 'CHECKED_IN'"
		}

		rows, err := db.Query(query, args...)
		if err != nil {
			log.Printf("Error listing registrations for activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		var regIDs []int
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				log.Printf("Error scanning registration id: %v", err)
				continue
			}
			regIDs = append(regIDs, id)
		}
		rows.Close()

		result := diplomaBatchResponse{Errors: []diplomaItemError{}}
		for _, regID := range regIDs {
			result.Processed++

			_, created, mail, err := generateDiploma(db, regID)
			if err != nil {
				log.Printf("Diploma generation failed for registration %d: %v", regID, err)
				result.Skipped++
				result.Errors = append(result.Errors, diplomaItemError{RegistrationID: regID, Error: err.Error()})
				continue
			}
			if mail.Error != "" {
				result.Skipped++
				result.Errors = append(result.Errors, diplomaItemError{RegistrationID: regID, Error: "mail: " + mail.Error})
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		utils.ResponseJSON(w, result)
	}
}

// generateDiploma renders, persists and emails the diploma for one
// registration. The PDF lands on a path derived from (user, activity),
// so regeneration overwrites in place, and the Diplomas row is upserted
// on the same key. Returns sql.ErrNoRows when the registration is
// unknown.
func generateDiploma(db *sql.DB, regID int) (models.Diploma, bool, utils.MailResult, error) {
	var diploma models.Diploma
	var name, email, activityTitle, activityDate string

	err := db.QueryRow("SELECT r.user_id, r.activity_id, u.name, u.email, a.title, COALESCE(a.date, '') FROM Registrations r JOIN Users u ON r.user_id = u.id JOIN Activities a ON r.activity_id = a.id WHERE r.id = ?", regID).
		Scan(&diploma.UserID, &diploma.ActivityID, &name, &email, &activityTitle, &activityDate)
	if err != nil {
		return diploma, false, utils.MailResult{}, err
	}

	pdfBytes, err := utils.RenderDiplomaPDF(name, email, activityTitle, activityDate)
	if err != nil {
		return diploma, false, utils.MailResult{}, err
	}

	pdfPath, err := utils.SavePublicFile("diplomas", utils.DiplomaFileName(diploma.UserID, diploma.ActivityID), pdfBytes)
	if err != nil {
		return diploma, false, utils.MailResult{}, err
	}
	diploma.PDFPath = pdfPath

	created := false
	var existingID int
	err = db.QueryRow("SELECT id FROM Diplomas WHERE user_id = ? AND activity_id = ?", diploma.UserID, diploma.ActivityID).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		result, insertErr := db.Exec("INSERT INTO Diplomas (user_id, activity_id, pdf_path) VALUES (?, ?, ?)",
			diploma.UserID, diploma.ActivityID, pdfPath)
		if insertErr != nil {
			return diploma, false, utils.MailResult{}, insertErr
		}
		id, _ := result.LastInsertId()
		diploma.ID = int(id)
		created = true
	case err != nil:
		return diploma, false, utils.MailResult{}, err
	default:
		if _, updateErr := db.Exec("UPDATE Diplomas SET pdf_path = ? WHERE id = ?", pdfPath, existingID); updateErr != nil {
			return diploma, false, utils.MailResult{}, updateErr
		}
		diploma.ID = existingID
	}

	emailBody := buildDiplomaEmail(name, activityTitle, pdfPath)
	mail := utils.SendEmail(email, "Tu diploma: "+activityTitle, emailBody, pdfBytes, "diploma.pdf")
	return diploma, created, mail, nil
}

func buildDiplomaEmail(name, activityTitle, pdfPath string) string {
	base := utils.PublicBaseURL()
	return fmt.Sprintf(
		"<h2>Diploma disponible</h2><p>Hola %s, adjuntamos tu diploma de participacion en <strong>%s</strong>.</p><p>Tambien puedes descargarlo en <a href=\"%s%s\">%s%s</a>.</p>",
		name, activityTitle, base, pdfPath, base, pdfPath)
}
