package controllers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"registro-eventos/models"
	"registro-eventos/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
)

type RegistrationController struct{}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	School     string `json:"school,omitempty"`
	ActivityID int    `json:"activityId"`
}

type registerResponse struct {
	RegistrationID int64   `json:"registrationId"`
	QR             *string `json:"qr"`
	EmailMode      string  `json:"emailMode,omitempty"`
	EmailPreview   string  `json:"emailPreview,omitempty"`
	EmailError     string  `json:"emailError,omitempty"`
}

// Register creates a registration for an activity: resolves the user
// lazily by email, enforces the duplicate and capacity limits inside
// one transaction, then issues the QR code and confirmation email as
// best-effort side effects.
func (rc *RegistrationController) Register(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registerRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid body"})
			return
		}
		defer r.Body.Close()

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.School = strings.TrimSpace(body.School)

		if len([]rune(body.Name)) < 2 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Name must be at least 2 characters", Field: "name"})
			return
		}
		if !utils.IsValidEmail(body.Email) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid email address", Field: "email"})
			return
		}
		if body.ActivityID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid activity ID", Field: "activityId"})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			log.Printf("Error starting registration transaction: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer tx.Rollback()

		var userID int64
		var existingUserID int
		err = tx.QueryRow("SELECT id FROM Users WHERE email = ?", body.Email).Scan(&existingUserID)
		switch {
		case err == sql.ErrNoRows:
			// Classification is the caller's job; the server only derives
			// a default when nothing better is known.
			userType := "INTERNAL"
			var school interface{}
			if body.School != "" {
				userType = "EXTERNAL"
				school = body.School
			}
			result, insertErr := tx.Exec("INSERT INTO Users (name, email, type, school) VALUES (?, ?, ?, ?)",
				body.Name, body.Email, userType, school)
			if insertErr != nil {
				log.Printf("Error creating user %s: %v", body.Email, insertErr)
				utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to create user"})
				return
			}
			userID, _ = result.LastInsertId()
		case err != nil:
			log.Printf("Error looking up user %s: %v", body.Email, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		default:
			userID = int64(existingUserID)
		}

		var activityTitle, activityDate string
		var capacity int
		err = tx.QueryRow("SELECT title, COALESCE(date, ''), capacity FROM Activities WHERE id = ?", body.ActivityID).
			Scan(&activityTitle, &activityDate, &capacity)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Activity not found"})
			return
		}
		if err != nil {
			log.Printf("Error checking activity %d: %v", body.ActivityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error checking activity"})
			return
		}

		var existingRegistration int
		err = tx.QueryRow("SELECT COUNT(*) FROM Registrations WHERE user_id = ? AND activity_id = ?", userID, body.ActivityID).Scan(&existingRegistration)
		if err != nil {
			log.Printf("Error checking existing registration: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if existingRegistration > 0 {
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Already registered for this activity"})
			return
		}

		var registered int
		err = tx.QueryRow("SELECT COUNT(*) FROM Registrations WHERE activity_id = ?", body.ActivityID).Scan(&registered)
		if err != nil {
			log.Printf("Error counting registrations for activity %d: %v", body.ActivityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if registered >= capacity {
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Activity capacity is full"})
			return
		}

		result, err := tx.Exec("INSERT INTO Registrations (user_id, activity_id, status, created_at) VALUES (?, ?, 'PENDING', ?)",
			userID, body.ActivityID, utils.NowTimestamp())
		if err != nil {
			// The unique key on (user_id, activity_id) is the real
			// enforcement; the count above is only the fast path.
			if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
				utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Already registered for this activity"})
				return
			}
			log.Printf("Error inserting registration: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to create registration"})
			return
		}
		regID, _ := result.LastInsertId()

		if err := tx.Commit(); err != nil {
			log.Printf("Error committing registration %d: %v", regID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to complete registration"})
			return
		}

		// Side effects below are best-effort: the registration is already
		// committed and their failures only show up as response fields.
		resp := registerResponse{RegistrationID: regID}

		payload := utils.BuildQRPayload(int(regID), body.Name, body.Email, body.ActivityID, activityTitle)
		qrPath, err := utils.IssueQR(payload, int(regID))
		if err != nil {
			log.Printf("Error issuing QR for registration %d: %v", regID, err)
		} else {
			if _, err := db.Exec("UPDATE Registrations SET qr_code_path = ? WHERE id = ?", qrPath, regID); err != nil {
				log.Printf("Error saving QR path for registration %d: %v", regID, err)
			}
			resp.QR = &qrPath
		}

		emailBody := buildConfirmationEmail(body.Name, activityTitle, activityDate, resp.QR)
		mail := utils.SendEmail(body.Email, "Registro confirmado: "+activityTitle, emailBody, nil, "")
		resp.EmailMode = mail.Mode
		resp.EmailPreview = mail.Preview
		resp.EmailError = mail.Error

		utils.ResponseJSONStatus(w, http.StatusCreated, resp)
	}
}

func buildConfirmationEmail(name, activityTitle, activityDate string, qrPath *string) string {
	var sb strings.Builder
	sb.WriteString("<h2>Registro confirmado</h2>")
	sb.WriteString(fmt.Sprintf("<p>Hola %s, tu registro para <strong>%s</strong> fue confirmado.</p>", name, activityTitle))
	if activityDate != "" {
		sb.WriteString(fmt.Sprintf("<p>Fecha: %s</p>", activityDate))
	}
	if qrPath != nil {
		base := utils.PublicBaseURL()
		sb.WriteString(fmt.Sprintf("<p>Presenta este codigo QR en la entrada: <a href=\"%s%s\">%s%s</a></p>", base, *qrPath, base, *qrPath))
	}
	return sb.String()
}

// GetByEmail lists a user's registrations enriched with attendance and
// diploma references.
func (rc *RegistrationController) GetByEmail(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("email")))
		if !utils.IsValidEmail(email) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid email address", Field: "email"})
			return
		}

		rows, err := db.Query("SELECT r.id, r.user_id, r.activity_id, r.status, r.created_at, COALESCE(r.qr_code_path, ''), a.title, COALESCE(a.date, ''), COALESCE(att.checkin_at, ''), COALESCE(d.pdf_path, '') FROM Registrations r JOIN Users u ON r.user_id = u.id JOIN Activities a ON r.activity_id = a.id LEFT JOIN Attendances att ON att.registration_id = r.id LEFT JOIN Diplomas d ON d.user_id = r.user_id AND d.activity_id = r.activity_id WHERE u.email = ? ORDER BY r.created_at", email)
		if err != nil {
			log.Printf("Error querying registrations for %s: %v", email, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer rows.Close()

		registrations := []models.Registration{}
		for rows.Next() {
			var reg models.Registration
			err := rows.Scan(&reg.ID, &reg.UserID, &reg.ActivityID, &reg.Status, &reg.CreatedAt,
				&reg.QRCodePath, &reg.ActivityTitle, &reg.ActivityDate, &reg.AttendedAt, &reg.DiplomaURL)
			if err != nil {
				log.Printf("Error scanning registration: %v", err)
				continue
			}
			reg.Attended = reg.AttendedAt != ""
			registrations = append(registrations, reg)
		}

		utils.ResponseJSON(w, registrations)
	}
}

// ListByActivity returns an activity's registrations with the embedded
// user for the admin panel.
func (rc *RegistrationController) ListByActivity(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		activityID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil || activityID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid activity ID"})
			return
		}

		registrations, err := fetchActivityRegistrations(db, activityID)
		if err != nil {
			log.Printf("Error querying registrations for activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		utils.ResponseJSON(w, registrations)
	}
}

// ListByActivityCSV is the spreadsheet variant of ListByActivity.
func (rc *RegistrationController) ListByActivityCSV(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		activityID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil || activityID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid activity ID"})
			return
		}

		registrations, err := fetchActivityRegistrations(db, activityID)
		if err != nil {
			log.Printf("Error querying registrations for activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		rows := make([][]string, 0, len(registrations))
		for _, reg := range registrations {
			rows = append(rows, []string{
				strconv.Itoa(reg.ID),
				reg.UserName,
				reg.UserEmail,
				reg.UserSchool,
				reg.Status,
				reg.CreatedAt,
			})
		}

		fileName := fmt.Sprintf("registrations-activity-%d.csv", activityID)
		utils.WriteCSV(w, fileName, []string{"id", "name", "email", "school", "status", "createdAt"}, rows)
	}
}

func fetchActivityRegistrations(db *sql.DB, activityID int) ([]models.Registration, error) {
	rows, err := db.Query("SELECT r.id, r.user_id, r.activity_id, r.status, r.created_at, COALESCE(r.qr_code_path, ''), u.name, u.email, COALESCE(u.school, '') FROM Registrations r JOIN Users u ON r.user_id = u.id WHERE r.activity_id = ? ORDER BY r.created_at", activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registrations := []models.Registration{}
	for rows.Next() {
		var reg models.Registration
		err := rows.Scan(&reg.ID, &reg.UserID, &reg.ActivityID, &reg.Status, &reg.CreatedAt,
			&reg.QRCodePath, &reg.UserName, &reg.UserEmail, &reg.UserSchool)
		if err != nil {
			log.Printf("Error scanning registration: %v", err)
			continue
		}
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}
