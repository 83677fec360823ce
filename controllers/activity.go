package controllers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"registro-eventos/models"
	"registro-eventos/utils"

	"github.com/gorilla/mux"
)

type ActivityController struct{}

// GetActivities lists all activities.
func (ac *ActivityController) GetActivities(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.Query("SELECT id, kind, title, COALESCE(description, ''), COALESCE(date, ''), capacity FROM Activities ORDER BY date")
		if err != nil {
			log.Printf("Error querying activities: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer rows.Close()

		activities := []models.Activity{}
		for rows.Next() {
			var activity models.Activity
			err := rows.Scan(&activity.ID, &activity.Kind, &activity.Title, &activity.Description, &activity.Date, &activity.Capacity)
			if err != nil {
				log.Printf("Error scanning activity: %v", err)
				continue
			}
			activities = append(activities, activity)
		}

		utils.ResponseJSON(w, activities)
	}
}

// GetActivitiesSummary lists activities with their remaining
// availability: available = max(0, capacity - registered).
func (ac *ActivityController) GetActivitiesSummary(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.Query("SELECT a.id, a.kind, a.title, COALESCE(a.description, ''), COALESCE(a.date, ''), a.capacity, COUNT(r.id) AS registered FROM Activities a LEFT JOIN Registrations r ON r.activity_id = a.id GROUP BY a.id, a.kind, a.title, a.description, a.date, a.capacity ORDER BY a.date")
		if err != nil {
			log.Printf("Error querying activity summary: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer rows.Close()

		summaries := []models.ActivitySummary{}
		for rows.Next() {
			var s models.ActivitySummary
			err := rows.Scan(&s.ID, &s.Kind, &s.Title, &s.Description, &s.Date, &s.Capacity, &s.Registered)
			if err != nil {
				log.Printf("Error scanning activity summary: %v", err)
				continue
			}
			s.Available = s.Capacity - s.Registered
			if s.Available < 0 {
				s.Available = 0
			}
			summaries = append(summaries, s)
		}

		utils.ResponseJSON(w, summaries)
	}
}

// GetActivity returns a single activity with its availability.
func (ac *ActivityController) GetActivity(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil || activityID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid activity ID"})
			return
		}

		var s models.ActivitySummary
		err = db.QueryRow("SELECT a.id, a.kind, a.title, COALESCE(a.description, ''), COALESCE(a.date, ''), a.capacity, COUNT(r.id) AS registered FROM Activities a LEFT JOIN Registrations r ON r.activity_id = a.id WHERE a.id = ? GROUP BY a.id, a.kind, a.title, a.description, a.date, a.capacity", activityID).
			Scan(&s.ID, &s.Kind, &s.Title, &s.Description, &s.Date, &s.Capacity, &s.Registered)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Activity not found"})
			return
		}
		if err != nil {
			log.Printf("Error fetching activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		s.Available = s.Capacity - s.Registered
		if s.Available < 0 {
			s.Available = 0
		}

		utils.ResponseJSON(w, s)
	}
}

type activityRequest struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Capacity    int    `json:"capacity"`
}

func validateActivityRequest(body *activityRequest) *models.Error {
	body.Kind = strings.TrimSpace(body.Kind)
	body.Title = strings.TrimSpace(body.Title)
	if body.Kind == "" {
		return &models.Error{Message: "Kind is required", Field: "kind"}
	}
	if body.Title == "" {
		return &models.Error{Message: "Title is required", Field: "title"}
	}
	if body.Capacity <= 0 {
		return &models.Error{Message: "Capacity must be a positive integer", Field: "capacity"}
	}
	return nil
}

// CreateActivity creates an activity (admin).
func (ac *ActivityController) CreateActivity(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		var body activityRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid body"})
			return
		}
		defer r.Body.Close()

		if verr := validateActivityRequest(&body); verr != nil {
			utils.RespondWithError(w, http.StatusBadRequest, *verr)
			return
		}

		var date interface{}
		if body.Date != "" {
			date = body.Date
		}
		result, err := db.Exec("INSERT INTO Activities (kind, title, description, date, capacity) VALUES (?, ?, ?, ?, ?)",
			body.Kind, body.Title, body.Description, date, body.Capacity)
		if err != nil {
			log.Printf("Error creating activity: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to create activity"})
			return
		}

		id, _ := result.LastInsertId()
		utils.ResponseJSONStatus(w, http.StatusCreated, models.Activity{
			ID:          int(id),
			Kind:        body.Kind,
			Title:       body.Title,
			Description: body.Description,
			Date:        body.Date,
			Capacity:    body.Capacity,
		})
	}
}

// UpdateActivity edits an activity (admin).
func (ac *ActivityController) UpdateActivity(db *sql.DB) http.HandlerFunc {
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

		var body activityRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid body"})
			return
		}
		defer r.Body.Close()

		if verr := validateActivityRequest(&body); verr != nil {
			utils.RespondWithError(w, http.StatusBadRequest, *verr)
			return
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

		var date interface{}
		if body.Date != "" {
			date = body.Date
		}
		_, err = db.Exec("UPDATE Activities SET kind = ?, title = ?, description = ?, date = ?, capacity = ? WHERE id = ?",
			body.Kind, body.Title, body.Description, date, body.Capacity, activityID)
		if err != nil {
			log.Printf("Error updating activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to update activity"})
			return
		}

		utils.ResponseJSON(w, models.Activity{
			ID:          activityID,
			Kind:        body.Kind,
			Title:       body.Title,
			Description: body.Description,
			Date:        body.Date,
			Capacity:    body.Capacity,
		})
	}
}

// DeleteActivity removes an activity (admin). Deletion is blocked while
// registrations for it exist.
func (ac *ActivityController) DeleteActivity(db *sql.DB) http.HandlerFunc {
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

		var registrations int
		if err := db.QueryRow("SELECT COUNT(*) FROM Registrations WHERE activity_id = ?", activityID).Scan(&registrations); err != nil {
			log.Printf("Error counting registrations for activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if registrations > 0 {
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Activity has registrations and cannot be deleted"})
			return
		}

		res, err := db.Exec("DELETE FROM Activities WHERE id = ?", activityID)
		if err != nil {
			log.Printf("Error deleting activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to delete activity"})
			return
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil || rowsAffected == 0 {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Activity not found"})
			return
		}

		utils.ResponseJSON(w, map[string]string{"message": "Activity deleted successfully"})
	}
}
