package controllers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"registro-eventos/models"
	"registro-eventos/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
)

type WinnerController struct{}

type winnerRequest struct {
	ActivityID  int    `json:"activityId"`
	UserID      int    `json:"userId"`
	Place       int    `json:"place"`
	Description string `json:"description,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// GetWinners lists winners, optionally filtered by activity.
func (wc *WinnerController) GetWinners(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := "SELECT w.id, w.activity_id, w.user_id, w.place, COALESCE(w.description, ''), COALESCE(w.photo_url, ''), u.name, a.title FROM Winners w JOIN Users u ON w.user_id = u.id JOIN Activities a ON w.activity_id = a.id"
		args := []interface{}{}

		if raw := r.URL.Query().Get("activityId"); raw != "" {
			activityID, err := strconv.Atoi(raw)
			if err != nil || activityID <= 0 {
				utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid activity ID", Field: "activityId"})
				return
			}
			query += " WHERE w.activity_id = ?"
			args = append(args, activityID)
		}
		query += " ORDER BY w.activity_id, w.place"

		rows, err := db.Query(query, args...)
		if err != nil {
			log.Printf("Error querying winners: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer rows.Close()

		winners := []models.Winner{}
		for rows.Next() {
			var winner models.Winner
			err := rows.Scan(&winner.ID, &winner.ActivityID, &winner.UserID, &winner.Place,
				&winner.Description, &winner.PhotoURL, &winner.UserName, &winner.ActivityTitle)
			if err != nil {
				log.Printf("Error scanning winner: %v", err)
				continue
			}
			winners = append(winners, winner)
		}

		utils.ResponseJSON(w, winners)
	}
}

// CreateWinner records a placed result for an activity (admin). At most
// one winner may exist per (activity, place).
func (wc *WinnerController) CreateWinner(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		var body winnerRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid body"})
			return
		}
		defer r.Body.Close()

		if body.ActivityID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid activity ID", Field: "activityId"})
			return
		}
		if body.UserID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid user ID", Field: "userId"})
			return
		}
		if body.Place <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Place must be a positive integer", Field: "place"})
			return
		}

		var exists int
		if err := db.QueryRow("SELECT COUNT(*) FROM Activities WHERE id = ?", body.ActivityID).Scan(&exists); err != nil {
			log.Printf("Error checking activity %d: %v", body.ActivityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if exists == 0 {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Activity not found"})
			return
		}

		var taken int
		if err := db.QueryRow("SELECT COUNT(*) FROM Winners WHERE activity_id = ? AND place = ?", body.ActivityID, body.Place).Scan(&taken); err != nil {
			log.Printf("Error checking winner place: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if taken > 0 {
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Place already assigned for this activity"})
			return
		}

		result, err := db.Exec("INSERT INTO Winners (activity_id, user_id, place, description, photo_url) VALUES (?, ?, ?, ?, ?)",
			body.ActivityID, body.UserID, body.Place, body.Description, utils.NormalizePublicPath(body.PhotoURL))
		if err != nil {
			if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
				utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Place already assigned for this activity"})
				return
			}
			log.Printf("Error creating winner: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to create winner"})
			return
		}

		id, _ := result.LastInsertId()
		utils.ResponseJSONStatus(w, http.StatusCreated, models.Winner{
			ID:          int(id),
			ActivityID:  body.ActivityID,
			UserID:      body.UserID,
			Place:       body.Place,
			Description: body.Description,
			PhotoURL:    utils.NormalizePublicPath(body.PhotoURL),
		})
	}
}

// UpdateWinner edits a winner (admin), still rejecting duplicate places.
func (wc *WinnerController) UpdateWinner(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		winnerID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil || winnerID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid winner ID"})
			return
		}

		var body winnerRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid body"})
			return
		}
		defer r.Body.Close()

		if body.ActivityID <= 0 || body.UserID <= 0 || body.Place <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "activityId, userId and place must be positive integers"})
			return
		}

		var exists int
		if err := db.QueryRow("SELECT COUNT(*) FROM Winners WHERE id = ?", winnerID).Scan(&exists); err != nil {
			log.Printf("Error checking winner %d: %v", winnerID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if exists == 0 {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Winner not found"})
			return
		}

		var taken int
		if err := db.QueryRow("SELECT COUNT(*) FROM Winners WHERE activity_id = ? AND place = ? AND id != ?", body.ActivityID, body.Place, winnerID).Scan(&taken); err != nil {
			log.Printf("Error checking winner place: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if taken > 0 {
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Place already assigned for this activity"})
			return
		}

		_, err = db.Exec("UPDATE Winners SET activity_id = ?, user_id = ?, place = ?, description = ?, photo_url = ? WHERE id = ?",
			body.ActivityID, body.UserID, body.Place, body.Description, utils.NormalizePublicPath(body.PhotoURL), winnerID)
		if err != nil {
			if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
				utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Place already assigned for this activity"})
				return
			}
			log.Printf("Error updating winner %d: %v", winnerID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to update winner"})
			return
		}

		utils.ResponseJSON(w, models.Winner{
			ID:          winnerID,
			ActivityID:  body.ActivityID,
			UserID:      body.UserID,
			Place:       body.Place,
			Description: body.Description,
			PhotoURL:    utils.NormalizePublicPath(body.PhotoURL),
		})
	}
}

// DeleteWinner removes a winner (admin).
func (wc *WinnerController) DeleteWinner(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		winnerID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil || winnerID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid winner ID"})
			return
		}

		res, err := db.Exec("DELETE FROM Winners WHERE id = ?", winnerID)
		if err != nil {
			log.Printf("Error deleting winner %d: %v", winnerID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to delete winner"})
			return
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil || rowsAffected == 0 {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Winner not found"})
			return
		}

		utils.ResponseJSON(w, map[string]string{"message": "Winner deleted successfully"})
	}
}
