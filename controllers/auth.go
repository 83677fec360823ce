package controllers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"registro-eventos/models"
	"registro-eventos/utils"
)

type AuthController struct{}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates admin credentials against the stored bcrypt hash and
// issues a bearer token for the role-gated routes.
func (c *AuthController) Login(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid body"})
			return
		}
		defer r.Body.Close()

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if !utils.IsValidEmail(body.Email) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid email address", Field: "email"})
			return
		}
		if body.Password == "" {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Password is required", Field: "password"})
			return
		}

		var admin models.AdminUser
		err := db.QueryRow("SELECT id, email, password_hash, role FROM AdminUsers WHERE email = ?", body.Email).
			Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.Role)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Invalid credentials"})
			return
		}
		if err != nil {
			log.Printf("Error fetching admin %s: %v", body.Email, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		if !utils.ComparePasswords(admin.PasswordHash, []byte(body.Password)) {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Invalid credentials"})
			return
		}

		token, err := utils.GenerateAdminToken(admin, 12*time.Hour)
		if err != nil {
			log.Printf("Error generating token for admin %s: %v", body.Email, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to generate token"})
			return
		}

		utils.ResponseJSON(w, map[string]string{"token": token, "role": admin.Role})
	}
}
