package controllers

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"registro-eventos/models"
	"registro-eventos/utils"

	"github.com/google/uuid"
)

type UploadController struct{}

// WinnerPhoto stores an uploaded winner photo and returns its public
// path.
func (uc *UploadController) WinnerPhoto() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			log.Println("Error parsing multipart form:", err)
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid form data"})
			return
		}

		file, handler, err := r.FormFile("photo")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Photo file is required", Field: "photo"})
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(handler.Filename))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".webp":
		default:
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Unsupported image format", Field: "photo"})
			return
		}

		fileName := "winner-" + uuid.New().String() + ext
		path, err := utils.UploadWinnerPhoto(file, fileName)
		if err != nil {
			log.Printf("Error storing winner photo: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to store photo"})
			return
		}

		utils.ResponseJSONStatus(w, http.StatusCreated, map[string]string{"path": path})
	}
}
