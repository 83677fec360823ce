package controllers

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"

	"registro-eventos/models"
	"registro-eventos/utils"

	"github.com/gorilla/mux"
)

type ReportController struct{}

// AttendanceSummary computes per-activity registration and attendance
// totals for every activity with at least one registration, sorted by
// activity date ascending (activities without a date sort first).
func (rp *ReportController) AttendanceSummary(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RequireAdmin(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Unauthorized"})
			return
		}

		rows, err := db.Query("SELECT a.id, a.title, a.kind, COALESCE(a.date, ''), COUNT(r.id) AS total_registrations, COUNT(att.id) AS total_attendances FROM Activities a JOIN Registrations r ON r.activity_id = a.id LEFT JOIN Attendances att ON att.registration_id = r.id GROUP BY a.id, a.title, a.kind, a.date")
		if err != nil {
			log.Printf("Error querying attendance summary: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer rows.Close()

		summary := []models.AttendanceSummaryRow{}
		for rows.Next() {
			var row models.AttendanceSummaryRow
			err := rows.Scan(&row.ActivityID, &row.Title, &row.Kind, &row.Date, &row.TotalRegistrations, &row.TotalAttendances)
			if err != nil {
				log.Printf("Error scanning summary row: %v", err)
				continue
			}
			row.AttendanceRate = attendanceRate(row.TotalAttendances, row.TotalRegistrations)
			summary = append(summary, row)
		}

		sort.Slice(summary, func(i, j int) bool {
			return summary[i].Date < summary[j].Date
		})

		utils.ResponseJSON(w, summary)
	}
}

// AttendanceDetail returns one activity's totals plus a per-registration
// breakdown, as JSON or CSV depending on the matched route.
func (rp *ReportController) AttendanceDetail(db *sql.DB, asCSV bool) http.HandlerFunc {
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

		var detail models.AttendanceDetail
		err = db.QueryRow("SELECT id, kind, title, COALESCE(description, ''), COALESCE(date, ''), capacity FROM Activities WHERE id = ?", activityID).
			Scan(&detail.Activity.ID, &detail.Activity.Kind, &detail.Activity.Title, &detail.Activity.Description, &detail.Activity.Date, &detail.Activity.Capacity)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Activity not found"})
			return
		}
		if err != nil {
			log.Printf("Error fetching activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		rows, err := db.Query("SELECT r.id, u.name, u.email, COALESCE(att.checkin_at, '') FROM Registrations r JOIN Users u ON r.user_id = u.id LEFT JOIN Attendances att ON att.registration_id = r.id WHERE r.activity_id = ? ORDER BY r.created_at", activityID)
		if err != nil {
			log.Printf("Error querying attendance detail for activity %d: %v", activityID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer rows.Close()

		detail.Items = []models.AttendanceDetailItem{}
		for rows.Next() {
			var item models.AttendanceDetailItem
			if err := rows.Scan(&item.RegistrationID, &item.Name, &item.Email, &item.CheckinAt); err != nil {
				log.Printf("Error scanning detail row: %v", err)
				continue
			}
			item.Attended = item.CheckinAt != ""
			detail.TotalRegistrations++
			if item.Attended {
				detail.TotalAttendances++
			}
			detail.Items = append(detail.Items, item)
		}
		detail.AttendanceRate = attendanceRate(detail.TotalAttendances, detail.TotalRegistrations)

		if !asCSV {
			utils.ResponseJSON(w, detail)
			return
		}

		csvRows := make([][]string, 0, len(detail.Items))
		for _, item := range detail.Items {
			csvRows = append(csvRows, []string{
				strconv.Itoa(item.RegistrationID),
				item.Name,
				item.Email,
				strconv.FormatBool(item.Attended),
				item.CheckinAt,
			})
		}
		fileName := fmt.Sprintf("attendance-activity-%d.csv", activityID)
		utils.WriteCSV(w, fileName, []string{"registrationId", "name", "email", "attended", "checkinAt"}, csvRows)
	}
}

func attendanceRate(attendances, registrations int) float64 {
	if registrations == 0 {
		return 0
	}
	rate := float64(attendances) / float64(registrations)
	return math.Round(rate*10000) / 10000
}
