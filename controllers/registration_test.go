package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"registro-eventos/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSideEffectEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STATIC_DIR", dir)
	t.Setenv("SMTP_HOST", "")
	return dir
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegisterSuccess(t *testing.T) {
	staticDir := setupSideEffectEnv(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Users WHERE email = ?")).
		WithArgs("ana@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO Users (name, email, type, school) VALUES (?, ?, ?, ?)")).
		WithArgs("Ana Torres", "ana@example.com", "EXTERNAL", "Colegio Central").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, COALESCE(date, ''), capacity FROM Activities WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"title", "date", "capacity"}).AddRow("Taller de Robotica", "2026-09-10", 30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Registrations WHERE user_id = ? AND activity_id = ?")).
		WithArgs(int64(7), 5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Registrations WHERE activity_id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO Registrations (user_id, activity_id, status, created_at) VALUES (?, ?, 'PENDING', ?)")).
		WithArgs(int64(7), 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE Registrations SET qr_code_path = ? WHERE id = ?")).
		WithArgs("/qr/reg-42.png", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rc := RegistrationController{}
	rec := postJSON(t, rc.Register(db), "/registrations", map[string]interface{}{
		"name":       "Ana Torres",
		"email":      "ana@example.com",
		"school":     "Colegio Central",
		"activityId": 5,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.RegistrationID)
	require.NotNil(t, resp.QR)
	assert.Equal(t, "/qr/reg-42.png", *resp.QR)
	assert.Equal(t, "preview", resp.EmailMode)
	assert.Contains(t, resp.EmailPreview, "Taller de Robotica")

	// QR image must exist under the static root.
	_, err = os.Stat(filepath.Join(staticDir, "qr", "reg-42.png"))
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rc := RegistrationController{}

	cases := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"short name", map[string]interface{}{"name": "A", "email": "a@b.co", "activityId": 1}, "name"},
		{"bad email", map[string]interface{}{"name": "Ana", "email": "not-an-email", "activityId": 1}, "email"},
		{"missing activity", map[string]interface{}{"name": "Ana", "email": "a@b.co"}, "activityId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, rc.Register(db), "/registrations", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var errResp struct {
				Field string `json:"field"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.Equal(t, tc.field, errResp.Field)
		})
	}
}

func TestRegisterActivityNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Users WHERE email = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, COALESCE(date, ''), capacity FROM Activities WHERE id = ?")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	rc := RegistrationController{}
	rec := postJSON(t, rc.Register(db), "/registrations", map[string]interface{}{
		"name": "Ana Torres", "email": "ana@example.com", "activityId": 999,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Users WHERE email = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, COALESCE(date, ''), capacity FROM Activities WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"title", "date", "capacity"}).AddRow("Taller", "", 30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Registrations WHERE user_id = ? AND activity_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	rc := RegistrationController{}
	rec := postJSON(t, rc.Register(db), "/registrations", map[string]interface{}{
		"name": "Ana Torres", "email": "ana@example.com", "activityId": 5,
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Already registered")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCapacityFull(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Activity with capacity 1 and one existing registration: the next
	// attempt must conflict.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Users WHERE email = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, COALESCE(date, ''), capacity FROM Activities WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"title", "date", "capacity"}).AddRow("Competencia", "", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Registrations WHERE user_id = ? AND activity_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Registrations WHERE activity_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	rc := RegistrationController{}
	rec := postJSON(t, rc.Register(db), "/registrations", map[string]interface{}{
		"name": "Beto Lara", "email": "beto@example.com", "activityId": 5,
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity is full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "activity_id", "status", "created_at", "qr_code_path", "title", "date", "checkin_at", "pdf_path"}).
		AddRow(1, 7, 5, "CHECKED_IN", "2026-08-20 09:00:00", "/qr/reg-1.png", "Taller", "2026-09-10", "2026-09-10 10:05:00", "/diplomas/diploma-u7-a5.pdf").
		AddRow(2, 7, 6, "PENDING", "2026-08-21 09:00:00", "/qr/reg-2.png", "Competencia", "", "", "")
	mock.ExpectQuery("FROM Registrations r JOIN Users u ON").
		WithArgs("ana@example.com").
		WillReturnRows(rows)

	rc := RegistrationController{}
	req := httptest.NewRequest(http.MethodGet, "/registrations/by-email?email=ana@example.com", nil)
	rec := httptest.NewRecorder()
	rc.GetByEmail(db)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		ID         int    `json:"id"`
		Attended   bool   `json:"attended"`
		AttendedAt string `json:"attendedAt"`
		DiplomaURL string `json:"diplomaUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.True(t, resp[0].Attended)
	assert.Equal(t, "2026-09-10 10:05:00", resp[0].AttendedAt)
	assert.Equal(t, "/diplomas/diploma-u7-a5.pdf", resp[0].DiplomaURL)
	assert.False(t, resp[1].Attended)
	assert.Empty(t, resp[1].DiplomaURL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByActivityCSV(t *testing.T) {
	t.Setenv("ADMIN_KEY", "sekret")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "activity_id", "status", "created_at", "qr_code_path", "name", "email", "school"}).
		AddRow(1, 7, 5, "PENDING", "2026-08-20 09:00:00", "/qr/reg-1.png", "Torres, Ana", "ana@example.com", "Colegio \"Central\"")
	mock.ExpectQuery("FROM Registrations r JOIN Users u ON").
		WithArgs(5).
		WillReturnRows(rows)

	rc := RegistrationController{}
	router := mux.NewRouter()
	router.HandleFunc("/activities/{id:[0-9]+}/registrations.csv", rc.ListByActivityCSV(db)).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/activities/5/registrations.csv", nil)
	req.Header.Set("x-admin-key", "sekret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.Bytes()
	assert.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}), "CSV must start with a UTF-8 BOM")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), `"Torres, Ana"`)
	assert.Contains(t, rec.Body.String(), `"Colegio ""Central"""`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRPayloadRoundTripThroughRegistration(t *testing.T) {
	payload := utils.BuildQRPayload(42, "Ana Torres", "ana@example.com", 5, "Taller de Robotica")
	regID, err := utils.ParseQRPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, 42, regID)
}
