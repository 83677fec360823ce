package controllers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diplomaRouter(db *sql.DB) *mux.Router {
	dc := DiplomaController{}
	router := mux.NewRouter()
	router.HandleFunc("/diplomas/generate/{regId:[0-9]+}", dc.GenerateOne(db)).Methods("POST")
	router.HandleFunc("/diplomas/generate/activity/{activityId:[0-9]+}", dc.GenerateForActivity(db)).Methods("POST")
	return router
}

func adminPost(router *mux.Router, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.Header.Set("x-admin-key", "sekret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func expectDiplomaLookup(mock sqlmock.Sqlmock, regID, userID, activityID int) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.user_id, r.activity_id, u.name, u.email, a.title, COALESCE(a.date, '') FROM Registrations r")).
		WithArgs(regID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "activity_id", "name", "email", "title", "date"}).
			AddRow(userID, activityID, "Ana Torres", "ana@example.com", "Taller de Robotica", "2026-09-10"))
}

func TestGenerateOneCreatesThenUpdates(t *testing.T) {
	t.Setenv("ADMIN_KEY", "sekret")
	staticDir := setupSideEffectEnv(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// First run: no existing diploma row.
	expectDiplomaLookup(mock, 42, 7, 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Diplomas WHERE user_id = ? AND activity_id = ?")).
		WithArgs(7, 5).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO Diplomas (user_id, activity_id, pdf_path) VALUES (?, ?, ?)")).
		WithArgs(7, 5, "/diplomas/diploma-u7-a5.pdf").
		WillReturnResult(sqlmock.NewResult(9, 1))

	// Second run: the row exists and only pdf_path is refreshed.
	expectDiplomaLookup(mock, 42, 7, 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Diplomas WHERE user_id = ? AND activity_id = ?")).
		WithArgs(7, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE Diplomas SET pdf_path = ? WHERE id = ?")).
		WithArgs("/diplomas/diploma-u7-a5.pdf", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := diplomaRouter(db)

	rec := adminPost(router, "/diplomas/generate/42")
	require.Equal(t, http.StatusOK, rec.Code)

	var first diplomaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.True(t, first.Created)
	assert.Equal(t, "/diplomas/diploma-u7-a5.pdf", first.Diploma.PDFPath)
	assert.Equal(t, "preview", first.EmailMode)

	rec = adminPost(router, "/diplomas/generate/42")
	require.Equal(t, http.StatusOK, rec.Code)

	var second diplomaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.False(t, second.Created)
	assert.Equal(t, first.Diploma.PDFPath, second.Diploma.PDFPath)

	// Exactly one physical file, regenerated in place.
	info, err := os.Stat(filepath.Join(staticDir, "diplomas", "diploma-u7-a5.pdf"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	entries, err := os.ReadDir(filepath.Join(staticDir, "diplomas"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateOneUnknownRegistration(t *testing.T) {
	t.Setenv("ADMIN_KEY", "sekret")
	setupSideEffectEnv(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.user_id, r.activity_id, u.name, u.email, a.title, COALESCE(a.date, '') FROM Registrations r")).
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)

	rec := adminPost(diplomaRouter(db), "/diplomas/generate/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateOneRequiresAdmin(t *testing.T) {
	t.Setenv("ADMIN_KEY", "sekret")

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := httptest.NewRequest(http.MethodPost, "/diplomas/generate/42", nil)
	rec := httptest.NewRecorder()
	diplomaRouter(db).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateForActivityOnlyAttended(t *testing.T) {
	t.Setenv("ADMIN_KEY", "sekret")
	setupSideEffectEnv(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Activities WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Registrations WHERE activity_id = ? AND status = 'CHECKED_IN'")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41).AddRow(42).AddRow(43))

	for i, regID := range []int{41, 42, 43} {
		expectDiplomaLookup(mock, regID, 10+i, 5)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Diplomas WHERE user_id = ? AND activity_id = ?")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO Diplomas")).
			WillReturnResult(sqlmock.NewResult(int64(100+i), 1))
	}

	rec := adminPost(diplomaRouter(db), "/diplomas/generate/activity/5?onlyAttended=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp diplomaBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Processed)
	assert.Equal(t, 3, resp.Created)
	assert.Equal(t, 0, resp.Updated)
	assert.Equal(t, 0, resp.Skipped)
	assert.Empty(t, resp.Errors)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateForActivityIsolatesItemFailures(t *testing.T) {
	t.Setenv("ADMIN_KEY", "sekret")
	setupSideEffectEnv(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Activities WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Registrations WHERE activity_id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41).AddRow(42))

	// First item fails at the lookup; the second must still be processed.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.user_id, r.activity_id, u.name, u.email, a.title, COALESCE(a.date, '') FROM Registrations r")).
		WithArgs(41).
		WillReturnError(sql.ErrConnDone)

	expectDiplomaLookup(mock, 42, 7, 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM Diplomas WHERE user_id = ? AND activity_id = ?")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO Diplomas")).
		WillReturnResult(sqlmock.NewResult(9, 1))

	rec := adminPost(diplomaRouter(db), "/diplomas/generate/activity/5")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp diplomaBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 1, resp.Skipped)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 41, resp.Errors[0].RegistrationID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateForActivityUnknownActivity(t *testing.T) {
	t.Setenv("ADMIN_KEY", "sekret")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Activities WHERE id = ?")).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	rec := adminPost(diplomaRouter(db), "/diplomas/generate/activity/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
