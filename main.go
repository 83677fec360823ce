package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"

	"registro-eventos/controllers"
	"registro-eventos/driver"
	"registro-eventos/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

var db *sql.DB

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	secret := os.Getenv("SECRET")
	if secret == "" {
		log.Fatal("SECRET variable is not set")
	}

	db = driver.ConnectDB()
	defer db.Close()

	authController := controllers.AuthController{}
	activityController := controllers.ActivityController{}
	registrationController := controllers.RegistrationController{}
	checkinController := controllers.CheckinController{}
	diplomaController := controllers.DiplomaController{}
	reportController := controllers.ReportController{}
	winnerController := controllers.WinnerController{}
	uploadController := controllers.UploadController{}

	router := mux.NewRouter()

	router.HandleFunc("/admin/login", authController.Login(db)).Methods("POST")

	router.HandleFunc("/activities", activityController.GetActivities(db)).Methods("GET")
	router.HandleFunc("/activities/summary", activityController.GetActivitiesSummary(db)).Methods("GET")
	router.HandleFunc("/activities/{id:[0-9]+}", activityController.GetActivity(db)).Methods("GET")
	router.HandleFunc("/activities", activityController.CreateActivity(db)).Methods("POST")
	router.HandleFunc("/activities/{id:[0-9]+}", activityController.UpdateActivity(db)).Methods("PUT")
	router.HandleFunc("/activities/{id:[0-9]+}", activityController.DeleteActivity(db)).Methods("DELETE")

	router.HandleFunc("/registrations", registrationController.Register(db)).Methods("POST")
	router.HandleFunc("/registrations/by-email", registrationController.GetByEmail(db)).Methods("GET")
	router.HandleFunc("/activities/{id:[0-9]+}/registrations", registrationController.ListByActivity(db)).Methods("GET")
	router.HandleFunc("/activities/{id:[0-9]+}/registrations.csv", registrationController.ListByActivityCSV(db)).Methods("GET")

	router.HandleFunc("/checkin", checkinController.Checkin(db)).Methods("POST")

	router.HandleFunc("/diplomas/generate/{regId:[0-9]+}", diplomaController.GenerateOne(db)).Methods("POST")
	router.HandleFunc("/diplomas/generate/activity/{activityId:[0-9]+}", diplomaController.GenerateForActivity(db)).Methods("POST")

	router.HandleFunc("/reports/attendance", reportController.AttendanceSummary(db)).Methods("GET")
	router.HandleFunc("/reports/attendance/activities/{id:[0-9]+}", reportController.AttendanceDetail(db, false)).Methods("GET")
	router.HandleFunc("/reports/attendance/activities/{id:[0-9]+}.csv", reportController.AttendanceDetail(db, true)).Methods("GET")

	router.HandleFunc("/winners", winnerController.GetWinners(db)).Methods("GET")
	router.HandleFunc("/winners", winnerController.CreateWinner(db)).Methods("POST")
	router.HandleFunc("/winners/{id:[0-9]+}", winnerController.UpdateWinner(db)).Methods("PUT")
	router.HandleFunc("/winners/{id:[0-9]+}", winnerController.DeleteWinner(db)).Methods("DELETE")

	router.HandleFunc("/uploads/winner-photo", uploadController.WinnerPhoto()).Methods("POST")

	router.PathPrefix("/public/").Handler(http.StripPrefix("/public/",
		http.FileServer(http.Dir(utils.StaticDir()))))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	log.Println("Server started on port " + port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
