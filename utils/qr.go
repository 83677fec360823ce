package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPayload is the structured text embedded in a registration QR code.
// The check-in endpoint accepts a scanned payload and resolves the
// registration from RegistrationID.
type QRPayload struct {
	RegistrationID int    `json:"registrationId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ActivityID     int    `json:"activityId"`
	ActivityTitle  string `json:"activityTitle"`
	IssuedAt       string `json:"issuedAt"`
}

func BuildQRPayload(regID int, name, email string, activityID int, activityTitle string) string {
	payload := QRPayload{
		RegistrationID: regID,
		Name:           name,
		Email:          email,
		ActivityID:     activityID,
		ActivityTitle:  activityTitle,
		IssuedAt:       NowTimestamp(),
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// ParseQRPayload extracts the registration id from a scanned payload.
func ParseQRPayload(raw string) (int, error) {
	var payload QRPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return 0, errors.New("QR payload is not valid JSON")
	}
	if payload.RegistrationID <= 0 {
		return 0, errors.New("QR payload has no registration id")
	}
	return payload.RegistrationID, nil
}

// IssueQR encodes the payload as a PNG under the public static root and
// returns the stored path (always with a leading slash).
func IssueQR(payload string, regID int) (string, error) {
	dir := filepath.Join(StaticDir(), "qr")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create QR directory: %v", err)
	}

	fileName := fmt.Sprintf("reg-%d.png", regID)
	if err := qrcode.WriteFile(payload, qrcode.Medium, 256, filepath.Join(dir, fileName)); err != nil {
		return "", fmt.Errorf("failed to encode QR image: %v", err)
	}

	return NormalizePublicPath("qr/" + fileName), nil
}
