package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"os"
)

// MailResult describes the outcome of a dispatch attempt. Mode is
// "preview" when SMTP is not configured (the rendered body is returned
// instead of sent) and "smtp" otherwise; Error is set when sending
// failed. Mail failures never fail the operation that triggered them.
type MailResult struct {
	Mode    string `json:"emailMode,omitempty"`
	Preview string `json:"emailPreview,omitempty"`
	Error   string `json:"emailError,omitempty"`
}

// SendEmail dispatches an HTML email, optionally with a single
// attachment. Configuration comes from SMTP_HOST, SMTP_PORT, SMTP_USER
// and SMTP_PASSWORD.
func SendEmail(to, subject, htmlBody string, attachment []byte, attachmentName string) MailResult {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return MailResult{Mode: "preview", Preview: htmlBody}
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")

	auth := smtp.PlainAuth("", from, password, host)
	msg := buildMessage(from, to, subject, htmlBody, attachment, attachmentName)

	if err := smtp.SendMail(host+":"+port, auth, from, []string{to}, msg); err != nil {
		log.Printf("Error sending email to %s: %v", to, err)
		return MailResult{Mode: "smtp", Error: err.Error()}
	}
	return MailResult{Mode: "smtp"}
}

func buildMessage(from, to, subject, htmlBody string, attachment []byte, attachmentName string) []byte {
	var buf bytes.Buffer

	buf.WriteString("From: " + from + "\r\n")
	buf.WriteString("To: " + to + "\r\n")
	buf.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(attachment) == 0 {
		buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(htmlBody)
		buf.WriteString("\r\n")
		return buf.Bytes()
	}

	const boundary = "registro-eventos-mime-boundary"
	buf.WriteString("Content-Type: multipart/mixed; boundary=\"" + boundary + "\"\r\n")
	buf.WriteString("\r\n")

	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")

	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Type: application/pdf\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", attachmentName))
	buf.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString(attachment)
	// 76-character lines per RFC 2045
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76] + "\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded + "\r\n")
	buf.WriteString("--" + boundary + "--\r\n")

	return buf.Bytes()
}
