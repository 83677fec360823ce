package utils

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// PublicBaseURL prefixes stored relative paths in outbound emails. Left
// empty, links degrade to the bare path.
func PublicBaseURL() string {
	return os.Getenv("PUBLIC_BASE_URL")
}

// StaticDir is the public static-file root. QR images, diplomas and
// uploaded photos live under it and are served over /public/.
func StaticDir() string {
	dir := os.Getenv("STATIC_DIR")
	if dir == "" {
		dir = "public"
	}
	return dir
}

// SavePublicFile writes data under the static root and returns the
// stored path relative to it, with a leading slash.
func SavePublicFile(subdir, fileName string, data []byte) (string, error) {
	dir := filepath.Join(StaticDir(), subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %v", subdir, err)
	}

	// Write through a temp file so concurrent regeneration of the same
	// path never exposes a partial file.
	tmp, err := os.CreateTemp(dir, fileName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %v", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, fileName)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move file into place: %v", err)
	}

	return NormalizePublicPath(subdir + "/" + fileName), nil
}

// UploadWinnerPhoto stores an uploaded image and returns its public
// path. When WINNER_PHOTO_BUCKET is set the file goes to S3 and the
// returned value is the object URL; otherwise it lands under the local
// static root.
func UploadWinnerPhoto(file multipart.File, fileName string) (string, error) {
	bucket := os.Getenv("WINNER_PHOTO_BUCKET")
	if bucket == "" {
		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, file); err != nil {
			return "", fmt.Errorf("failed to read uploaded file: %v", err)
		}
		return SavePublicFile("uploads", fileName, buf.Bytes())
	}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	region := os.Getenv("AWS_REGION")
	if accessKey == "" || secretKey == "" || region == "" {
		return "", fmt.Errorf("AWS credentials or region not set in environment")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create AWS session: %v", err)
	}

	svc := s3.New(sess)

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read uploaded file: %v", err)
	}

	_, err = svc.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(fileName),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, fileName), nil
}
