package utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client.
// Prefers ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS);
// explicit JSON can be provided via GCS_CREDENTIALS_JSON for local runs.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

// UploadSnapshotReport archives a rendered snapshot report under the
// SNAPSHOT_BUCKET. The object name should carry the period, e.g.
// "snapshots/2025-03.xlsx".
func UploadSnapshotReport(ctx context.Context, objectName string, data []byte) error {
	bucketName := os.Getenv("SNAPSHOT_BUCKET")
	if bucketName == "" {
		return errors.New("SNAPSHOT_BUCKET is required")
	}

	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
