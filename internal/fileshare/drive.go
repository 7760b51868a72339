package fileshare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveScope is the OAuth scope the service account needs to share files.
const DriveScope = drive.DriveScope

// GoogleDrive grants access through the Drive v3 permissions API. The service
// account must already be able to share the file.
type GoogleDrive struct {
	svc *drive.Service
}

// NewGoogleDrive dials the Drive API.
func NewGoogleDrive(ctx context.Context, opts ...option.ClientOption) (*GoogleDrive, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	return &GoogleDrive{svc: svc}, nil
}

// Grant creates a user permission without sending a notification email.
func (d *GoogleDrive) Grant(ctx context.Context, fileID, email string, level Level) error {
	if fileID == "" || email == "" {
		return errors.New("file id and email are required")
	}
	perm := &drive.Permission{
		Type:         "user",
		Role:         string(level),
		EmailAddress: email,
	}
	_, err := d.svc.Permissions.Create(fileID, perm).
		SendNotificationEmail(false).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err == nil {
		return nil
	}
	if alreadyGranted(err) {
		return fmt.Errorf("%w: %v", ErrAlreadyGranted, err)
	}
	return fmt.Errorf("drive permissions.create: %w", err)
}

func alreadyGranted(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusConflict {
		return true
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "duplicate", "alreadyExists":
			return true
		}
	}
	return strings.Contains(strings.ToLower(gerr.Message), "already")
}
