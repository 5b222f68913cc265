package google

import (
	"context"
	"fmt"
	"os"

	oauth2google "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// NewDriveService builds a read-only Drive client from a credentials
// file on disk. The file may hold either a service account key or an
// authorized_user token; both are handled without any interactive
// flow, so a missing or expired credential fails the run rather than
// blocking it.
func NewDriveService(ctx context.Context, credentialsFile string) (*drive.Service, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("%w: google-drive source has no credentials file", domain.ErrAuthRequired)
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials %s: %v", domain.ErrAuthRequired, credentialsFile, err)
	}

	creds, err := oauth2google.CredentialsFromJSON(ctx, data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse credentials %s: %v", domain.ErrAuthRequired, credentialsFile, err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}
