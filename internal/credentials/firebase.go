package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

const serviceAccountType = "service_account"

var (
	// ErrNoProjectID is returned when neither the configuration nor the document names a project.
	ErrNoProjectID = errors.New("no project id configured or present in credentials")
	// ErrNotServiceAccount is returned for documents of any other credential type.
	ErrNotServiceAccount = errors.New("credentials are not a service account key")
)

// NewFirebaseBuilder returns a Builder that constructs the Admin SDK auth
// client. projectID overrides the document's project_id when set. Only
// service account keys are accepted; external_account documents can name
// executables that the token source would run.
func NewFirebaseBuilder(projectID string) Builder {
	return func(ctx context.Context, src Source) (*Client, error) {
		if src.Type() != serviceAccountType {
			return nil, fmt.Errorf("%w: type %q", ErrNotServiceAccount, src.Type())
		}
		creds, err := google.CredentialsFromJSON(ctx, src.Raw, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}

		project := strings.TrimSpace(projectID)
		if project == "" {
			project = creds.ProjectID
		}
		if project == "" {
			project = src.ProjectID()
		}
		if project == "" {
			return nil, ErrNoProjectID
		}

		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: project}, option.WithCredentials(creds))
		if err != nil {
			return nil, fmt.Errorf("create firebase app: %w", err)
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("create firebase auth client: %w", err)
		}

		return &Client{ProjectID: project, Auth: authClient}, nil
	}
}
