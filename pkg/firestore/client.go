// pkg/firestore/client.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"google.golang.org/api/option"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// ClientOptions builds the Google API options shared by Firestore and Firebase.
// Application default credentials are used when no credentials file is set.
func ClientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	if path := strings.TrimSpace(gcp.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	return opts
}

// NewClient connects to Firestore for the configured project.
func NewClient(ctx context.Context, gcp config.GCPConfig, logg *logger.Logger) (*firestore.Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	client, err := firestore.NewClient(ctx, projectID, ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client (project=%s): %w", projectID, err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "firestore client initialized")
	}
	return client, nil
}
