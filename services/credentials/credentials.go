// Package credentials resolves Google Cloud service-account material from configuration
// into access tokens and a project id.
package credentials

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const ScopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"

const defaultTokenURI = "https://oauth2.googleapis.com/token"

var ErrNotConfigured = &errs.Error{Kind: errs.ErrConfiguration, Msg: "google cloud credentials not configured"}

// Settings is the raw material read from configuration. The first non-empty source wins:
// ServiceAccountJSON, then ClientEmail+PrivateKey, then CredentialsFile.
type Settings struct {
	ServiceAccountJSON string
	ClientEmail        string
	PrivateKey         string
	CredentialsFile    string
	ProjectID          string
}

type Resolver struct {
	logger    logger.Logger
	material  []byte
	projectID string
	loadErr   error
}

func New(logger logger.Logger, settings Settings) *Resolver {
	r := &Resolver{logger: logger, projectID: strings.TrimSpace(settings.ProjectID)}

	material, err := loadMaterial(settings)
	if err != nil {
		logger.Error("could not load service account material", "err", err.Error())
		r.loadErr = &errs.Error{Kind: errs.ErrConfiguration, Msg: "invalid google cloud credentials", Err: err}
		return r
	}
	r.material = material

	if len(r.projectID) == 0 && len(material) > 0 {
		var key struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal(material, &key); err == nil {
			r.projectID = key.ProjectID
		}
	}

	return r
}

// Configured reports whether usable key material was found.
func (r *Resolver) Configured() bool {
	return r.loadErr == nil && len(r.material) > 0
}

// ResolveProjectID returns the project id, or "" when none is known.
func (r *Resolver) ResolveProjectID() string {
	return r.projectID
}

func (r *Resolver) TokenSource(ctx context.Context, scopes ...string) (oauth2.TokenSource, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if len(r.material) == 0 {
		return nil, ErrNotConfigured
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeCloudPlatform}
	}

	creds, err := google.CredentialsFromJSON(ctx, r.material, scopes...)
	if err != nil {
		r.logger.Error("could not parse service account material", "err", err.Error())
		return nil, &errs.Error{Kind: errs.ErrConfiguration, Msg: "invalid google cloud credentials", Err: err}
	}

	return creds.TokenSource, nil
}

func (r *Resolver) ResolveAccessToken(ctx context.Context, scopes ...string) (*oauth2.Token, error) {
	tokenSource, err := r.TokenSource(ctx, scopes...)
	if err != nil {
		return nil, err
	}

	token, err := tokenSource.Token()
	if err != nil {
		r.logger.Error("could not obtain access token", "err", err.Error())
		return nil, errs.Transport("obtain access token", err)
	}

	return token, nil
}

func loadMaterial(settings Settings) ([]byte, error) {
	if raw := strings.TrimSpace(settings.ServiceAccountJSON); len(raw) > 0 {
		return decodeServiceAccountJSON(raw)
	}

	if len(settings.ClientEmail) > 0 && len(settings.PrivateKey) > 0 {
		key := map[string]string{
			"type":         "service_account",
			"client_email": strings.TrimSpace(settings.ClientEmail),
			"private_key":  expandNewlines(settings.PrivateKey),
			"project_id":   strings.TrimSpace(settings.ProjectID),
			"token_uri":    defaultTokenURI,
		}
		return json.Marshal(key)
	}

	if len(settings.CredentialsFile) > 0 {
		material, err := os.ReadFile(settings.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return material, nil
	}

	return nil, nil
}

// decodeServiceAccountJSON accepts the key as raw JSON or as base64-encoded JSON.
func decodeServiceAccountJSON(raw string) ([]byte, error) {
	if strings.HasPrefix(raw, "{") {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("service account json is not valid json")
		}
		return []byte(raw), nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("service account json is neither json nor base64: %w", err)
	}
	if !json.Valid(decoded) {
		return nil, fmt.Errorf("decoded service account json is not valid json")
	}

	return decoded, nil
}

// Env files usually carry PEM keys with escaped newlines.
func expandNewlines(key string) string {
	key = strings.Trim(strings.TrimSpace(key), `"`)
	return strings.ReplaceAll(key, `\n`, "\n")
}
