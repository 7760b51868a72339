package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
)

// GoogleCredentials builds a token source for the service account. A
// credentials file wins over the email/private-key pair; with neither set,
// application default credentials are used.
func (c *Config) GoogleCredentials(ctx context.Context, scopes ...string) (option.ClientOption, error) {
	ts, err := c.googleTokenSource(ctx, scopes)
	if err != nil {
		return nil, err
	}
	return option.WithTokenSource(ts), nil
}

func (c *Config) googleTokenSource(ctx context.Context, scopes []string) (oauth2.TokenSource, error) {
	g := c.Google
	if g.CredentialsFile != "" {
		data, err := os.ReadFile(g.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
		conf, err := google.JWTConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		return conf.TokenSource(ctx), nil
	}
	if g.ServiceAccountEmail != "" && g.PrivateKey != "" {
		conf := &jwt.Config{
			Email:      g.ServiceAccountEmail,
			PrivateKey: []byte(normalizePrivateKey(g.PrivateKey)),
			Scopes:     scopes,
			TokenURL:   google.JWTTokenURL,
		}
		return conf.TokenSource(ctx), nil
	}
	ts, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("google credentials not configured: %w", err)
	}
	return ts, nil
}

// ServiceAccountEmail is the identity users share their files with. It falls
// back to the client_email of the credentials file.
func (c *Config) ServiceAccountEmail() string {
	if c.Google.ServiceAccountEmail != "" {
		return c.Google.ServiceAccountEmail
	}
	if c.Google.CredentialsFile == "" {
		return ""
	}
	data, err := os.ReadFile(c.Google.CredentialsFile)
	if err != nil {
		return ""
	}
	conf, err := google.JWTConfigFromJSON(data)
	if err != nil {
		return ""
	}
	return conf.Email
}

// Keys pasted into environment variables usually carry literal "\n".
func normalizePrivateKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), `\n`, "\n")
}
