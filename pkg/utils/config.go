package utils

import (
	"os"
	"strconv"
	"time"
)

// AuthConfig covers the single configured user and session signing.
type AuthConfig struct {
	SessionSecret    string
	Username         string
	PasswordHash     string // bcrypt; takes precedence over Password
	Password         string // plain fallback for local development
	Issuer           string
	RememberDuration time.Duration
	SessionDuration  time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("COMICTRACKER_SESSION_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	username := os.Getenv("COMICTRACKER_USERNAME")
	if username == "" {
		username = "admin"
	}

	issuer := os.Getenv("COMICTRACKER_ISSUER")
	if issuer == "" {
		issuer = "comictracker"
	}

	remember := 30 * 24 * time.Hour
	if h := os.Getenv("COMICTRACKER_SESSION_REMEMBER_HOURS"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n > 0 {
			remember = time.Duration(n) * time.Hour
		}
	}

	session := 24 * time.Hour
	if h := os.Getenv("COMICTRACKER_SESSION_HOURS"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n > 0 {
			session = time.Duration(n) * time.Hour
		}
	}

	return AuthConfig{
		SessionSecret:    secret,
		Username:         username,
		PasswordHash:     os.Getenv("COMICTRACKER_PASSWORD_HASH"),
		Password:         os.Getenv("COMICTRACKER_PASSWORD"),
		Issuer:           issuer,
		RememberDuration: remember,
		SessionDuration:  session,
	}
}
