package auth

import (
	"fmt"

	"golang.org/x/oauth2"

	"runcoach/internal/store"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes required to read private activities (Strava uses comma-separated scopes)
var Scopes = []string{
	"read,activity:read_all",
}

// NewOAuthConfig creates an oauth2.Config for the Strava app credentials
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		RedirectURL: fmt.Sprintf("http://localhost:%d/callback", CallbackPort),
		Scopes:      Scopes,
	}
}

// ExtractAthleteID extracts the athlete ID from the token extras
// Strava includes athlete info in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]any); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}

// TokenFromAuth converts stored credentials to an oauth2 token
func TokenFromAuth(a *store.Auth) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       a.ExpiresAt,
	}
}

// AuthFromToken converts a fresh token to stored credentials
func AuthFromToken(token *oauth2.Token, athleteID int64) *store.Auth {
	return &store.Auth{
		AthleteID:    athleteID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
}
