// Package auth provides the client authentication value type and how it is
// applied to an outbound request. This package has NO I/O.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Type identifies an authentication scheme.
type Type string

const (
	TypeNone  Type = ""
	TypeBasic Type = "basic"
	TypeOAuth Type = "oauth"
	TypeToken Type = "token"
)

// Auth is an authentication context (immutable value type).
type Auth struct {
	Type     Type   `yaml:"type" json:"type"`
	Username string `yaml:"username" json:"username,omitempty"`
	Password string `yaml:"password" json:"-"`
	Token    string `yaml:"token" json:"-"`
	Key      string `yaml:"key" json:"key,omitempty"`
	Secret   string `yaml:"secret" json:"-"`
}

var (
	ErrInvalidType = errors.New("invalid authentication type, must be 'basic', 'oauth' or 'token'")
	ErrMissing     = errors.New("missing authentication credentials")
)

// None returns the empty authentication context.
func None() Auth { return Auth{} }

// Basic returns HTTP basic authentication.
func Basic(username, password string) Auth {
	return Auth{Type: TypeBasic, Username: username, Password: password}
}

// OAuthToken returns OAuth authentication with an access token.
func OAuthToken(token string) Auth {
	return Auth{Type: TypeOAuth, Token: token}
}

// OAuthKey returns OAuth application authentication with a client key and secret.
func OAuthKey(key, secret string) Auth {
	return Auth{Type: TypeOAuth, Key: key, Secret: secret}
}

// BearerToken returns token authentication.
func BearerToken(token string) Auth {
	return Auth{Type: TypeToken, Token: token}
}

// Validate reports invalid combinations.
func (a Auth) Validate() error {
	switch a.Type {
	case TypeNone:
		return nil
	case TypeBasic:
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("basic authentication requires both a username and password: %w", ErrMissing)
		}
	case TypeOAuth:
		if a.Token == "" && (a.Key == "" || a.Secret == "") {
			return fmt.Errorf("oauth authentication requires a token or key and secret: %w", ErrMissing)
		}
	case TypeToken:
		if a.Token == "" {
			return fmt.Errorf("token authentication requires a token: %w", ErrMissing)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, a.Type)
	}
	return nil
}

// IsZero reports whether no authentication is configured.
func (a Auth) IsZero() bool {
	return a.Type == TypeNone
}

// Apply attaches the credentials to an outbound request. OAuth credentials are
// appended to the path as query parameters; the possibly changed path is returned.
func (a Auth) Apply(path string, header http.Header) string {
	switch a.Type {
	case TypeOAuth:
		if a.Token != "" {
			return appendQuery(path, "access_token="+a.Token)
		}
		return appendQuery(path, "client_id="+a.Key+"&client_secret="+a.Secret)
	case TypeToken:
		header.Set("Authorization", "token "+a.Token)
	case TypeBasic:
		header.Set("Authorization", "Basic "+BasicCredentials(a.Username, a.Password))
	}
	return path
}

// BasicCredentials returns base64(username:password).
func BasicCredentials(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

func appendQuery(path, query string) string {
	if strings.Contains(path, "?") {
		return path + "&" + query
	}
	return path + "?" + query
}
