package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/a-h/respond"
	"gopkg.in/yaml.v3"
)

// Anonymous is the user name given to requests when no API keys are configured.
const Anonymous = "anonymous"

// New wraps next with API key authentication. If apiKeyToUserName is empty,
// every request is let through as Anonymous.
func New(apiKeyToUserName map[string]string, next http.Handler) *Auth {
	return &Auth{
		Next:             next,
		APIKeyToUserName: apiKeyToUserName,
	}
}

type Auth struct {
	Next             http.Handler
	APIKeyToUserName map[string]string
}

// LoadFromFile reads a map of API key to user name. The file may be JSON or YAML.
func LoadFromFile(name string) (apiKeyToUserName map[string]string, err error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	if err = yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("auth: failed to parse %q: %w", name, err)
	}
	for k, v := range m {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("auth: %q contains an empty API key or user name", name)
		}
	}
	return m, nil
}

type userContextKey int

const userKey userContextKey = 0

func GetUser(r *http.Request) (user string, ok bool) {
	user, ok = r.Context().Value(userKey).(string)
	return
}

func (a *Auth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := Anonymous
	if len(a.APIKeyToUserName) > 0 {
		var ok bool
		user, ok = a.APIKeyToUserName[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			respond.WithError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	r = r.WithContext(context.WithValue(r.Context(), userKey, user))
	a.Next.ServeHTTP(w, r)
}
