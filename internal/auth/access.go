package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrAccessDenied is returned when the caller's access level is too low.
var ErrAccessDenied = errors.New("access denied")

type AccessLevel string

const (
	NoAccess AccessLevel = "no_access"
	Customer AccessLevel = "customer"
	Admin    AccessLevel = "admin"
)

type Access struct {
	HasAccess bool        `json:"hasAccess"`
	Level     AccessLevel `json:"accessLevel"`
}

func (a Access) IsAdmin() bool {
	return a.HasAccess && a.Level == Admin
}

// AccessChecker resolves what a user may do inside an experience.
type AccessChecker interface {
	CheckAccess(ctx context.Context, userID, experienceID string) (Access, error)
}

// StaticChecker grants the same access to everyone. Used in dev mode.
type StaticChecker struct {
	Access Access
}

func (s StaticChecker) CheckAccess(context.Context, string, string) (Access, error) {
	return s.Access, nil
}

type HostConfig struct {
	BaseURL string
	APIKey  string
}

// HostClient asks the host platform's API for a user's access level.
type HostClient struct {
	config HostConfig
	http   *http.Client
}

func NewHostClient(cfg HostConfig) *HostClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HostClient{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type hostAccessResponse struct {
	HasAccess   bool   `json:"has_access"`
	AccessLevel string `json:"access_level"`
}

func (c *HostClient) CheckAccess(ctx context.Context, userID, experienceID string) (Access, error) {
	if c.config.BaseURL == "" || c.config.APIKey == "" {
		return Access{}, errors.New("host API not configured")
	}

	path := fmt.Sprintf("/experiences/%s/access?user_id=%s", url.PathEscape(experienceID), url.QueryEscape(userID))
	var body hostAccessResponse
	if err := c.getJSON(ctx, path, &body); err != nil {
		return Access{}, fmt.Errorf("check access: %w", err)
	}
	return normalizeAccess(body.HasAccess, body.AccessLevel), nil
}

// normalizeAccess maps unknown levels to no_access and keeps HasAccess
// consistent with the level.
func normalizeAccess(hasAccess bool, level string) Access {
	switch AccessLevel(level) {
	case Admin, Customer:
		if !hasAccess {
			return Access{HasAccess: false, Level: NoAccess}
		}
		return Access{HasAccess: true, Level: AccessLevel(level)}
	default:
		return Access{HasAccess: false, Level: NoAccess}
	}
}
