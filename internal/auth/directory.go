package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Names are the display names shown alongside a playlist.
type Names struct {
	User       string
	Experience string
}

// Directory resolves display names for a user and an experience.
type Directory interface {
	LookupNames(ctx context.Context, userID, experienceID string) (Names, error)
}

// StaticDirectory answers every lookup with the same names. Used in dev mode.
type StaticDirectory struct {
	Names Names
}

func (s StaticDirectory) LookupNames(context.Context, string, string) (Names, error) {
	return s.Names, nil
}

type hostUserResponse struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type hostExperienceResponse struct {
	Name string `json:"name"`
}

// LookupNames fetches the user's and the experience's profiles from the host
// API. A user without a display name is shown by username.
func (c *HostClient) LookupNames(ctx context.Context, userID, experienceID string) (Names, error) {
	if c.config.BaseURL == "" || c.config.APIKey == "" {
		return Names{}, errors.New("host API not configured")
	}

	var user hostUserResponse
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &user); err != nil {
		return Names{}, fmt.Errorf("get user: %w", err)
	}
	var exp hostExperienceResponse
	if err := c.getJSON(ctx, "/experiences/"+url.PathEscape(experienceID), &exp); err != nil {
		return Names{}, fmt.Errorf("get experience: %w", err)
	}

	names := Names{User: user.Name, Experience: exp.Name}
	if names.User == "" {
		names.User = user.Username
	}
	return names, nil
}

func (c *HostClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("host API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
