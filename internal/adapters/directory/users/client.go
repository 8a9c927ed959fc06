package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"participation-service/internal/platform/httpclient"
	"participation-service/internal/ports/directory"
)

var (
	ErrNotConfigured = errors.New("user-directory client not configured")
	ErrUpstream      = errors.New("user-directory upstream error")
)

type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
}

// Client implementa directory.UserDirectory contra el servicio de usuarios.
type Client struct {
	http *httpclient.Client
}

var _ directory.UserDirectory = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	header := strings.TrimSpace(cfg.APIKeyHeader)
	if header == "" {
		header = "X-Api-Key"
	}
	hc, err := httpclient.New(httpclient.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: map[string]string{header: strings.TrimSpace(cfg.APIKey)},
	})
	if err != nil {
		return nil, err
	}
	return &Client{http: hc}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.http.BaseURL != ""
}

type userDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Client) GetUser(ctx context.Context, id string) (directory.UserFacts, error) {
	if !c.IsConfigured() {
		return directory.UserFacts{}, ErrNotConfigured
	}

	var out userDTO
	err := c.http.GetJSON(ctx, "/internal/users/"+url.PathEscape(id), nil, &out)
	if err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return directory.UserFacts{}, fmt.Errorf("user %s: %w", id, directory.ErrNotFound)
		}
		return directory.UserFacts{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(out.ID) == "" {
		return directory.UserFacts{}, fmt.Errorf("%w: user payload missing id", ErrUpstream)
	}

	return directory.UserFacts{
		ID:    out.ID,
		Name:  strings.TrimSpace(out.Name),
		Email: strings.TrimSpace(out.Email),
	}, nil
}

func (c *Client) GetUsers(ctx context.Context, ids []string) ([]directory.UserFacts, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if len(ids) == 0 {
		return []directory.UserFacts{}, nil
	}

	var out []userDTO
	err := c.http.GetJSON(ctx, "/internal/users", url.Values{"ids": {strings.Join(ids, ",")}}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	facts := make([]directory.UserFacts, 0, len(out))
	for _, u := range out {
		if strings.TrimSpace(u.ID) == "" {
			return nil, fmt.Errorf("%w: user payload missing id", ErrUpstream)
		}
		facts = append(facts, directory.UserFacts{
			ID:    u.ID,
			Name:  strings.TrimSpace(u.Name),
			Email: strings.TrimSpace(u.Email),
		})
	}
	return facts, nil
}
