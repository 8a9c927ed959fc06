package events

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
	ErrNotConfigured = errors.New("event-directory client not configured")
	ErrUpstream      = errors.New("event-directory upstream error")
)

type Config struct {
	BaseURL string
	APIKey  string

	// Si está vacío se usa "X-Api-Key".
	APIKeyHeader string
	Timeout      time.Duration
}

// Client implementa directory.EventDirectory contra el servicio de eventos.
type Client struct {
	http *httpclient.Client
}

var _ directory.EventDirectory = (*Client)(nil)

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

type eventDTO struct {
	ID                string `json:"id"`
	InitiatorID       string `json:"initiator_id"`
	State             string `json:"state"`
	ParticipantLimit  *int   `json:"participant_limit"`
	RequestModeration *bool  `json:"request_moderation"`
}

func (d eventDTO) toFacts() (directory.EventFacts, error) {
	if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.InitiatorID) == "" {
		return directory.EventFacts{}, fmt.Errorf("%w: event payload missing id/initiator_id", ErrUpstream)
	}
	// Sin estos campos no se puede decidir capacidad; no se asume 0/false.
	if d.ParticipantLimit == nil || d.RequestModeration == nil {
		return directory.EventFacts{}, fmt.Errorf("%w: event %s payload missing capacity fields", ErrUpstream, d.ID)
	}
	if *d.ParticipantLimit < 0 {
		return directory.EventFacts{}, fmt.Errorf("%w: event %s has negative participant_limit", ErrUpstream, d.ID)
	}
	return directory.EventFacts{
		ID:                d.ID,
		InitiatorID:       d.InitiatorID,
		State:             directory.EventState(strings.ToUpper(strings.TrimSpace(d.State))),
		ParticipantLimit:  *d.ParticipantLimit,
		RequestModeration: *d.RequestModeration,
	}, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (directory.EventFacts, error) {
	if !c.IsConfigured() {
		return directory.EventFacts{}, ErrNotConfigured
	}

	var out eventDTO
	err := c.http.GetJSON(ctx, "/internal/events/"+url.PathEscape(id), nil, &out)
	if err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return directory.EventFacts{}, fmt.Errorf("event %s: %w", id, directory.ErrNotFound)
		}
		return directory.EventFacts{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return out.toFacts()
}

func (c *Client) GetEvents(ctx context.Context, ids []string) ([]directory.EventFacts, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if len(ids) == 0 {
		return []directory.EventFacts{}, nil
	}

	var out []eventDTO
	err := c.http.GetJSON(ctx, "/internal/events", url.Values{"ids": {strings.Join(ids, ",")}}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	facts := make([]directory.EventFacts, 0, len(out))
	for _, d := range out {
		f, err := d.toFacts()
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}
