// Package places queries the Google Places "find place from text" endpoint.
package places

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"
	findPlacePath  = "/findplacefromtext/json"
	fields         = "place_id,name,types"
)

var _ store.PlaceSearcher = (*Client)(nil)

type Client struct {
	http   *resty.Client
	apiKey string
}

// New returns a Places client. baseURL may be empty for the public endpoint.
func New(apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("places API key cannot be empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c, apiKey: apiKey}, nil
}

type findPlaceResponse struct {
	Candidates   []models.PlaceCandidate `json:"candidates"`
	Status       string                  `json:"status"`
	ErrorMessage string                  `json:"error_message"`
}

// Search returns the first candidate for the query, or nil when Google has
// none.
func (c *Client) Search(ctx context.Context, query string) (*models.PlaceCandidate, error) {
	var out findPlaceResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"input":     query,
			"inputtype": "textquery",
			"fields":    fields,
			"key":       c.apiKey,
		}).
		SetResult(&out).
		Get(findPlacePath)
	if err != nil {
		return nil, fmt.Errorf("places request: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("places request: unexpected status %d", res.StatusCode())
	}

	switch out.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("places request: status %s: %s", out.Status, out.ErrorMessage)
	}
	if len(out.Candidates) == 0 {
		return nil, nil
	}

	best := out.Candidates[0]
	log.WithFields(log.Fields{"query": query, "place_id": best.PlaceID}).Debug("Places candidate found")
	return &best, nil
}
