// Package foncii talks to the Foncii GraphQL API: the known-place lookup and
// the post and user ingestion mutations.
package foncii

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

var (
	_ store.PlaceLookup   = (*Client)(nil)
	_ store.IngestionSink = (*Client)(nil)
)

// ErrGraphQL is returned when the API answers with a GraphQL errors array.
var ErrGraphQL = errors.New("graphql error")

type Config struct {
	APIKey       string
	ProdEndpoint string
	DevEndpoint  string
	// Debug selects the dev endpoint.
	Debug   bool
	Timeout time.Duration
}

type Client struct {
	http     *resty.Client
	endpoint string
}

func New(cfg Config) (*Client, error) {
	endpoint := cfg.ProdEndpoint
	if cfg.Debug {
		endpoint = cfg.DevEndpoint
	}
	if endpoint == "" {
		return nil, errors.New("foncii endpoint cannot be empty")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("foncii API key cannot be empty")
	}

	c := resty.New().
		SetHeader("Authorization", cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &Client{http: c, endpoint: endpoint}, nil
}

// Endpoint is the GraphQL URL requests go to.
func (c *Client) Endpoint() string { return c.endpoint }

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// do posts one operation and decodes its data into out (which may be nil).
func (c *Client) do(ctx context.Context, name, query string, variables map[string]any, out any) error {
	var resp graphqlResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(graphqlRequest{OperationName: name, Query: query, Variables: variables}).
		SetResult(&resp).
		SetError(&resp).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if res.StatusCode() != 200 {
		return fmt.Errorf("%s: unexpected status %d: %s", name, res.StatusCode(), truncate(res.String(), 200))
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%s: %w: %s", name, ErrGraphQL, strings.Join(msgs, "; "))
	}
	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", name, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

const findPlaceQuery = `
query FindGooglePlaceIDForPlaceSearchQuery($searchQuery: String!, $useGoogleFallback: Boolean) {
	findGooglePlaceIDForPlaceSearchQuery(searchQuery: $searchQuery, useGoogleFallback: $useGoogleFallback) {
		googlePlaceID
		similarityScore
		description
	}
}`

// Lookup asks Foncii for a known place matching the query. A nil result
// means no match.
func (c *Client) Lookup(ctx context.Context, query string, allowFallback bool) (*models.PlaceLookupResult, error) {
	var data struct {
		Result *models.PlaceLookupResult `json:"findGooglePlaceIDForPlaceSearchQuery"`
	}
	err := c.do(ctx, "FindGooglePlaceIDForPlaceSearchQuery", findPlaceQuery, map[string]any{
		"searchQuery":       query,
		"useGoogleFallback": allowFallback,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Result == nil || data.Result.PlaceID == "" {
		return nil, nil
	}
	return data.Result, nil
}

const postFields = `
		id
		mediaIsVideo
		dataSource {
			liveSourceUID
			sourceUID
			permalink
			creationDate
		}
		creationDate
		userID`

const ingestPostsMutation = `
mutation IngestDiscoveredInstagramPosts($input: DiscoveredInstagramPostsInput) {
	ingestDiscoveredInstagramPosts(input: $input) {` + postFields + `
	}
}`

const ingestClassifiedPostsMutation = `
mutation IngestClassifiedDiscoveredInstagramPosts($input: ClassifiedDiscoveredInstagramPostsInput) {
	ingestClassifiedDiscoveredInstagramPosts(input: $input) {` + postFields + `
	}
}`

const ingestUserMutation = `
mutation IngestDiscoveredInstagramUser($input: DiscoveredInstagramUserInput!) {
	ingestDiscoveredInstagramUser(input: $input) {
		id
		username
		mapName
	}
}`

// UploadClassifiedPosts sends one batch of classified posts.
func (c *Client) UploadClassifiedPosts(ctx context.Context, fonciiUsername string, posts []models.PostPayload) error {
	log.WithFields(log.Fields{"username": fonciiUsername, "posts": len(posts)}).Debug("Uploading classified posts")
	return c.do(ctx, "IngestClassifiedDiscoveredInstagramPosts", ingestClassifiedPostsMutation,
		postsInput(fonciiUsername, posts), nil)
}

// UploadPosts sends one batch of unclassified posts.
func (c *Client) UploadPosts(ctx context.Context, fonciiUsername string, posts []models.PostPayload) error {
	log.WithFields(log.Fields{"username": fonciiUsername, "posts": len(posts)}).Debug("Uploading posts")
	return c.do(ctx, "IngestDiscoveredInstagramPosts", ingestPostsMutation,
		postsInput(fonciiUsername, posts), nil)
}

func postsInput(username string, posts []models.PostPayload) map[string]any {
	if posts == nil {
		posts = []models.PostPayload{}
	}
	return map[string]any{
		"input": map[string]any{
			"username": username,
			"posts":    posts,
		},
	}
}

// IngestUser creates a Foncii user from the profile unless one exists.
func (c *Client) IngestUser(ctx context.Context, profile models.UserProfile) error {
	return c.do(ctx, "IngestDiscoveredInstagramUser", ingestUserMutation,
		map[string]any{"input": profile}, nil)
}
