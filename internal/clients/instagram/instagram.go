// Package instagram reads public Instagram posts and profiles through a
// HikerAPI-compatible REST service.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

const DefaultBaseURL = "https://api.hikerapi.com"

var _ store.PostSource = (*Client)(nil)

type Client struct {
	http *resty.Client

	mu      sync.Mutex
	userIDs map[string]string
}

func New(accessKey, baseURL string, timeout time.Duration) (*Client, error) {
	if accessKey == "" {
		return nil, errors.New("instagram access key cannot be empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("x-access-key", accessKey).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c, userIDs: map[string]string{}}, nil
}

type userInfo struct {
	PK                 json.Number `json:"pk"`
	Username           string      `json:"username"`
	FullName           string      `json:"full_name"`
	ContactPhoneNumber string      `json:"contact_phone_number"`
	PublicEmail        string      `json:"public_email"`
	ProfilePicURLHD    string      `json:"profile_pic_url_hd"`
}

func (c *Client) userByUsername(ctx context.Context, username string) (*userInfo, error) {
	var out userInfo
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("username", username).
		SetResult(&out).
		Get("/v1/user/by/username")
	if err != nil {
		return nil, fmt.Errorf("user lookup %s: %w", username, err)
	}
	if res.StatusCode() == 404 {
		return nil, fmt.Errorf("user lookup %s: %w", username, store.ErrNotFound)
	}
	if res.IsError() {
		return nil, fmt.Errorf("user lookup %s: unexpected status %d", username, res.StatusCode())
	}
	if out.PK == "" {
		return nil, fmt.Errorf("user lookup %s: %w", username, store.ErrNotFound)
	}

	c.mu.Lock()
	c.userIDs[username] = out.PK.String()
	c.mu.Unlock()
	return &out, nil
}

func (c *Client) userID(ctx context.Context, username string) (string, error) {
	c.mu.Lock()
	id, ok := c.userIDs[username]
	c.mu.Unlock()
	if ok {
		return id, nil
	}
	u, err := c.userByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return u.PK.String(), nil
}

// UserProfile returns the account's public profile.
func (c *Client) UserProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	u, err := c.userByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{
		Username:          u.Username,
		FullName:          u.FullName,
		PhoneNumber:       u.ContactPhoneNumber,
		Email:             u.PublicEmail,
		ProfilePictureURL: u.ProfilePicURLHD,
	}, nil
}

// FetchPage returns one page of the user's posts, newest first, and the
// cursor of the next page (empty on the last page). The service decides the
// page size; targetCount is only logged.
func (c *Client) FetchPage(ctx context.Context, userHandle string, targetCount int, cursor string) ([]models.Post, string, error) {
	id, err := c.userID(ctx, userHandle)
	if err != nil {
		return nil, "", err
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", id)
	if cursor != "" {
		req.SetQueryParam("end_cursor", cursor)
	}
	res, err := req.Get("/v1/user/medias/chunk")
	if err != nil {
		return nil, "", fmt.Errorf("fetch posts %s: %w", userHandle, err)
	}
	if res.IsError() {
		return nil, "", fmt.Errorf("fetch posts %s: unexpected status %d", userHandle, res.StatusCode())
	}

	// the chunk endpoint answers with a [medias, next_cursor] pair
	var pair []json.RawMessage
	if err := json.Unmarshal(res.Body(), &pair); err != nil {
		return nil, "", fmt.Errorf("decode posts page: %w", err)
	}
	if len(pair) == 0 {
		return nil, "", nil
	}
	var medias []media
	if err := json.Unmarshal(pair[0], &medias); err != nil {
		return nil, "", fmt.Errorf("decode posts page: %w", err)
	}
	var next string
	if len(pair) > 1 {
		// null cursor means no more pages
		_ = json.Unmarshal(pair[1], &next)
	}

	posts := make([]models.Post, 0, len(medias))
	for _, m := range medias {
		posts = append(posts, m.toPost())
	}
	log.WithFields(log.Fields{
		"username": userHandle,
		"posts":    len(posts),
		"wanted":   targetCount,
		"has_next": next != "",
	}).Debug("Fetched posts page")
	return posts, next, nil
}

type media struct {
	PK           json.Number `json:"pk"`
	Code         string      `json:"code"`
	CaptionText  string      `json:"caption_text"`
	TakenAt      takenAt     `json:"taken_at"`
	VideoURL     string      `json:"video_url"`
	ThumbnailURL string      `json:"thumbnail_url"`
	Location     *struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		City    string `json:"city"`
	} `json:"location"`
	UserTags []struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	} `json:"usertags"`
	Resources []struct {
		VideoURL     string `json:"video_url"`
		ThumbnailURL string `json:"thumbnail_url"`
	} `json:"resources"`
}

func (m media) toPost() models.Post {
	p := models.Post{
		ID:           m.PK.String(),
		Code:         m.Code,
		Caption:      m.CaptionText,
		VideoURL:     m.VideoURL,
		ThumbnailURL: m.ThumbnailURL,
		TakenAt:      time.Time(m.TakenAt),
	}
	if m.Location != nil {
		p.Location = &models.Location{Name: m.Location.Name, Address: m.Location.Address, City: m.Location.City}
	}
	for _, t := range m.UserTags {
		if t.User.Username != "" {
			p.UserTags = append(p.UserTags, t.User.Username)
		}
	}
	for _, r := range m.Resources {
		p.Resources = append(p.Resources, models.MediaResource{VideoURL: r.VideoURL, ThumbnailURL: r.ThumbnailURL})
	}
	return p
}

// takenAt accepts RFC 3339 strings and unix seconds.
type takenAt time.Time

func (t *takenAt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			*t = takenAt(time.Unix(secs, 0).UTC())
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid taken_at %q: %w", s, err)
		}
		*t = takenAt(parsed.UTC())
		return nil
	}
	var secs int64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid taken_at %s: %w", b, err)
	}
	*t = takenAt(time.Unix(secs, 0).UTC())
	return nil
}
