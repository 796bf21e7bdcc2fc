package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultHelixBaseURL = "https://api.twitch.tv/helix"

// Stream describes one entry from the Helix streams endpoint. A non-empty
// result for a login means that channel is currently live.
type Stream struct {
	Title     string    `json:"title"`
	UserLogin string    `json:"user_login"`
	StartedAt time.Time `json:"started_at"`
}

// HelixClient provides the minimal Helix surface needed for live detection.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
	BaseURL        string // override for tests
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultHelixBaseURL
}

// GetStreams returns live streams for a login (empty slice when offline).
// A 401 invalidates the cached app token and the call is retried once with a
// fresh token before giving up.
func (hc *HelixClient) GetStreams(ctx context.Context, login string) ([]Stream, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	streams, retriable, err := hc.getStreamsOnce(ctx, login)
	if err != nil && retriable {
		hc.AppTokenSource.Invalidate()
		streams, _, err = hc.getStreamsOnce(ctx, login)
	}
	return streams, err
}

func (hc *HelixClient) getStreamsOnce(ctx context.Context, login string) ([]Stream, bool, error) {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+"/streams", nil)
	if err != nil {
		return nil, false, err
	}
	q := req.URL.Query()
	q.Set("user_login", login)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusUnauthorized {
		b, _ := io.ReadAll(resp.Body)
		return nil, true, fmt.Errorf("twitch streams request unauthorized: %s", string(b))
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("twitch streams request failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, err
	}
	return body.Data, false, nil
}
