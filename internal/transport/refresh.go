package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/sportstix-client/internal/model"
)

// refresher deduplicates concurrent token refreshes. However many requests
// fail with 401 at the same moment, exactly one exchange hits the gateway
// and every caller observes its outcome. The flight key is constant because
// the client only ever holds one session.
type refresher struct {
	group singleflight.Group
}

// refreshTokens runs (or joins) the single in-flight refresh exchange. On
// success the rotated pair is installed as current before any waiter
// resumes, so every retried request picks up the new access token. On any
// failure the session is cleared, the logout hook fires, and
// ErrSessionExpired is returned; no caller retries past this point.
func (c *Client) refreshTokens(ctx context.Context) error {
	_, err, _ := c.refresh.group.Do("refresh", func() (any, error) {
		raw := c.creds.RefreshToken()
		if raw == "" {
			return nil, ErrSessionExpired
		}
		pair, err := c.exchangeRefresh(ctx, raw)
		if err != nil {
			log.Printf("transport: token refresh failed: %v", err)
			return nil, ErrSessionExpired
		}
		c.creds.SetTokens(pair.AccessToken, pair.RefreshToken)
		return nil, nil
	})
	if err != nil {
		c.creds.Clear()
		if c.onLogout != nil {
			c.onLogout()
		}
		return ErrSessionExpired
	}
	return nil
}

// exchangeRefresh performs the raw POST /auth/refresh call. It deliberately
// bypasses do(): the exchange must not carry the stale bearer token and a
// 401 here must not recurse into another refresh.
func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	body, err := json.Marshal(model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return model.TokenPair{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return model.TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.TokenPair{}, err
	}
	defer resp.Body.Close()

	var env model.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return model.TokenPair{}, err
	}
	if !env.Success {
		return model.TokenPair{}, newAPIError(resp.StatusCode, env.Error)
	}
	var pair model.TokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		return model.TokenPair{}, err
	}
	return pair, nil
}
