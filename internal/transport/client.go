package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/sportstix-client/internal/model"
)

// retryHeader tags a request that has already been retried after a token
// refresh. A tagged request that fails with 401 again is not retried a
// second time; the failure escalates to ErrSessionExpired instead.
const retryHeader = "X-Retry"

// Credentials is the slice of the session the transport needs: read the
// current tokens, install a rotated pair, and clear everything on refresh
// failure. The handoff store satisfies this interface.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string)
	Clear()
}

// Client is the HTTP client for the gateway. All REST traffic flows through
// it so the bearer token and the 401 recovery path apply uniformly. A
// single Client is shared process-wide; it is safe for concurrent use.
type Client struct {
	baseURL string // gateway origin without trailing slash
	http    *http.Client
	creds   Credentials
	refresh refresher

	// onLogout, when set, is invoked once after a failed refresh clears
	// the session. The auth layer uses it to tear down the realtime
	// connection and wipe handoff artifacts.
	onLogout func()
}

// New builds a Client for the given gateway origin. Timeout bounds every
// request including the refresh exchange.
func New(baseURL string, timeout time.Duration, creds Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
	}
}

// OnLogout registers a callback fired after a refresh failure clears the
// session. At most one callback is supported; later calls replace earlier
// ones.
func (c *Client) OnLogout(fn func()) { c.onLogout = fn }

// do executes one request against the gateway and returns the decoded
// envelope data. It attaches the current access token, and on a 401 for a
// not-yet-retried request that carried a bearer token it runs the shared
// refresh exchange and retries exactly once with the new token. A 401 on a
// tokenless request is a plain domain failure and is returned as such.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body any) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, method, path, query, headers, body)
	if err != nil {
		return nil, err
	}

	data, status, apiErr, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && req.Header.Get("Authorization") == "" {
		// The request never carried a token (login, signup), so there is
		// no session to recover and nothing to log out of. The envelope
		// error, bad credentials or otherwise, is the answer.
		if apiErr == nil {
			apiErr = newAPIError(status, nil)
		}
		return nil, apiErr
	}
	if status == http.StatusUnauthorized && req.Header.Get(retryHeader) == "" {
		// If another request already rotated the pair while this one was
		// in flight, its 401 is about a superseded token: retry with the
		// current one instead of starting a second refresh.
		if req.Header.Get("Authorization") == "Bearer "+c.creds.AccessToken() {
			if err := c.refreshTokens(ctx); err != nil {
				return nil, err
			}
		}
		// Rebuild the request: the body reader was consumed and the
		// Authorization header must carry the new token.
		retry, err := c.newRequest(ctx, method, path, query, headers, body)
		if err != nil {
			return nil, err
		}
		retry.Header.Set(retryHeader, "true")
		data, status, apiErr, err = c.roundTrip(retry)
		if err != nil {
			return nil, err
		}
	}
	if status == http.StatusUnauthorized {
		// A 401 surviving the refresh-and-retry path means the session is
		// beyond recovery. Fail closed.
		c.creds.Clear()
		if c.onLogout != nil {
			c.onLogout()
		}
		return nil, ErrSessionExpired
	}
	if apiErr != nil {
		return nil, apiErr
	}
	return data, nil
}

// newRequest assembles an *http.Request with JSON body, query string,
// caller-supplied headers and the current bearer token.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, headers http.Header, body any) (*http.Request, error) {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if tok := c.creds.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// roundTrip sends the request and decodes the envelope. A non-success
// envelope is returned as an *APIError alongside the HTTP status so the
// caller can distinguish 401 (recoverable) from domain failures.
func (c *Client) roundTrip(req *http.Request) (json.RawMessage, int, *APIError, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var env model.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, resp.StatusCode, nil, fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	if !env.Success {
		return nil, resp.StatusCode, newAPIError(resp.StatusCode, env.Error), nil
	}
	return env.Data, resp.StatusCode, nil, nil
}

// Get issues a GET and decodes the envelope data into T.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return decode[T](c.do(ctx, http.MethodGet, path, query, nil, nil))
}

// Post issues a POST with an optional JSON body and extra headers, decoding
// the envelope data into T.
func Post[T any](ctx context.Context, c *Client, path string, body any, headers http.Header) (T, error) {
	return decode[T](c.do(ctx, http.MethodPost, path, nil, headers, body))
}

// Delete issues a DELETE with a query string; the envelope data is ignored.
func Delete(ctx context.Context, c *Client, path string, query url.Values) error {
	_, err := c.do(ctx, http.MethodDelete, path, query, nil, nil)
	return err
}

// decode unmarshals envelope data into T. A null or absent data field
// yields the zero value, which matches endpoints that return no payload.
func decode[T any](data json.RawMessage, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode response data: %w", err)
	}
	return out, nil
}
