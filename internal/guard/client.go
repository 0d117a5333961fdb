package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"cyimg.org/internal/auth"
	"cyimg.org/internal/permission"
)

// HTTPClient implements Client against the server's own HTTP surface. It
// unwraps the response envelope and attaches the session bearer token.
type HTTPClient struct {
	base string
	http *http.Client

	mu    sync.Mutex
	token string
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		base: baseURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken updates the bearer token sent with subsequent requests.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !env.Success {
		return fmt.Errorf("%s: status %d", path, env.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *HTTPClient) Profile(ctx context.Context) (auth.Principal, error) {
	var p auth.Principal
	err := c.get(ctx, "/userinfo", &p)
	return p, err
}

func (c *HTTPClient) Permissions(ctx context.Context) ([]*permission.Node, error) {
	var tree []*permission.Node
	err := c.get(ctx, "/permissions", &tree)
	return tree, err
}

func (c *HTTPClient) KnownMenuPath(ctx context.Context, path string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := c.get(ctx, "/permissions/validate?path="+url.QueryEscape(path), &out)
	return out.Exists, err
}

func (c *HTTPClient) UploadRequireAuth(ctx context.Context) (bool, error) {
	var values map[string]any
	if err := c.get(ctx, "/settings", &values); err != nil {
		return false, err
	}
	v, ok := values["upload_require_auth"].(bool)
	return ok && v, nil
}
