package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to a portal gateway that fronts the payer portals and
// exposes listed files over plain HTTP. It is the deployment-default Client;
// payer-specific automation lives behind the same gateway contract.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ListNewFiles(ctx context.Context, payerID string) ([]FileRef, error) {
	endpoint := fmt.Sprintf("%s/payers/%s/files", c.baseURL, url.PathEscape(payerID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var refs []FileRef
	if err := json.NewDecoder(body).Decode(&refs); err != nil {
		return nil, fmt.Errorf("decode file listing: %w", err)
	}

	for i := range refs {
		refs[i].PayerID = payerID
	}
	return refs, nil
}

func (c *HTTPClient) Download(ctx context.Context, ref FileRef) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/payers/%s/files/%s",
		c.baseURL, url.PathEscape(ref.PayerID), url.PathEscape(ref.Name))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPortalUnreachable, err)
	}
	return data, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPortalUnreachable, err)
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		res.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrAuthExpired, res.StatusCode)
	case res.StatusCode != http.StatusOK:
		res.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrPortalUnreachable, res.StatusCode)
	}

	return res.Body, nil
}
