// Package hashkeep implements a client for the hashkeep content-addressed
// blob store.
//
// A blob is written with a private key and read back by the public key
// derived from it:
//
//	PUT {base}/store?pk={publicKey}  {"privateKey": ..., "blob": ...}
//	GET {base}/{publicKey}
//
// The store has no delete operation. Writing again with the same private key
// overwrites the previous blob.
package hashkeep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/keys"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public hashkeep instance.
const DefaultBaseURL = "https://hashkeep.magland.org"

// maxErrorBody bounds how much of a failed response is kept in error messages.
const maxErrorBody = 512

// Client talks to a hashkeep server.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

type storeRequest struct {
	PrivateKey string `json:"privateKey"`
	Blob       string `json:"blob"`
}

// New creates a Client for baseURL. A nil httpClient falls back to
// http.DefaultClient and a nil logger to a no-op one.
func New(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// Store writes blob at the address derived from secret and returns that address.
// Any 2xx response counts as success. The wire carries the blob as a JSON
// string, so blob must be valid UTF-8.
func (c *Client) Store(ctx context.Context, secret string, blob []byte) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("store: empty private key: %w", common.ErrInvalidKey)
	}
	if !utf8.Valid(blob) {
		return "", &common.ValidationError{Field: "blob", Message: "must be valid UTF-8"}
	}
	pk := keys.DerivePublicKey(secret)

	body, err := json.Marshal(storeRequest{PrivateKey: secret, Blob: string(blob)})
	if err != nil {
		return "", fmt.Errorf("marshal store request: %w", err)
	}

	endpoint := c.baseURL + "/store?pk=" + url.QueryEscape(pk)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create store request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: store %s: %w", common.ErrNetwork, pk, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: store %s: bad status %d: %s",
			common.ErrRejected, pk, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.Debug("blob stored", zap.String("publicKey", pk), zap.Int("bytes", len(blob)))
	return pk, nil
}

// Fetch returns the blob stored at publicKey exactly as it was written.
// It fails with common.ErrNotFound on any non-2xx status and with
// common.ErrNetwork when the server cannot be reached.
func (c *Client) Fetch(ctx context.Context, publicKey string) ([]byte, error) {
	if !keys.IsPublicKey(publicKey) {
		return nil, fmt.Errorf("fetch %q: %w", publicKey, common.ErrInvalidKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(publicKey), nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", common.ErrNetwork, publicKey, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: fetch %s: status %d", common.ErrNotFound, publicKey, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrNetwork, publicKey, err)
	}

	c.log.Debug("blob fetched", zap.String("publicKey", publicKey), zap.Int("bytes", len(data)))
	return data, nil
}
