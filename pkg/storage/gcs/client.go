package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/angelmondragon/taskrent-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
)

const (
	scope          = "https://www.googleapis.com/auth/devstorage.read_write"
	requestTimeout = 60 * time.Second
	pingTimeout    = 5 * time.Second
	defaultAPIBase = "https://storage.googleapis.com"
	errBodyLimit   = 2048
)

// Client stores ticket attachments in one bucket over the JSON API.
// Attachments are immutable: an upload never replaces an existing object.
type Client struct {
	http          *http.Client
	bucket        string
	publicBaseURL string
	apiBase       string
}

// ObjectInfo describes a stored attachment.
type ObjectInfo struct {
	Bucket      string
	Name        string
	ContentType string
	Size        int64
	PublicURL   string
}

// NewClient resolves credentials in order: inline JSON, a credentials file,
// then application default credentials. The bucket is checked before the
// client is returned.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("gcs bucket name is required")
	}
	ts, err := tokenSource(ctx, gcp)
	if err != nil {
		return nil, err
	}

	client := newClient(&http.Client{Timeout: requestTimeout}, ts, cfg.BucketName, cfg.PublicBaseURL)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", client.bucket), "gcs client initialized")
	}
	return client, nil
}

func tokenSource(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, error) {
	raw := []byte(gcp.CredentialsJSON)
	if len(raw) == 0 && gcp.ApplicationCredentials != "" {
		var err error
		if raw, err = os.ReadFile(gcp.ApplicationCredentials); err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
	}
	if len(raw) == 0 {
		ts, err := google.DefaultTokenSource(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("default credentials: %w", err)
		}
		return ts, nil
	}
	jwtCfg, err := google.JWTConfigFromJSON(raw, scope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	return jwtCfg.TokenSource(ctx), nil
}

func newClient(base *http.Client, ts oauth2.TokenSource, bucket, publicBaseURL string) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   base.Timeout,
			Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts), Base: base.Transport},
		},
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		apiBase:       defaultAPIBase,
	}
}

func (c *Client) Close() error {
	return nil
}

// PublicURL is the address the ticket screen renders for object.
func (c *Client) PublicURL(object string) string {
	base := c.publicBaseURL
	if base == "" {
		base = defaultAPIBase
	}
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/" + c.bucket + "/" + strings.Join(parts, "/")
}

// Upload stores body under object. An existing object with the same name
// yields CONFLICT; other storage failures are DEPENDENCY.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (*ObjectInfo, error) {
	if c == nil || c.http == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gcs client not initialized")
	}
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object name is required")
	}
	if contentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content type is required")
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	q.Set("ifGenerationMatch", "0")
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiBase, url.PathEscape(c.bucket), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var meta struct {
		Bucket      string `json:"bucket"`
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
		Size        string `json:"size"`
	}
	if err := c.do(req, &meta); err != nil {
		return nil, err
	}
	size, _ := strconv.ParseInt(meta.Size, 10, 64)
	return &ObjectInfo{
		Bucket:      meta.Bucket,
		Name:        meta.Name,
		ContentType: meta.ContentType,
		Size:        size,
		PublicURL:   c.PublicURL(meta.Name),
	}, nil
}

// Ping lists at most one object to confirm the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.http == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1&fields=kind", c.apiBase, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gcs request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return pkgerrors.New(pkgerrors.CodeConflict, "attachment already exists")
	case resp.StatusCode != http.StatusOK:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gcs %s %s: %s", req.Method, resp.Status, strings.TrimSpace(string(b))))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gcs response")
	}
	return nil
}
