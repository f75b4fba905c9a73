package romm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	"github.com/rommsync/rommsync/internal/adapter"
	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/logger"
)

const (
	// AuthBasic sends the credentials with every request
	AuthBasic = "basic"
	// AuthOAuth2 exchanges the credentials for a bearer token at api/token
	AuthOAuth2 = "oauth2"

	// DefaultPageSize is the number of games fetched per search request
	DefaultPageSize = 1000
	// DefaultTimeout bounds a single request, including large downloads
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is how many times an idempotent request is retried
	DefaultRetries = 3
	// DefaultRetryDelay is the first backoff interval
	DefaultRetryDelay = 500 * time.Millisecond
)

// Scopes requested with the OAuth2 password grant
var Scopes = []string{"me.read", "roms.read", "platforms.read", "assets.read", "assets.write"}

// Config holds the connection settings of a RomM server
type Config struct {
	URL        string
	Username   string
	Password   string
	Auth       string // "basic" (default) or "oauth2"
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	PageSize   int

	// HTTPClient is the base client; nil uses a new client with Timeout
	HTTPClient *http.Client
}

// Client implements adapter.RemoteAPI against the RomM REST API
type Client struct {
	baseURL    string
	http       *http.Client
	retries    int
	retryDelay time.Duration
	pageSize   int
}

// New creates a client and, for OAuth2, obtains the first token
func New(ctx context.Context, cfg Config) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: server url is empty", domain.ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: server url: %v", domain.ErrConfigInvalid, err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	baseClient := cfg.HTTPClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL:    base,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		pageSize:   cfg.PageSize,
	}

	switch strings.ToLower(cfg.Auth) {
	case "", AuthBasic:
		c.http = &http.Client{
			Timeout:   baseClient.Timeout,
			Transport: &basicAuthTransport{username: cfg.Username, password: cfg.Password, base: baseClient.Transport},
		}
	case AuthOAuth2:
		httpClient, err := oauthClient(ctx, base, cfg, baseClient)
		if err != nil {
			return nil, err
		}
		c.http = httpClient
	default:
		return nil, fmt.Errorf("%w: unknown auth method %q", domain.ErrConfigInvalid, cfg.Auth)
	}

	return c, nil
}

// oauthClient runs the password grant and returns a client that refreshes the token
func oauthClient(ctx context.Context, base string, cfg Config, baseClient *http.Client) (*http.Client, error) {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  base + "/api/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: Scopes,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, baseClient)
	token, err := conf.PasswordCredentialsToken(ctx, cfg.Username, cfg.Password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, fmt.Errorf("%w: token request: %v", statusError(re.Response.StatusCode), err)
		}
		return nil, fmt.Errorf("%w: token request: %v", domain.ErrNetworkError, err)
	}

	client := conf.Client(ctx, token)
	client.Timeout = baseClient.Timeout
	return client, nil
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.username == "" && t.password == "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.username, t.password)
	return base.RoundTrip(clone)
}

// endpoints names the paths and form field of one item type
type endpoints struct {
	collection string // "saves" or "states"
	formField  string // multipart field of the uploaded file
}

func endpointsFor(itemType domain.ItemType) endpoints {
	if itemType == domain.SaveState {
		return endpoints{collection: "states", formField: "stateFile"}
	}
	return endpoints{collection: "saves", formField: "saveFile"}
}

type gamePage struct {
	Items  []domain.Game `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListSaves returns the records of one type, optionally limited to one game
func (c *Client) ListSaves(ctx context.Context, itemType domain.ItemType, romID int) ([]domain.SaveRecord, error) {
	query := url.Values{}
	if romID > 0 {
		query.Set("rom_id", strconv.Itoa(romID))
	}

	var records []domain.SaveRecord
	if err := c.getJSON(ctx, "api/"+endpointsFor(itemType).collection, query, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetGame returns a single game
func (c *Client) GetGame(ctx context.Context, id int) (domain.Game, error) {
	var game domain.Game
	if err := c.getJSON(ctx, "api/roms/"+strconv.Itoa(id), nil, &game); err != nil {
		return domain.Game{}, err
	}
	return game, nil
}

// ListPlatforms returns all platforms of the library
func (c *Client) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	var platforms []domain.Platform
	if err := c.getJSON(ctx, "api/platforms", nil, &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}

// SearchGames pages through the games of a platform matching term
func (c *Client) SearchGames(ctx context.Context, platformID int, term string) ([]domain.Game, error) {
	var games []domain.Game
	offset := 0

	for {
		query := url.Values{}
		query.Set("platform_id", strconv.Itoa(platformID))
		if term != "" {
			query.Set("search_term", term)
		}
		query.Set("limit", strconv.Itoa(c.pageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page gamePage
		if err := c.getJSON(ctx, "api/roms", query, &page); err != nil {
			return nil, err
		}

		games = append(games, page.Items...)
		offset += len(page.Items)

		if len(page.Items) < c.pageSize || offset >= page.Total {
			break
		}
	}

	return games, nil
}

// CreateSave uploads a new record for a game
func (c *Client) CreateSave(ctx context.Context, itemType domain.ItemType, gameID int, emulator string, up domain.Upload) (domain.SaveRecord, error) {
	ep := endpointsFor(itemType)

	query := url.Values{}
	query.Set("rom_id", strconv.Itoa(gameID))
	if emulator != "" {
		query.Set("emulator", emulator)
	}

	return c.upload(ctx, http.MethodPost, "api/"+ep.collection, query, ep.formField, up)
}

// UpdateSave replaces the content of an existing record
func (c *Client) UpdateSave(ctx context.Context, itemType domain.ItemType, id int, up domain.Upload) (domain.SaveRecord, error) {
	ep := endpointsFor(itemType)
	return c.upload(ctx, http.MethodPut, "api/"+ep.collection+"/"+strconv.Itoa(id), nil, ep.formField, up)
}

// upload streams a multipart request; it is never retried since the body is consumed
func (c *Client) upload(ctx context.Context, method, path string, query url.Values, field string, up domain.Upload) (domain.SaveRecord, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(field, up.FileName)
		if err == nil {
			_, err = io.Copy(part, up.Content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), pr)
	if err != nil {
		pr.Close()
		return domain.SaveRecord{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	logger.Get().Debug("Uploading", "method", method, "path", path, "file", up.FileName, "size", up.Size)

	resp, err := c.http.Do(req)
	if err != nil {
		pr.Close()
		return domain.SaveRecord{}, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return domain.SaveRecord{}, err
	}

	var record domain.SaveRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return domain.SaveRecord{}, fmt.Errorf("%w: decode %s: %v", domain.ErrUnexpectedResponse, path, err)
	}
	return record, nil
}

// DownloadSave streams the content of a record from its download path,
// falling back to the raw asset path of the file
func (c *Client) DownloadSave(ctx context.Context, itemType domain.ItemType, record domain.SaveRecord) (io.ReadCloser, error) {
	target, err := c.downloadURL(record)
	if err != nil {
		return nil, err
	}

	var body io.ReadCloser
	err = c.retry(ctx, "download", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retryable(ctx, transportError(ctx, err))
		}
		if err := checkResponse(resp); err != nil {
			resp.Body.Close()
			return retryableStatus(resp.StatusCode, err)
		}

		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) downloadURL(record domain.SaveRecord) (string, error) {
	raw := record.DownloadPath
	if raw == "" {
		if record.FilePath == "" {
			return "", fmt.Errorf("%w: record %d has no download path", domain.ErrUnexpectedResponse, record.ID)
		}
		raw = "/api/raw/assets/" + strings.TrimPrefix(record.FilePath, "/")
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw, nil
	}
	return c.baseURL + "/" + strings.TrimPrefix(encodePath(raw), "/"), nil
}

// encodePath escapes every path segment and query value of a server-supplied path
func encodePath(raw string) string {
	p, rawQuery, hasQuery := strings.Cut(raw, "?")

	segments := strings.Split(p, "/")
	for i, s := range segments {
		if s != "" {
			segments[i] = url.PathEscape(s)
		}
	}
	encoded := strings.Join(segments, "/")

	if !hasQuery {
		return encoded
	}

	params := strings.Split(rawQuery, "&")
	for i, param := range params {
		if key, value, ok := strings.Cut(param, "="); ok {
			params[i] = key + "=" + url.QueryEscape(value)
		}
	}
	return encoded + "?" + strings.Join(params, "&")
}

// DeleteSaves removes records by id
func (c *Client) DeleteSaves(ctx context.Context, itemType domain.ItemType, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	ep := endpointsFor(itemType)
	payload, err := json.Marshal(map[string][]int{ep.collection: ids})
	if err != nil {
		return fmt.Errorf("encode delete request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api/"+ep.collection+"/delete", nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	return checkResponse(resp)
}

// getJSON performs an idempotent GET with retries and decodes the body into out
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.endpoint(path, query)

	return c.retry(ctx, path, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return retryable(ctx, transportError(ctx, err))
		}
		defer resp.Body.Close()

		if err := checkResponse(resp); err != nil {
			return retryableStatus(resp.StatusCode, err)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: decode %s: %v", domain.ErrUnexpectedResponse, path, err))
		}
		return nil
	})
}

func (c *Client) retry(ctx context.Context, name string, op backoff.Operation) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryDelay
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retries)), ctx)

	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		logger.Get().Warn("Request failed, retrying", "request", name, "wait", wait, "error", err)
	})
}

func (c *Client) endpoint(path string, query url.Values) string {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// checkResponse maps a non-2xx status to a domain error
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%w: %s %s: %d %s", statusError(resp.StatusCode), resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, msg)
}

func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrPermissionDenied
	case http.StatusConflict:
		return domain.ErrAlreadyExists
	default:
		return domain.ErrUnexpectedResponse
	}
}

// retryableStatus keeps server errors and rate limits retryable
func retryableStatus(code int, err error) error {
	if code >= 500 || code == http.StatusTooManyRequests {
		return err
	}
	return backoff.Permanent(err)
}

func retryable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	return err
}

func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", domain.ErrNetworkError, err)
}

// Compile-time interface check
var _ adapter.RemoteAPI = (*Client)(nil)
