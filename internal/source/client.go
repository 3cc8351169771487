package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/oauth2"

	"skillsync/internal/logger"
)

var (
	// ErrRateLimited means the API quota is exhausted; retrying will not help.
	ErrRateLimited = errors.New("SRC_RATE_LIMIT: API rate limit exceeded")
	// ErrNotModified is returned by Revalidate when the validator still matches.
	ErrNotModified = errors.New("SRC_NOT_MODIFIED: remote unchanged")
)

const maxRetryAfter = 10 * time.Second

// ClientOptions configures a Client. Zero values fall back to public GitHub.
type ClientOptions struct {
	APIBase   string
	RawBase   string
	Token     string
	Timeout   time.Duration
	Attempts  uint
	UserAgent string
	// HTTPClient overrides the transport; tests use it with httptest.
	HTTPClient *http.Client
	// RetryDelay is the base backoff delay; 500ms when zero.
	RetryDelay time.Duration
}

// Client talks to the hosting API (listings, commits, revalidation) and the
// raw content CDN. Only API calls carry the access token.
type Client struct {
	api        *http.Client
	raw        *http.Client
	apiBase    string
	rawBase    string
	userAgent  string
	attempts   uint
	retryDelay time.Duration
}

// Entry is one item of a contents listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

func (e Entry) IsDir() bool { return e.Type == "dir" }

// Commit identifies the latest change to a path.
type Commit struct {
	SHA  string
	Date time.Time
}

// Short returns the seven-character revision marker.
func (c Commit) Short() string {
	if len(c.SHA) > 7 {
		return c.SHA[:7]
	}
	return c.SHA
}

func NewClient(opts ClientOptions) *Client {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	if opts.Timeout > 0 {
		clone := *base
		clone.Timeout = opts.Timeout
		base = &clone
	}
	api := base
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		api = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
		api.Timeout = base.Timeout
	}
	c := &Client{
		api:        api,
		raw:        base,
		apiBase:    strings.TrimRight(opts.APIBase, "/"),
		rawBase:    strings.TrimRight(opts.RawBase, "/"),
		userAgent:  opts.UserAgent,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
	}
	if c.apiBase == "" {
		c.apiBase = "https://api.github.com"
	}
	if c.rawBase == "" {
		c.rawBase = "https://raw.githubusercontent.com"
	}
	if c.userAgent == "" {
		c.userAgent = "skillsync"
	}
	if c.attempts == 0 {
		c.attempts = 3
	}
	if c.retryDelay <= 0 {
		c.retryDelay = 500 * time.Millisecond
	}
	return c
}

// ListDir lists one directory through the contents API.
func (c *Client) ListDir(ctx context.Context, owner, repo, dir, ref string) ([]Entry, error) {
	u := c.apiURL(path.Join("repos", owner, repo, "contents", dir), url.Values{"ref": {ref}})
	resp, err := c.get(ctx, c.api, u, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, fmt.Errorf("SRC_LIST: %s/%s/%s: status %d", owner, repo, dir, resp.status)
	}
	var entries []Entry
	if err := json.Unmarshal(resp.body, &entries); err != nil {
		return nil, fmt.Errorf("SRC_LIST: %s/%s/%s: %w", owner, repo, dir, err)
	}
	return entries, nil
}

// ListFiles returns every file path below dir using a single recursive tree
// request. A truncated tree is an error.
func (c *Client) ListFiles(ctx context.Context, owner, repo, dir, ref string) ([]string, error) {
	u := c.apiURL(path.Join("repos", owner, repo, "git", "trees", ref), url.Values{"recursive": {"1"}})
	resp, err := c.get(ctx, c.api, u, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, fmt.Errorf("SRC_TREE: %s/%s@%s: status %d", owner, repo, ref, resp.status)
	}
	var payload struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
		Truncated bool `json:"truncated"`
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return nil, fmt.Errorf("SRC_TREE: %s/%s@%s: %w", owner, repo, ref, err)
	}
	// A partial tree would install a package with files missing.
	if payload.Truncated {
		return nil, fmt.Errorf("SRC_TREE: %s/%s@%s: listing truncated", owner, repo, ref)
	}
	prefix := strings.Trim(dir, "/") + "/"
	var files []string
	for _, item := range payload.Tree {
		if item.Type == "blob" && strings.HasPrefix(item.Path, prefix) {
			files = append(files, item.Path)
		}
	}
	return files, nil
}

// FetchRaw downloads a file from the content CDN.
func (c *Client) FetchRaw(ctx context.Context, owner, repo, ref, file string) ([]byte, error) {
	u := c.rawBase + "/" + path.Join(owner, repo, ref, file)
	resp, err := c.get(ctx, c.raw, u, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, fmt.Errorf("SRC_RAW: %s: status %d", file, resp.status)
	}
	return resp.body, nil
}

// LatestCommit returns the newest commit touching file on ref.
func (c *Client) LatestCommit(ctx context.Context, owner, repo, file, ref string) (Commit, error) {
	q := url.Values{"path": {file}, "sha": {ref}, "per_page": {"1"}}
	u := c.apiURL(path.Join("repos", owner, repo, "commits"), q)
	resp, err := c.get(ctx, c.api, u, nil)
	if err != nil {
		return Commit{}, err
	}
	if resp.status != http.StatusOK {
		return Commit{}, fmt.Errorf("SRC_COMMITS: %s: status %d", file, resp.status)
	}
	var list []commitPayload
	if err := json.Unmarshal(resp.body, &list); err != nil {
		return Commit{}, fmt.Errorf("SRC_COMMITS: %s: %w", file, err)
	}
	if len(list) == 0 {
		return Commit{}, fmt.Errorf("SRC_COMMITS: %s: no history", file)
	}
	return list[0].commit(), nil
}

// Revalidate asks for the head commit of branch with an If-None-Match
// validator. It returns ErrNotModified on 304, otherwise the fresh ETag.
func (c *Client) Revalidate(ctx context.Context, owner, repo, branch, etag string) (string, error) {
	u := c.apiURL(path.Join("repos", owner, repo, "commits", branch), nil)
	var header http.Header
	if etag != "" {
		header = http.Header{"If-None-Match": {etag}}
	}
	resp, err := c.get(ctx, c.api, u, header)
	if err != nil {
		return "", err
	}
	switch resp.status {
	case http.StatusNotModified:
		return etag, ErrNotModified
	case http.StatusOK:
		return resp.header.Get("ETag"), nil
	default:
		return "", fmt.Errorf("SRC_REVALIDATE: %s/%s@%s: status %d", owner, repo, branch, resp.status)
	}
}

type commitPayload struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

func (p commitPayload) commit() Commit {
	return Commit{SHA: p.SHA, Date: p.Commit.Committer.Date}
}

func (c *Client) apiURL(p string, q url.Values) string {
	u := c.apiBase + "/" + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// statusError marks a response worth retrying.
type statusError struct {
	status     int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("SRC_HTTP: status %d", e.status)
}

func (c *Client) get(ctx context.Context, hc *http.Client, fullURL string, header http.Header) (response, error) {
	var out response
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "application/vnd.github+json")
			for k, v := range header {
				req.Header[k] = v
			}
			resp, err := hc.Do(req)
			if err != nil {
				return err
			}
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if isRateLimited(resp) {
				return retry.Unrecoverable(ErrRateLimited)
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &statusError{status: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
			}
			out = response{status: resp.StatusCode, header: resp.Header, body: body}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryAfter),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, cfg *retry.Config) time.Duration {
			var se *statusError
			if errors.As(err, &se) && se.retryAfter > 0 {
				return se.retryAfter
			}
			return retry.BackOffDelay(n, err, cfg)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("url", fullURL).WithField("attempt", n+1).Debug("retrying request")
		}),
	)
	if err != nil {
		if errors.Is(err, ErrRateLimited) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return response{}, err
		}
		return response{}, fmt.Errorf("SRC_HTTP: %s: %w", fullURL, err)
	}
	return out, nil
}

func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return resp.Header.Get("X-RateLimit-Remaining") == "0"
}

func parseRetryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs < 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}
