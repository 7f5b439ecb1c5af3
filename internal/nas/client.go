// Package nas talks to the NAS file manager API that holds order folders.
// All calls share one session token kept in a SessionStore, and an expired
// session is renewed transparently once per call.
package nas

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobflow-backend/internal/metrics"
)

const (
	loginPath   = "/cgi-bin/filemanager/wfm2Login.cgi"
	requestPath = "/cgi-bin/filemanager/utilRequest.cgi"

	DefaultTimeout = 30 * time.Second
	listPageSize   = 500
)

// Storage API functions
const (
	funcList      = "get_list"
	funcCreateDir = "createdir"
	funcRename    = "rename"
	funcMove      = "move"
	funcDelete    = "delete"
)

// move mode: skip files that already exist at the destination
const moveModeSkip = "1"

type Config struct {
	Protocol string
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// BaseURL is protocol://host[:port]
func (c Config) BaseURL() string {
	protocol := c.Protocol
	if protocol == "" {
		protocol = "http"
	}
	if c.Port > 0 {
		return fmt.Sprintf("%s://%s:%d", protocol, c.Host, c.Port)
	}
	return fmt.Sprintf("%s://%s", protocol, c.Host)
}

// FileInfo is one entry of a folder listing.
type FileInfo struct {
	Name     string `json:"name"`
	IsFolder bool   `json:"is_folder"`
}

type apiEntry struct {
	FileName string `json:"filename"`
	IsFolder int    `json:"isfolder"`
}

type apiResponse struct {
	Status int        `json:"status"`
	SID    string     `json:"sid"`
	Total  int        `json:"total"`
	Datas  []apiEntry `json:"datas"`
}

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	sessions   SessionStore
	now        func() time.Time
}

func NewClient(cfg Config, sessions SessionStore) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL(), "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sessions:   sessions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates with the configured credentials and stores the new
// session. The password travels base64-encoded and is not URL-escaped.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	var q query
	q.add("user", c.cfg.Username)
	q.addRaw("pwd", base64.StdEncoding.EncodeToString([]byte(c.cfg.Password)))

	resp, err := c.get(ctx, loginPath, q, "login")
	if err != nil {
		return nil, err
	}
	if resp.SID == "" {
		return nil, &RemoteError{Status: resp.Status, Message: "login returned no session id", Context: "login"}
	}

	session := &Session{SID: resp.SID, CreatedAt: c.now()}
	if err := c.sessions.Set(ctx, session); err != nil {
		log.Printf("[NAS] Warning: failed to store session: %v", err)
	}
	log.Printf("[NAS] Logged in to %s as %s", c.cfg.Host, c.cfg.Username)
	return session, nil
}

// session returns the stored session, logging in when none exists.
func (c *Client) session(ctx context.Context) (*Session, error) {
	s, err := c.sessions.Get(ctx)
	if err != nil {
		log.Printf("[NAS] Warning: session store unavailable, logging in: %v", err)
	}
	if s != nil && s.SID != "" {
		return s, nil
	}
	return c.Login(ctx)
}

// call runs fn with the shared session. An expired session is cleared,
// renewed and the call repeated exactly once.
func (c *Client) call(ctx context.Context, fn string, q query) (*apiResponse, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.request(ctx, fn, s.SID, q)
	if !IsStatus(err, StatusSessionExpired) {
		return resp, err
	}

	log.Printf("[NAS] Session expired during %s, re-authenticating", fn)
	metrics.NASReauthTotal.Inc()
	if err := c.sessions.Clear(ctx); err != nil {
		log.Printf("[NAS] Warning: failed to clear session: %v", err)
	}
	s, err = c.Login(ctx)
	if err != nil {
		return nil, err
	}
	return c.request(ctx, fn, s.SID, q)
}

func (c *Client) request(ctx context.Context, fn, sid string, q query) (*apiResponse, error) {
	full := query{{key: "func", value: fn}, {key: "sid", value: sid}}
	full = append(full, q...)
	return c.get(ctx, requestPath, full, fn)
}

func (c *Client) get(ctx context.Context, path string, q query, name string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("nas %s: build request: %w", name, err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NASRequestsTotal.WithLabelValues(name, "transport").Inc()
		return nil, fmt.Errorf("nas %s: %w", name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		metrics.NASRequestsTotal.WithLabelValues(name, "http_"+strconv.Itoa(httpResp.StatusCode)).Inc()
		return nil, fmt.Errorf("nas %s: unexpected HTTP status %d", name, httpResp.StatusCode)
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		metrics.NASRequestsTotal.WithLabelValues(name, "decode").Inc()
		return nil, fmt.Errorf("nas %s: decode response: %w", name, err)
	}

	if resp.Status != StatusOK {
		metrics.NASRequestsTotal.WithLabelValues(name, strconv.Itoa(resp.Status)).Inc()
		return nil, newRemoteError(resp.Status, name)
	}
	metrics.NASRequestsTotal.WithLabelValues(name, "ok").Inc()
	return &resp, nil
}

// List returns every entry of dir, following pages until the reported total
// is reached.
func (c *Client) List(ctx context.Context, dir string) ([]FileInfo, error) {
	var files []FileInfo
	for start := 0; ; start += listPageSize {
		var q query
		q.add("path", dir)
		q.add("list_mode", "all")
		q.add("start", strconv.Itoa(start))
		q.add("limit", strconv.Itoa(listPageSize))

		resp, err := c.call(ctx, funcList, q)
		if err != nil {
			return nil, err
		}
		for _, d := range resp.Datas {
			files = append(files, FileInfo{Name: d.FileName, IsFolder: d.IsFolder == 1})
		}
		if len(resp.Datas) == 0 || len(files) >= resp.Total {
			return files, nil
		}
	}
}

// CreateFolder creates name under parent. An existing folder is success.
func (c *Client) CreateFolder(ctx context.Context, parent, name string) error {
	var q query
	q.add("dest_folder", name)
	q.add("dest_path", parent)

	_, err := c.call(ctx, funcCreateDir, q)
	if IsStatus(err, StatusExists, StatusNameDuplicated) {
		return nil
	}
	return err
}

func (c *Client) Rename(ctx context.Context, dir, oldName, newName string) error {
	var q query
	q.add("path", dir)
	q.add("source_name", oldName)
	q.add("dest_name", newName)

	_, err := c.call(ctx, funcRename, q)
	return err
}

// Move moves files from srcDir into destDir, skipping any file that already
// exists at the destination.
func (c *Client) Move(ctx context.Context, srcDir string, files []string, destDir string) error {
	if len(files) == 0 {
		return nil
	}
	var q query
	for _, f := range files {
		q.add("source_file", f)
	}
	q.add("source_total", strconv.Itoa(len(files)))
	q.add("source_path", srcDir)
	q.add("dest_path", destDir)
	q.add("mode", moveModeSkip)

	_, err := c.call(ctx, funcMove, q)
	return err
}

func (c *Client) Delete(ctx context.Context, dir string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	var q query
	q.add("path", dir)
	for _, f := range files {
		q.add("file_name", f)
	}
	q.add("file_total", strconv.Itoa(len(files)))

	_, err := c.call(ctx, funcDelete, q)
	return err
}

// Ping verifies connectivity and credentials by logging in.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Login(ctx)
	return err
}

type param struct {
	key   string
	value string
	raw   bool
}

// query is an ordered parameter list. Repeated keys stay repeated.
type query []param

func (q *query) add(key, value string) {
	*q = append(*q, param{key: key, value: value})
}

func (q *query) addRaw(key, value string) {
	*q = append(*q, param{key: key, value: value, raw: true})
}

func (q query) encode() string {
	parts := make([]string, 0, len(q))
	for _, p := range q {
		v := p.value
		if !p.raw {
			v = escape(v)
		}
		parts = append(parts, escape(p.key)+"="+v)
	}
	return strings.Join(parts, "&")
}

// escape is URI component encoding: spaces become %20, not +.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
