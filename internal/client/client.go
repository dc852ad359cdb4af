// Package client talks to the Campus Connect HTTP API and keeps the session
// cookie between process runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"campusconnect/internal/dto"
	"campusconnect/internal/model"
)

// APIError is a non-2xx answer carrying the server's message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	base      *url.URL
	http      *http.Client
	jar       http.CookieJar
	statePath string
}

// New returns a client for baseURL. When statePath is set the session
// cookie is read from and written back to that file.
func New(baseURL, statePath string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:      base,
		jar:       jar,
		http:      &http.Client{Jar: jar, Timeout: 15 * time.Second},
		statePath: statePath,
	}
	if err := c.loadCookies(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Login(ctx context.Context, srn, password string) (*model.Principal, error) {
	var resp dto.UserResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", dto.LoginRequest{SRN: srn, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) AdminLogin(ctx context.Context, adminID, password string) (*model.Principal, error) {
	var resp dto.UserResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/admin-login", dto.AdminLoginRequest{AdminID: adminID, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Me returns the current principal, or nil when the session is anonymous.
func (c *Client) Me(ctx context.Context) (*model.Principal, error) {
	var resp dto.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Events(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := c.do(ctx, http.MethodGet, "/api/events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GroupedEvents(ctx context.Context) ([]model.CategoryGroup, error) {
	var resp dto.GroupedEventsResponse
	if err := c.do(ctx, http.MethodGet, "/api/events?grouped=true", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// Event looks an event up by id or by title/category text.
func (c *Client) Event(ctx context.Context, idOrText string) (*model.Event, error) {
	var e model.Event
	if err := c.do(ctx, http.MethodGet, "/api/events/"+url.PathEscape(idOrText), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*model.Event, error) {
	var e model.Event
	if err := c.do(ctx, http.MethodPost, "/api/events", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEvent applies the set fields of req to the event.
func (c *Client) UpdateEvent(ctx context.Context, id string, req dto.UpdateEventRequest) (*model.Event, error) {
	var resp dto.EventUpdatedResponse
	if err := c.do(ctx, http.MethodPut, "/api/events/"+url.PathEscape(id), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Event, nil
}

// UploadImage sends the file at path as the "image" form field and returns
// the URL the server serves it under.
func (c *Client) UploadImage(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+"/api/events/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp dto.UploadResponse
	if err := c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/events/"+url.PathEscape(id), nil, nil)
}

// Register returns the server's acknowledgement ("registered" or
// "already registered").
func (c *Client) Register(ctx context.Context, eventID string) (string, error) {
	var resp dto.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/events/"+url.PathEscape(eventID)+"/register", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) Mine(ctx context.Context) ([]model.Event, error) {
	var resp dto.MineResponse
	if err := c.do(ctx, http.MethodGet, "/api/events/mine", nil, &resp); err != nil {
		return nil, err
	}
	return resp.RegisteredEvents, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if err := c.saveCookies(); err != nil {
		return err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg dto.MessageResponse
		_ = json.Unmarshal(raw, &msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (c *Client) loadCookies() error {
	if c.statePath == "" {
		return nil
	}
	raw, err := os.ReadFile(c.statePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session state: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("decode session state: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.jar.SetCookies(c.base, cookies)
	return nil
}

func (c *Client) saveCookies() error {
	if c.statePath == "" {
		return nil
	}
	cookies := c.jar.Cookies(c.base)
	if len(cookies) == 0 {
		if err := os.Remove(c.statePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear session state: %w", err)
		}
		return nil
	}

	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.statePath), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(c.statePath, raw, 0o600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return nil
}
