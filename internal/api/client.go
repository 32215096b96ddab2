// Package api is the HTTP client for the posts service.
package api

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

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.postfeed/internal/credential"
	"uk.co.dudmesh.postfeed/internal/model"
)

const DefaultBaseURL = "http://localhost:8080/api/facebook/posts"

// ServerError is returned when the service answers with a non-2xx status, or
// with a 2xx whose body is not the record that was asked for.
type ServerError struct {
	Status int
	// Message is body.message, or the body itself when it is a JSON string.
	Message string
	// Body is the raw response body.
	Body string
}

func (e *ServerError) Error() string {
	if e.Status >= 200 && e.Status < 300 {
		return fmt.Sprintf("invalid response with status code %d", e.Status)
	}
	return fmt.Sprintf("request failed with status code %d", e.Status)
}

const invalidResponseMessage = "Server returned an invalid response."

func invalidResponse(status int, body []byte) *ServerError {
	return &ServerError{
		Status:  status,
		Message: invalidResponseMessage,
		Body:    strings.TrimSpace(string(body)),
	}
}

// TransportError is returned when the request did not complete.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client implements the four operations of the posts service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials credential.Provider
	logger      *log.Logger
}

// NewClient creates a client for the collection at baseURL. A nil provider
// sends no credential.
func NewClient(baseURL string, credentials credential.Provider, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if credentials == nil {
		credentials = credential.None
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		credentials: credentials,
		logger:      log.New("api"),
	}
}

func (c *Client) ListPosts(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := c.do(ctx, http.MethodGet, c.baseURL, nil, &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

type createRequest struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

func (c *Client) CreatePost(ctx context.Context, input model.PostInput) (*model.Post, error) {
	body := createRequest{Content: input.Content, ImageURL: input.ImageURL}

	var post model.Post
	if err := c.do(ctx, http.MethodPost, c.baseURL, body, &post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id model.PostID, patch model.PostInput) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodPut, c.postURL(id), patch, &post); err != nil {
		return nil, fmt.Errorf("update post %s: %w", id, err)
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id model.PostID) error {
	if err := c.do(ctx, http.MethodDelete, c.postURL(id), nil, nil); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

func (c *Client) postURL(id model.PostID) string {
	return c.baseURL + "/" + url.PathEscape(string(id))
}

func (c *Client) do(ctx context.Context, method, target string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.credentials.Credential(ctx)
	if err != nil {
		// a broken credential store must not block the request
		c.logger.Warnf("reading credential: %+v", err)
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newServerError(resp.StatusCode, respBody)
	}

	if result == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			c.logger.Warnf("unmarshal response: %+v", err)
			return invalidResponse(resp.StatusCode, respBody)
		}
	}
	// an empty or null body leaves a post without an id
	if post, ok := result.(*model.Post); ok && post.ID == "" {
		return invalidResponse(resp.StatusCode, respBody)
	}

	return nil
}

func newServerError(status int, body []byte) *ServerError {
	e := &ServerError{
		Status: status,
		Body:   strings.TrimSpace(string(body)),
	}

	var asObject struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &asObject); err == nil {
		if s, ok := asObject.Message.(string); ok {
			e.Message = strings.TrimSpace(s)
		} else if asObject.Message != nil {
			e.Message = fmt.Sprint(asObject.Message)
		}
		return e
	}

	var asString string
	if err := json.Unmarshal(body, &asString); err == nil {
		e.Message = strings.TrimSpace(asString)
	}
	return e
}
