package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/prepwise/website-e2e/framework"
	"github.com/prepwise/website-e2e/servicedef"
)

// StatusError is returned when the backend answers with an unexpected HTTP status.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned HTTP %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s returned HTTP %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client talks to the backend's test-data API.
type Client struct {
	baseURL   string
	requester Requester
	logger    framework.Logger
}

func NewClient(backendURL string, requester Requester, logger framework.Logger) *Client {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Client{
		baseURL:   strings.TrimSuffix(backendURL, "/"),
		requester: requester,
		logger:    logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) CreateMockTest(ctx context.Context, params servicedef.CreateMockTestParams) (servicedef.MockTest, error) {
	var m servicedef.MockTest
	err := c.send(ctx, http.MethodPost, servicedef.MockTestPath, params, &m)
	if err == nil && m.ID == "" {
		err = fmt.Errorf("backend created a mock test without an id")
	}
	return m, err
}

// GetMockTest looks up a mock test. The second return value is false if it does not exist.
func (c *Client) GetMockTest(ctx context.Context, id string) (servicedef.MockTest, bool, error) {
	var m servicedef.MockTest
	err := c.send(ctx, http.MethodGet, itemPath(servicedef.MockTestPath, id), nil, &m)
	if IsNotFound(err) {
		return servicedef.MockTest{}, false, nil
	}
	if err != nil {
		return servicedef.MockTest{}, false, err
	}
	if m.ID == "" {
		m.ID = servicedef.ID(id)
	}
	return m, true, nil
}

// DeleteMockTest deletes a mock test. Deleting one that is already gone is not an error.
func (c *Client) DeleteMockTest(ctx context.Context, id string) error {
	err := c.send(ctx, http.MethodDelete, itemPath(servicedef.MockTestPath, id), nil, nil)
	if IsNotFound(err) {
		c.logger.Printf("Mock test %s was already deleted", id)
		return nil
	}
	return err
}

// Cleanup asks the backend to remove everything created by test runs.
func (c *Client) Cleanup(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, servicedef.CleanupPath, servicedef.CleanupParams{TestRun: true}, nil)
}

func (c *Client) CreateTestUser(ctx context.Context, params servicedef.CreateTestUserParams) (servicedef.TestUser, error) {
	var u servicedef.TestUser
	err := c.send(ctx, http.MethodPost, servicedef.TestUserPath, params, &u)
	if err == nil && u.ID == "" {
		err = fmt.Errorf("backend created a test user without an id")
	}
	return u, err
}

// GetTestUser looks up a test user. The second return value is false if it does not exist.
func (c *Client) GetTestUser(ctx context.Context, id string) (servicedef.TestUser, bool, error) {
	var u servicedef.TestUser
	err := c.send(ctx, http.MethodGet, itemPath(servicedef.TestUserPath, id), nil, &u)
	if IsNotFound(err) {
		return servicedef.TestUser{}, false, nil
	}
	if err != nil {
		return servicedef.TestUser{}, false, err
	}
	if u.ID == "" {
		u.ID = servicedef.ID(id)
	}
	return u, true, nil
}

// DeleteTestUser deletes a test user. Deleting one that is already gone is not an error.
func (c *Client) DeleteTestUser(ctx context.Context, id string) error {
	err := c.send(ctx, http.MethodDelete, itemPath(servicedef.TestUserPath, id), nil, nil)
	if IsNotFound(err) {
		c.logger.Printf("Test user %s was already deleted", id)
		return nil
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, result interface{}) error {
	req := Request{Method: method, URL: c.baseURL + path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.Body = data
		req.Headers = map[string]string{"Content-Type": "application/json"}
		c.logger.Printf("%s %s %s", method, req.URL, string(data))
	} else {
		c.logger.Printf("%s %s", method, req.URL)
	}

	resp, err := c.requester.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, req.URL, err)
	}
	c.logger.Printf("  => HTTP %d", resp.Status)
	if !resp.OK() {
		return &StatusError{
			Method: method,
			URL:    req.URL,
			Status: resp.Status,
			Body:   servicedef.DecodeError(resp.Body),
		}
	}
	if result != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("malformed response from %s %s: %w", method, req.URL, err)
		}
	}
	return nil
}

func itemPath(base, id string) string {
	return base + "/" + url.PathEscape(id)
}

// IsNotFound reports whether err is a StatusError with status 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}
