package vertec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// AuthError is returned when the token exchange fails, either because the
// server rejected the credentials (StatusCode set) or because the call never
// completed (wrapped cause set).
type AuthError struct {
	Username   string
	StatusCode int
	Detail     string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authenticating %q: %v", e.Username, e.Err)
	}
	return fmt.Sprintf("authenticating %q: http status %d: %s", e.Username, e.StatusCode, e.Detail)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Authenticate exchanges the credentials for an opaque session token. The
// server returns the token as plain text; the body is passed through
// verbatim. The token is valid for the process lifetime, there is no
// refresh.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.authTimeout)
	defer cancel()

	form := url.Values{
		"vertec_username": {username},
		"password":        {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/auth/xml", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Username: username, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Username: username, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Username: username, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthError{Username: username, StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	slog.Debug("retrieved auth token", "endpoint", c.endpoint, "username", username)
	return string(body), nil
}
