package vertec_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertec-tools/timesheets/vertec"
)

func TestAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/xml", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("vertec_username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))

		w.Write([]byte("opaque-session-token"))
	}))
	defer server.Close()

	client := vertec.NewClient(server.URL)
	token, err := client.Authenticate(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "opaque-session-token", token, "token body is passed through verbatim")
}

func TestAuthenticateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "wrong credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := vertec.NewClient(server.URL)
	_, err := client.Authenticate(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var authErr *vertec.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, "alice", authErr.Username)
	assert.Contains(t, authErr.Detail, "wrong credentials")
}

func TestAuthenticateTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := vertec.NewClient(server.URL)
	_, err := client.Authenticate(context.Background(), "alice", "s3cret")
	require.Error(t, err)

	var authErr *vertec.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.StatusCode)
	assert.Error(t, authErr.Unwrap(), "the transport cause is preserved")
}
