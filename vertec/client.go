package vertec

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const Version = "0.1.0"

var UserAgent = fmt.Sprintf("vertec-timesheets/%s", Version)

const (
	DefaultAuthTimeout  = 5 * time.Second
	DefaultQueryTimeout = 30 * time.Second
)

type ClientOption func(*Client)

func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		c.insecureSkipVerify = true
	}
}

func WithCertPool(certPool *x509.CertPool) ClientOption {
	return func(c *Client) {
		c.certPool = certPool
	}
}

func WithAuthTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.authTimeout = d
	}
}

func WithQueryTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.queryTimeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client entirely. TLS options
// are ignored when this is set.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client talks to a single Vertec server instance. It is safe for
// sequential reuse across any number of queries with the same token.
type Client struct {
	endpoint           string
	insecureSkipVerify bool
	certPool           *x509.CertPool
	httpClient         *http.Client
	authTimeout        time.Duration
	queryTimeout       time.Duration
}

func NewClient(endpoint string, options ...ClientOption) *Client {
	client := &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		authTimeout:  DefaultAuthTimeout,
		queryTimeout: DefaultQueryTimeout,
	}

	for _, option := range options {
		option(client)
	}

	if client.httpClient == nil {
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: client.insecureSkipVerify,
				RootCAs:            client.certPool,
			},
		}
		client.httpClient = &http.Client{
			Transport: &customTransport{
				t: transport,
			},
		}
	}

	return client
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// set User-Agent for all requests
type customTransport struct {
	t http.RoundTripper
}

func (c *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("user-agent", UserAgent)
	return c.t.RoundTrip(req)
}
