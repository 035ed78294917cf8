// Package httpclient provides an HTTP client with basic SSRF protection for
// outbound API calls: scheme allow-listing, private-IP blocking, and a
// bounded redirect chain.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/basharArif/prompt-architect-demo/errors"
)

// SaferClient wraps http.Client with SSRF protection
type SaferClient struct {
	*http.Client
	allowedSchemes []string
	blockPrivateIP bool
	maxRedirects   int
}

// Options controls SaferClient protections.
type Options struct {
	// BlockPrivateIP blocks connections resolving to private or loopback
	// addresses. Defaults to true; set false for local inference endpoints.
	BlockPrivateIP *bool
}

// New creates an HTTP client with default SSRF protection.
func New(timeout time.Duration) *SaferClient {
	return NewWithOptions(timeout, Options{})
}

// NewWithOptions creates an HTTP client with custom SSRF protection options.
func NewWithOptions(timeout time.Duration, opts Options) *SaferClient {
	blockPrivate := true
	if opts.BlockPrivateIP != nil {
		blockPrivate = *opts.BlockPrivateIP
	}

	client := &SaferClient{
		Client: &http.Client{
			Timeout: timeout,
		},
		allowedSchemes: []string{"http", "https"},
		blockPrivateIP: blockPrivate,
		maxRedirects:   10,
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= client.maxRedirects {
			return errors.Newf("stopped after %d redirects", client.maxRedirects)
		}
		if err := client.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	client.Transport = &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}

			if client.blockPrivateIP {
				ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if isPrivateIP(ip) {
						return nil, errors.Newf("private IP address blocked: %s", ip)
					}
				}
			}

			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return client
}

// validateURL rejects disallowed schemes and obviously dangerous hosts.
func (c *SaferClient) validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range c.allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed", u.Scheme)
	}

	if c.blockPrivateIP {
		if ip := net.ParseIP(u.Hostname()); ip != nil && isPrivateIP(ip) {
			return errors.Newf("private IP address blocked: %s", ip)
		}
	}

	return nil
}

// isPrivateIP reports whether ip is loopback, link-local, or RFC1918/ULA.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified()
}
