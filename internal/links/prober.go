package links

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const userAgent = "raido-linkcheck/1.0"

// privateNets covers loopback, RFC 1918, link-local, and ULA ranges. Any URL
// resolving into one of them is rejected before a single byte is sent,
// regardless of what the target would answer.
var privateNets = mustParseNets(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseNets(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

// isPrivateIP reports whether ip falls in a blocked range.
func isPrivateIP(ip net.IP) bool {
	if ip.IsUnspecified() {
		return true
	}
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// hostIsPrivate resolves host and reports whether any of its addresses is
// loopback or private. Literal localhost names are private without lookup.
func hostIsPrivate(ctx context.Context, host string) (bool, error) {
	if host == "" {
		return true, nil
	}
	switch host {
	case "localhost", "localhost.localdomain", "0.0.0.0":
		return true, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return isPrivateIP(ip), nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return false, err
	}
	for _, a := range addrs {
		if isPrivateIP(a.IP) {
			return true, nil
		}
	}
	return false, nil
}

// probeResult is the outcome of one external check.
type probeResult struct {
	OK       bool
	HTTPCode int
	FinalURL string
	Reason   string
	// Transient marks timeouts and rate-limit responses, which classify as
	// warnings unless strict mode is on.
	Transient bool
}

// newHTTPClient builds the probing client. Redirect hops re-check the target
// host so a public URL cannot bounce the prober into a private network.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			private, err := hostIsPrivate(req.Context(), req.URL.Hostname())
			if err != nil {
				return err
			}
			if private {
				return errors.New("redirect into private address range")
			}
			return nil
		},
	}
}

// probe performs the lightweight HEAD check, falling back to GET when the
// remote host rejects HEAD.
func probe(ctx context.Context, client *http.Client, url string) probeResult {
	res := probeOnce(ctx, client, http.MethodHead, url)
	if !res.OK && headRejected(res.HTTPCode) {
		res = probeOnce(ctx, client, http.MethodGet, url)
	}
	return res
}

func headRejected(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

func probeOnce(ctx context.Context, client *http.Client, method, url string) probeResult {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return probeResult{Reason: fmt.Sprintf("bad request: %v", err)}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return probeResult{Reason: "timeout", Transient: true}
		}
		if ctx.Err() != nil {
			return probeResult{Reason: "cancelled", Transient: true}
		}
		return probeResult{Reason: err.Error()}
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return probeResult{OK: true, HTTPCode: resp.StatusCode, FinalURL: final, Reason: "ok"}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return probeResult{HTTPCode: resp.StatusCode, FinalURL: final, Reason: "rate limited", Transient: true}
	}
	return probeResult{HTTPCode: resp.StatusCode, FinalURL: final, Reason: fmt.Sprintf("http %d", resp.StatusCode)}
}
