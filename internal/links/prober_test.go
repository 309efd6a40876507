package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbe_OKViaHead(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := probe(context.Background(), srv.Client(), srv.URL)
	if !res.OK || res.HTTPCode != http.StatusOK || res.Transient {
		t.Fatalf("res = %+v", res)
	}
	if method != http.MethodHead {
		t.Errorf("probed with %s, want HEAD first", method)
	}
}

func TestProbe_FallsBackToGet(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := probe(context.Background(), srv.Client(), srv.URL)
	if !res.OK {
		t.Fatalf("res = %+v", res)
	}
	if len(methods) != 2 || methods[0] != http.MethodHead || methods[1] != http.MethodGet {
		t.Errorf("methods = %v", methods)
	}
}

func TestProbe_NotFoundIsHard(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := probe(context.Background(), srv.Client(), srv.URL+"/gone")
	if res.OK || res.Transient || res.HTTPCode != http.StatusNotFound {
		t.Fatalf("res = %+v", res)
	}
}

func TestProbe_RateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res := probe(context.Background(), srv.Client(), srv.URL)
	if res.OK || !res.Transient || res.Reason != "rate limited" {
		t.Fatalf("res = %+v", res)
	}
}

func TestProbe_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Timeout: 50 * time.Millisecond}
	res := probe(context.Background(), client, srv.URL)
	if res.OK || !res.Transient {
		t.Fatalf("res = %+v", res)
	}
}

func TestHeadRejected(t *testing.T) {
	for _, code := range []int{400, 401, 403, 405, 501} {
		if !headRejected(code) {
			t.Errorf("%d should trigger the GET fallback", code)
		}
	}
	for _, code := range []int{200, 404, 429, 500, 503} {
		if headRejected(code) {
			t.Errorf("%d should not trigger the GET fallback", code)
		}
	}
}
