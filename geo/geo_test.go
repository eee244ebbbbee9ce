package geo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientLocate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/192.0.2.10" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"status": "success",
			"city": "Mountain View",
			"regionName": "California",
			"country": "United States",
			"query": "192.0.2.10"
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	loc, err := c.Locate(context.Background(), net.ParseIP("192.0.2.10"))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	want := "Mountain View, California, United States (IP: 192.0.2.10)"
	if got := loc.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestClientLocateFailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "fail", "message": "reserved range", "query": "127.0.0.1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Locate(context.Background(), net.ParseIP("127.0.0.1"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestClientLocateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	if _, err := c.Locate(context.Background(), net.ParseIP("192.0.2.10")); err == nil {
		t.Error("expected error on HTTP 429")
	}
}

func TestClientLocateNilIP(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.Locate(context.Background(), nil); err == nil {
		t.Error("expected error for nil IP")
	}
}

func TestMock(t *testing.T) {
	m := &Mock{Locations: map[string]Location{
		"192.0.2.10": {City: "Dublin", Region: "Leinster", Country: "Ireland", IP: "192.0.2.10"},
	}}

	loc, err := m.Locate(context.Background(), net.ParseIP("192.0.2.10"))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.Country != "Ireland" {
		t.Errorf("country = %q", loc.Country)
	}

	if _, err := m.Locate(context.Background(), net.ParseIP("192.0.2.99")); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
