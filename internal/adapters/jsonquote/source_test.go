package jsonquote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paperdesk/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newSource(t *testing.T, path string, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := New(Config{URL: srv.URL + "/quote/{symbol}", PricePath: path, Logger: &mockLogger{}})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"no logger", Config{URL: "http://x/{symbol}"}, true},
		{"no placeholder", Config{URL: "http://x/quote", Logger: &mockLogger{}}, true},
		{"ok", Config{URL: "http://x/{symbol}", Logger: &mockLogger{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultPricePath, s.path)
		})
	}
}

func TestGetPrice_Paths(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"top level number", "price", `{"price": 101.25}`, "101.25"},
		{"top level string", "price", `{"price": "99.5"}`, "99.5"},
		{"nested", "data.last", `{"data": {"last": "42"}}`, "42"},
		{"array element", "quotes.0.px", `{"quotes": [{"px": 7.5}, {"px": 8}]}`, "7.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSource(t, tt.path, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/quote/AAPL", r.URL.Path)
				fmt.Fprint(w, tt.body)
			})
			q, err := s.GetPrice(context.Background(), "aapl")
			require.NoError(t, err)
			require.NotNil(t, q)
			assert.Equal(t, "AAPL", q.Symbol)
			assert.Equal(t, SourceName, q.Source)
			assert.True(t, q.Price.Equal(decimal.RequireFromString(tt.want)), "got %s", q.Price)
		})
	}
}

func TestGetPrice_NoPrice(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":"unknown"}`},
		{"missing path", http.StatusOK, `{"bid": 10}`},
		{"zero price", http.StatusOK, `{"price": 0}`},
		{"negative price", http.StatusOK, `{"price": -3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSource(t, "price", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			q, err := s.GetPrice(context.Background(), "AAPL")
			assert.NoError(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestGetPrice_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `oops`, ports.ErrQuoteUnavailable},
		{"rate limited", http.StatusTooManyRequests, ``, ports.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ``, ports.ErrAuthenticationFailed},
		{"invalid json", http.StatusOK, `price=1`, ports.ErrQuoteUnavailable},
		{"non numeric", http.StatusOK, `{"price": "soon"}`, ports.ErrQuoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSource(t, "price", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := s.GetPrice(context.Background(), "AAPL")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetPrice_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	s := newSource(t, "price", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.GetPrice(ctx, "AAPL")
	assert.ErrorIs(t, err, ports.ErrTimeout)
}

func TestGetPrice_ConnectionFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	s, err := New(Config{URL: base + "/{symbol}", Logger: &mockLogger{}})
	require.NoError(t, err)
	_, err = s.GetPrice(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}
