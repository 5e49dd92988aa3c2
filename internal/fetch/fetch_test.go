package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><table class=\"priceTable\"></table></body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchers(t *testing.T) {
	srv := newTestServer(t)

	for _, kind := range []string{KindColly, KindResty} {
		t.Run(kind, func(t *testing.T) {
			f, err := New(kind, 5*time.Second, zerolog.Nop())
			require.NoError(t, err)

			body, err := f.Fetch(context.Background(), srv.URL+"/ok")
			require.NoError(t, err)
			require.Contains(t, string(body), "priceTable")

			_, err = f.Fetch(context.Background(), srv.URL+"/missing")
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrStatus))

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			require.Equal(t, http.StatusNotFound, statusErr.Code)
		})
	}
}

func TestFetchers_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	for _, kind := range []string{KindColly, KindResty} {
		t.Run(kind, func(t *testing.T) {
			f, err := New(kind, time.Second, zerolog.Nop())
			require.NoError(t, err)

			_, err = f.Fetch(context.Background(), url)
			require.Error(t, err)
			require.False(t, errors.Is(err, ErrStatus))
		})
	}
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New("chrome", time.Second, zerolog.Nop())
	require.Error(t, err)
}
