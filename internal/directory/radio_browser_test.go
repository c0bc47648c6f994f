package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"perimeterd/internal/structures"
	"perimeterd/internal/testutil"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc, tweak ...func(*structures.DirectoryConfig)) *RadioBrowser {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	conf := &structures.Config{Directory: structures.DirectoryConfig{
		BaseURL:   srv.URL + "/json/",
		UserAgent: "perimeterd-test",
		Timeout:   time.Second,
	}}
	for _, fn := range tweak {
		fn(&conf.Directory)
	}
	return NewRadioBrowser(conf, &testutil.MockLogger{})
}

func TestSearch_DecodesAndValidates(t *testing.T) {
	var gotPath, gotUA string
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[
			{"name":" Jazz FM ","country":"UK","bitrate":128,"tags":"jazz","url":"http://a","url_resolved":"https://jazz.example/s"},
			{"name":"","country":"","bitrate":0,"tags":"","url":"http://plain.example/s","url_resolved":""},
			{"name":"Local","url_resolved":"http://127.0.0.1/s"},
			{"name":"Rtmp","url_resolved":"rtmp://x/s"},
			{"name":"NoURL"}
		]`))
	})

	stations, err := rb.Search(context.Background(), "smooth jazz")
	require.NoError(t, err)
	assert.Equal(t, "/json/stations/byname/smooth%20jazz", gotPath)
	assert.Equal(t, "perimeterd-test", gotUA)

	require.Len(t, stations, 2)
	assert.Equal(t, "Jazz FM", stations[0].Name)
	assert.Equal(t, "https://jazz.example/s", stations[0].StreamURL)
	assert.Equal(t, "Unnamed Station", stations[1].Name)
	assert.Equal(t, "??", stations[1].Country)
	assert.Equal(t, "No tags", stations[1].Tags)
	assert.Equal(t, "http://plain.example/s", stations[1].StreamURL)
}

func TestSearch_LimitCapped(t *testing.T) {
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name":"a","url":"http://a"},{"name":"b","url":"http://b"},{"name":"c","url":"http://c"}
		]`))
	}, func(c *structures.DirectoryConfig) { c.SearchLimit = 2 })

	stations, err := rb.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, stations, 2)

	assert.Equal(t, MaxSearchLimit, NewRadioBrowser(&structures.Config{
		Directory: structures.DirectoryConfig{SearchLimit: 500},
	}, &testutil.MockLogger{}).limit)
}

func TestSearch_EmptyQuerySkipsRequest(t *testing.T) {
	var calls atomic.Int32
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	stations, err := rb.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, stations)
	assert.Zero(t, calls.Load())
}

func TestSearch_Non200(t *testing.T) {
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := rb.Search(context.Background(), "jazz")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearch_BadJSON(t *testing.T) {
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	})

	_, err := rb.Search(context.Background(), "jazz")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearch_Timeout(t *testing.T) {
	release := make(chan struct{})
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(c *structures.DirectoryConfig) { c.Timeout = 50 * time.Millisecond })
	defer close(release)

	_, err := rb.Search(context.Background(), "jazz")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearch_SerializedBySemaphore(t *testing.T) {
	var inFlight, peak atomic.Int32
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte(`[]`))
	})

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			_, _ = rb.Search(context.Background(), "jazz")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestSearch_CanceledWhileWaiting(t *testing.T) {
	rb := newClient(t, func(w http.ResponseWriter, r *http.Request) {})
	require.True(t, rb.sem.TryAcquire(1))
	defer rb.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rb.Search(ctx, "jazz")
	assert.ErrorIs(t, err, ErrUnavailable)
}
