package render

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-courier/internal/config"
)

func TestHTMLServerServesBodyVerbatim(t *testing.T) {
	html := []byte("<html><body><p>héllo</p></body></html>")

	srv, err := startHTMLServer("127.0.0.1:0", html)
	require.NoError(t, err)
	defer srv.shutdown()

	resp, err := http.Get(srv.url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, html, body)
}

func TestHTMLServerServesEveryPath(t *testing.T) {
	srv, err := startHTMLServer("127.0.0.1:0", []byte("<p>x</p>"))
	require.NoError(t, err)
	defer srv.shutdown()

	resp, err := http.Get(srv.url + "anything/else")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(body))
}

func TestHTMLServerShutdownFreesAddress(t *testing.T) {
	srv, err := startHTMLServer("127.0.0.1:0", []byte("<p>x</p>"))
	require.NoError(t, err)

	addr := strings.TrimSuffix(strings.TrimPrefix(srv.url, "http://"), "/")
	require.NoError(t, srv.shutdown())

	// shutdown has been acknowledged, so the same address must be bindable
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	ln.Close()
}

func TestHTMLServerSequentialRendersOnFixedAddress(t *testing.T) {
	// two renders in a row holding the same fixed address must not collide
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	for i := 0; i < 2; i++ {
		srv, err := startHTMLServer(addr, []byte("<p>x</p>"))
		require.NoError(t, err)
		require.NoError(t, srv.shutdown())
	}
}

func TestHTMLServerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = startHTMLServer(ln.Addr().String(), []byte("<p>x</p>"))
	assert.Error(t, err)
}

func TestArtifactPathIsDeterministic(t *testing.T) {
	r := New(config.RendererConfig{
		StagingDir:        "temp-mails",
		ListenAddr:        "127.0.0.1:0",
		NavigationTimeout: time.Second,
	})
	defer r.Close()

	assert.Equal(t, "temp-mails/mail-abc123.pdf", r.ArtifactPath("abc123"))
	assert.Equal(t, r.ArtifactPath("abc123"), r.ArtifactPath("abc123"))
}

func TestRendererCloseReleasesBrowser(t *testing.T) {
	r := New(config.RendererConfig{
		StagingDir:        t.TempDir(),
		ListenAddr:        "127.0.0.1:0",
		NavigationTimeout: time.Second,
	})

	select {
	case <-r.browserCtx.Done():
		t.Fatal("browser context finished before Close")
	default:
	}

	require.NoError(t, r.Close())
	<-r.browserCtx.Done()
}
