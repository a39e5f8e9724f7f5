package render

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// htmlServer serves one message's HTML body verbatim on every path for the
// duration of a single render. It is a scoped resource: the listener is
// accepting before start returns, and shutdown blocks until the serve loop
// has exited so the address is free for the next render.
type htmlServer struct {
	srv  *http.Server
	url  string
	done chan struct{}
}

// startHTMLServer binds addr (a fixed loopback address, or a :0 address for
// an ephemeral port) and starts serving the given HTML.
func startHTMLServer(addr string, html []byte) (*htmlServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind render server on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(html)
	})

	s := &htmlServer{
		srv:  &http.Server{Handler: mux},
		url:  fmt.Sprintf("http://%s/", ln.Addr().String()),
		done: make(chan struct{}),
	}

	go func() {
		s.srv.Serve(ln)
		close(s.done)
	}()

	return s, nil
}

// shutdown stops the server and waits for the serve loop to acknowledge
// before returning.
func (s *htmlServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down render server: %w", err)
	}
	<-s.done
	return nil
}
