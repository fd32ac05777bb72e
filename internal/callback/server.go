// Package callback runs the local HTTP listener bound to the registered
// redirect URI. It owns the callback route only: received authorization
// response parameters are handed to the auth service's callback entry point
// and the browser gets a minimal result page with no parameters left in the
// visible location.
package callback

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/evergrove/authfront/internal/log"
)

const shutdownGrace = 5 * time.Second

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
<p>You can close this window.</p>
</body>
</html>
`))

// Handler processes the authorization response parameters delivered on the
// callback route.
type Handler func(ctx context.Context, params url.Values) error

// Server listens on the redirect URI's address and dispatches its query
// parameters to the handler.
type Server struct {
	addr    string
	path    string
	handler Handler

	httpServer *http.Server
	done       chan error
}

// New creates a server for the given redirect URI. The URI's host and port
// determine the listen address; its path is the only route served.
func New(redirectURI string, handler Handler) (*Server, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URI: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q has no host", redirectURI)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "80"
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	s := &Server{
		addr:    net.JoinHostPort(host, port),
		path:    path,
		handler: handler,
		done:    make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleCallback)
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}
	return s, nil
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}

	err := s.handler(r.Context(), r.URL.Query())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := struct {
		Title   string
		Message string
	}{
		Title:   "Signed in",
		Message: "Authentication completed.",
	}
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		page.Title = "Sign-in failed"
		page.Message = err.Error()
	}
	if tmplErr := resultPage.Execute(w, page); tmplErr != nil {
		log.LogError("Failed to render callback result page: %v", tmplErr)
	}

	// The listener serves one authorization response per run.
	select {
	case s.done <- err:
	default:
	}
}

// Start begins listening. It returns once the listener is bound; serve
// errors are reported on Done.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	log.LogInfoWithFields("callback", "Awaiting authorization response", map[string]any{
		"addr": s.addr,
		"path": s.path,
	})

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			select {
			case s.done <- err:
			default:
			}
		}
	}()
	return nil
}

// Done reports the outcome of the first processed callback, or a serve
// failure.
func (s *Server) Done() <-chan error {
	return s.done
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
