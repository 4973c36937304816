package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrStaticDirectory is returned when a static path must exist at startup but
// does not.
var ErrStaticDirectory = errors.New("static directory is not available")

type staticHandler struct {
	root        string
	html        bool
	override404 string
}

func newStaticHandler(cfg StaticPathSettings) (*staticHandler, error) {
	if cfg.ShouldCheckDir() {
		info, err := os.Stat(cfg.Directory)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStaticDirectory, cfg.Directory, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrStaticDirectory, cfg.Directory)
		}
	}
	return &staticHandler{
		root:        cfg.Directory,
		html:        cfg.HTML,
		override404: cfg.Override404File,
	}, nil
}

func (s *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if full, ok := s.lookup(name); ok {
		http.ServeFile(w, r, full)
		return
	}
	if s.override404 != "" {
		if full, ok := s.regularFile(s.override404); ok {
			http.ServeFile(w, r, full)
			return
		}
	}
	if s.html {
		if full, ok := s.regularFile("404.html"); ok {
			s.serveWithStatus(w, full, http.StatusNotFound)
			return
		}
	}
	http.NotFound(w, r)
}

// lookup resolves a request path to a file, using index.html for directories
// in html mode.
func (s *staticHandler) lookup(name string) (string, bool) {
	full := filepath.Join(s.root, filepath.FromSlash(name))
	info, err := os.Stat(full)
	if err != nil {
		return "", false
	}
	if info.Mode().IsRegular() {
		return full, true
	}
	if info.IsDir() && s.html {
		return s.regularFile(path.Join(name, "index.html"))
	}
	return "", false
}

func (s *staticHandler) regularFile(name string) (string, bool) {
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+name)))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

func (s *staticHandler) serveWithStatus(w http.ResponseWriter, full string, status int) {
	data, err := os.ReadFile(full)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if strings.HasSuffix(full, ".html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
