package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// siteHandler serves files from the site directory. Paths that do not name a
// file fall back to index.html so client-side routes resolve.
func (s *Server) siteHandler() http.Handler {
	if s.siteDir == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, MsgRouteNotFound)
		})
	}

	files := http.FileServer(http.Dir(s.siteDir))
	index := filepath.Join(s.siteDir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusNotFound, MsgRouteNotFound)
			return
		}

		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" {
			fi, err := os.Stat(filepath.Join(s.siteDir, filepath.FromSlash(clean)))
			if err == nil && !fi.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		if _, err := os.Stat(index); err != nil {
			writeError(w, http.StatusNotFound, MsgRouteNotFound)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	})
}
