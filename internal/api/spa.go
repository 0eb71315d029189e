package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// WithSPA serves the front-end build from webDir for every non-/api/ path,
// falling back to index.html for client-side routes. With no webDir, or no
// index.html in it, the API handler is returned unchanged.
func WithSPA(apiHandler http.Handler, webDir string) http.Handler {
	if strings.TrimSpace(webDir) == "" {
		return apiHandler
	}
	indexPath := filepath.Join(webDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		return apiHandler
	}
	fileServer := http.FileServer(http.Dir(webDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			apiHandler.ServeHTTP(w, r)
			return
		}

		cleanPath := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if cleanPath == "" || cleanPath == "index.html" {
			serveIndex(w, r, indexPath)
			return
		}

		fullPath := filepath.Join(webDir, filepath.FromSlash(cleanPath))
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
			setAssetCacheControl(w, cleanPath)
			fileServer.ServeHTTP(w, r)
			return
		}

		serveIndex(w, r, indexPath)
	})
}

// serveIndex avoids http.ServeFile, which redirects requests ending in
// /index.html.
func serveIndex(w http.ResponseWriter, r *http.Request, indexPath string) {
	file, err := os.Open(indexPath)
	if err != nil {
		http.Error(w, "index.html not found", http.StatusNotFound)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		http.Error(w, "index.html not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "index.html", info.ModTime(), file)
}

// Bundler output under assets/ carries a content hash in its name.
func setAssetCacheControl(w http.ResponseWriter, cleanPath string) {
	if strings.HasPrefix(cleanPath, "assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
}
