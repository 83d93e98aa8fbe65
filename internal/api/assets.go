package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// AssetHandler serves cover images and other static files from the content
// directory. Read-only: uploads go through the publish engine as blobs.
type AssetHandler struct {
	contentRoot string
}

// NewAssetHandler creates a handler rooted at the content directory.
func NewAssetHandler(contentRoot string) *AssetHandler {
	return &AssetHandler{contentRoot: contentRoot}
}

// safePath validates the requested relative path and returns the absolute
// path under the content root. Markdown sources are not served here.
func (h *AssetHandler) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("path is required")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if strings.Contains(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid path: %s", rel)
	}
	switch strings.ToLower(filepath.Ext(cleaned)) {
	case ".md", ".mdx":
		return "", fmt.Errorf("markdown sources are not served as assets")
	}
	abs := filepath.Join(h.contentRoot, cleaned)
	if !strings.HasPrefix(abs, h.contentRoot+string(os.PathSeparator)) && abs != h.contentRoot {
		return "", fmt.Errorf("path escapes content directory")
	}
	return abs, nil
}

// ServeFile handles GET /assets/*.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	abs, err := h.safePath(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
