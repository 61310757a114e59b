package assets

import "strings"

// Resolver turns the relative asset paths stored in the database into
// absolute CDN URLs for clients.
type Resolver struct {
	baseURL string
}

func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Resolve returns an absolute URL for the stored asset path. Already
// absolute URLs pass through untouched so externally hosted images keep
// working.
func (r *Resolver) Resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if r.baseURL == "" {
		return path
	}
	return r.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Normalize strips the CDN prefix from an absolute URL so the database
// keeps relative paths regardless of which CDN host served the upload.
func (r *Resolver) Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || r.baseURL == "" {
		return rawURL
	}
	if strings.HasPrefix(rawURL, r.baseURL+"/") {
		return strings.TrimPrefix(rawURL, r.baseURL+"/")
	}
	return rawURL
}
