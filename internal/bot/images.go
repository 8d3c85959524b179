package bot

import (
	"fmt"
	"strings"
)

// ImageResolver turns stored image references like "brands/adidas.png" into
// URLs the messaging platform can fetch.
type ImageResolver struct {
	baseURL string
}

func NewImageResolver(baseURL string) *ImageResolver {
	return &ImageResolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve passes absolute URLs through unchanged and maps relative
// references to <baseURL>/images/<category>/<filename>, splitting on the
// first path separator.
func (r *ImageResolver) Resolve(ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}

	category, filename, found := strings.Cut(ref, "/")
	if !found {
		return fmt.Sprintf("%s/images/%s", r.baseURL, ref)
	}
	return fmt.Sprintf("%s/images/%s/%s", r.baseURL, category, filename)
}
