package bot

import "testing"

func TestImageResolver(t *testing.T) {
	resolver := NewImageResolver("http://localhost:8000")

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"absolute url passes through", "https://cdn.example.com/nike.png", "https://cdn.example.com/nike.png"},
		{"http url passes through", "http://cdn.example.com/nike.png", "http://cdn.example.com/nike.png"},
		{"brand reference", "brands/adidas.png", "http://localhost:8000/images/brands/adidas.png"},
		{"shoe reference", "shoes/asics-gt-2000.jpg", "http://localhost:8000/images/shoes/asics-gt-2000.jpg"},
		{"nested filename splits on first separator", "shoes/2024/nimbus.jpg", "http://localhost:8000/images/shoes/2024/nimbus.jpg"},
		{"bare filename", "logo.png", "http://localhost:8000/images/logo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.Resolve(tt.ref); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestImageResolverTrimsTrailingSlash(t *testing.T) {
	resolver := NewImageResolver("http://localhost:8000/")
	want := "http://localhost:8000/images/brands/puma.png"
	if got := resolver.Resolve("brands/puma.png"); got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}
