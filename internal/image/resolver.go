// Package image picks the source to display for a post image, falling back to
// a local asset and then to a generated placeholder when loads fail.
package image

import "net/url"

type Attempt int

const (
	AttemptPrimary Attempt = iota
	AttemptFallback
	AttemptPlaceholder
)

const DefaultFallbackPath = "/placeholder.png"

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="600" height="400">` +
	`<rect fill="#ddd" width="100%" height="100%"/>` +
	`<text x="50%" y="50%" dominant-baseline="middle" text-anchor="middle" fill="#666" font-size="20">Image failed</text>` +
	`</svg>`

// Placeholder is the inline image shown once every other source has failed.
// It is generated, so loading it cannot fail.
var Placeholder = "data:image/svg+xml;utf8," + url.PathEscape(placeholderSVG)

type Resolver struct {
	FallbackPath string
}

func NewResolver(fallbackPath string) *Resolver {
	if fallbackPath == "" {
		fallbackPath = DefaultFallbackPath
	}
	return &Resolver{FallbackPath: fallbackPath}
}

// Resolve returns the URL to use for the given attempt and the attempt to move
// to if that URL fails to load. An empty URL means nothing should be rendered.
func (r *Resolver) Resolve(declared string, attempt Attempt) (string, Attempt) {
	switch {
	case attempt <= AttemptPrimary:
		return declared, AttemptFallback
	case attempt == AttemptFallback:
		return r.fallback(), AttemptPlaceholder
	default:
		return Placeholder, AttemptPlaceholder
	}
}

func (r *Resolver) fallback() string {
	if r.FallbackPath == "" {
		return DefaultFallbackPath
	}
	return r.FallbackPath
}

// State tracks the attempt counter of one displayed image.
type State struct {
	resolver *Resolver
	declared string
	attempt  Attempt
}

func (r *Resolver) Track(declared string) *State {
	return &State{resolver: r, declared: declared}
}

// Source returns the URL the image should currently load.
func (s *State) Source() string {
	src, _ := s.resolver.Resolve(s.declared, s.attempt)
	return src
}

func (s *State) Attempt() Attempt {
	return s.attempt
}

// Fail records a load failure of the current source. It returns false when the
// failure is ignored: the placeholder is terminal and an absent image has
// nothing to fall back from.
func (s *State) Fail() bool {
	if s.declared == "" || s.attempt >= AttemptPlaceholder {
		return false
	}
	_, s.attempt = s.resolver.Resolve(s.declared, s.attempt)
	return true
}

// Reset starts over from the primary URL when the post's image changes.
func (s *State) Reset(declared string) {
	if declared == s.declared {
		return
	}
	s.declared = declared
	s.attempt = AttemptPrimary
}
