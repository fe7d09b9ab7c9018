// Package guard decides what a route renders for a given authentication state.
package guard

// Redirect targets for unauthenticated and already authenticated visitors.
const (
	LoginPath = "/login"
	HomePath  = "/users"
)

// State is a read-only snapshot of the session's authentication status.
// IsAuthenticated carries no meaning while Loading is true.
type State struct {
	IsAuthenticated bool `json:"isAuthenticated"`
	Loading         bool `json:"loading"`
}

// Visibility classifies who a route is meant for.
type Visibility int

const (
	RequiresAuth Visibility = iota
	PublicOnly
	// Anyone routes wait for the state to resolve and then always render.
	Anyone
)

func (v Visibility) String() string {
	switch v {
	case PublicOnly:
		return "public_only"
	case Anyone:
		return "anyone"
	default:
		return "requires_auth"
	}
}

// Kind is what the caller should do with a guarded route.
type Kind int

const (
	ShowLoadingPlaceholder Kind = iota
	RenderContent
	RedirectTo
)

func (k Kind) String() string {
	switch k {
	case RenderContent:
		return "render"
	case RedirectTo:
		return "redirect"
	default:
		return "loading"
	}
}

// Decision is the outcome of guarding a route. Path is only set for RedirectTo.
type Decision struct {
	Kind Kind
	Path string
}

// Render lets the route's own content through.
func Render() Decision { return Decision{Kind: RenderContent} }

// Loading holds the route behind the placeholder.
func Loading() Decision { return Decision{Kind: ShowLoadingPlaceholder} }

// Redirect sends the visitor to path.
func Redirect(path string) Decision { return Decision{Kind: RedirectTo, Path: path} }

// Evaluate is total over its inputs and has no side effects. Loading takes
// precedence over every visibility class. Unknown visibilities are guarded
// like RequiresAuth.
func Evaluate(v Visibility, s State) Decision {
	if s.Loading {
		return Loading()
	}

	switch v {
	case Anyone:
		return Render()
	case PublicOnly:
		if s.IsAuthenticated {
			return Redirect(HomePath)
		}
		return Render()
	default:
		if s.IsAuthenticated {
			return Render()
		}
		return Redirect(LoginPath)
	}
}
