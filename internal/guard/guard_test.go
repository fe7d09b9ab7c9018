package guard

import (
	"testing"

	"github.com/mabego/chat-mysql/internal/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		visibility Visibility
		state      State
		want       Decision
	}{
		{
			name:       "Loading protected",
			visibility: RequiresAuth,
			state:      State{Loading: true},
			want:       Loading(),
		},
		{
			name:       "Loading protected ignores authenticated flag",
			visibility: RequiresAuth,
			state:      State{Loading: true, IsAuthenticated: true},
			want:       Loading(),
		},
		{
			name:       "Loading public",
			visibility: PublicOnly,
			state:      State{Loading: true, IsAuthenticated: true},
			want:       Loading(),
		},
		{
			name:       "Loading anyone",
			visibility: Anyone,
			state:      State{Loading: true},
			want:       Loading(),
		},
		{
			name:       "Protected authenticated",
			visibility: RequiresAuth,
			state:      State{IsAuthenticated: true},
			want:       Render(),
		},
		{
			name:       "Protected anonymous",
			visibility: RequiresAuth,
			state:      State{},
			want:       Redirect("/login"),
		},
		{
			name:       "Public authenticated",
			visibility: PublicOnly,
			state:      State{IsAuthenticated: true},
			want:       Redirect("/users"),
		},
		{
			name:       "Public anonymous",
			visibility: PublicOnly,
			state:      State{},
			want:       Render(),
		},
		{
			name:       "Anyone anonymous",
			visibility: Anyone,
			state:      State{},
			want:       Render(),
		},
		{
			name:       "Anyone authenticated",
			visibility: Anyone,
			state:      State{IsAuthenticated: true},
			want:       Render(),
		},
		{
			name:       "Unknown visibility fails closed",
			visibility: Visibility(42),
			state:      State{},
			want:       Redirect("/login"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.visibility, tt.state)
			assert.Equal(t, got, tt.want)

			// A second evaluation of the same inputs must not differ.
			assert.Equal(t, Evaluate(tt.visibility, tt.state), got)
		})
	}
}

func TestDecisionPathOnlyOnRedirect(t *testing.T) {
	for _, v := range []Visibility{RequiresAuth, PublicOnly, Anyone} {
		for _, s := range []State{{}, {IsAuthenticated: true}, {Loading: true}, {Loading: true, IsAuthenticated: true}} {
			d := Evaluate(v, s)
			if d.Kind != RedirectTo && d.Path != "" {
				t.Errorf("%s %+v: unexpected path %q on %s decision", v, s, d.Path, d.Kind)
			}
			if d.Kind == RedirectTo && d.Path == "" {
				t.Errorf("%s %+v: redirect without path", v, s)
			}
		}
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, RequiresAuth.String(), "requires_auth")
	assert.Equal(t, PublicOnly.String(), "public_only")
	assert.Equal(t, Anyone.String(), "anyone")
	assert.Equal(t, ShowLoadingPlaceholder.String(), "loading")
	assert.Equal(t, RenderContent.String(), "render")
	assert.Equal(t, RedirectTo.String(), "redirect")
}
