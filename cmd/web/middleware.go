package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/justinas/nosurf"

	"github.com/mabego/chat-mysql/internal/guard"
)

var ErrRecovered = errors.New("recovered")

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; style-src 'self' fonts.googleapis.com; font-src fonts.gstatic.com")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")

		next.ServeHTTP(w, r)
	})
}

// logRequest tags every request with an ID, echoed in the X-Request-ID response header.
func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		app.infoLog.Printf("%s - %s %s %s %s", id, r.RemoteAddr, r.Proto, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, fmt.Errorf("%w: %s", ErrRecovered, err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.SetBaseCookie(http.Cookie{
		Path:     "/",
		Secure:   true, // false to deploy without an SSL/TLS certificate
		HttpOnly: true,
	})

	return csrfHandler
}

// authenticate resolves the session's authentication state and stores the snapshot in the request context.
// A session seen for the first time with a user ID reports Loading until its check completes.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GetInt returns 0 if there is no authenticatedUserID value in the session.
		id := app.sessionManager.GetInt(r.Context(), "authenticatedUserID")
		state := app.authStates.Resolve(app.sessionManager.Token(r.Context()), id)

		ctx := context.WithValue(r.Context(), authStateContextKey, state)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guarded wraps route content in the decision made by guard.Evaluate for the given visibility class.
// It must run after authenticate.
func (app *application) guarded(v guard.Visibility) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := guard.Evaluate(v, app.authState(r))
			app.metrics.ObserveDecision(v.String(), d.Kind.String())

			switch d.Kind {
			case guard.ShowLoadingPlaceholder:
				// Submissions are not replayed. The browser comes back with a GET and gets the placeholder.
				if r.Method != http.MethodGet && r.Method != http.MethodHead {
					app.infoLog.Printf("%s %s dropped while authentication check is loading", r.Method, r.URL.Path)
					http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
					return
				}
				app.loading(w, r)

			case guard.RedirectTo:
				// Remember where the user was going so that login can send them back there.
				if d.Path == guard.LoginPath && r.Method == http.MethodGet {
					app.sessionManager.Put(r.Context(), "redirectPathAfterLogin", r.URL.Path)
				}
				http.Redirect(w, r, d.Path, http.StatusSeeOther)

			default:
				// Pages that require authentication must not be stored in the browser cache
				// or any other intermediary cache.
				if v == guard.RequiresAuth {
					w.Header().Add("Cache-Control", "no-store")
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}
