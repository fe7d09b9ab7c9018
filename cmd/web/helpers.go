package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/justinas/nosurf"

	"github.com/mabego/chat-mysql/internal/guard"
)

var ErrNoTmpl = errors.New("template does not exist")

// serverError helper writes an error message and a stack trace to the errorLog,
// then sends a generic 500 Internal Server Error response to the user.
func (app *application) serverError(w http.ResponseWriter, err error) {
	trace := fmt.Sprintf("%s\n%s", err.Error(), debug.Stack())
	app.errorLog.Output(2, trace)

	if app.debug {
		http.Error(w, trace, http.StatusInternalServerError)
		return
	}

	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

func (app *application) render(w http.ResponseWriter, status int, page string, data *templateData) {
	ts, ok := app.templateCache[page]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrNoTmpl, page)
		app.serverError(w, err)
		return
	}

	// Render into a buffer first so that a template error still produces a clean 500.
	buf := new(bytes.Buffer)

	err := ts.ExecuteTemplate(buf, "base", data)
	if err != nil {
		app.serverError(w, err)
		return
	}

	w.WriteHeader(status)

	_, err = buf.WriteTo(w)
	if err != nil {
		app.serverError(w, err)
		return
	}
}

func (app *application) newTemplateData(r *http.Request) *templateData {
	state := app.authState(r)

	return &templateData{
		IsAuthenticated: state.IsAuthenticated && !state.Loading,
		CurrentYear:     time.Now().Year(),
		Flash:           app.sessionManager.PopString(r.Context(), "flash"),
		CSRFToken:       nosurf.Token(r),
	}
}

func (app *application) decodePostForm(r *http.Request, dst any) error {
	err := r.ParseForm()
	if err != nil {
		return err
	}

	err = app.formDecoder.Decode(dst, r.PostForm)
	if err != nil {
		// A nil or non-pointer dst is a programming error, not a bad request.
		var invalidDecoderError *form.InvalidDecoderError

		if errors.As(err, &invalidDecoderError) {
			panic(err)
		}

		return fmt.Errorf("form decoding error: %w", err)
	}

	return nil
}

// authState returns the snapshot resolved by the authenticate middleware. Requests that did not pass
// through it are treated as anonymous.
func (app *application) authState(r *http.Request) guard.State {
	state, ok := r.Context().Value(authStateContextKey).(guard.State)
	if !ok {
		return guard.State{}
	}

	return state
}

// loading renders the placeholder shown while the session's authentication check is still running.
// Browsers poll through the Refresh header; the page script also listens on /auth/watch.
func (app *application) loading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Refresh", "1")

	app.render(w, http.StatusOK, "loading.page.tmpl", app.newTemplateData(r))
}
