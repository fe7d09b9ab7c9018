package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mabego/chat-mysql/internal/guard"
	"github.com/mabego/chat-mysql/ui"
)

// route is one entry of the guarded route table.
type route struct {
	method     string
	path       string
	visibility guard.Visibility
	handler    http.HandlerFunc
}

func (app *application) routeTable() []route {
	return []route{
		{http.MethodGet, "/login", guard.PublicOnly, app.userLogin},
		{http.MethodPost, "/login", guard.PublicOnly, app.userLoginPost},
		{http.MethodGet, "/signup", guard.PublicOnly, app.userSignup},
		{http.MethodPost, "/signup", guard.PublicOnly, app.userSignupPost},

		{http.MethodGet, "/users", guard.RequiresAuth, app.userList},
		{http.MethodGet, "/chat/:userId", guard.RequiresAuth, app.chatWindow},
		{http.MethodPost, "/logout", guard.RequiresAuth, app.userLogoutPost},

		{http.MethodGet, "/", guard.Anyone, redirectHome},
	}
}

func (app *application) routes() http.Handler {
	router := httprouter.New()

	// A middleware chain using alice, shared by every page that depends on the session.
	dynamic := alice.New(app.sessionManager.LoadAndSave, noSurf, app.authenticate)

	// Unmatched paths go through the same guard as "/" so that loading still takes precedence.
	router.NotFound = dynamic.Append(app.guarded(guard.Anyone)).ThenFunc(redirectHome)

	fileServer := http.FileServer(http.FS(ui.Files))
	router.Handler(http.MethodGet, "/static/*filepath", fileServer)

	router.HandlerFunc(http.MethodGet, "/ping", ping)
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	// The watch endpoint loads the session itself, since the LoadAndSave response writer cannot be hijacked.
	router.HandlerFunc(http.MethodGet, "/auth/watch", app.authWatch)

	for _, rt := range app.routeTable() {
		router.Handler(rt.method, rt.path, dynamic.Append(app.guarded(rt.visibility)).ThenFunc(rt.handler))
	}

	// A middleware chain containing the 'standard' middleware used for every application request.
	standard := alice.New(app.recoverPanic, app.logRequest, secureHeaders)

	return standard.Then(router)
}
