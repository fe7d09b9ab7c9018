package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/mabego/chat-mysql/internal/guard"
	"github.com/mabego/chat-mysql/internal/models"
	"github.com/mabego/chat-mysql/internal/validator"
)

const (
	MinChars     = 8
	NameMaxChars = 255
	WatchWait    = 10 * time.Second
)

// The struct tags tell the go-playground/form decoder how to map HTML form values into the different struct fields.
// The struct tag `form:"-"` tells the decoder to completely ignore a field during decoding.
type userSignupForm struct {
	Name                string `form:"name"`
	Email               string `form:"email"`
	Password            string `form:"password"`
	validator.Validator `form:"-"`
}

type userLoginForm struct {
	Email               string `form:"email"`
	Password            string `form:"password"`
	validator.Validator `form:"-"`
}

func (app *application) userSignup(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Form = userSignupForm{}
	app.render(w, http.StatusOK, "signup.page.tmpl", data)
}

func (app *application) userSignupPost(w http.ResponseWriter, r *http.Request) {
	var form userSignupForm

	err := app.decodePostForm(r, &form)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	form.CheckField(validator.NotBlank(form.Name), "name", "This field cannot be blank")
	form.CheckField(validator.MaxChars(form.Name, NameMaxChars), "name",
		"This field cannot be more than 255 characters long")
	form.CheckField(validator.NotBlank(form.Email), "email", "This field cannot be blank")
	form.CheckField(validator.Matches(form.Email, validator.EmailRX), "email",
		"This field must be a valid email address")
	form.CheckField(validator.NotBlank(form.Password), "password", "This field cannot be blank")
	form.CheckField(validator.MinChars(form.Password, MinChars), "password",
		"This field must be at least 8 characters long")

	if !form.Valid() {
		data := app.newTemplateData(r)
		data.Form = form
		app.render(w, http.StatusUnprocessableEntity, "signup.page.tmpl", data)
		return
	}

	err = app.users.Insert(form.Name, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			form.AddFieldError("email", "Email address is already in use")
			data := app.newTemplateData(r)
			data.Form = form
			app.render(w, http.StatusUnprocessableEntity, "signup.page.tmpl", data)
		} else {
			app.serverError(w, err)
		}

		return
	}

	app.sessionManager.Put(r.Context(), "flash", "Your signup was successful. Please log in")

	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (app *application) userLogin(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Form = userLoginForm{}
	app.render(w, http.StatusOK, "login.page.tmpl", data)
}

func (app *application) userLoginPost(w http.ResponseWriter, r *http.Request) {
	var form userLoginForm

	err := app.decodePostForm(r, &form)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	form.CheckField(validator.NotBlank(form.Email), "email", "This field cannot be blank")
	form.CheckField(validator.Matches(form.Email, validator.EmailRX), "email",
		"This field must be a valid email address")
	form.CheckField(validator.NotBlank(form.Password), "password", "This field cannot be blank")

	if !form.Valid() {
		data := app.newTemplateData(r)
		data.Form = form
		app.render(w, http.StatusUnprocessableEntity, "login.page.tmpl", data)
		return
	}

	id, err := app.users.Authenticate(form.Email, form.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			form.AddNonFieldError("Email or password is incorrect")
			data := app.newTemplateData(r)
			data.Form = form
			app.render(w, http.StatusUnprocessableEntity, "login.page.tmpl", data)
		} else {
			app.serverError(w, err)
		}
		return
	}

	// RenewToken changes the session ID whenever the authentication state changes.
	err = app.sessionManager.RenewToken(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.sessionManager.Put(r.Context(), "authenticatedUserID", id)
	app.authStates.Login(app.sessionManager.Token(r.Context()), id)

	app.sessionManager.Put(r.Context(), "flash", "Welcome back!")

	// PopString returns an empty string if no path was stored before the login redirect.
	urlPath := app.sessionManager.PopString(r.Context(), "redirectPathAfterLogin")
	if urlPath != "" {
		http.Redirect(w, r, urlPath, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, guard.HomePath, http.StatusSeeOther)
}

func (app *application) userLogoutPost(w http.ResponseWriter, r *http.Request) {
	app.authStates.Logout(app.sessionManager.Token(r.Context()))

	err := app.sessionManager.RenewToken(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.sessionManager.Remove(r.Context(), "authenticatedUserID")

	app.sessionManager.Put(r.Context(), "flash", "You've been logged out successfully!")

	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (app *application) userList(w http.ResponseWriter, r *http.Request) {
	userID := app.sessionManager.GetInt(r.Context(), "authenticatedUserID")

	users, err := app.users.List(userID)
	if err != nil {
		app.serverError(w, err)
		return
	}

	data := app.newTemplateData(r)
	data.Users = users

	app.render(w, http.StatusOK, "users.page.tmpl", data)
}

// chatWindow passes the userId parameter through as-is. The peer is only looked up when the
// parameter is a valid ID; otherwise the window renders for an unknown user.
func (app *application) chatWindow(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	userID := params.ByName("userId")

	data := app.newTemplateData(r)
	data.UserID = userID

	if id, err := strconv.Atoi(userID); err == nil && id > 0 {
		peer, err := app.users.Get(id)
		if err != nil && !errors.Is(err, models.ErrNoRecord) {
			app.serverError(w, err)
			return
		}
		data.Peer = peer
	}

	app.render(w, http.StatusOK, "chat.page.tmpl", data)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.HomePath, http.StatusSeeOther)
}

// authWatch pushes the session's authentication state over a websocket every time it changes.
// The loading page uses it to reload as soon as the check resolves.
func (app *application) authWatch(w http.ResponseWriter, r *http.Request) {
	var cookieValue string
	if cookie, err := r.Cookie(app.sessionManager.Cookie.Name); err == nil {
		cookieValue = cookie.Value
	}

	ctx, err := app.sessionManager.Load(r.Context(), cookieValue)
	if err != nil {
		app.serverError(w, err)
		return
	}

	// Token is empty unless the cookie named a session the store knows about.
	token := app.sessionManager.Token(ctx)
	id := app.sessionManager.GetInt(ctx, "authenticatedUserID")
	state := app.authStates.Resolve(token, id)

	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		return
	}
	defer conn.Close()

	// Without a tracked session there is nothing that could change.
	states, cancel, ok := app.authStates.Watch(token)
	if !ok {
		conn.SetWriteDeadline(time.Now().Add(WatchWait))
		conn.WriteJSON(state)
		return
	}
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case s := <-states:
			conn.SetWriteDeadline(time.Now().Add(WatchWait))
			if err := conn.WriteJSON(s); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					app.infoLog.Printf("auth watch: %v", err)
				}
				return
			}
		case <-closed:
			return
		}
	}
}

func ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodGet {
		fmt.Fprintln(w, "OK")
	}
}
