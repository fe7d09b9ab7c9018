package main

import (
	"bytes"
	"context"
	"html"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mabego/chat-mysql/internal/authstate"
	"github.com/mabego/chat-mysql/internal/metrics"
	"github.com/mabego/chat-mysql/internal/models"
	"github.com/mabego/chat-mysql/internal/models/mocks"
)

// csrfTokenRX captures the CSRF token value from a rendered form.
var csrfTokenRX = regexp.MustCompile(`<input type="hidden" name="csrf_token" value="(.+)">`)

func extractCSRFToken(t *testing.T, body string) string {
	t.Helper()

	matches := csrfTokenRX.FindStringSubmatch(body)
	if len(matches) < 2 {
		t.Fatal("no csrf token found in body")
	}

	return html.UnescapeString(matches[1])
}

// gatedChecker holds every authentication check until release is closed.
type gatedChecker struct {
	release chan struct{}
	users   models.UserModelInterface
}

func newGatedChecker() *gatedChecker {
	return &gatedChecker{release: make(chan struct{}), users: &mocks.UserModel{}}
}

func (c *gatedChecker) Exists(ctx context.Context, id int) (bool, error) {
	select {
	case <-c.release:
		return c.users.Exists(ctx, id)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// newTestApplication creates an instance of the application struct with mock data.
// checker may be nil, in which case the mock user store answers authentication checks directly.
func newTestApplication(t *testing.T, checker authstate.Checker) *application {
	t.Helper()

	templateCache, err := newTemplateCache()
	if err != nil {
		t.Fatal(err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = SessionLifetime
	sessionManager.Cookie.Secure = true

	errorLog := log.New(io.Discard, "", 0)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	users := &mocks.UserModel{}
	if checker == nil {
		checker = users
	}

	return &application{
		errorLog:       errorLog,
		infoLog:        log.New(io.Discard, "", 0),
		users:          users,
		authStates:     authstate.NewProvider(checker, 5*time.Second, errorLog, m),
		metrics:        m,
		registry:       registry,
		templateCache:  templateCache,
		formDecoder:    form.NewDecoder(),
		sessionManager: sessionManager,
	}
}

// A custom testServer type that embeds an httptest.Server instance.
type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	t.Helper()

	ts := httptest.NewTLSServer(h)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	// Response cookies are stored and sent back with every following request.
	ts.Client().Jar = jar

	// Return redirect responses instead of following them.
	ts.Client().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &testServer{ts}
}

// get makes a GET request to a given url path using the test server client and returns the response
// status code, headers, and body.
func (ts *testServer) get(t *testing.T, urlPath string) (int, http.Header, string) {
	t.Helper()

	rs, err := ts.Client().Get(ts.URL + urlPath)
	if err != nil {
		t.Fatal(err)
	}

	defer rs.Body.Close()
	body, err := io.ReadAll(rs.Body)
	if err != nil {
		t.Fatal(err)
	}
	body = bytes.TrimSpace(body)

	return rs.StatusCode, rs.Header, string(body)
}

// postForm sends POST requests to the test server.
func (ts *testServer) postForm(t *testing.T, urlPath string, form url.Values) (int, http.Header, string) {
	t.Helper()

	rs, err := ts.Client().PostForm(ts.URL+urlPath, form)
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Body.Close()

	body, err := io.ReadAll(rs.Body)
	if err != nil {
		t.Fatal(err)
	}
	body = bytes.TrimSpace(body)

	return rs.StatusCode, rs.Header, string(body)
}

// login signs in as the mock user Alice and returns where the server redirected to.
func (ts *testServer) login(t *testing.T) string {
	t.Helper()

	_, _, body := ts.get(t, "/login")
	validCSRFToken := extractCSRFToken(t, body)

	form := url.Values{}
	form.Add("email", "alice@example.com")
	form.Add("password", "pa$$word")
	form.Add("csrf_token", validCSRFToken)

	code, header, _ := ts.postForm(t, "/login", form)
	if code != http.StatusSeeOther {
		t.Fatalf("login: got status %d; want %d", code, http.StatusSeeOther)
	}

	return header.Get("Location")
}

// sessionToken returns the session cookie value held by the client's jar.
func (ts *testServer) sessionToken(t *testing.T, name string) string {
	t.Helper()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range ts.Client().Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}

	t.Fatal("no session cookie")
	return ""
}

// dialWatch opens the auth watch websocket with the client's cookies.
func (ts *testServer) dialWatch(t *testing.T) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{
		TLSClientConfig:  ts.Client().Transport.(*http.Transport).TLSClientConfig,
		Jar:              ts.Client().Jar,
		HandshakeTimeout: 2 * time.Second,
	}

	conn, rs, err := dialer.Dial("wss"+strings.TrimPrefix(ts.URL, "https")+"/auth/watch", nil)
	if err != nil {
		t.Fatal(err)
	}
	rs.Body.Close()

	return conn
}
