package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"
	"github.com/go-playground/form/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mabego/chat-mysql/internal/authstate"
	"github.com/mabego/chat-mysql/internal/metrics"
	"github.com/mabego/chat-mysql/internal/models"
)

const (
	AuthCheckTimeout = 5 * time.Second
	IdleTimeout      = time.Minute
	PruneInterval    = 10 * time.Minute
	ReadTimeout      = 5 * time.Second
	SessionLifetime  = 12 * time.Hour
	WriteTimeout     = 10 * time.Second
)

type application struct {
	debug          bool
	errorLog       *log.Logger
	infoLog        *log.Logger
	users          models.UserModelInterface
	authStates     *authstate.Provider
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	templateCache  map[string]*template.Template
	formDecoder    *form.Decoder
	sessionManager *scs.SessionManager
	upgrader       websocket.Upgrader
}

func main() {
	addr := flag.String("addr", ":4001", "HTTP network address")
	dsn := flag.String("dsn", "", "MariaDB data source name")
	debug := flag.Bool("debug", false, "Enable debug mode in the browser")
	authTimeout := flag.Duration("auth-timeout", AuthCheckTimeout, "Deadline for resolving a session's authentication state")

	flag.Parse()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	db, err := openDB(*dsn)
	if err != nil {
		errorLog.Fatal(err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {
			errorLog.Fatal(err)
		}
	}(db)

	templateCache, err := newTemplateCache()
	if err != nil {
		errorLog.Fatal(err)
	}

	sessionManager := scs.New()
	sessionManager.Store = mysqlstore.New(db)
	sessionManager.Lifetime = SessionLifetime

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	users := &models.UserModel{DB: db}

	app := &application{
		debug:          *debug,
		errorLog:       errorLog,
		infoLog:        infoLog,
		users:          users,
		authStates:     authstate.NewProvider(users, *authTimeout, errorLog, m),
		metrics:        m,
		registry:       registry,
		templateCache:  templateCache,
		formDecoder:    form.NewDecoder(),
		sessionManager: sessionManager,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sessions untouched for a full session lifetime cannot be resumed, so their state can go.
	go app.authStates.Run(ctx, PruneInterval, SessionLifetime)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      app.routes(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
		ErrorLog:     errorLog,
	}

	infoLog.Printf("Starting server on %s", *addr)
	errorLog.Fatal(srv.ListenAndServe())
}

// openDB wraps sql.Open and returns a sql.DB connection pool for a given data source name
func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database pool initialization: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	return db, nil
}
