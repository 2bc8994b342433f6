package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/topic-chat/pkg/archive"
	"github.com/mahaj/topic-chat/pkg/auth"
	"github.com/mahaj/topic-chat/pkg/config"
	"github.com/mahaj/topic-chat/pkg/db"
	"github.com/mahaj/topic-chat/pkg/fanout"
	"github.com/mahaj/topic-chat/pkg/presence"
	"github.com/mahaj/topic-chat/pkg/snowflake"
	"github.com/mahaj/topic-chat/pkg/store"
)

type server struct {
	engine   *fanout.Engine
	registry *presence.Registry
	messages store.MessageStore
	users    *store.UserStore
	tokens   *auth.Manager
	rooms    []string
	log      *slog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	messages, cleanup, err := buildMessageStore(cfg, logger)
	if err != nil {
		log.Fatalf("message store: %v", err)
	}
	defer cleanup()

	users, err := store.OpenUserStore(cfg.UsersDB)
	if err != nil {
		log.Fatalf("user store: %v", err)
	}
	defer users.Close()

	var archiver fanout.Archiver
	if len(cfg.KafkaBrokers) > 0 {
		publisher := archive.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
		archiver = publisher
		logger.Info("kafka archive enabled", "topic", cfg.KafkaTopic)
	}

	registry := presence.NewRegistry()
	engine := fanout.NewEngine(cfg.Rooms, registry, messages, archiver, logger)

	srv := &server{
		engine:   engine,
		registry: registry,
		messages: messages,
		users:    users,
		tokens:   auth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		rooms:    cfg.Rooms,
		log:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/signup", srv.signupHandler)
	mux.HandleFunc("POST /api/login", srv.loginHandler)
	mux.HandleFunc("GET /api/rooms", srv.roomsHandler)
	mux.Handle("GET /api/presence", srv.authMiddleware(http.HandlerFunc(srv.presenceHandler)))
	mux.Handle("GET /api/messages/group/{room}", srv.authMiddleware(http.HandlerFunc(srv.groupHistoryHandler)))
	mux.Handle("GET /api/messages/private", srv.authMiddleware(http.HandlerFunc(srv.privateHistoryHandler)))
	mux.HandleFunc("GET /ws", srv.serveWs)

	logger.Info("chat server starting", "addr", cfg.Addr, "rooms", strings.Join(cfg.Rooms, ","))
	if err := http.ListenAndServe(cfg.Addr, corsMiddleware(mux)); err != nil {
		log.Fatal(err)
	}
}

// buildMessageStore picks Scylla when hosts are configured and falls back to
// the in-memory store, optionally fronted by the Redis history cache.
func buildMessageStore(cfg config.Config, logger *slog.Logger) (store.MessageStore, func(), error) {
	cleanup := func() {}

	var messages store.MessageStore
	if len(cfg.ScyllaHosts) > 0 {
		session, err := db.NewSession(cfg.ScyllaHosts, cfg.ScyllaKeyspace)
		if err != nil {
			return nil, nil, err
		}
		ids, err := snowflake.NewNode(1)
		if err != nil {
			return nil, nil, err
		}
		messages = store.NewScyllaStore(session, ids)
		cleanup = session.Close
		logger.Info("scylla message store connected", "keyspace", cfg.ScyllaKeyspace)
	} else {
		messages = store.NewMemoryStore()
		logger.Warn("no SCYLLA_HOSTS configured, messages are in-memory only")
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		messages = store.NewCachedStore(messages, client, cfg.HistoryCacheTTL, logger)
		logger.Info("redis history cache enabled", "addr", cfg.RedisAddr)
	}

	return messages, cleanup, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if _, err := s.tokens.ValidateToken(tokenString); err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}
