package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/veloshop/veloshop/internal/pkg/cache"
	"github.com/veloshop/veloshop/internal/pkg/env"
)

var sessionStore *session.Store

// NewSessionStore creates the shared session store backed by Redis. The cart
// is keyed by the session id, so sessions must survive process restarts.
func NewSessionStore() *session.Store {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Sessions live in database 1, the cart cache uses DB 0.
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

// GetSessionStore returns the shared session store.
func GetSessionStore() *session.Store {
	return sessionStore
}

// SessionID returns the caller's session id, creating the session if needed.
func SessionID(c *fiber.Ctx) (string, error) {
	store := GetSessionStore()
	if store == nil {
		return "", fmt.Errorf("session store not initialized")
	}

	sess, err := store.Get(c)
	if err != nil {
		return "", err
	}
	id := sess.ID()
	if err := sess.Save(); err != nil {
		return "", err
	}
	return id, nil
}
