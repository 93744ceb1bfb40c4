package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/metrics"
	"movieweb/proj/internal/services/accounts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

const (
	responseCachePrefix = "resp:"
	adminKeyHeader      = "X-Admin-Key"
)

func (app *Application) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil && rec != http.ErrAbortHandler {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				w.Header().Set("Connection", "close")
				app.Http.ServerError(w, r, err, "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *Application) RateLimiter(next http.Handler) http.Handler {
	const op = "middlewares.RateLimiter"
	log := app.log.With("op", op)
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	clients := make(map[string]*client)
	var mu sync.Mutex
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			mu.Lock()
			for ip, client := range clients {
				if time.Since(client.lastSeen) > 5*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.cfg.Limiter.Enabled {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			mu.Lock()
			c, ok := clients[ip]
			if !ok {
				c = &client{limiter: rate.NewLimiter(rate.Limit(app.cfg.Limiter.Rps), app.cfg.Limiter.Burst)}
				clients[ip] = c
			}
			c.lastSeen = time.Now()
			allowed := c.limiter.Allow()
			mu.Unlock()
			if !allowed {
				log.Warn("rate limit exceeded", "ip", ip)
				app.Http.TooManyRequests(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type CtxKey string

const CtxKeyUser CtxKey = "user"

func (app *Application) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := models.AnonymousUser

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			const bearerLength = len("Bearer ")
			if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) < bearerLength+1 {
				app.log.Warn("Invalid auth header")
				app.Http.BadRequest(w, r, "Invalid Authorization header, should be 'Bearer <token>'")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			authenticated, err := app.Services.Accounts.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, accounts.ErrInvalidToken) {
					app.Http.Unauthorized(w, r, "Invalid or expired token")
					return
				}
				app.Http.ServerError(w, r, err, "")
				return
			}
			user = authenticated
		}
		r = r.WithContext(context.WithValue(r.Context(), CtxKeyUser, user))
		next.ServeHTTP(w, r)
	})
}

func (app *Application) requireAuthenticatedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contextGetUser(r).IsAnonymous() {
			app.Http.Unauthorized(w, r, "You must be logged in to access this resource")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSelf lets the request through only when the {userID} in the path is
// the authenticated user.
func (app *Application) requireSelf(next http.Handler) http.Handler {
	return app.requireAuthenticatedUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := app.extractIDParam(w, r, "userID")
		if !ok {
			return
		}
		if contextGetUser(r).ID != userID {
			app.Http.Forbidden(w, r, "You can only change your own list")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// requireAdmin lets through listed administrators presenting the admin key.
// Accounts are name-only, so the name alone proves nothing.
func (app *Application) requireAdmin(next http.Handler) http.Handler {
	return app.requireAuthenticatedUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.cfg.Auth.IsAdmin(contextGetUser(r).Name) || !app.cfg.Auth.AdminKeyMatches(r.Header.Get(adminKeyHeader)) {
			app.Http.Forbidden(w, r, "Administrator rights required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// instrument records request counts and latencies labeled with the chi route
// pattern so path parameters do not explode the label space.
func (app *Application) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

func responseCacheKey(r *http.Request) string {
	return responseCachePrefix + r.URL.Path + "?" + r.URL.Query().Encode()
}

// cacheResponse serves successful GET responses from the cache for cfg.Cache.TTL.
// A response is only stored when no write was committed while it was built.
func (app *Application) cacheResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.cfg.Cache.Enabled || app.cache == nil || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		key := responseCacheKey(r)
		body, hit, err := app.cache.Get(r.Context(), key)
		if err != nil {
			app.log.Warn("response cache unavailable", "key", key, "errMsg", err.Error())
		}
		metrics.RecordCacheLookup(hit)
		if hit {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
		gen := app.cacheGen.Load()
		var buf bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&buf)
		ww.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(ww, r)
		if ww.Status() != http.StatusOK || app.cacheGen.Load() != gen {
			return
		}
		if err := app.cache.Set(r.Context(), key, buf.Bytes(), app.cfg.Cache.TTL); err != nil {
			app.log.Warn("failed to cache response", "key", key, "errMsg", err.Error())
			return
		}
		// a write may have invalidated between the check and Set
		if app.cacheGen.Load() != gen {
			if err := app.cache.Delete(r.Context(), key); err != nil {
				app.log.Warn("failed to drop stale response", "key", key, "errMsg", err.Error())
			}
		}
	})
}

// deferredWriter holds a response back until it is flushed.
type deferredWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *deferredWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *deferredWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *deferredWriter) flush() {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.Write(w.body.Bytes())
}

// invalidateCache drops every cached response after a successful write,
// before the client sees the response.
func (app *Application) invalidateCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		dw := &deferredWriter{ResponseWriter: w}
		next.ServeHTTP(dw, r)
		if app.cache != nil && dw.status < http.StatusBadRequest {
			app.cacheGen.Add(1)
			if err := app.cache.DeletePrefix(r.Context(), responseCachePrefix); err != nil {
				app.log.Error("failed to invalidate response cache", "errMsg", err.Error())
			}
		}
		dw.flush()
	})
}
