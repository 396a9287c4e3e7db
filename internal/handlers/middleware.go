package handlers

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coverly/erp-bridge/internal/config"
	"github.com/coverly/erp-bridge/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(logger *logrus.Logger, db *gorm.DB) func(http.Handler) http.Handler {
	logEntry := logger.WithField("component", "http_middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				duration := time.Since(start)
				logEntry.WithFields(logrus.Fields{
					"method":    r.Method,
					"path":      r.URL.Path,
					"status":    lrw.statusCode,
					"duration":  duration,
					"client_ip": getClientIP(r),
				}).Info("Request processed")

				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()

					entry := models.AccessLog{
						Timestamp: start,
						Method:    r.Method,
						Path:      r.URL.Path,
						Status:    lrw.statusCode,
						Duration:  duration,
						ClientIP:  getClientIP(r),
						UserAgent: r.UserAgent(),
					}

					if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
						logEntry.WithError(err).Warn("Failed to save access log")
					}
				}()
			}()

			next.ServeHTTP(lrw, r)
		})
	}
}

// RateLimitMiddleware applies a per-client token bucket across the admin
// surface. Stale client buckets are dropped by a background janitor.
func RateLimitMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	var (
		clients = make(map[string]*clientLimiter)
		mu      sync.Mutex
	)

	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, client := range clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			mu.Lock()
			client, exists := clients[clientIP]
			if !exists {
				client = &clientLimiter{
					limiter: rate.NewLimiter(
						rate.Limit(float64(cfg.RateLimit)/cfg.RateLimitWindow.Seconds()),
						cfg.RateLimit,
					),
				}
				clients[clientIP] = client
			}
			client.lastSeen = time.Now()
			mu.Unlock()

			if !client.limiter.Allow() {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SharedSecretMiddleware guards administrative endpoints with a constant-time
// header comparison. An empty configured secret disables the check, for local
// development only.
func SharedSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				provided := r.Header.Get("X-Internal-Secret")
				if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		var err error
		ip, _, err = net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
	}
	if strings.Contains(ip, ",") {
		parts := strings.Split(ip, ",")
		ip = strings.TrimSpace(parts[0])
	}
	return ip
}
