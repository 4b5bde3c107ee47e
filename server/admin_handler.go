package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NawaxRadio/core/catalog"
	"NawaxRadio/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

// syncInterval is the minimum time between two admin triggered syncs.
const syncInterval = 30 * time.Second

// CatalogSyncer runs a catalog sync on demand.
type CatalogSyncer interface {
	SyncNow(ctx context.Context) (catalog.SyncResult, error)
}

// AdminHandler exposes operator endpoints guarded by a signed token.
type AdminHandler struct {
	secret  []byte
	syncer  CatalogSyncer
	limiter *rate.Limiter
}

// NewAdminHandler creates the admin handler. An empty secret disables it.
func NewAdminHandler(secret string, syncer CatalogSyncer) *AdminHandler {
	return &AdminHandler{
		secret:  []byte(secret),
		syncer:  syncer,
		limiter: rate.NewLimiter(rate.Every(syncInterval), 1),
	}
}

// Enabled reports whether a signing secret was configured.
func (h *AdminHandler) Enabled() bool {
	return len(h.secret) > 0
}

// RequireAdmin rejects requests without a valid admin token.
func (h *AdminHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.Enabled() {
			http.NotFound(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "missing bearer token"})
			return
		}

		role, err := h.parseRole(strings.TrimSpace(tokenString))
		if err != nil {
			logger.Warn("admin token rejected", logger.String("path", r.URL.Path), logger.ErrorField(err))
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "invalid token"})
			return
		}
		if role != "admin" {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden", Message: "admin role required"})
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) parseRole(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}
	role, _ := claims["role"].(string)
	return role, nil
}

// SyncHandler runs a catalog sync and reports the counts.
func (h *AdminHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(syncInterval.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limited", Message: "a sync ran recently, try again later"})
		return
	}

	logger.Info("admin catalog sync started")
	res, err := h.syncer.SyncNow(r.Context())
	if err != nil {
		logger.Error("admin catalog sync failed", logger.ErrorField(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "sync_failed", Message: err.Error()})
		return
	}
	logger.Info("admin catalog sync done",
		logger.Int("fetched", res.Fetched),
		logger.Int("upserted", res.Upserted),
		logger.Int("active", res.Active))
	writeJSON(w, http.StatusOK, res)
}
