package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/outguess/backend/internal/registry"
	"github.com/outguess/backend/internal/room"
	"github.com/outguess/backend/internal/ws"
)

func Routes(ctx context.Context, log *zap.Logger, reg *registry.Registry, opts room.Options) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(ctx, log, reg, opts))

	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
