// Package health реализует проверку живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/carpool/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger зависимость, доступность которой входит в ответ.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response тело ответа.
type Response struct {
	Status       string            `json:"status" example:"ok"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type Handler struct {
	log  *slog.Logger
	deps map[string]Pinger
}

func New(log *slog.Logger, deps map[string]Pinger) *Handler {
	return &Handler{
		log:  log,
		deps: deps,
	}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Tags Health
// @Produce  json
// @Success 200 {object} Response
// @Failure 503 {object} Response "Недоступна одна из зависимостей"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	resp := Response{Status: "ok"}
	if len(h.deps) > 0 {
		resp.Dependencies = make(map[string]string, len(h.deps))
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn("dependency is unavailable", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			resp.Dependencies[name] = "unavailable"
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	if resp.Status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
