package history

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alisoliman/realtime-api/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store *Store
	log   *slog.Logger
}

func NewHandler(store *Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	convs, err := h.store.List(c.Request().Context(), limit, offset)
	if err != nil {
		h.log.Error("failed to list conversations", "error", err)
		return shared.InternalError("list_failed", "could not list conversations")
	}
	if convs == nil {
		convs = []Conversation{}
	}
	return c.JSON(http.StatusOK, convs)
}

func (h *Handler) Get(c echo.Context) error {
	conv, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("conversation_not_found", "conversation not found")
	}
	if err != nil {
		h.log.Error("failed to load conversation", "error", err)
		return shared.InternalError("get_failed", "could not load conversation")
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *Handler) Delete(c echo.Context) error {
	err := h.store.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("conversation_not_found", "conversation not found")
	}
	if err != nil {
		h.log.Error("failed to delete conversation", "error", err)
		return shared.InternalError("delete_failed", "could not delete conversation")
	}
	return c.NoContent(http.StatusNoContent)
}
