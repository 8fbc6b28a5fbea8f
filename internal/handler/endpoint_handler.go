package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/repository"
)

const redactedValue = "********"

type EndpointStore interface {
	Create(ctx context.Context, e *domain.NotificationEndpoint) error
	GetByID(ctx context.Context, id string) (*domain.NotificationEndpoint, error)
	List(ctx context.Context, filter repository.EndpointFilter) ([]domain.NotificationEndpoint, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
}

type AttemptLister interface {
	ListByEndpoint(ctx context.Context, endpointID string, limit int) ([]domain.DeliveryAttempt, error)
}

type EndpointHandler struct {
	endpoints EndpointStore
	attempts  AttemptLister
}

func NewEndpointHandler(endpoints EndpointStore, attempts AttemptLister) (*EndpointHandler, error) {
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint store is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt lister is required")
	}
	return &EndpointHandler{endpoints: endpoints, attempts: attempts}, nil
}

func RegisterEndpointRoutes(router fiber.Router, h *EndpointHandler) {
	router.Get("/endpoints", h.ListEndpoints)
	router.Post("/endpoints", h.CreateEndpoint)
	router.Get("/endpoints/:id", h.GetEndpoint)
	router.Patch("/endpoints/:id", h.UpdateEndpoint)
	router.Delete("/endpoints/:id", h.DeleteEndpoint)
	router.Get("/endpoints/:id/attempts", h.ListAttempts)
}

type eventFilterPayload struct {
	Bitmask bool     `json:"bitmask"`
	Types   uint64   `json:"types"`
	Kinds   []string `json:"kinds,omitempty"`
}

type createEndpointRequest struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Enabled     *bool              `json:"enabled"`
	OwnerUserID *string            `json:"ownerUserId"`
	EventFilter eventFilterPayload `json:"eventFilter"`
	Config      map[string]string  `json:"config"`
}

type updateEndpointRequest struct {
	Enabled *bool `json:"enabled"`
}

type endpointResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Enabled     bool               `json:"enabled"`
	Global      bool               `json:"global"`
	OwnerUserID *string            `json:"ownerUserId,omitempty"`
	EventFilter eventFilterPayload `json:"eventFilter"`
	Config      map[string]string  `json:"config"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type attemptResponse struct {
	ID            string         `json:"id"`
	EndpointID    string         `json:"endpointId"`
	EndpointType  string         `json:"endpointType"`
	EventKind     string         `json:"eventKind"`
	AttemptNumber int            `json:"attemptNumber"`
	Status        string         `json:"status"`
	DurationMs    int64          `json:"durationMs"`
	ErrorMessage  *string        `json:"errorMessage,omitempty"`
	TargetUserID  *string        `json:"targetUserId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (h *EndpointHandler) CreateEndpoint(c *fiber.Ctx) error {
	var req createEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	endpoint, err := requestToDomainEndpoint(req)
	if err != nil {
		return toHTTPError(err)
	}

	if err := h.endpoints.Create(c.UserContext(), &endpoint); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toEndpointResponse(&endpoint))
}

func (h *EndpointHandler) GetEndpoint(c *fiber.Ctx) error {
	endpoint, err := h.endpoints.GetByID(c.UserContext(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toEndpointResponse(endpoint))
}

func (h *EndpointHandler) ListEndpoints(c *fiber.Ctx) error {
	filter := repository.EndpointFilter{
		OwnerUserID: strings.TrimSpace(c.Query("ownerUserId")),
		GlobalOnly:  c.QueryBool("global", false),
		Limit:       c.QueryInt("limit", repository.DefaultListLimit),
		Offset:      c.QueryInt("offset", 0),
	}
	if filter.Limit < 1 || filter.Limit > repository.MaxListLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, repository.MaxListLimit))
	}
	if filter.Offset < 0 {
		return toHTTPError(fmt.Errorf("%w: offset must be >= 0", domain.ErrValidation))
	}
	if rawType := strings.TrimSpace(c.Query("type")); rawType != "" {
		channelType, err := domain.ParseChannelType(rawType)
		if err != nil {
			return toHTTPError(err)
		}
		filter.Type = channelType
	}

	endpoints, err := h.endpoints.List(c.UserContext(), filter)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]endpointResponse, 0, len(endpoints))
	for i := range endpoints {
		data = append(data, toEndpointResponse(&endpoints[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}

func (h *EndpointHandler) UpdateEndpoint(c *fiber.Ctx) error {
	var req updateEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Enabled == nil {
		return toHTTPError(fmt.Errorf("%w: enabled is required", domain.ErrValidation))
	}

	id := strings.TrimSpace(c.Params("id"))
	if err := h.endpoints.SetEnabled(c.UserContext(), id, *req.Enabled); err != nil {
		return toHTTPError(err)
	}

	endpoint, err := h.endpoints.GetByID(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toEndpointResponse(endpoint))
}

func (h *EndpointHandler) DeleteEndpoint(c *fiber.Ctx) error {
	if err := h.endpoints.Delete(c.UserContext(), strings.TrimSpace(c.Params("id"))); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAttempts returns the newest delivery attempts of an endpoint.
func (h *EndpointHandler) ListAttempts(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	limit := c.QueryInt("limit", repository.DefaultListLimit)
	if limit < 1 || limit > repository.MaxListLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, repository.MaxListLimit))
	}

	if _, err := h.endpoints.GetByID(c.UserContext(), id); err != nil {
		return toHTTPError(err)
	}

	attempts, err := h.attempts.ListByEndpoint(c.UserContext(), id, limit)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		data = append(data, attemptResponse{
			ID:            a.ID,
			EndpointID:    a.EndpointID,
			EndpointType:  a.EndpointType.String(),
			EventKind:     a.EventKind.String(),
			AttemptNumber: a.AttemptNumber,
			Status:        a.Status.String(),
			DurationMs:    a.DurationMs,
			ErrorMessage:  a.ErrorMessage,
			TargetUserID:  a.TargetUserID,
			Metadata:      a.Metadata,
			CreatedAt:     a.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}

func requestToDomainEndpoint(req createEndpointRequest) (domain.NotificationEndpoint, error) {
	channelType, err := domain.ParseChannelType(req.Type)
	if err != nil {
		return domain.NotificationEndpoint{}, err
	}

	kinds := make([]domain.EventKind, 0, len(req.EventFilter.Kinds))
	for _, raw := range req.EventFilter.Kinds {
		kind, err := domain.ParseEventKind(raw)
		if err != nil {
			return domain.NotificationEndpoint{}, err
		}
		kinds = append(kinds, kind)
	}

	endpoint := domain.NotificationEndpoint{
		ID:      strings.TrimSpace(req.ID),
		Name:    strings.TrimSpace(req.Name),
		Type:    channelType,
		Enabled: req.Enabled == nil || *req.Enabled,
		Filter: domain.EventFilter{
			Bitmask: req.EventFilter.Bitmask,
			Types:   req.EventFilter.Types,
			Kinds:   kinds,
		},
		Config: req.Config,
	}
	if req.OwnerUserID != nil {
		if owner := strings.TrimSpace(*req.OwnerUserID); owner != "" {
			endpoint.OwnerUserID = &owner
		}
	}

	return endpoint, nil
}

func toEndpointResponse(e *domain.NotificationEndpoint) endpointResponse {
	if e == nil {
		return endpointResponse{}
	}

	kinds := make([]string, 0, len(e.Filter.Kinds))
	for _, k := range e.Filter.Kinds {
		kinds = append(kinds, k.String())
	}

	return endpointResponse{
		ID:          e.ID,
		Name:        e.Name,
		Type:        e.Type.String(),
		Enabled:     e.Enabled,
		Global:      e.IsGlobal(),
		OwnerUserID: e.OwnerUserID,
		EventFilter: eventFilterPayload{
			Bitmask: e.Filter.Bitmask,
			Types:   e.Filter.Types,
			Kinds:   kinds,
		},
		Config:    redactConfig(e.Config),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// redactConfig hides credential values from API responses.
func redactConfig(config map[string]string) map[string]string {
	out := make(map[string]string, len(config))
	for k, v := range config {
		if v != "" && isSecretKey(k) {
			v = redactedValue
		}
		out[k] = v
	}
	return out
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range []string{"token", "pass", "secret", "authheader", "webhookurl"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
