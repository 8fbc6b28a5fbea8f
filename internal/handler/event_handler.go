package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/queue"
	"github.com/kursadbilgin/notify-engine/internal/service"
)

type EventDispatcher interface {
	TriggerEvent(ctx context.Context, kind domain.EventKind, eventCtx domain.EventContext, opts *service.DeliveryOptions) (service.FanoutResult, error)
	SendTest(ctx context.Context, endpointID string) (service.FanoutResult, error)
}

type EventHandler struct {
	dispatcher EventDispatcher
	publisher  queue.Publisher
	queueName  string
}

// NewEventHandler returns a handler for event routes. publisher may be nil,
// in which case asynchronous submission is rejected.
func NewEventHandler(dispatcher EventDispatcher, publisher queue.Publisher, queueName string) (*EventHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("event dispatcher is required")
	}
	if strings.TrimSpace(queueName) == "" {
		queueName = queue.DefaultEventsQueue
	}
	return &EventHandler{dispatcher: dispatcher, publisher: publisher, queueName: queueName}, nil
}

func RegisterEventRoutes(router fiber.Router, h *EventHandler) {
	router.Post("/events", h.TriggerEvent)
	router.Post("/endpoints/:id/test", h.SendTest)
}

type triggerEventRequest struct {
	Kind    string              `json:"kind"`
	Context domain.EventContext `json:"context"`
	Options *queue.EventOptions `json:"options,omitempty"`
}

type fanoutResponse struct {
	Eligible  int                      `json:"eligible"`
	Delivered int                      `json:"delivered"`
	Results   []endpointResultResponse `json:"results"`
}

type endpointResultResponse struct {
	EndpointID   string  `json:"endpointId"`
	EndpointName string  `json:"endpointName,omitempty"`
	EndpointType string  `json:"endpointType"`
	Status       string  `json:"status"`
	Attempts     int     `json:"attempts"`
	Retries      int     `json:"retries"`
	Error        *string `json:"error,omitempty"`
}

type queuedEventResponse struct {
	EventID string `json:"eventId"`
	Queue   string `json:"queue"`
	Status  string `json:"status"`
}

// TriggerEvent dispatches an event and answers with the fan-out counts.
// With ?async=true the event is queued for the event worker instead.
func (h *EventHandler) TriggerEvent(c *fiber.Ctx) error {
	var req triggerEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseEventKind(req.Kind)
	if err != nil {
		return toHTTPError(err)
	}
	if err := req.Context.Validate(); err != nil {
		return toHTTPError(err)
	}
	if err := validateEventOptions(req.Options); err != nil {
		return toHTTPError(err)
	}

	ctx := c.UserContext()
	if c.QueryBool("async", false) {
		return h.enqueue(c, ctx, kind, req)
	}

	result, err := h.dispatcher.TriggerEvent(ctx, kind, req.Context, service.DeliveryOptionsFromMessage(req.Options))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toFanoutResponse(result))
}

func (h *EventHandler) enqueue(c *fiber.Ctx, ctx context.Context, kind domain.EventKind, req triggerEventRequest) error {
	if h.publisher == nil {
		return toHTTPError(fmt.Errorf("%w: asynchronous delivery is not configured", domain.ErrValidation))
	}

	correlationID, _ := observability.CorrelationIDFromContext(ctx)
	msg := queue.EventMessage{
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Kind:          kind,
		Context:       req.Context,
		Options:       req.Options,
	}
	if err := h.publisher.Publish(ctx, h.queueName, msg); err != nil {
		return fmt.Errorf("failed to queue event: %w", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(queuedEventResponse{
		EventID: msg.EventID,
		Queue:   h.queueName,
		Status:  "queued",
	})
}

// SendTest sends a test notification to one endpoint. An endpoint that
// cannot receive it is reported as "No target endpoints found".
func (h *EventHandler) SendTest(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	result, err := h.dispatcher.SendTest(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrNoTargets) {
			return fiber.NewError(fiber.StatusBadRequest, "No target endpoints found")
		}
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toFanoutResponse(result))
}

func validateEventOptions(opts *queue.EventOptions) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func toFanoutResponse(result service.FanoutResult) fanoutResponse {
	items := make([]endpointResultResponse, 0, len(result.Results))
	for _, r := range result.Results {
		items = append(items, endpointResultResponse{
			EndpointID:   r.EndpointID,
			EndpointName: r.EndpointName,
			EndpointType: r.EndpointType.String(),
			Status:       r.Result.Status.String(),
			Attempts:     r.Result.Attempts,
			Retries:      r.Result.Retries,
			Error:        r.Result.Error,
		})
	}

	return fanoutResponse{
		Eligible:  result.Eligible,
		Delivered: result.Delivered,
		Results:   items,
	}
}
