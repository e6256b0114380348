package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"wayline/internal/domain"
	"wayline/internal/engine"
	"wayline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"session not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope every endpoint returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Wayline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Wayline API", "0.1.0")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerWhoami(group)
	registerSessions(group, cfg.Engine)
	registerActions(group, cfg.Engine)
	registerNarratives(group, cfg.Engine)
	registerQueue(group, cfg.Engine)
	registerFlags(group, cfg.Engine)
	registerEvents(group, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, engine.ErrNarrativeUnknown):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrNarrativeActive),
		errors.Is(err, engine.ErrNarrativeComplete),
		errors.Is(err, engine.ErrExclusiveConflict):
		return newAPIError(http.StatusConflict, "narrative_conflict", err.Error(), nil)
	case errors.Is(err, engine.ErrQueueFull):
		return newAPIError(http.StatusConflict, "queue_full", err.Error(), nil)
	case errors.Is(err, engine.ErrBadPosition):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerWhoami(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "auth-whoami",
		Method:      http.MethodGet,
		Path:        "/auth/whoami",
		Summary:     "Show the authenticated principal",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body Principal `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			// No middleware principal means auth is disabled.
			p = Principal{Source: "anonymous"}
		}
		return &struct {
			Body Principal `json:"body"`
		}{Body: p}, nil
	})
}

type sessionPath struct {
	SessionID string `path:"session_id"`
}

func registerSessions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "session-create",
		Method:      http.MethodPost,
		Path:        "/sessions",
		Summary:     "Create a session",
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID string `json:"id,omitempty" doc:"Optional session id; generated when empty"`
		}
	}) (*struct {
		Body domain.SessionSnapshot `json:"body"`
	}, error) {
		snap, err := e.CreateSession(ctx, input.Body.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SessionSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-get",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}",
		Summary:     "Get a session snapshot",
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body domain.SessionSnapshot `json:"body"`
	}, error) {
		s, err := e.GetSession(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SessionSnapshot `json:"body"`
		}{Body: s.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-list",
		Method:      http.MethodGet,
		Path:        "/sessions",
		Summary:     "List sessions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []repo.SessionInfo `json:"body"`
	}, error) {
		res, err := e.ListSessions(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []repo.SessionInfo `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-delete",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}",
		Summary:     "Delete a session",
	}, func(ctx context.Context, input *sessionPath) (*struct{}, error) {
		if err := e.DeleteSession(ctx, input.SessionID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "actions-list",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/actions",
		Summary:     "List available actions with scaled values",
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body []domain.ActionView `json:"body"`
	}, error) {
		views, err := e.ListActions(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ActionView `json:"body"`
		}{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "action-perform",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/actions/{action_id}",
		Summary:     "Attempt an action",
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		ActionID  string `path:"action_id"`
	}) (*struct {
		Body domain.ActionResult `json:"body"`
	}, error) {
		res, err := e.PerformAction(ctx, input.SessionID, input.ActionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ActionResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerNarratives(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "narrative-start",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/narratives/{narrative_id}/start",
		Summary:     "Start a narrative",
	}, func(ctx context.Context, input *struct {
		SessionID   string `path:"session_id"`
		NarrativeID string `path:"narrative_id"`
	}) (*struct {
		Body domain.SessionSnapshot `json:"body"`
	}, error) {
		s, err := e.StartNarrative(ctx, input.SessionID, input.NarrativeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SessionSnapshot `json:"body"`
		}{Body: s.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "narrative-status",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/narratives",
		Summary:     "Narrative progress",
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body []engine.NarrativeStatus `json:"body"`
	}, error) {
		res, err := e.NarrativeStatuses(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.NarrativeStatus `json:"body"`
		}{Body: res}, nil
	})
}

func registerQueue(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "queue-show",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/queue",
		Summary:     "Show the delivery queue",
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body []domain.DeliveryItem `json:"body"`
	}, error) {
		s, err := e.GetSession(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DeliveryItem `json:"body"`
		}{Body: s.Queue.Items()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "queue-accept",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/queue",
		Summary:     "Accept a delivery commitment",
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      domain.DeliveryItem
	}) (*struct {
		Body []domain.DeliveryItem `json:"body"`
	}, error) {
		s, err := e.AcceptDelivery(ctx, input.SessionID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DeliveryItem `json:"body"`
		}{Body: s.Queue.Items()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "queue-force",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/queue/force",
		Summary:     "Privileged front insertion",
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Item    domain.DeliveryItem `json:"item"`
			Penalty domain.Consequence  `json:"penalty,omitempty"`
		}
	}) (*struct {
		Body struct {
			Evicted *domain.DeliveryItem `json:"evicted,omitempty"`
		}
	}, error) {
		evicted, err := e.ForceDeliveryFront(ctx, input.SessionID, input.Body.Item, input.Body.Penalty)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Evicted *domain.DeliveryItem `json:"evicted,omitempty"`
			}
		}{}
		out.Body.Evicted = evicted
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "queue-reorder",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/queue/reorder",
		Summary:     "Reorder queued deliveries",
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      struct {
			From int `json:"from" minimum:"1"`
			To   int `json:"to" minimum:"1"`
		}
	}) (*struct {
		Body []domain.DeliveryItem `json:"body"`
	}, error) {
		s, err := e.ReorderDelivery(ctx, input.SessionID, input.Body.From, input.Body.To)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DeliveryItem `json:"body"`
		}{Body: s.Queue.Items()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "queue-deliver",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/queue/{position}/deliver",
		Summary:     "Complete the delivery at a position",
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Position  int    `path:"position" minimum:"1"`
		Body      struct {
			Reward domain.Consequence `json:"reward,omitempty"`
		}
	}) (*struct {
		Body domain.ActionResult `json:"body"`
	}, error) {
		res, err := e.CompleteDelivery(ctx, input.SessionID, input.Position, input.Body.Reward)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ActionResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerFlags(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "flags-show",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/flags",
		Summary:     "Show session flags and counters",
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body domain.FlagSnapshot `json:"body"`
	}, error) {
		s, err := e.GetSession(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FlagSnapshot `json:"body"`
		}{Body: s.Flags.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "flag-set",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/flags/{name}",
		Summary:     "Set a flag or counter",
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Name      string `path:"name"`
		Body      struct {
			Flag    *bool `json:"flag,omitempty"`
			Counter *int  `json:"counter,omitempty"`
		}
	}) (*struct {
		Body domain.FlagSnapshot `json:"body"`
	}, error) {
		var (
			s   *engine.Session
			err error
		)
		switch {
		case input.Body.Flag != nil:
			s, err = e.SetFlag(ctx, input.SessionID, input.Name, *input.Body.Flag)
		case input.Body.Counter != nil:
			s, err = e.SetCounter(ctx, input.SessionID, input.Name, *input.Body.Counter)
		default:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "flag or counter value required", nil)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FlagSnapshot `json:"body"`
		}{Body: s.Flags.Snapshot()}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "events-list",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/events",
		Summary:     "Tail the session event log",
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Limit     int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
		Type      string `query:"type"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		res, err := e.Repo.LatestEvents(ctx, input.Limit, input.SessionID, input.Type, "", "")
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: res}, nil
	})
}
