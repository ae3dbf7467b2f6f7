package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chat-responder/internal/domain"
	"chat-responder/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// UseCase is the chat service as seen by the transport.
type UseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	History(ctx context.Context, in usecase.HistoryInput) ([]domain.Turn, error)
	Teach(ctx context.Context, in usecase.TeachInput) (domain.KnowledgeEntry, error)
	Knowledge(ctx context.Context) ([]domain.KnowledgeEntry, error)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
}

type historyResponse struct {
	Turns []domain.Turn `json:"turns"`
}

type teachRequest struct {
	Trigger  string `json:"trigger"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

type knowledgeResponse struct {
	Entries []domain.KnowledgeEntry `json:"entries"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handler serves API Gateway proxy events.
type Handler struct {
	uc     UseCase
	logger *slog.Logger
}

func NewHandler(uc UseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc, logger: slog.Default()}, nil
}

// WithLogger returns h logging to logger.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Handle routes one request. Failures are reported in the response; the
// returned error is always nil so API Gateway never sees a Lambda error.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = newUUID()
	}

	resp := h.route(ctx, req)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Content-Type"] = "application/json"
	resp.Headers[correlationHeader] = correlationID

	h.logger.InfoContext(ctx, "request handled",
		"correlation_id", correlationID,
		"method", req.HTTPMethod,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (h *Handler) route(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	path := "/" + strings.Trim(req.Path, "/")
	method := strings.ToUpper(req.HTTPMethod)

	switch {
	case path == "/chat" && method == http.MethodPost:
		return h.chat(ctx, req)
	case path == "/history" && method == http.MethodGet:
		return h.history(ctx, req)
	case path == "/knowledge" && method == http.MethodPost:
		return h.teach(ctx, req)
	case path == "/knowledge" && method == http.MethodGet:
		return h.knowledge(ctx)
	case path == "/chat" || path == "/history" || path == "/knowledge":
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"})
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"})
	}
}

func (h *Handler) chat(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var in chatRequest
	if err := decodeBody(req, &in); err != nil {
		return h.fail(ctx, newInvalid("invalid_body", err))
	}
	out, err := h.uc.Chat(ctx, usecase.ChatInput{Message: in.Message, SessionID: in.SessionID})
	if err != nil {
		return h.fail(ctx, err)
	}
	return jsonResponse(http.StatusOK, chatResponse{Reply: out.Reply, SessionID: out.SessionID})
}

func (h *Handler) history(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	limit := 0
	if raw := strings.TrimSpace(req.QueryStringParameters["limit"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return h.fail(ctx, newInvalid("invalid_limit", err))
		}
		limit = n
	}
	turns, err := h.uc.History(ctx, usecase.HistoryInput{
		SessionID: req.QueryStringParameters["sessionId"],
		Limit:     limit,
	})
	if err != nil {
		return h.fail(ctx, err)
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	return jsonResponse(http.StatusOK, historyResponse{Turns: turns})
}

func (h *Handler) teach(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var in teachRequest
	if err := decodeBody(req, &in); err != nil {
		return h.fail(ctx, newInvalid("invalid_body", err))
	}
	entry, err := h.uc.Teach(ctx, usecase.TeachInput{Trigger: in.Trigger, Answer: in.Answer, Category: in.Category})
	if err != nil {
		return h.fail(ctx, err)
	}
	return jsonResponse(http.StatusCreated, entry)
}

func (h *Handler) knowledge(ctx context.Context) events.APIGatewayProxyResponse {
	entries, err := h.uc.Knowledge(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	if entries == nil {
		entries = []domain.KnowledgeEntry{}
	}
	return jsonResponse(http.StatusOK, knowledgeResponse{Entries: entries})
}

func (h *Handler) fail(ctx context.Context, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		h.logger.ErrorContext(ctx, "unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)})
	}

	status := statusFor(ucErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	}
	return jsonResponse(status, errorResponse{Error: string(ucErr.Code), Message: ucErr.Reason})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorKnowledgeStore, usecase.ErrorHistory:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newInvalid(reason string, err error) error {
	return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: reason, Err: err}
}

func decodeBody(req events.APIGatewayProxyRequest, dst any) error {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return fmt.Errorf("decode base64 body: %w", err)
		}
		body = string(raw)
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{},
		Body:       string(body),
	}
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var newUUID = func() string {
	return uuid.NewString()
}
