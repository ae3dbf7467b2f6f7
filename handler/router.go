package handler

import (
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// NewRouter exposes h over plain HTTP for local runs. Requests are converted
// to API Gateway proxy events so both transports share one code path.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	serve := h.serveHTTP
	r.Post("/chat", serve)
	r.Get("/history", serve)
	r.Get("/knowledge", serve)
	r.Post("/knowledge", serve)

	return r
}

func (h *Handler) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	event := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               map[string]string{},
		QueryStringParameters: map[string]string{},
		Body:                  string(body),
	}
	for k := range r.Header {
		event.Headers[k] = r.Header.Get(k)
	}
	for k := range r.URL.Query() {
		event.QueryStringParameters[k] = r.URL.Query().Get(k)
	}
	if headerValue(event.Headers, correlationHeader) == "" {
		if id := middleware.GetReqID(r.Context()); id != "" {
			event.Headers[correlationHeader] = id
		}
	}

	resp, _ := h.Handle(r.Context(), event)
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}
