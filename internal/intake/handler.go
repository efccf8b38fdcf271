package intake

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/riskdesk-demo/internal/http/response"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

// MaxBodyBytes caps the size of a submission body.
const MaxBodyBytes = 64 << 10

type submitter interface {
	Submit(ctx context.Context, raw []byte) Result
}

// Handler exposes the intake pipeline over HTTP.
type Handler struct {
	service submitter
	logger  *logging.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("intake: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /api/demo-requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		lang := requestedLanguage(raw)
		if errors.As(err, &tooLarge) {
			response.JSON(w, http.StatusRequestEntityTooLarge, response.FieldFailure(
				copyFor(lang).tooLarge,
				map[string][]string{"body": {copyFor(lang).tooLarge}},
			))
			return
		}
		h.logger.Warn("intake: read body failed", "error", err)
		response.JSON(w, http.StatusBadRequest, response.FieldFailure(
			copyFor(lang).invalid,
			map[string][]string{"body": {"could not read request body"}},
		))
		return
	}

	res := h.service.Submit(r.Context(), raw)
	response.JSON(w, res.Status, res.Body)
}
