// Package respond maps session errors onto HTTP responses.
package respond

import (
	"errors"
	"net/http"

	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/pkg/utils"
)

// Status returns the HTTP status for an error returned by the session manager.
func Status(err error) int {
	switch {
	case errors.Is(err, session.ErrSendInFlight):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownTab):
		return http.StatusNotFound
	case errors.Is(err, session.ErrProfileUnavailable):
		return http.StatusUnauthorized
	}
	switch session.KindOf(err) {
	case session.KindValidation:
		return http.StatusBadRequest
	case session.KindGeneration:
		return http.StatusBadGateway
	case session.KindPersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Body builds the JSON error body. Generation and persistence failures carry
// the calm text the client shows in place of a reply.
func Body(err error) utils.ErrorBody {
	body := utils.ErrorBody{Error: err.Error(), Kind: string(session.KindOf(err))}
	switch session.KindOf(err) {
	case session.KindGeneration:
		body.Fallback = session.FallbackReply
	case session.KindPersistence:
		body.Fallback = session.PersistenceFailure
	}
	var e *session.Error
	if errors.As(err, &e) && e.Kind == session.KindValidation {
		body.Error = e.Err.Error()
	}
	return body
}

// Error writes err as a JSON error response.
func Error(w http.ResponseWriter, err error) {
	utils.RespondJSON(w, Status(err), Body(err))
}

// Failure is the response of a send that failed after the user message was
// accepted: the view the client should show plus the error.
type Failure struct {
	utils.ErrorBody
	Session session.Snapshot `json:"session"`
}

// SendError writes a failed send. The snapshot is included whenever the
// failure happened after validation so the client keeps the user message.
func SendError(w http.ResponseWriter, snap session.Snapshot, err error) {
	kind := session.KindOf(err)
	if kind != session.KindGeneration && kind != session.KindPersistence {
		Error(w, err)
		return
	}
	utils.RespondJSON(w, Status(err), Failure{ErrorBody: Body(err), Session: snap})
}
