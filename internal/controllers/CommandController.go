package controllers

import (
	"errors"
	"net/http"
	"perimeterd/internal/bridge"
	"perimeterd/internal/directory"
	"perimeterd/internal/models"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/providers"
	"perimeterd/internal/services"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 64 << 10 // 64 KB

type CommandController struct {
	logger   providers.Logger
	commands services.CommandServiceInterface
	tripwire perimeter.TripwireInterface
}

func NewCommandController(logger providers.Logger, commands services.CommandServiceInterface, tripwire perimeter.TripwireInterface) *CommandController {
	return &CommandController{
		logger:   logger,
		commands: commands,
		tripwire: tripwire,
	}
}

// Command runs one operator or protected-user command. The reply body is
// always a models.Reply so the host can relay the message verbatim.
func (cc *CommandController) Command(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var inv models.Invocation
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if inv.Command == "" || inv.CallerID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	reply, err := cc.commands.Execute(r.Context(), inv)
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, reply)
}

// Tripwire is called by the host before the player acts on a command.
func (cc *CommandController) Tripwire(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var inv models.PlayerInvocation
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil || inv.Command == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	outcome := cc.tripwire.Intercept(r.Context(), inv)
	if outcome.Verdict == perimeter.VerdictViolation {
		cc.logger.Warnf(providers.TypeSecurity, "Tripwire %s on %q: %s", outcome.Edge, inv.Command, outcome.Message)
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (cc *CommandController) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cc.commands.Status(r.Context()))
}

func statusFor(err error) int {
	var playerErr *perimeter.PlayerError
	switch {
	case errors.As(err, &playerErr),
		errors.Is(err, directory.ErrUnavailable),
		errors.Is(err, bridge.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, perimeter.ErrNotOperator),
		errors.Is(err, perimeter.ErrNotProtectedUser),
		errors.Is(err, perimeter.ErrNotBound),
		errors.Is(err, perimeter.ErrWrongGuild),
		errors.Is(err, perimeter.ErrWrongChannel),
		errors.Is(err, perimeter.ErrPanicLocked),
		errors.Is(err, perimeter.ErrVoiceLockUnset),
		errors.Is(err, perimeter.ErrNotInVoice),
		errors.Is(err, perimeter.ErrWrongVoiceChannel):
		return http.StatusForbidden
	case errors.Is(err, perimeter.ErrSuspended),
		errors.Is(err, perimeter.ErrNotHome):
		return http.StatusConflict
	case errors.Is(err, perimeter.ErrNoResults),
		errors.Is(err, perimeter.ErrNoSavedStation):
		return http.StatusNotFound
	case errors.Is(err, perimeter.ErrBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, perimeter.ErrInvalidArgument),
		errors.Is(err, perimeter.ErrInvalidSelection),
		errors.Is(err, perimeter.ErrUnknownCommand):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}
