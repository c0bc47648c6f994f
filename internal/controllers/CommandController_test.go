package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"perimeterd/internal/bridge"
	"perimeterd/internal/models"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/services"
	"perimeterd/internal/testutil"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCommands struct {
	got   models.Invocation
	reply models.Reply
	err   error
}

func (m *mockCommands) Execute(_ context.Context, inv models.Invocation) (models.Reply, error) {
	m.got = inv
	return m.reply, m.err
}

func (m *mockCommands) Status(_ context.Context) services.StatusReport {
	return services.StatusReport{State: models.PostureNormal, BlockTerms: []string{"phonk"}}
}

type mockTripwire struct {
	got     models.PlayerInvocation
	outcome perimeter.TripwireOutcome
}

func (m *mockTripwire) Intercept(_ context.Context, inv models.PlayerInvocation) perimeter.TripwireOutcome {
	m.got = inv
	return m.outcome
}

func newController(cmds *mockCommands, tw *mockTripwire) *CommandController {
	return NewCommandController(&testutil.MockLogger{}, cmds, tw)
}

func post(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestCommand_Success(t *testing.T) {
	cmds := &mockCommands{reply: models.Reply{OK: true, Message: "Panic engaged."}}
	cc := newController(cmds, &mockTripwire{})

	rr := post(cc.Command, `{"command":"panic","args":"now","caller_id":"op","guild_id":"G","channel_id":"T"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "panic", cmds.got.Command)
	assert.Equal(t, "now", cmds.got.Args)

	var reply models.Reply
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reply))
	assert.True(t, reply.OK)
	assert.Equal(t, "Panic engaged.", reply.Message)
}

func TestCommand_BadRequest(t *testing.T) {
	cc := newController(&mockCommands{}, &mockTripwire{})

	assert.Equal(t, http.StatusBadRequest, post(cc.Command, `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(cc.Command, `{"command":"panic"}`).Code)
}

func TestCommand_BodyTooLarge(t *testing.T) {
	cc := newController(&mockCommands{}, &mockTripwire{})

	big := `{"command":"x","args":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	assert.Equal(t, http.StatusBadRequest, post(cc.Command, big).Code)
}

func TestCommand_ErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{perimeter.ErrNotOperator, http.StatusForbidden},
		{perimeter.ErrWrongVoiceChannel, http.StatusForbidden},
		{perimeter.ErrPanicLocked, http.StatusForbidden},
		{fmt.Errorf("%w: join", perimeter.ErrNotInVoice), http.StatusForbidden},
		{perimeter.ErrSuspended, http.StatusConflict},
		{perimeter.ErrNotHome, http.StatusConflict},
		{perimeter.ErrNoSavedStation, http.StatusNotFound},
		{perimeter.ErrBlocked, http.StatusUnprocessableEntity},
		{perimeter.ErrUnknownCommand, http.StatusBadRequest},
		{perimeter.ErrInvalidSelection, http.StatusBadRequest},
		{&perimeter.PlayerError{Op: "play", Err: errors.New("down")}, http.StatusBadGateway},
		{fmt.Errorf("searching: %w", bridge.ErrUnavailable), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			cmds := &mockCommands{reply: models.Reply{Message: tt.err.Error()}, err: tt.err}
			cc := newController(cmds, &mockTripwire{})

			rr := post(cc.Command, `{"command":"x","caller_id":"op"}`)
			assert.Equal(t, tt.status, rr.Code)

			var reply models.Reply
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reply))
			assert.False(t, reply.OK)
			assert.Equal(t, tt.err.Error(), reply.Message)
		})
	}
}

func TestTripwire(t *testing.T) {
	tw := &mockTripwire{outcome: perimeter.TripwireOutcome{
		Verdict: perimeter.VerdictViolation,
		Edge:    perimeter.EdgePanic,
		Message: "outside",
	}}
	cc := newController(&mockCommands{}, tw)

	rr := post(cc.Tripwire, `{"command":"play","content":"play something","caller_id":"x","guild_id":"G","channel_id":"C"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "play something", tw.got.Content)

	var out perimeter.TripwireOutcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, perimeter.VerdictViolation, out.Verdict)
	assert.Equal(t, perimeter.EdgePanic, out.Edge)

	assert.Equal(t, http.StatusBadRequest, post(cc.Tripwire, `{}`).Code)
}

func TestStatus(t *testing.T) {
	cc := newController(&mockCommands{}, &mockTripwire{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	cc.Status(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "normal", resp["state"])
	assert.Equal(t, []any{"phonk"}, resp["block_terms"])
}
