package dialog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroyrent/rentbot/internal/domain/session"
)

type recordingMessenger struct {
	deleted   []string
	sent      []string
	deleteErr error
	sendErr   error
}

func (r *recordingMessenger) DeleteMessage(_ context.Context, _ int64, ref string) error {
	r.deleted = append(r.deleted, ref)
	return r.deleteErr
}

func (r *recordingMessenger) SendText(_ context.Context, _ int64, text string) error {
	r.sent = append(r.sent, text)
	return r.sendErr
}

func TestPlanRecovery(t *testing.T) {
	plan := PlanRecovery("msg-17")
	require.Len(t, plan, 3)
	assert.Equal(t, RecoverDeleteMessage, plan[0].Kind)
	assert.Equal(t, "msg-17", plan[0].Ref)
	assert.Equal(t, RecoverResetSession, plan[1].Kind)
	assert.Equal(t, RecoverNotify, plan[2].Kind)
	assert.NotEmpty(t, plan[2].Text)
}

func TestRecover_RunsAllEffects(t *testing.T) {
	e := newTestEnv()
	start(t, e)
	_, err := e.sessions.Update(context.Background(), convID, func(s *session.Session) {
		s.Push(session.StatePhoneEntry)
		s.Set(keyPhone, "+79930057019")
	})
	require.NoError(t, err)

	msgr := &recordingMessenger{}
	p := e.machine.Recover(context.Background(), convID, "msg-17", msgr)

	assert.Equal(t, session.StateRoot, p.State)
	assert.Equal(t, []string{"msg-17"}, msgr.deleted)
	assert.Len(t, msgr.sent, 1)

	sess := storedState(t, e)
	assert.Equal(t, session.StateRoot, sess.State)
	assert.Empty(t, sess.Stack)
	assert.Empty(t, sess.Get(keyPhone))
}

func TestRecover_PartialFailureDoesNotBlock(t *testing.T) {
	e := newTestEnv()
	start(t, e)
	_, err := e.sessions.Update(context.Background(), convID, func(s *session.Session) {
		s.Push(session.StateAddressEntry)
	})
	require.NoError(t, err)

	msgr := &recordingMessenger{deleteErr: errors.New("message already gone")}
	p := e.machine.Recover(context.Background(), convID, "msg-17", msgr)

	assert.Equal(t, session.StateRoot, p.State)
	assert.Len(t, msgr.sent, 1, "notification must still be attempted")
	assert.Equal(t, session.StateRoot, storedState(t, e).State)
}

func TestRecover_NoSessionCreatesRoot(t *testing.T) {
	e := newTestEnv()
	msgr := &recordingMessenger{}
	p := e.machine.Recover(context.Background(), convID, "", msgr)

	assert.Equal(t, session.StateRoot, p.State)
	assert.Empty(t, msgr.deleted, "no stale ref, nothing to delete")
	assert.Equal(t, session.StateRoot, storedState(t, e).State)
}
