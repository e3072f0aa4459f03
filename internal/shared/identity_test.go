package shared

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*miniredis.Miniredis, *SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewSessionStore(client, "session")
}

func TestResolveKnownToken(t *testing.T) {
	mr, store := newSessionFixture(t)

	userID := uuid.New()
	payload, err := json.Marshal(sessionRecord{UserID: userID.String(), Role: "manager"})
	require.NoError(t, err)
	require.NoError(t, mr.Set("session:tok-1", string(payload)))

	actor, err := store.Resolve(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Equal(t, userID, actor.UserID)
	require.Equal(t, "manager", actor.Role)
}

func TestResolveUnknownOrEmptyToken(t *testing.T) {
	_, store := newSessionFixture(t)

	_, err := store.Resolve(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResolveCorruptSession(t *testing.T) {
	mr, store := newSessionFixture(t)

	require.NoError(t, mr.Set("session:bad", "{not json"))
	_, err := store.Resolve(context.Background(), "bad")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestActorContextRoundTrip(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: "staff"}
	ctx := ContextWithActor(context.Background(), actor)
	require.Equal(t, actor, ActorFromContext(ctx))

	require.Equal(t, Actor{}, ActorFromContext(context.Background()))
}
