package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(sessionID, "greeting")
		sess.Status = domain.StatusAwaitingInput
		sess.CurrentNodeID = "ask"
		sess.BlockIndex = 2
		sess.Variables["name"] = domain.String("Alice")
		sess.Variables["age"] = domain.Number(42)
		sess.Variables["vip"] = domain.Bool(true)
		sess.Pending = &domain.InputRequest{ID: "req-1", Variable: "name"}
		sess.History = []string{"intro", "ask"}

		require.NoError(t, store.Save(ctx, sess), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sess.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, sess.BlockIndex, loaded.BlockIndex)
		assert.Equal(t, domain.StatusAwaitingInput, loaded.Status)
		assert.Equal(t, []string{"intro", "ask"}, loaded.History)
		require.NotNil(t, loaded.Pending)
		assert.Equal(t, "req-1", loaded.Pending.ID)

		// Value kinds must survive persistence.
		assert.True(t, domain.String("Alice").Equal(loaded.Variables["name"]))
		assert.True(t, domain.Number(42).Equal(loaded.Variables["age"]))
		assert.True(t, domain.Bool(true).Equal(loaded.Variables["vip"]))
	})

	t.Run("Save Isolates Caller Mutations", func(t *testing.T) {
		sess := domain.NewSession(sessionID+"-iso", "greeting")
		require.NoError(t, store.Save(ctx, sess))
		defer func() { _ = store.Delete(ctx, sess.ID) }()

		sess.Variables["late"] = domain.String("x")

		loaded, err := store.Load(ctx, sess.ID)
		require.NoError(t, err)
		_, ok := loaded.Variables["late"]
		assert.False(t, ok, "stored session must not alias the caller's value")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(sessionID, "greeting")))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1, "greeting"))
		_ = store.Save(ctx, domain.NewSession(id2, "greeting"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
