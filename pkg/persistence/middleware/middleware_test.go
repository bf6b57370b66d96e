package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/aretw0/journey/pkg/adapters/memory"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/persistence/middleware"
	"github.com/aretw0/journey/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, next ports.SessionStore, cfg middleware.EncryptionConfig) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	backend := memory.NewStore()
	secure := encrypted(t, backend, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	sess := domain.NewSession("s1", "vault")
	sess.Status = domain.StatusAwaitingInput
	sess.CurrentNodeID = "ask"
	sess.Variables["secret"] = domain.String("my-secret-sauce")
	require.NoError(t, secure.Save(ctx, sess))

	stored, err := backend.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, stored.Variables, "secret")
	assert.Contains(t, stored.Variables, "__encrypted__")
	assert.Empty(t, stored.CurrentNodeID)
	assert.Equal(t, domain.StatusAwaitingInput, stored.Status)
	assert.Equal(t, "vault", stored.WorkflowID)

	loaded, err := secure.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.Variables["secret"].String())
	assert.Equal(t, "ask", loaded.CurrentNodeID)

	ids, err := secure.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	backend := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, backend, middleware.EncryptionConfig{ActiveKey: oldKey})
	sess := domain.NewSession("rotation", "vault")
	sess.Variables["data"] = domain.String("encrypted-with-old-key")
	require.NoError(t, oldStore.Save(ctx, sess))

	newStore := encrypted(t, backend, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err)
	assert.Equal(t, "encrypted-with-old-key", loaded.Variables["data"].String())

	loaded.Variables["data"] = domain.String("encrypted-with-new-key")
	require.NoError(t, newStore.Save(ctx, loaded))

	_, err = oldStore.Load(ctx, "rotation")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_Errors(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t), FallbackKeys: [][]byte{{1}}})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	backend := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, backend.Save(ctx, domain.NewSession("plain", "vault")))

	secure := encrypted(t, backend, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err = secure.Load(ctx, "plain")
	assert.ErrorContains(t, err, "envelope")

	_, err = secure.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	decoded, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	_, err = middleware.DecodeKey("not base64!")
	assert.Error(t, err)
	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestPIIMiddleware_Masking(t *testing.T) {
	backend := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "^ssn"})
	require.NoError(t, err)
	secure := mw(backend)
	ctx := context.Background()

	sess := domain.NewSession("pii", "signup")
	sess.Variables["username"] = domain.String("jdoe")
	sess.Variables["user_password"] = domain.String("secret123")
	sess.Variables["ssn"] = domain.String("999-99-9999")
	sess.Variables["has_ssn"] = domain.Bool(true)
	require.NoError(t, secure.Save(ctx, sess))

	assert.Equal(t, "secret123", sess.Variables["user_password"].String(), "in-memory session must not change")

	stored, err := secure.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Variables["username"].String())
	assert.Equal(t, middleware.Mask, stored.Variables["user_password"].String())
	assert.Equal(t, middleware.Mask, stored.Variables["ssn"].String())
	assert.Equal(t, domain.Bool(true), stored.Variables["has_ssn"])

	_, err = middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestWrap_Order(t *testing.T) {
	backend := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"token"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Wrap(backend, pii, enc)
	ctx := context.Background()

	sess := domain.NewSession("w", "api")
	sess.Variables["token"] = domain.String("abc")
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Variables["token"].String())

	raw, err := backend.Load(ctx, "w")
	require.NoError(t, err)
	assert.NotContains(t, raw.Variables, "token")
}
