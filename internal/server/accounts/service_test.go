package accounts

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server/hashing"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *hashing.Argon2idHasher) {
	t.Helper()
	mem := memory.NewManager()
	h := hashing.NewArgon2idHasher(hashing.Params{Memory: 1024, Iterations: 1, Parallelism: 1})
	return NewService(mem, mem, h, logging.Nop()), h
}

func ptr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	s, h := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "Dummy1", "dummy1@example.com", "Password@1234")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, "Password@1234", a.PasswordHash)
	assert.True(t, h.Verify(a.PasswordHash, "Password@1234"))
	assert.Empty(t, a.Tokens)

	got, err := s.Get(ctx, "Dummy1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestCreate_Conflicts(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "Dummy1", "dummy1@example.com", "p")
	require.NoError(t, err)

	_, err = s.Create(ctx, "Dummy1", "other@example.com", "p")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = s.Create(ctx, "Other", "dummy1@example.com", "p")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_Validation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, " ", "a@x", "p")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Create(ctx, "a", "not-an-email", "p")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdate(t *testing.T) {
	s, h := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "Dummy1", "dummy1@example.com", "old")
	require.NoError(t, err)
	_, err = s.Create(ctx, "Taken", "taken@example.com", "p")
	require.NoError(t, err)

	updated, err := s.Update(ctx, a.ID, Update{Email: ptr("new@example.com"), Password: ptr("new")})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.True(t, h.Verify(updated.PasswordHash, "new"))
	assert.False(t, h.Verify(updated.PasswordHash, "old"))

	_, err = s.Update(ctx, a.ID, Update{Username: ptr("Taken")})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = s.Update(ctx, a.ID, Update{Email: ptr("bad")})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Update(ctx, "missing", Update{})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetDisabledAndDelete(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "Dummy1", "dummy1@example.com", "p")
	require.NoError(t, err)

	require.NoError(t, s.SetDisabled(ctx, a.ID, true))
	got, err := s.Get(ctx, "Dummy1")
	require.NoError(t, err)
	assert.True(t, got.Disabled)

	require.NoError(t, s.SetDisabled(ctx, a.ID, true))
	require.NoError(t, s.SetDisabled(ctx, a.ID, false))
	got, err = s.Get(ctx, "Dummy1")
	require.NoError(t, err)
	assert.False(t, got.Disabled)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.Get(ctx, "Dummy1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, s.Delete(ctx, a.ID), common.ErrorNotFound)
	assert.ErrorIs(t, s.SetDisabled(ctx, a.ID, true), common.ErrorNotFound)
}
