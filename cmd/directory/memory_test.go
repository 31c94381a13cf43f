package directory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory_CreateAndLookup(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()

	a, err := d.Create(ctx, CreateInput{Email: "Alice@Example.COM", PasswordHash: "$argon2id$..."})
	require.NoError(t, err)
	require.Equal(t, int64(1), a.Epoch)
	require.True(t, a.IsActive)

	got, err := d.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	got, err = d.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.EmailNorm)
}

func TestMemoryDirectory_DuplicateEmail(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()

	_, err := d.Create(ctx, CreateInput{Email: "bob@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = d.Create(ctx, CreateInput{Email: "BOB@example.com", PasswordHash: "h"})
	require.True(t, IsConflict(err))
}

func TestMemoryDirectory_NotFound(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()

	_, err := d.FindByEmail(ctx, "nobody@example.com")
	require.True(t, IsNotFound(err))

	_, err = d.IncrementEpoch(ctx, "missing")
	require.True(t, IsNotFound(err))

	err = d.SetPasswordHash(ctx, "missing", "h")
	require.True(t, IsNotFound(err))
}

func TestMemoryDirectory_IncrementEpochConcurrent(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()

	a, err := d.Create(ctx, CreateInput{Email: "carol@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	const bumps = 50
	var wg sync.WaitGroup
	for i := 0; i < bumps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.IncrementEpoch(ctx, a.ID)
		}()
	}
	wg.Wait()

	got, err := d.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1+bumps), got.Epoch)
}
