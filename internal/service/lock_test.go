package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	release, err := locker.TryLock(ctx, 1)
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, 1)
	assert.ErrorIs(t, err, ErrAccountBusy)

	other, err := locker.TryLock(ctx, 2)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := locker.TryLock(ctx, 1)
	require.NoError(t, err)
	again()
}

func TestAccountLockKey(t *testing.T) {
	assert.Equal(t, "autopost:lock:account:42", AccountLockKey(42))
}
