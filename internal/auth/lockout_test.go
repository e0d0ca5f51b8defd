// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast/internal/auth"
)

func TestIsLockedOut(t *testing.T) {
	t.Run("nil means unlocked", func(t *testing.T) {
		assert.False(t, auth.IsLockedOut(nil))
	})

	t.Run("future timestamp means locked", func(t *testing.T) {
		until := time.Now().Add(time.Minute)
		assert.True(t, auth.IsLockedOut(&until))
	})

	t.Run("past timestamp means unlocked", func(t *testing.T) {
		until := time.Now().Add(-time.Minute)
		assert.False(t, auth.IsLockedOut(&until))
	})
}

func TestComputeLockoutTime(t *testing.T) {
	t.Run("below threshold no lockout", func(t *testing.T) {
		for attempts := 0; attempts < auth.LockoutThreshold; attempts++ {
			assert.Nil(t, auth.ComputeLockoutTime(attempts), "attempts=%d", attempts)
		}
	})

	t.Run("at threshold locks for the lockout duration", func(t *testing.T) {
		until := auth.ComputeLockoutTime(auth.LockoutThreshold)
		require.NotNil(t, until)
		assert.WithinDuration(t, time.Now().Add(auth.LockoutDuration), *until, 5*time.Second)
	})
}

func TestUser_RecordFailureAndSuccess(t *testing.T) {
	user := &auth.User{}

	for i := 0; i < auth.LockoutThreshold-1; i++ {
		user.RecordFailure()
	}
	assert.Equal(t, auth.LockoutThreshold-1, user.FailedAttempts)
	assert.False(t, user.IsLocked())

	user.RecordFailure()
	assert.True(t, user.IsLocked())

	user.RecordSuccess()
	assert.Zero(t, user.FailedAttempts)
	assert.False(t, user.IsLocked())
}
