package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownFirstHitFullTimeout(t *testing.T) {
	c := NewCooldown(40*time.Second, 5*time.Second)

	wait, acquired := c.Acquire(1)
	require.True(t, acquired)
	assert.Equal(t, 40*time.Second, wait)
	assert.Equal(t, 40*time.Second, c.Timeout(), "first hit must not escalate")
	assert.True(t, c.Active())
}

func TestCooldownRepeatHitHalvesAndEscalates(t *testing.T) {
	c := NewCooldown(40*time.Second, 5*time.Second)

	wait, acquired := c.Acquire(2)
	require.True(t, acquired)
	assert.Equal(t, 20*time.Second, wait)
	assert.Equal(t, 45*time.Second, c.Timeout())
}

func TestCooldownSingleOwner(t *testing.T) {
	c := NewCooldown(time.Second, time.Second)

	_, acquired := c.Acquire(1)
	require.True(t, acquired)

	_, acquired = c.Acquire(1)
	assert.False(t, acquired, "a held window cannot be acquired again")

	c.Release()
	_, acquired = c.Acquire(1)
	assert.True(t, acquired, "released window is acquirable again")
}

func TestCooldownWaitBlocksUntilRelease(t *testing.T) {
	c := NewCooldown(time.Second, time.Second)
	_, acquired := c.Acquire(1)
	require.True(t, acquired)

	done := make(chan error, 1)
	go func() { done <- c.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned while the window was held")
	case <-time.After(20 * time.Millisecond):
	}

	c.Release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Release")
	}
}

func TestCooldownWaitInactiveReturnsImmediately(t *testing.T) {
	c := NewCooldown(time.Second, time.Second)
	assert.NoError(t, c.Wait(context.Background()))
}

func TestCooldownWaitCancelled(t *testing.T) {
	c := NewCooldown(time.Second, time.Second)
	_, acquired := c.Acquire(1)
	require.True(t, acquired)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)
}
