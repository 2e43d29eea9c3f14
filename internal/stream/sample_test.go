package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndReceive(t *testing.T) {
	ch := make(chan int, 1)
	require.NoError(t, Send(context.Background(), ch, 42))

	v, ok, err := Receive(context.Background(), ch)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	close(ch)
	_, ok, err = Receive(context.Background(), ch)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendAndReceiveHonourCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, Send(ctx, make(chan int), 1), context.Canceled)

	_, ok, err := Receive(ctx, make(chan int))
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
