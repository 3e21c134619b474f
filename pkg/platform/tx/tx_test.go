package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_EmptyContext(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}

func TestWithTx_NilLeavesContextUntouched(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestPassthrough_RunsOnCallerContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	err := Passthrough{}.RunInTx(ctx, func(inner context.Context) error {
		assert.Equal(t, "v", inner.Value(key{}))
		_, ok := From(inner)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestPassthrough_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	err := Passthrough{}.RunInTx(context.Background(), func(context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
}
