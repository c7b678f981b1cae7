package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipepredictor/internal/recipe"
)

func TestRegistryMountGetUnmount(t *testing.T) {
	reg := NewRegistry(context.Background(), &stubPredictor{}, zap.NewNop())

	a := reg.Mount()
	b := reg.Mount()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, Idle{}, a.State())

	got, err := reg.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, reg.Unmount(a.ID()))
	_, err = reg.Get(a.ID())
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.ErrorIs(t, reg.Unmount(a.ID()), ErrWorkflowNotFound)

	_, err = a.Submit("rice")
	assert.ErrorIs(t, err, ErrWorkflowClosed)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryWorkflowsAreIndependent(t *testing.T) {
	p := &stubPredictor{result: recipe.DatasetResult{Matches: []recipe.RecipeMatch{soupMatch}}}
	reg := NewRegistry(context.Background(), p, nil)

	a := reg.Mount()
	b := reg.Mount()

	done, err := a.Submit("garlic")
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, PhaseSucceeded, a.State().Phase())
	assert.Equal(t, Idle{}, b.State())

	b.Clear()
	assert.Equal(t, PhaseSucceeded, a.State().Phase())
}

func TestRegistryCloseAll(t *testing.T) {
	p := newGatedPredictor()
	reg := NewRegistry(context.Background(), p, nil)

	w := reg.Mount()
	done, err := w.Submit("rice")
	require.NoError(t, err)
	call := p.next(t)

	reg.CloseAll()
	assert.Equal(t, 0, reg.Len())

	call.reply <- outcome{result: recipe.DatasetResult{Matches: []recipe.RecipeMatch{soupMatch}}}
	waitDone(t, done)
	assert.Equal(t, Idle{}, w.State())
}

func TestRegistrySweepEvictsIdleButKeepsLoading(t *testing.T) {
	p := newGatedPredictor()
	reg := NewRegistry(context.Background(), p, nil, WithTTL(time.Hour))
	defer reg.CloseAll()

	idle := reg.Mount()
	loading := reg.Mount()
	_, err := loading.Submit("rice")
	require.NoError(t, err)
	call := p.next(t)
	defer func() { call.reply <- outcome{err: context.Canceled} }()

	assert.Equal(t, 0, reg.Sweep(time.Now()))
	assert.Equal(t, 2, reg.Len())

	assert.Equal(t, 1, reg.Sweep(time.Now().Add(2*time.Hour)))
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Get(idle.ID())
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
	_, err = idle.Submit("rice")
	assert.ErrorIs(t, err, ErrWorkflowClosed)

	got, err := reg.Get(loading.ID())
	require.NoError(t, err)
	assert.Same(t, loading, got)
	assert.Equal(t, PhaseLoading, loading.State().Phase())
}

func TestRegistryGetRefreshesLastAccess(t *testing.T) {
	reg := NewRegistry(context.Background(), &stubPredictor{}, nil, WithTTL(time.Hour))
	defer reg.CloseAll()

	w := reg.Mount()
	start := time.Now()

	_, err := reg.Get(w.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Sweep(start.Add(30*time.Minute)))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistrySweepWithoutTTL(t *testing.T) {
	reg := NewRegistry(context.Background(), &stubPredictor{}, nil)
	reg.Mount()

	assert.Equal(t, 0, reg.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryBackgroundEviction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := NewRegistry(ctx, &stubPredictor{}, nil, WithTTL(20*time.Millisecond))

	w := reg.Mount()
	assert.Eventually(t, func() bool {
		return reg.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, err := w.Submit("rice")
	assert.ErrorIs(t, err, ErrWorkflowClosed)
}
