package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/bootjohn/internal/store/core"
)

func TestApplyAndLoadAll(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Apply(ctx, core.Changeset{
		Upserts: []core.Assignment{
			{Host: "x1", Kernel: "k1", Initrd: "i1", Params: "console=ttyS0"},
			{Host: "x2", Kernel: "k1", Initrd: "i1", Params: "console=ttyS0"},
		},
	})
	require.NoError(t, err)

	rows, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestApply_DeletesThenUpserts(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, core.Changeset{
		Upserts: []core.Assignment{{Host: "x1", Kernel: "k1"}},
	}))

	// Un mismo changeset puede borrar y reescribir el mismo host:
	// los deletes se aplican primero.
	require.NoError(t, s.Apply(ctx, core.Changeset{
		Deletes: []string{"x1"},
		Upserts: []core.Assignment{{Host: "x1", Kernel: "k2"}},
	}))

	rows, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "k2", rows[0].Kernel)
}

func TestApply_DeleteMissingIsNoop(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(context.Background(), core.Changeset{Deletes: []string{"ghost"}}))

	rows, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
