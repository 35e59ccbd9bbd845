package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/lintbox/internal/models"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b/worker.Second", func() (Worker, error) {
		return Func(func(ctx context.Context, projectFile string) (*models.Result, error) {
			return &models.Result{ProjectFile: projectFile}, nil
		}), nil
	})
	reg.Register("a/worker.First", func() (Worker, error) {
		return nil, errors.New("no license")
	})
	reg.Register("c/worker.Nil", func() (Worker, error) { return nil, nil })

	assert.Equal(t, []string{"a/worker.First", "b/worker.Second", "c/worker.Nil"}, reg.Names())

	w, err := reg.New("b/worker.Second")
	require.NoError(t, err)
	res, err := w.RunLint(context.Background(), "App.fsproj")
	require.NoError(t, err)
	assert.Equal(t, "App.fsproj", res.ProjectFile)

	_, err = reg.New("missing/worker.Gone")
	assert.ErrorIs(t, err, ErrUnknownWorker)
	assert.Contains(t, err.Error(), "missing/worker.Gone")

	_, err = reg.New("a/worker.First")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownWorker)
	assert.Contains(t, err.Error(), "no license")

	_, err = reg.New("c/worker.Nil")
	assert.Error(t, err)
}
