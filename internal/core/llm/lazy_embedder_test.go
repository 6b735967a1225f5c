package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/filingscope/internal/core"
)

type fakeProvider struct {
	closed bool
}

func (f *fakeProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func TestLazyEmbedderBuildsOnce(t *testing.T) {
	var builds atomic.Int32
	p := &fakeProvider{}
	l := NewLazyEmbedder(func(context.Context) (core.EmbeddingProvider, error) {
		builds.Add(1)
		return p, nil
	})
	assert.Equal(t, int32(0), builds.Load(), "nothing is built before first use")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vecs, err := l.EmbedTexts(context.Background(), []string{"ab", "abc"})
			assert.NoError(t, err)
			assert.Equal(t, [][]float32{{2}, {3}}, vecs)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	require.NoError(t, l.Close())
	assert.True(t, p.closed)
}

func TestLazyEmbedderRemembersFailure(t *testing.T) {
	var builds atomic.Int32
	l := NewLazyEmbedder(func(context.Context) (core.EmbeddingProvider, error) {
		builds.Add(1)
		return nil, errors.New("no api key")
	})

	for i := 0; i < 2; i++ {
		_, err := l.EmbedTexts(context.Background(), []string{"x"})
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindEmbeddingFailed))
	}
	assert.Equal(t, int32(1), builds.Load())
	assert.NoError(t, l.Close())
}

func TestLazyEmbedderNilProvider(t *testing.T) {
	l := NewLazyEmbedder(func(context.Context) (core.EmbeddingProvider, error) {
		return nil, nil
	})
	_, err := l.EmbedTexts(context.Background(), []string{"x"})
	assert.True(t, core.IsKind(err, core.KindEmbeddingFailed))
}

func TestLazyEmbedderClosedBeforeUse(t *testing.T) {
	var builds atomic.Int32
	l := NewLazyEmbedder(func(context.Context) (core.EmbeddingProvider, error) {
		builds.Add(1)
		return &fakeProvider{}, nil
	})

	require.NoError(t, l.Close())
	_, err := l.EmbedTexts(context.Background(), []string{"x"})

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindEmbeddingFailed))
	assert.Equal(t, int32(0), builds.Load())
}

func TestLazyEmbedderCloseWaitsForBuild(t *testing.T) {
	p := &fakeProvider{}
	started := make(chan struct{})
	release := make(chan struct{})
	l := NewLazyEmbedder(func(context.Context) (core.EmbeddingProvider, error) {
		close(started)
		<-release
		return p, nil
	})

	embedDone := make(chan error, 1)
	go func() {
		_, err := l.EmbedTexts(context.Background(), []string{"x"})
		embedDone <- err
	}()
	<-started

	closeDone := make(chan error, 1)
	go func() { closeDone <- l.Close() }()
	close(release)

	require.NoError(t, <-embedDone)
	require.NoError(t, <-closeDone)
	assert.True(t, p.closed)
}
