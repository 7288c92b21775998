// ABOUTME: Tests for the session registry
// ABOUTME: Verifies atomic get-or-create under concurrency and idle eviction

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanzweig/ronda-backend/internal/provider"
)

type fakeClient struct {
	apiKey string
}

func (f *fakeClient) Complete(ctx context.Context, req *provider.CompletionRequest) (string, error) {
	return "", nil
}

func (f *fakeClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return "", nil
}

func countingFactory(created *atomic.Int64) Factory {
	return func(ctx context.Context, kind provider.Kind, apiKey string) (provider.Client, error) {
		created.Add(1)
		return &fakeClient{apiKey: apiKey}, nil
	}
}

func TestGetOrCreate_SingleClientUnderConcurrency(t *testing.T) {
	var created atomic.Int64
	r := NewRegistry(countingFactory(&created), 0, nil)
	defer r.Close()

	const callers = 50
	clients := make([]provider.Client, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.GetOrCreate(context.Background(), 1, provider.KindOpenAI, "key-a")
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
}

func TestGetOrCreate_DistinctTicketsAndKinds(t *testing.T) {
	var created atomic.Int64
	r := NewRegistry(countingFactory(&created), 0, nil)
	defer r.Close()

	ctx := context.Background()
	a, err := r.GetOrCreate(ctx, 1, provider.KindOpenAI, "k")
	require.NoError(t, err)
	b, err := r.GetOrCreate(ctx, 2, provider.KindOpenAI, "k")
	require.NoError(t, err)
	c, err := r.GetOrCreate(ctx, 1, provider.KindGemini, "k")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, int64(3), created.Load())
	assert.Equal(t, 3, r.Len())
}

func TestGetOrCreate_FirstWriterWinsOnAPIKey(t *testing.T) {
	var created atomic.Int64
	r := NewRegistry(countingFactory(&created), 0, nil)
	defer r.Close()

	ctx := context.Background()
	first, err := r.GetOrCreate(ctx, 5, provider.KindOpenAI, "key-first")
	require.NoError(t, err)

	second, err := r.GetOrCreate(ctx, 5, provider.KindOpenAI, "key-second")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "key-first", second.(*fakeClient).apiKey)
	assert.Equal(t, int64(1), created.Load())
}

func TestEvict_DropsAllKindsForTicket(t *testing.T) {
	var created atomic.Int64
	r := NewRegistry(countingFactory(&created), 0, nil)
	defer r.Close()

	ctx := context.Background()
	_, err := r.GetOrCreate(ctx, 9, provider.KindOpenAI, "k")
	require.NoError(t, err)
	_, err = r.GetOrCreate(ctx, 9, provider.KindGemini, "k")
	require.NoError(t, err)
	_, err = r.GetOrCreate(ctx, 10, provider.KindOpenAI, "k")
	require.NoError(t, err)

	r.Evict(9)
	assert.Equal(t, 1, r.Len())

	// Recreates after eviction
	_, err = r.GetOrCreate(ctx, 9, provider.KindOpenAI, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.Load())
}

func TestEvictIdle_RemovesStaleSessions(t *testing.T) {
	var created atomic.Int64
	r := NewRegistry(countingFactory(&created), 50*time.Millisecond, nil)
	defer r.Close()

	ctx := context.Background()
	_, err := r.GetOrCreate(ctx, 1, provider.KindOpenAI, "k")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	r.evictIdle()
	assert.Equal(t, 0, r.Len())
}
