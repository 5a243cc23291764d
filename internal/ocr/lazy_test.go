package ocr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docnorm/internal/document"
)

type engine struct{ id int64 }

func TestLazyInitializesOnce(t *testing.T) {
	var calls atomic.Int64
	lazy := NewLazy(func(context.Context) (*engine, error) {
		n := calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &engine{id: n}, nil
	})

	const callers = 16
	results := make([]*engine, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = lazy.Get(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int64(1), calls.Load())
	for _, e := range results {
		require.Same(t, results[0], e)
	}

	again, err := lazy.Get(context.Background())
	require.NoError(t, err)
	require.Same(t, results[0], again)
	require.Equal(t, int64(1), calls.Load())
}

func TestLazyDoesNotCacheFailure(t *testing.T) {
	var calls atomic.Int64
	lazy := NewLazy(func(context.Context) (*engine, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("engine unavailable")
		}
		return &engine{id: 2}, nil
	})

	_, err := lazy.Get(context.Background())
	require.Error(t, err)
	_, ok := lazy.Peek()
	require.False(t, ok)

	e, err := lazy.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), e.id)
}

func TestLazyCancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	lazy := NewLazy(func(ctx context.Context) (*engine, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &engine{id: 1}, nil
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := lazy.Get(ctxA)
		errA <- err
	}()
	<-started

	type outcome struct {
		e   *engine
		err error
	}
	resB := make(chan outcome, 1)
	go func() {
		e, err := lazy.Get(context.Background())
		resB <- outcome{e, err}
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)
	close(release)

	b := <-resB
	require.NoError(t, b.err)
	require.Equal(t, int64(1), b.e.id)
}

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) ProcessImage(_ context.Context, data []byte, _ *document.OCRConfig) (*document.ExtractionResult, error) {
	return &document.ExtractionResult{Content: string(data), MimeType: document.PlainTextMimeType}, nil
}

func (stubBackend) ProcessFile(_ context.Context, path string, _ *document.OCRConfig) (*document.ExtractionResult, error) {
	return nil, errors.New("no file: " + path)
}

func TestAsyncHelpers(t *testing.T) {
	out := <-ProcessImageAsync(context.Background(), stubBackend{}, []byte("hi"), nil)
	require.NoError(t, out.Err)
	require.Equal(t, "hi", out.Result.Content)

	ch := ProcessFileAsync(context.Background(), stubBackend{}, "x.png", nil)
	out = <-ch
	require.EqualError(t, out.Err, "no file: x.png")
	_, open := <-ch
	require.False(t, open)
}
