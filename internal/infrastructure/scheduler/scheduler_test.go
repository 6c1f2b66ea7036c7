package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spare-ledger/pkg/logger"
)

func TestAdd_ExpresionInvalida(t *testing.T) {
	s := New(logger.NewNop())
	err := s.Add("x", "no es cron", time.Second, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestWrap_OmiteCorridasSolapadas(t *testing.T) {
	s := New(logger.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	job := s.wrap("lento", time.Minute, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.Run()
	}()
	<-started

	// Segunda corrida mientras la primera sigue activa: se omite sin bloquear.
	job.Run()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	close(release)
	wg.Wait()

	// Terminada la primera, la siguiente corre normalmente.
	job.Run()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWrap_AplicaTimeout(t *testing.T) {
	s := New(logger.NewNop())

	var gotErr error
	job := s.wrap("timeout", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		gotErr = ctx.Err()
		return gotErr
	})
	job.Run()

	require.Error(t, gotErr)
	assert.True(t, errors.Is(gotErr, context.DeadlineExceeded))
}

func TestStartStop(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.Add("noop", "* * * * *", time.Second, func(context.Context) error { return nil }))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestWrap_RecuperaPanicDelJob(t *testing.T) {
	s := New(logger.NewNop())

	var calls int32
	job := s.wrap("panic", time.Second, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	})
	assert.NotPanics(t, job.Run)

	// La marca de corrida activa se libera aunque el job haya entrado en pánico.
	assert.NotPanics(t, job.Run)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
