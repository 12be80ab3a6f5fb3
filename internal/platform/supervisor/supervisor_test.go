package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"iinfinder/internal/platform/logger"
	"iinfinder/pkg/requestcontext"
)

type SupervisorSuite struct {
	suite.Suite
}

func TestSupervisorSuite(t *testing.T) {
	suite.Run(t, new(SupervisorSuite))
}

type fakeServer struct {
	startErr error
	stopped  chan struct{}
	once     sync.Once
	shutdown atomic.Bool
}

func newFakeServer(startErr error) *fakeServer {
	return &fakeServer{startErr: startErr, stopped: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	f.once.Do(func() { close(f.stopped) })
	return nil
}

// =============================================================================
// Periodic
// =============================================================================

func (s *SupervisorSuite) TestPeriodic() {
	s.Run("runs on every tick with the tick time in context", func() {
		var runs atomic.Int32
		var sawTime atomic.Bool
		p := NewPeriodic("counter", 5*time.Millisecond, func(ctx context.Context) error {
			if ctx.Value(requestcontext.ContextKeyRequestTime) != nil {
				sawTime.Store(true)
			}
			runs.Add(1)
			return nil
		}, WithLogger(logger.Discard()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Serve(ctx) }()

		s.Eventually(func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
		cancel()
		s.ErrorIs(<-done, context.Canceled)
		s.True(sawTime.Load())
	})

	s.Run("keeps running after a failed run", func() {
		var runs atomic.Int32
		p := NewPeriodic("flaky", 5*time.Millisecond, func(context.Context) error {
			runs.Add(1)
			return errors.New("store unavailable")
		}, WithLogger(logger.Discard()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Serve(ctx) }()

		s.Eventually(func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
		cancel()
		s.ErrorIs(<-done, context.Canceled)
	})

	s.Run("String returns the name", func() {
		s.Equal("sweep", NewPeriodic("sweep", time.Minute, nil).String())
	})
}

// =============================================================================
// HTTPService
// =============================================================================

func (s *SupervisorSuite) TestHTTPService() {
	s.Run("shuts the server down when the context ends", func() {
		srv := newFakeServer(nil)
		svc := NewHTTPService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		cancel()
		select {
		case err := <-done:
			s.ErrorIs(err, context.Canceled)
		case <-time.After(time.Second):
			s.Fail("service did not stop")
		}
		s.True(srv.shutdown.Load())
	})

	s.Run("returns a listen failure", func() {
		svc := NewHTTPService(newFakeServer(errors.New("address in use")), 0)
		err := svc.Serve(context.Background())
		s.Require().Error(err)
		s.Contains(err.Error(), "address in use")
	})

	s.Run("defaults the shutdown timeout", func() {
		svc := NewHTTPService(newFakeServer(nil), 0)
		s.Equal(10*time.Second, svc.shutdownTimeout)
		s.Equal("http-server", svc.String())
	})
}

// =============================================================================
// Tree
// =============================================================================

func (s *SupervisorSuite) TestTree() {
	s.Run("applies defaults for a zero config", func() {
		tree := New(logger.Discard(), Config{})
		s.Equal(DefaultConfig(), tree.config)
	})

	s.Run("starts services in both layers and stops on cancel", func() {
		tree := New(logger.Discard(), Config{ShutdownTimeout: time.Second})

		var bgRuns atomic.Int32
		tree.AddBackground(NewPeriodic("bg", 5*time.Millisecond, func(context.Context) error {
			bgRuns.Add(1)
			return nil
		}, WithLogger(logger.Discard())))
		srv := newFakeServer(nil)
		tree.AddAPI(NewHTTPService(srv, time.Second))

		ctx, cancel := context.WithCancel(context.Background())
		errCh := tree.ServeBackground(ctx)

		s.Eventually(func() bool { return bgRuns.Load() >= 1 }, time.Second, time.Millisecond)
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				s.ErrorIs(err, context.Canceled)
			}
		case <-time.After(2 * time.Second):
			s.Fail("tree did not stop")
		}
		s.True(srv.shutdown.Load())
	})
}
