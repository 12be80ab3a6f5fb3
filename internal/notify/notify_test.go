package notify_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"iinfinder/internal/autosearch"
	"iinfinder/internal/iin"
	"iinfinder/internal/notify"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/registry"
	"iinfinder/pkg/domain"
	"iinfinder/pkg/requestcontext"
)

func strPtr(s string) *string { return &s }

var sentAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleMatch() autosearch.Match {
	return autosearch.Match{
		Task: autosearch.Task{
			ID:        uuid.MustParse("6b0f3f63-1d4e-4b8c-9a57-0e2f6a1c9d11"),
			Owner:     domain.Owner{ID: 4242, Nick: "tester"},
			BirthDate: time.Date(1983, 1, 18, 0, 0, 0, 0, time.UTC),
			Name:      "александр с",
			Series:    iin.SeriesRecent,
		},
		Found: []registry.ConfirmationRecord{{
			ID:         "830118050359",
			FirstName:  strPtr("АЛЕКСАНДР"),
			LastName:   strPtr("СТЕБЛИНА"),
			MiddleName: strPtr("БОРИСОВИЧ"),
		}},
	}
}

type NotifySuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
}

func TestNotifySuite(t *testing.T) {
	suite.Run(t, new(NotifySuite))
}

func (s *NotifySuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), sentAt)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *NotifySuite) TestNewMessage() {
	msg := notify.NewMessage(sampleMatch(), sentAt)
	s.Equal(int64(4242), msg.OwnerID)
	s.Equal("1983-01-18", msg.BirthDate)
	s.Equal([]notify.Found{{IIN: "830118050359", FullName: "Стеблина Александр Борисович"}}, msg.Found)
}

// =============================================================================
// Webhook
// =============================================================================

func (s *NotifySuite) TestWebhookDelivers() {
	var (
		mu  sync.Mutex
		got notify.Message
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := notify.NewWebhookNotifier(srv.URL, time.Second, notify.WithWebhookLogger(s.logger))
	s.Require().NoError(err)
	defer n.Close()

	s.Require().NoError(n.Notify(s.ctx, sampleMatch()))
	mu.Lock()
	defer mu.Unlock()
	s.Equal("6b0f3f63-1d4e-4b8c-9a57-0e2f6a1c9d11", got.TaskID)
	s.True(got.SentAt.Equal(sentAt))
	s.Len(got.Found, 1)
}

func (s *NotifySuite) TestWebhookRejected() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := notify.NewWebhookNotifier(srv.URL, time.Second)
	s.Require().NoError(err)
	s.ErrorContains(n.Notify(s.ctx, sampleMatch()), "unexpected status 502")
}

// =============================================================================
// Driver selection
// =============================================================================

func (s *NotifySuite) TestNew() {
	n, err := notify.New(s.ctx, config.NotifyConfig{Driver: notify.DriverLog}, s.logger, nil)
	s.Require().NoError(err)
	s.NoError(n.Notify(s.ctx, sampleMatch()))
	s.NoError(n.Close())

	_, err = notify.New(s.ctx, config.NotifyConfig{Driver: notify.DriverWebhook}, s.logger, nil)
	s.ErrorContains(err, "webhook url is required")

	_, err = notify.New(s.ctx, config.NotifyConfig{Driver: notify.DriverKafka, KafkaTopic: "t"}, s.logger, nil)
	s.ErrorContains(err, "kafka brokers are required")

	_, err = notify.New(s.ctx, config.NotifyConfig{Driver: "pigeon"}, s.logger, nil)
	s.Error(err)
}
