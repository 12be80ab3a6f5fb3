package autosearch_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Confirmer,SearchLog,Notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"iinfinder/internal/autosearch"
	"iinfinder/internal/autosearch/mocks"
	"iinfinder/internal/iin"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/registry"
	"iinfinder/internal/searchlog"
	"iinfinder/pkg/domain"
	dErrors "iinfinder/pkg/domain-errors"
	"iinfinder/pkg/platform/sentinel"
	"iinfinder/pkg/requestcontext"
)

// =============================================================================
// Auto-search Service Test Suite
// =============================================================================

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	confirmer *mocks.MockConfirmer
	log       *mocks.MockSearchLog
	notifier  *mocks.MockNotifier
	service   *autosearch.Service
	ctx       context.Context
	now       time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

var (
	owner     = domain.Owner{ID: 4242, Nick: "tester"}
	birthDate = time.Date(1983, 1, 18, 0, 0, 0, 0, time.UTC)
	stebling  = iin.ID("830118050359")
	singer    = iin.ID("830118050438")
)

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.confirmer = mocks.NewMockConfirmer(s.ctrl)
	s.log = mocks.NewMockSearchLog(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	var err error
	s.service, err = autosearch.New(s.store, s.confirmer, s.log, s.notifier,
		config.AutoSearchConfig{BatchSize: 3, Cooldown: 4 * time.Hour, Retention: 720 * time.Hour},
		autosearch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) task() *autosearch.Task {
	return &autosearch.Task{
		ID:         uuid.New(),
		Owner:      owner,
		BirthDate:  birthDate,
		Name:       "александр с",
		Series:     iin.SeriesRecent,
		Candidates: []iin.ID{stebling, singer},
	}
}

// =============================================================================
// Create / Get / Cancel
// =============================================================================

func (s *ServiceSuite) TestCreate() {
	s.Run("dedupes candidates and waits a cooldown before the first check", func() {
		s.store.EXPECT().Replace(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, t *autosearch.Task) error {
			s.Equal([]iin.ID{stebling, singer}, t.Candidates)
			s.True(t.CreatedAt.Equal(s.now))
			s.True(t.LastCheckedAt.Equal(s.now))
			return nil
		})
		task, err := s.service.Create(s.ctx, autosearch.CreateRequest{
			Owner:      owner,
			BirthDate:  birthDate,
			Name:       "Александр С",
			Series:     iin.SeriesRecent,
			Candidates: []iin.ID{stebling, " 830118050359", singer},
		})
		s.Require().NoError(err)
		s.NotEqual(uuid.Nil, task.ID)
	})

	invalid := []struct {
		name string
		req  autosearch.CreateRequest
	}{
		{"no owner", autosearch.CreateRequest{BirthDate: birthDate, Name: "x", Candidates: []iin.ID{stebling}}},
		{"no date", autosearch.CreateRequest{Owner: owner, Name: "x", Candidates: []iin.ID{stebling}}},
		{"no name", autosearch.CreateRequest{Owner: owner, BirthDate: birthDate, Candidates: []iin.ID{stebling}}},
		{"no candidates", autosearch.CreateRequest{Owner: owner, BirthDate: birthDate, Name: "x", Candidates: []iin.ID{" "}}},
		{"bad checksum", autosearch.CreateRequest{Owner: owner, BirthDate: birthDate, Name: "x", Candidates: []iin.ID{"830118050350"}}},
		{"bad series", autosearch.CreateRequest{Owner: owner, BirthDate: birthDate, Name: "x", Series: 7, Candidates: []iin.ID{stebling}}},
	}
	for _, tt := range invalid {
		s.Run(tt.name, func() {
			_, err := s.service.Create(s.ctx, tt.req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func (s *ServiceSuite) TestGetAndCancelNotFound() {
	s.store.EXPECT().Get(gomock.Any(), owner.ID).Return(nil, sentinel.ErrNotFound)
	_, err := s.service.Get(s.ctx, owner.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.store.EXPECT().Cancel(gomock.Any(), owner.ID).Return(sentinel.ErrNotFound)
	s.True(dErrors.HasCode(s.service.Cancel(s.ctx, owner.ID), dErrors.CodeNotFound))
}

// =============================================================================
// Scheduler pass
// =============================================================================

func (s *ServiceSuite) expectLogged(found int) {
	logID := uuid.New()
	s.log.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *searchlog.Entry) error {
		s.True(e.Auto)
		e.ID = logID
		return nil
	})
	s.log.EXPECT().Complete(gomock.Any(), logID, 0, found).Return(nil)
}

func (s *ServiceSuite) TestRunOnceMatchNotifiesAndDeletes() {
	task := s.task()
	rec := registry.ConfirmationRecord{ID: stebling}
	s.store.EXPECT().ClaimDue(gomock.Any(), s.now, 4*time.Hour, 3).Return([]*autosearch.Task{task}, nil)
	s.expectLogged(1)
	s.confirmer.EXPECT().ConfirmOnly(gomock.Any(), task.Candidates, task.Name).Return([]registry.ConfirmationRecord{rec}, nil)
	s.notifier.EXPECT().Notify(gomock.Any(), autosearch.Match{Task: *task, Found: []registry.ConfirmationRecord{rec}}).Return(nil)
	s.store.EXPECT().Delete(gomock.Any(), task.ID).Return(nil)

	res, err := s.service.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(autosearch.PassResult{Claimed: 1, Matched: 1}, res)
}

func (s *ServiceSuite) TestRunOnceNoMatchTouches() {
	task := s.task()
	s.store.EXPECT().ClaimDue(gomock.Any(), s.now, 4*time.Hour, 3).Return([]*autosearch.Task{task}, nil)
	s.expectLogged(0)
	s.confirmer.EXPECT().ConfirmOnly(gomock.Any(), task.Candidates, task.Name).Return(nil, nil)
	s.store.EXPECT().Touch(gomock.Any(), task.ID, s.now).Return(nil)

	res, err := s.service.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(autosearch.PassResult{Claimed: 1, Pending: 1}, res)
}

func (s *ServiceSuite) TestRunOnceNotifyFailureKeepsTask() {
	first, second := s.task(), s.task()
	s.store.EXPECT().ClaimDue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]*autosearch.Task{first, second}, nil)

	s.expectLogged(1)
	s.confirmer.EXPECT().ConfirmOnly(gomock.Any(), first.Candidates, first.Name).Return([]registry.ConfirmationRecord{{ID: stebling}}, nil)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("webhook down"))

	// a failing task does not stop the pass
	s.expectLogged(0)
	s.confirmer.EXPECT().ConfirmOnly(gomock.Any(), second.Candidates, second.Name).Return(nil, nil)
	s.store.EXPECT().Touch(gomock.Any(), second.ID, s.now).Return(nil)

	res, err := s.service.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(autosearch.PassResult{Claimed: 2, Pending: 1, Failed: 1}, res)
}

func (s *ServiceSuite) TestRunOnceClaimFailure() {
	s.store.EXPECT().ClaimDue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("locked"))

	_, err := s.service.RunOnce(s.ctx)
	s.Error(err)
}

func (s *ServiceSuite) TestSweepExpired() {
	s.store.EXPECT().RemoveOlderThan(gomock.Any(), s.now.Add(-720*time.Hour)).Return(int64(2), nil)

	n, err := s.service.SweepExpired(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)
}

func (s *ServiceSuite) TestNewValidation() {
	cfg := config.AutoSearchConfig{}
	_, err := autosearch.New(nil, s.confirmer, s.log, s.notifier, cfg)
	s.ErrorContains(err, "task store is required")
	_, err = autosearch.New(s.store, nil, s.log, s.notifier, cfg)
	s.ErrorContains(err, "confirmer is required")
	_, err = autosearch.New(s.store, s.confirmer, nil, s.notifier, cfg)
	s.ErrorContains(err, "search log is required")
	_, err = autosearch.New(s.store, s.confirmer, s.log, nil, cfg)
	s.ErrorContains(err, "notifier is required")
}
