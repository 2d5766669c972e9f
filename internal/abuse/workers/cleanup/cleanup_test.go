package cleanup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type mockPurgeStore struct {
	called       int
	purgedReturn int
	errToReturn  error
}

func (m *mockPurgeStore) PurgeExpired(_ context.Context) (int, error) {
	m.called++
	return m.purgedReturn, m.errToReturn
}

type CleanupWorkerSuite struct {
	suite.Suite
	windows  *mockPurgeStore
	attempts *mockPurgeStore
	worker   *Worker
}

func TestCleanupWorkerSuite(t *testing.T) {
	suite.Run(t, new(CleanupWorkerSuite))
}

func (s *CleanupWorkerSuite) SetupTest() {
	s.windows = &mockPurgeStore{}
	s.attempts = &mockPurgeStore{}
	s.worker = New(s.windows, WithAttemptStore(s.attempts))
}

func (s *CleanupWorkerSuite) TestRunPurgesBothStores() {
	s.windows.purgedReturn = 4
	s.attempts.purgedReturn = 2

	result, err := s.worker.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, s.windows.called, "window store purged once per run")
	s.Equal(1, s.attempts.called, "attempt store purged once per run")
	s.Equal(4, result.WindowsPurged)
	s.Equal(2, result.AttemptsPurged)
}

func (s *CleanupWorkerSuite) TestRunHandlesEmptyStores() {
	result, err := s.worker.RunOnce(context.Background())

	s.Require().NoError(err)
	s.NotNil(result, "Result should never be nil on success")
	s.Equal(0, result.WindowsPurged)
	s.Equal(0, result.AttemptsPurged)
}

func (s *CleanupWorkerSuite) TestRunIncludesCodeStore() {
	codes := &mockPurgeStore{purgedReturn: 3}
	worker := New(s.windows, WithAttemptStore(s.attempts), WithCodeStore(codes))

	result, err := worker.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, codes.called)
	s.Equal(3, result.CodesPurged)
}

func (s *CleanupWorkerSuite) TestRunWithoutAttemptStore() {
	worker := New(s.windows)
	s.windows.purgedReturn = 1

	result, err := worker.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, result.WindowsPurged)
	s.Equal(0, result.AttemptsPurged)
}

func (s *CleanupWorkerSuite) TestRunPropagatesWindowStoreError() {
	s.windows.errToReturn = context.DeadlineExceeded

	result, err := s.worker.RunOnce(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Nil(result)
	s.Equal(0, s.attempts.called, "attempt purge skipped when window purge fails")
}

func (s *CleanupWorkerSuite) TestRunPropagatesAttemptStoreError() {
	s.attempts.errToReturn = context.DeadlineExceeded

	result, err := s.worker.RunOnce(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Nil(result)
	s.Equal(1, s.windows.called)
}
