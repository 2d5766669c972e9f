package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	suite.Suite
	mini   *miniredis.Miniredis
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client, err := New(s.mini.Addr(), "")
	s.Require().NoError(err)
	s.client = client
}

func (s *ClientSuite) TearDownTest() {
	if s.client != nil {
		s.client.Close() //nolint:errcheck // test cleanup
	}
}

func (s *ClientSuite) TestNewWithoutAddrReturnsNil() {
	client, err := New("", "")
	s.NoError(err)
	s.Nil(client)
}

func (s *ClientSuite) TestHealth() {
	s.NoError(s.client.Health(context.Background()))
}

func (s *ClientSuite) TestRecordPoolStatsTracksDeltas() {
	s.client.RecordPoolStats()
	s.Require().NotNil(s.client.lastStats)

	// A round trip moves the pool counters; the second call must diff
	// against the snapshot instead of re-adding absolute totals.
	s.Require().NoError(s.client.Ping(context.Background()).Err())
	s.client.RecordPoolStats()
	s.NotNil(s.client.lastStats)
}
