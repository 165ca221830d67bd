package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/BearBump/ShareBox/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *writerMock) Close() error { return nil }

type ProducerSuite struct {
	suite.Suite
	wm  *writerMock
	p   *Producer
	pub *StatusPublisher
}

func (s *ProducerSuite) SetupTest() {
	s.wm = &writerMock{}
	s.p = newProducerWithWriter(s.wm)
	s.pub = NewStatusPublisher(s.p, "commodity.status_changed")
}

func (s *ProducerSuite) TestPublish_ErrorWrapped() {
	want := errors.New("boom")
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).Return(want).Once()

	err := s.p.Publish(context.Background(), "t", []byte("k"), []byte("v"))
	s.Require().Error(err)
	s.Require().ErrorIs(err, want)
	s.Require().Contains(err.Error(), "kafka publish")
	s.wm.AssertExpectations(s.T())
}

func (s *ProducerSuite) TestPublishStatusChanged_OneBatch() {
	evs := []messages.CommodityStatusChanged{
		{EventID: "a", CommodityID: 1, From: "giving", To: "giveExpired"},
		{EventID: "b", CommodityID: 22, From: "receiving", To: "pending"},
	}
	s.wm.
		On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 2 {
				return false
			}
			var second messages.CommodityStatusChanged
			if json.Unmarshal(msgs[1].Value, &second) != nil {
				return false
			}
			return msgs[0].Topic == "commodity.status_changed" &&
				string(msgs[0].Key) == "1" &&
				string(msgs[1].Key) == "22" &&
				second.To == "pending"
		})).
		Return(nil).
		Once()

	s.Require().NoError(s.pub.PublishStatusChanged(context.Background(), evs...))
	s.wm.AssertExpectations(s.T())
}

func (s *ProducerSuite) TestPublishStatusChanged_EmptyIsNoop() {
	s.Require().NoError(s.pub.PublishStatusChanged(context.Background()))
	s.wm.AssertNotCalled(s.T(), "WriteMessages", mock.Anything, mock.Anything)
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}
