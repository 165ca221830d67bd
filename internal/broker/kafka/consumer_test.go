package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ShareBox/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	err       error
	i         int
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.i < len(r.msgs) {
		m := r.msgs[r.i]
		r.i++
		return m, nil
	}
	if r.err != nil {
		return kafka.Message{}, r.err
	}
	return kafka.Message{}, errors.New("eof")
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_Consume_CallsHandlerAndCommits(t *testing.T) {
	fr := &fakeReader{
		msgs: []kafka.Message{{Key: []byte("k"), Value: []byte("v")}},
		err:  errors.New("stop"),
	}
	c := newConsumerWithReader(fr)

	var gotK, gotV []byte
	err := c.Consume(context.Background(), func(k, v []byte) error {
		gotK, gotV = k, v
		return nil
	})
	require.Error(t, err)
	require.Equal(t, []byte("k"), gotK)
	require.Equal(t, []byte("v"), gotV)
	require.Len(t, fr.committed, 1)
}

func TestConsumer_Consume_HandlerErrorStopsWithoutCommit(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{{Key: []byte("k"), Value: []byte("v")}}}
	c := newConsumerWithReader(fr)

	want := errors.New("handler failed")
	err := c.Consume(context.Background(), func(k, v []byte) error { return want })
	require.ErrorIs(t, err, want)
	require.Empty(t, fr.committed)
}

func TestConsumer_ConsumeStatusChanged(t *testing.T) {
	ev := messages.CommodityStatusChanged{EventID: "e1", CommodityID: 5, From: "giving", To: "giveExpired", ChangedAt: time.Unix(10, 0).UTC()}
	b, _ := json.Marshal(ev)

	fr := &fakeReader{
		msgs: []kafka.Message{
			{Key: []byte("x"), Value: []byte("{broken")},
			{Key: ev.Key(), Value: b},
		},
		err: errors.New("stop"),
	}
	c := newConsumerWithReader(fr)

	var got []messages.CommodityStatusChanged
	err := c.ConsumeStatusChanged(context.Background(), func(_ context.Context, ev messages.CommodityStatusChanged) error {
		got = append(got, ev)
		return nil
	})
	require.Error(t, err)
	require.Equal(t, []messages.CommodityStatusChanged{ev}, got)
	// битое сообщение тоже закоммичено
	require.Len(t, fr.committed, 2)
}

func TestNewConsumer_Close(t *testing.T) {
	c := NewConsumer([]string{"localhost:0"}, "t", "g")
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}
