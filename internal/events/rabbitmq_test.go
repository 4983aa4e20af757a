package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/maheshrc27/autopost/internal/content"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedPublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []capturedPublish
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, capturedPublish{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestRabbitNotifier_RunFinished(t *testing.T) {
	ch := &fakeChannel{}
	n := &RabbitNotifier{ch: ch, exchange: DefaultExchange}

	event := content.RunEvent{
		RunID:      "01HZX",
		PostID:     7,
		OwnerID:    3,
		RunState:   "DONE",
		Status:     "PUBLISH_FAILED",
		Reason:     "asset generation timed out",
		FinishedAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	require.NoError(t, n.RunFinished(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, "run.publish_failed", got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "01HZX", got.msg.MessageId)

	var decoded content.RunEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, event, decoded)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "run.published", RoutingKey(content.RunEvent{Status: "PUBLISHED"}))
	assert.Equal(t, "run.unknown", RoutingKey(content.RunEvent{}))
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.RunFinished(context.Background(), content.RunEvent{}))
}
