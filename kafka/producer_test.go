package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/order-ingestion-service/models"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishOrderCreated(t *testing.T) {
	w := &fakeWriter{}
	p := &OrderEventProducer{writer: w, topic: "order.created", logger: zap.NewNop()}

	evt := models.OrderCreatedEvent{
		EventType:   "order.created",
		OrderNumber: "6f1c7c2e-0000-4000-8000-000000000001",
		StoreUserID: "u1",
		TotalPrice:  decimal.RequireFromString("50"),
		Currency:    models.CurrencyGBP,
		Timestamp:   time.Unix(0, 0).UTC(),
	}
	require.NoError(t, p.PublishOrderCreated(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, evt.OrderNumber, string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	var decoded models.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "u1", decoded.StoreUserID)
	assert.True(t, decoded.TotalPrice.Equal(evt.TotalPrice))
}

func TestPublishOrderCreated_WriteError(t *testing.T) {
	p := &OrderEventProducer{writer: &fakeWriter{err: errors.New("broker down")}, topic: "order.created", logger: zap.NewNop()}
	err := p.PublishOrderCreated(context.Background(), models.OrderCreatedEvent{OrderNumber: "x"})
	assert.ErrorContains(t, err, "broker down")
}
