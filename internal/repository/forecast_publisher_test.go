package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
)

type recordingProducer struct {
	topic  string
	key    []byte
	value  interface{}
	err    error
	closed bool
}

func (r *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	r.topic, r.key, r.value = topic, key, value
	return r.err
}

func (r *recordingProducer) Close() error {
	r.closed = true
	return nil
}

func TestKafkaForecastPublisherKeysBySymbol(t *testing.T) {
	rp := &recordingProducer{}
	p := &KafkaForecastPublisher{producer: rp, topic: "pricecast.forecasts"}
	res := &models.ForecastResult{ID: "abc", Symbol: "AAPL"}

	require.NoError(t, p.Publish(context.Background(), res))
	assert.Equal(t, "pricecast.forecasts", rp.topic)
	assert.Equal(t, []byte("AAPL"), rp.key)
	assert.Same(t, res, rp.value)

	require.NoError(t, p.Close())
	assert.True(t, rp.closed)
}

func TestKafkaForecastPublisherWrapsError(t *testing.T) {
	rp := &recordingProducer{err: errors.New("broker down")}
	p := &KafkaForecastPublisher{producer: rp, topic: "t"}

	err := p.Publish(context.Background(), &models.ForecastResult{ID: "xyz", Symbol: "MSFT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xyz")
	assert.ErrorIs(t, err, rp.err)
}

func TestKafkaRequestQueue(t *testing.T) {
	rp := &recordingProducer{}
	q := &KafkaRequestQueue{producer: rp, topic: "pricecast.forecast-requests"}

	id, err := q.Enqueue(context.Background(), models.ForecastRequest{Symbol: "AAPL", Days: 10, Period: "1y"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []byte(id), rp.key)
	assert.Equal(t, models.ForecastRequest{Symbol: "AAPL", Days: 10, Period: "1y"}, rp.value)
}
