package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, len(rs))
	for i, r := range rs {
		results[i] = kgo.ProduceResult{Record: r, Err: f.err}
	}
	return results
}

func event() audit.Event {
	e := audit.New(audit.ContractOffence, audit.EventPointDeducted, "DL-001").
		With("remaining", "0")
	e.ID = uuid.New()
	e.Seq = 7
	e.Actor = id.DeriveAddress("deployer")
	e.Subject = id.DeriveAddress("holder")
	e.TokenID = 3
	e.Timestamp = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return e
}

func TestPublish(t *testing.T) {
	fake := &fakeProducer{}
	p := &Publisher{client: fake, topic: "trafficreg.ledger-events", logger: slog.Default()}

	e := event()
	require.NoError(t, p.Publish(context.Background(), []audit.Event{e}))
	require.Len(t, fake.records, 1)

	r := fake.records[0]
	assert.Equal(t, "trafficreg.ledger-events", r.Topic)
	assert.Equal(t, "offence_and_renewal/DL-001", string(r.Key))
	assert.Equal(t, kgo.RecordHeader{Key: "action", Value: []byte("PointDeducted")}, r.Headers[0])

	var m Message
	require.NoError(t, json.Unmarshal(r.Value, &m))
	assert.Equal(t, e.ID.String(), m.ID)
	assert.Equal(t, uint64(7), m.Seq)
	assert.Equal(t, "PointDeducted", m.Action)
	assert.Equal(t, e.Subject.Hex(), m.Subject)
	assert.Equal(t, uint64(3), m.TokenID)
	assert.Equal(t, "0", m.Attributes["remaining"])
	assert.True(t, e.Timestamp.Equal(m.Timestamp))
}

func TestPublish_FailsOnUnacknowledgedRecord(t *testing.T) {
	fake := &fakeProducer{err: errors.New("NOT_ENOUGH_REPLICAS")}
	p := &Publisher{client: fake, topic: "events", logger: slog.Default()}
	err := p.Publish(context.Background(), []audit.Event{event(), event()})
	assert.ErrorContains(t, err, "produce 2 events")
}
