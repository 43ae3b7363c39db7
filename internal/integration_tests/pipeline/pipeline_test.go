//go:build integration

// Package pipeline drives a registry mutation from an HTTP request through
// the postgres ledger and the outbox relay to a Kafka consumer.
package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	jwttoken "trafficreg/internal/jwt_token"
	"trafficreg/internal/platform/config"
	"trafficreg/internal/platform/kafka"
	"trafficreg/internal/platform/middleware"
	"trafficreg/internal/system"
	httptransport "trafficreg/internal/transport/http"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/audit/worker"
	"trafficreg/pkg/platform/tx"
	"trafficreg/pkg/testutil/containers"
)

var durableTables = []string{
	"ledger_events", "ledger_ops", "role_assignments", "controller_record",
	"driver_licenses", "vehicle_registrations", "agencies", "renew_rules",
}

func runInTx(db *sql.DB) worker.TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		sqlTx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = sqlTx.Rollback() }()
		if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
			return err
		}
		return sqlTx.Commit()
	}
}

func TestIssuedAgencyReachesKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg := containers.GetManager().GetPostgres(t)
	broker := containers.GetManager().GetRedpanda(t).Broker
	require.NoError(t, pg.TruncateTables(ctx, durableTables...))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deployer := id.DeriveAddress("pipeline-deployer")
	sys, err := system.Deploy(ctx, system.Options{
		Deployer:   deployer,
		DB:         pg.DB,
		Logger:     logger,
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	jwt := jwttoken.NewJWTService("pipeline-key", "trafficreg")
	server := httptest.NewServer(httptransport.NewRouter(
		httptransport.NewHandler(httptransport.ServicesFor(sys), logger),
		httptransport.RouterConfig{Validator: jwttoken.NewJWTServiceAdapter(jwt), Logger: logger},
	))
	defer server.Close()

	token, err := jwt.IssueToken(deployer, time.Minute)
	require.NoError(t, err)
	agencyAddr := id.DeriveAddress("pipeline-agency")
	body, err := json.Marshal(map[string]string{
		"address": agencyAddr.Hex(), "agency_id": "AG-PIPE", "name": "Cuc CSGT", "location": "Ha Noi",
	})
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/v1/agencies", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "req-pipeline-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	topic := "ledger-events-" + uuid.NewString()[:8]
	publisher, err := kafka.New(ctx, config.KafkaConfig{
		Brokers: []string{broker}, Topic: topic, Partitions: 1, Replication: 1, CreateTopics: true,
	}, logger)
	require.NoError(t, err)
	defer publisher.Close()

	relay := worker.NewWorker(sys.Events, publisher, worker.WithTxRunner(runInTx(pg.DB)), worker.WithBatchSize(1000), worker.WithLogger(logger))
	published, err := relay.Drain(ctx)
	require.NoError(t, err)
	require.Positive(t, published)

	again, err := relay.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "published events are not relayed twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var issued *kafka.Message
	for seen := 0; seen < published; {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			seen++
			var m kafka.Message
			require.NoError(t, json.Unmarshal(r.Value, &m))
			if m.Action == "AgencyIssued" {
				issued = &m
				assert.Equal(t, "gov_agency/AG-PIPE", string(r.Key))
			}
		})
	}
	require.NotNil(t, issued)
	assert.Equal(t, "req-pipeline-1", issued.RequestID)
	assert.Equal(t, deployer.Hex(), issued.Actor)
	assert.Equal(t, agencyAddr.Hex(), issued.Subject)
}
