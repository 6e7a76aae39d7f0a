package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/ylztf/LWI/core/metrics"
	"github.com/ylztf/LWI/core/model"
	"github.com/ylztf/LWI/infra/logger"
)

// InfluxSink writes agent activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	agentID  string
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket, agentID string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		agentID:  agentID,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket, agentID string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket, agentID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSnapshot writes the load table readings as a point per cycle.
func (s *InfluxSink) RecordSnapshot(snap model.LoadSnapshot, state model.LoadState) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("load_table").
		AddTag("agent_id", s.agentID).
		AddTag("state", state.String()).
		AddField("generation_kw", round3(snap.GenerationKW)).
		AddField("storage_kw", round3(snap.StorageKW)).
		AddField("load_kw", round3(snap.LoadKW)).
		AddField("gateway_kw", round3(snap.GatewayKW)).
		AddField("migration_kw", round3(snap.MigrationKW)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordMessage writes one handled message event.
func (s *InfluxSink) RecordMessage(direction string, kind model.MessageKind) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("draft_message").
		AddTag("agent_id", s.agentID).
		AddTag("direction", direction).
		AddTag("kind", string(kind)).
		AddField("count", 1).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSendFailure writes one failed publish event.
func (s *InfluxSink) RecordSendFailure(kind model.MessageKind) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("send_failure").
		AddTag("agent_id", s.agentID).
		AddTag("kind", string(kind)).
		AddField("count", 1).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordMigration writes one started migration.
func (s *InfluxSink) RecordMigration(amountKW float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("power_migration").
		AddTag("agent_id", s.agentID).
		AddField("amount_kw", round3(amountKW)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying InfluxDB client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
