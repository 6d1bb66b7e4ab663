package syncjournal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
)

func testEvent(deviceModel string) core.CloudEvent {
	return core.CloudEvent{
		SpecVersion: "1.0",
		ID:          "evt-1",
		Source:      "device/cam-1",
		Type:        "com.example.photo",
		Time:        time.Unix(0, 0),
		DeviceModel: deviceModel,
	}
}

func TestJournal_Record_MatchingRouteIsForwarded(t *testing.T) {
	cfg := &config.SyncIoTConfig{
		Routes: []config.SyncRoute{
			{
				Filters: []config.SyncFilter{{Attribute: "device_model", Value: "cam-x"}},
				Schema:  "edge",
				Table:   "cam_events",
				Action:  "insert",
			},
		},
	}
	sink := NewMemSink()
	j := New(cfg, sink)

	n, err := j.Record(testEvent("cam-x"))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sink.Rows(), 1)
	assert.Equal(t, "edge", sink.Rows()[0].Schema)
	assert.Equal(t, "cam_events", sink.Rows()[0].Table)
}

func TestJournal_Record_NonMatchingRouteIsSkipped(t *testing.T) {
	cfg := &config.SyncIoTConfig{
		Routes: []config.SyncRoute{
			{Filters: []config.SyncFilter{{Attribute: "device_model", Value: "cam-x"}}},
		},
	}
	sink := NewMemSink()
	j := New(cfg, sink)

	n, err := j.Record(testEvent("cam-y"))

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, sink.Rows())
}

func TestJournal_Record_CatchAllRouteWithNoFilters(t *testing.T) {
	cfg := &config.SyncIoTConfig{
		Routes: []config.SyncRoute{
			{Filters: nil, Table: "everything"},
		},
	}
	sink := NewMemSink()
	j := New(cfg, sink)

	n, err := j.Record(testEvent("anything"))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournal_Record_UsesDefaultDestinationWhenRouteOmitsIt(t *testing.T) {
	cfg := &config.SyncIoTConfig{
		Routes: []config.SyncRoute{{Filters: nil}},
	}
	sink := NewMemSink()
	j := New(cfg, sink, WithDefaultDestination("public", "iot_events"))

	_, err := j.Record(testEvent("cam-z"))

	require.NoError(t, err)
	require.Len(t, sink.Rows(), 1)
	assert.Equal(t, "public", sink.Rows()[0].Schema)
	assert.Equal(t, "iot_events", sink.Rows()[0].Table)
}

func TestJournal_Record_MatchAllRoutesForwardsToEveryMatch(t *testing.T) {
	cfg := &config.SyncIoTConfig{
		Routes: []config.SyncRoute{
			{Filters: nil, Table: "first"},
			{Filters: nil, Table: "second"},
		},
	}
	sink := NewMemSink()
	j := New(cfg, sink, MatchAllRoutes())

	n, err := j.Record(testEvent("cam-z"))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, sink.Rows(), 2)
}

type erroringSink struct{}

func (erroringSink) InsertRow(Row) error { return assert.AnError }

func TestJournal_Record_SinkErrorIsWrapped(t *testing.T) {
	cfg := &config.SyncIoTConfig{
		Routes: []config.SyncRoute{{Filters: nil, Schema: "edge", Table: "events"}},
	}
	j := New(cfg, erroringSink{})

	_, err := j.Record(testEvent("cam-z"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "edge.events")
}
