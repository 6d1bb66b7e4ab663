package reassembly

import (
	"fmt"
	"sync"
	"time"

	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/metrics"
)

// DefaultTimeout is the expiration window (spec.md §6 PHOTO_TIMEOUT_MINUTES
// default) since a PhotoState's first_timestamp.
const DefaultTimeout = 2 * time.Minute

// searchWindowMinutes is the tolerance applied when matching a block to an
// already-open PhotoState (spec.md §4.10, open question (a)).
const searchWindowMinutes = 2

// BlobMetadata accompanies a completed blob into ObjectStore.Put.
type BlobMetadata struct {
	DeviceID   string
	CameraType core.CameraType
	Timestamp  time.Time
}

// ObjectStore is the out-of-scope collaborator contract for persisting a
// completed reassembly's bytes, per spec.md §1/§4.10.
type ObjectStore interface {
	Put(blobName string, data []byte, meta BlobMetadata) (url string, ok bool)
}

// AnalyticsRow is the row persisted to AnalyticsStore on completion.
type AnalyticsRow struct {
	DeviceID      string
	CameraType    string
	Timestamp     time.Time
	BlobURL       string
	TotalBlocks   int
	FileSize      int
	IngestionTime time.Time
}

// AnalyticsStore is the out-of-scope collaborator contract for indexing a
// completed reassembly's metadata.
type AnalyticsStore interface {
	InsertRow(row AnalyticsRow) bool
}

// Engine is the Block Reassembly Engine (C10): a mutex-guarded map of
// in-progress PhotoStates, keyed "{device}_{camera}_{minute-window}".
type Engine struct {
	mu      sync.Mutex
	states  map[string]*core.PhotoState
	timeout time.Duration

	objectStore    ObjectStore
	analyticsStore AnalyticsStore
	metrics        *metrics.Registry
	pipeline       string
}

// NewEngine constructs an Engine. timeout <= 0 falls back to DefaultTimeout.
func NewEngine(objectStore ObjectStore, analyticsStore AnalyticsStore, reg *metrics.Registry, pipeline string, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		states:         map[string]*core.PhotoState{},
		timeout:        timeout,
		objectStore:    objectStore,
		analyticsStore: analyticsStore,
		metrics:        reg,
		pipeline:       pipeline,
	}
}

// Ingest implements processor.ReassemblyHook: parses raw, runs the
// opportunistic expiration sweep, then applies the NEW/ACCUMULATING/
// COMPLETE transition for the parsed message. deviceID identifies the
// originating device and must come from the transport's connection
// identity (e.g. the IoT Hub iothub-connection-device-id system property),
// never from the block body, which carries no device_id of its own.
func (e *Engine) Ingest(deviceID, raw string, receivedAt time.Time) {
	msg, ok := Parse(raw)
	if !ok {
		log.GetLogger().Debug("reassembly: message did not match block wire format, dropped")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.expireLocked(receivedAt)

	switch msg.Type {
	case "DCAV", "DCAR":
		e.handleInitLocked(deviceID, msg, receivedAt)
	case "BCAV", "BCAR":
		e.handleBlockLocked(deviceID, msg, receivedAt)
	}
	e.updateGaugeLocked()
}

func (e *Engine) keyFor(deviceID string, camera core.CameraType, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s", deviceID, camera, t.UTC().Format("200601021504"))
}

// handleInitLocked is first-writer-wins: a DCAV/DCAR for a key already
// present is a no-op, per spec.md §4.10's NEW state description.
func (e *Engine) handleInitLocked(deviceID string, msg *ParsedMessage, receivedAt time.Time) {
	key := e.keyFor(deviceID, msg.CameraType, receivedAt)
	if _, exists := e.states[key]; exists {
		return
	}
	e.states[key] = &core.PhotoState{
		DeviceID:       deviceID,
		CameraType:     msg.CameraType,
		TotalBlocks:    msg.TotalBlocks,
		FirstTimestamp: receivedAt,
		Blocks:         map[int]core.Block{},
	}
}

// handleBlockLocked searches the ±2-minute window around the block's
// timestamp for a matching open PhotoState, per spec.md §4.10's
// ACCUMULATING state. Duplicate block numbers overwrite (last-writer-wins,
// per spec.md §9 open question (c)).
func (e *Engine) handleBlockLocked(deviceID string, msg *ParsedMessage, receivedAt time.Time) {
	for offset := -searchWindowMinutes; offset <= searchWindowMinutes; offset++ {
		t := receivedAt.Add(time.Duration(offset) * time.Minute)
		key := e.keyFor(deviceID, msg.CameraType, t)
		ps, found := e.states[key]
		if !found {
			continue
		}

		ps.Blocks[msg.BlockNum] = core.Block{Size: msg.BlockSize, Bytes: msg.BlockBytes}
		if ps.Complete() {
			e.completeLocked(key, ps)
		}
		return
	}
	log.GetLogger().WithField("device_id", deviceID).Warn("reassembly: block with no matching init message, dropped")
}

// completeLocked persists a finished PhotoState and removes its key only
// after both stores succeed; a persistence failure leaves the state in
// place, per spec.md §7's persistence-failure policy (treated as terminal,
// since the key's window will not recur).
func (e *Engine) completeLocked(key string, ps *core.PhotoState) {
	data := ps.SortedData()
	blobName := blobName(ps)

	url, ok := e.objectStore.Put(blobName, data, BlobMetadata{
		DeviceID:   ps.DeviceID,
		CameraType: ps.CameraType,
		Timestamp:  ps.FirstTimestamp,
	})
	if !ok {
		log.GetLogger().WithField("blob_name", blobName).Error("reassembly: object store persist failed, photo state retained")
		return
	}

	row := AnalyticsRow{
		DeviceID:      ps.DeviceID,
		CameraType:    string(ps.CameraType),
		Timestamp:     ps.FirstTimestamp,
		BlobURL:       url,
		TotalBlocks:   ps.TotalBlocks,
		FileSize:      len(data),
		IngestionTime: time.Now().UTC(),
	}
	if !e.analyticsStore.InsertRow(row) {
		log.GetLogger().WithField("blob_name", blobName).Error("reassembly: analytics store insert failed, photo state retained")
		return
	}

	delete(e.states, key)
	if e.metrics != nil {
		e.metrics.ReassemblyCompleted.WithLabelValues(e.pipeline).Inc()
	}
}

// expireLocked is the opportunistic GC sweep run at the start of every
// Ingest call: any PhotoState older than e.timeout is dropped without
// persisting, per spec.md §4.10's EXPIRED state.
func (e *Engine) expireLocked(now time.Time) {
	for key, ps := range e.states {
		if now.Sub(ps.FirstTimestamp) > e.timeout {
			delete(e.states, key)
			if e.metrics != nil {
				e.metrics.ReassemblyExpired.WithLabelValues(e.pipeline).Inc()
			}
		}
	}
}

func (e *Engine) updateGaugeLocked() {
	if e.metrics != nil {
		e.metrics.ReassemblyActivePhotos.Set(float64(len(e.states)))
	}
}

// blobName builds "{device_id}/{YYYY}/{MM}/{DD}/{camera_type}_{HHMMSS}_{epoch-ms}.jpg".
func blobName(ps *core.PhotoState) string {
	t := ps.FirstTimestamp.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s_%s_%d.jpg",
		ps.DeviceID, t.Year(), t.Month(), t.Day(),
		ps.CameraType, t.Format("150405"), t.UnixMilli())
}
