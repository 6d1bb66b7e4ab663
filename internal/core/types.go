// Package core defines the domain types shared across the pipeline engine
// and the block reassembly engine: the CloudEvents envelope, the internal
// queue item transports push into, and the in-progress photo state the
// reassembly engine tracks. These carry zero external dependencies, the
// same way the capture-agent lineage kept its core packet types dependency-free.
package core

import (
	"encoding/json"
	"sort"
	"time"
)

// CloudEvent is the CNCF CloudEvents 1.0 envelope carried end-to-end through
// a pipeline. Data is either an inline JSON value or, when Compressed/base64
// encoded, a base64 string in DataBase64. Extra holds any pipeline-declared
// or populate_ce_attributes-copied attributes not named explicitly here.
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	ID              string                 `json:"id"`
	Source          string                 `json:"source"`
	Type            string                 `json:"type"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype,omitempty"`
	Data            interface{}            `json:"data,omitempty"`
	DataBase64      string                 `json:"data_base64,omitempty"`
	DeviceModel     string                 `json:"device_model,omitempty"`
	Compressed      bool                   `json:"compressed,omitempty"`
	Extra           map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra alongside the named fields so additional
// pipeline-declared attributes round-trip as top-level JSON members rather
// than a nested object.
func (c CloudEvent) MarshalJSON() ([]byte, error) {
	m := c.ToMap()
	return json.Marshal(m)
}

// ToMap renders the envelope (including Extra) as a plain map, the shape
// used both for outbound JSON and for populate_ce_attributes copying.
func (c CloudEvent) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(c.Extra)+8)
	for k, v := range c.Extra {
		m[k] = v
	}
	m["specversion"] = c.SpecVersion
	m["id"] = c.ID
	m["source"] = c.Source
	m["type"] = c.Type
	m["time"] = c.Time.UTC().Format(time.RFC3339Nano)
	if c.DataContentType != "" {
		m["datacontenttype"] = c.DataContentType
	}
	if c.DataBase64 != "" {
		m["data_base64"] = c.DataBase64
	} else if c.Data != nil {
		m["data"] = c.Data
	}
	if c.DeviceModel != "" {
		m["device_model"] = c.DeviceModel
	}
	if c.Compressed {
		m["compressed"] = c.Compressed
	}
	return m
}

// InboundMessage is the internal queue item a Transport pushes after
// receiving a network message; it is what the Pipeline Runner drains and
// hands to a Processor.
type InboundMessage struct {
	Topic      string
	Payload    interface{} // decoded JSON object/array/scalar, or a raw string if decoding failed
	RawValid   bool        // true when Payload is a decoded JSON value rather than a raw string fallback
	SizeBytes  int
	EnqueuedAt time.Time
	Props      map[string]string
}

// CameraType enumerates the two block-reassembly camera families.
type CameraType string

const (
	CameraAV CameraType = "CAMAV"
	CameraAR CameraType = "CAMAR"
)

// Block is one accumulated fragment of a multi-part camera payload.
type Block struct {
	Size  int
	Bytes []byte
}

// PhotoState tracks one in-progress block reassembly, keyed by
// "{device}_{camera}_{minute-window}".
type PhotoState struct {
	DeviceID       string
	CameraType     CameraType
	TotalBlocks    int
	FirstTimestamp time.Time
	Blocks         map[int]Block
}

// Complete reports whether every block has arrived. Per the spec, this is
// the sole completion criterion — missing block numbers below TotalBlocks
// never block completion as long as the count matches.
func (p *PhotoState) Complete() bool {
	return len(p.Blocks) == p.TotalBlocks
}

// SortedData concatenates the accumulated blocks in ascending block-number
// order, the payload persisted on completion.
func (p *PhotoState) SortedData() []byte {
	nums := make([]int, 0, len(p.Blocks))
	for n := range p.Blocks {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]byte, 0, len(nums)*256)
	for _, n := range nums {
		out = append(out, p.Blocks[n].Bytes...)
	}
	return out
}
