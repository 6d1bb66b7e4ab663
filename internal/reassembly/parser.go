// Package reassembly implements the Block Reassembly Engine (C10): a
// byte-level, tolerant parser for block-framed camera messages and the
// time-windowed state machine that accumulates them into a complete blob.
//
// The parser intentionally does not round-trip through encoding/json —
// the wire format embeds raw binary inside a JSON-ish envelope, so values
// are located by their literal markers and sliced out directly, the same
// byte-scanning approach the capture-agent lineage used to reassemble
// fragmented IP packets without a full protocol decode.
package reassembly

import (
	"strconv"
	"strings"

	"github.com/edgeiot/zeppelin/internal/core"
)

// blockTrailer closes the envelope after a block's raw bytes.
const blockTrailer = "}]}"

// ParsedMessage is one decoded block-wire message. The device it came from
// is not a field of this type: real DCAV/BCAV bodies carry no device_id (the
// wire grammar in spec.md §4.10 only documents type/val), so identity comes
// from the transport's system properties and is threaded into Engine.Ingest
// separately.
type ParsedMessage struct {
	Type        string // DCAV, DCAR, BCAV, BCAR
	CameraType  core.CameraType
	TotalBlocks int // set on DCAV/DCAR
	BlockNum    int // set on BCAV/BCAR
	BlockSize   int
	BlockBytes  []byte
}

var messageTypes = []string{"DCAV", "DCAR", "BCAV", "BCAR"}

// Parse detects one of {"type":"DCAV"|"DCAR"|"BCAV"|"BCAR"} as a substring
// and extracts the fields that type carries, per spec.md §4.10.
func Parse(raw string) (*ParsedMessage, bool) {
	typ, ok := detectType(raw)
	if !ok {
		return nil, false
	}

	camera := cameraFor(typ)

	switch typ {
	case "DCAV", "DCAR":
		valStr, ok := extractQuoted(raw, `"val":"`)
		if !ok {
			return nil, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(valStr))
		if err != nil {
			return nil, false
		}
		return &ParsedMessage{Type: typ, CameraType: camera, TotalBlocks: n}, true

	case "BCAV", "BCAR":
		blockNum, blockSize, data, ok := extractBlock(raw)
		if !ok {
			return nil, false
		}
		return &ParsedMessage{
			Type:       typ,
			CameraType: camera,
			BlockNum:   blockNum,
			BlockSize:  blockSize,
			BlockBytes: data,
		}, true
	}
	return nil, false
}

func detectType(raw string) (string, bool) {
	for _, t := range messageTypes {
		if strings.Contains(raw, `"type":"`+t+`"`) {
			return t, true
		}
	}
	return "", false
}

func cameraFor(typ string) core.CameraType {
	if strings.HasSuffix(typ, "AV") {
		return core.CameraAV
	}
	return core.CameraAR
}

// extractQuoted returns the string between marker and the next `"`.
func extractQuoted(raw, marker string) (string, bool) {
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return "", false
	}
	rest := raw[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// extractBlock parses `"val":"<block_num> <block_size> <raw-bytes>"` up to
// the fixed 3-byte trailer that closes the envelope.
func extractBlock(raw string) (num, size int, data []byte, ok bool) {
	const marker = `"val":"`
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return 0, 0, nil, false
	}
	rest := raw[idx+len(marker):]

	sp1 := strings.IndexByte(rest, ' ')
	if sp1 < 0 {
		return 0, 0, nil, false
	}
	numStr := rest[:sp1]
	rest = rest[sp1+1:]

	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return 0, 0, nil, false
	}
	sizeStr := rest[:sp2]
	rest = rest[sp2+1:]

	trailerIdx := strings.Index(rest, blockTrailer)
	if trailerIdx < 0 {
		return 0, 0, nil, false
	}

	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, 0, nil, false
	}
	s, err := strconv.Atoi(sizeStr)
	if err != nil {
		return 0, 0, nil, false
	}
	return n, s, []byte(rest[:trailerIdx]), true
}
