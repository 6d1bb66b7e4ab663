package transport

import (
	"strings"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/transport/clouddevice"
	"github.com/edgeiot/zeppelin/internal/transport/cloudhub"
	"github.com/edgeiot/zeppelin/internal/transport/edgemodule"
	"github.com/edgeiot/zeppelin/internal/transport/mqttbroker"
)

// normalizeClass strips whitespace/-/_ and upper-cases, per spec.md §4.3.
func normalizeClass(class string) string {
	var b strings.Builder
	for _, r := range class {
		switch r {
		case ' ', '-', '_':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// New constructs a Transport variant from a BrokerConfig, applying the
// throttle defaults (10 msg/s, 1.0s sleep) from the broker config. Returns
// nil on an unknown class or a variant-specific construction failure
// (CloudHubService after CONNECT_MAX_RETRY).
func New(cfg config.BrokerConfig) Transport {
	if err := cfg.Validate(); err != nil {
		return nil
	}

	var t Transport
	switch normalizeClass(cfg.Class) {
	case "LOCALMQTT", "MQTT":
		t = mqttbroker.New(cfg)
	case "EDGEHUBMODULE", "IOTEDGE":
		t = edgemodule.Get(cfg)
	case "CLOUDDEVICE", "IOTDEVICE":
		t = clouddevice.New(cfg)
	case "CLOUDHUBSERVICE", "IOTHUB":
		ch := cloudhub.New(cfg)
		if ch == nil {
			return nil
		}
		t = ch
	case "VOID":
		t = NewVoid()
	default:
		return nil
	}

	t.SetMaxMsgSec(cfg.ThrottleMaxMessageSec)
	t.SetSleepSec(cfg.ThrottleSleepSec)
	return t
}
