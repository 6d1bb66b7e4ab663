// Package config implements the data model and loader for zeppelin.json
// and synciot.json (C9 ConfigManager, plus the data model additions
// SPEC_FULL.md §3 adds), grounded on the capture-agent lineage's
// viper-backed internal/config.GlobalConfig/TaskConfig loader.
package config

// CloudEventTemplate is the pipeline-declared skeleton merged into every
// outbound CloudEvent: fixed attributes plus whatever Extra the pipeline
// author wants copied onto every message (source/type defaults, etc).
type CloudEventTemplate struct {
	SpecVersion     string                 `mapstructure:"specversion" json:"specversion"`
	Source          string                 `mapstructure:"source" json:"source,omitempty"`
	Type            string                 `mapstructure:"type" json:"type,omitempty"`
	DataContentType string                 `mapstructure:"datacontenttype" json:"datacontenttype,omitempty"`
	Extra           map[string]interface{} `mapstructure:",remain" json:"-"`
}

// BrokerConfig describes one Transport endpoint (source or destination).
// Class-specific fields are left as a loosely-typed map so the
// TransportFactory can decode only what a given variant needs.
type BrokerConfig struct {
	Class        string                 `mapstructure:"class" json:"class"`
	Topic        interface{}            `mapstructure:"topic" json:"topic,omitempty"` // string or []string
	HasCloudEvent bool                  `mapstructure:"has_cloud_event" json:"has_cloud_event,omitempty"`

	ThrottleMaxMessageSec int     `mapstructure:"throttle_max_message_sec" json:"throttle_max_message_sec,omitempty"`
	ThrottleSleepSec      float64 `mapstructure:"throttle_sleep_sec" json:"throttle_sleep_sec,omitempty"`

	// MQTT / LocalMQTT
	Host               string `mapstructure:"host" json:"host,omitempty"`
	Port               int    `mapstructure:"port" json:"port,omitempty"`
	ClientID           string `mapstructure:"client_id" json:"client_id,omitempty"`
	Username           string `mapstructure:"username" json:"username,omitempty"`
	Password           string `mapstructure:"password" json:"password,omitempty"`
	CACerts            string `mapstructure:"ca_certs" json:"ca_certs,omitempty"`
	CertFile           string `mapstructure:"certfile" json:"certfile,omitempty"`
	KeyFile            string `mapstructure:"keyfile" json:"keyfile,omitempty"`
	QoS                int    `mapstructure:"qos" json:"qos,omitempty"`
	Retain             bool   `mapstructure:"retain" json:"retain,omitempty"`
	KeepAliveSec       int    `mapstructure:"keepalive_sec" json:"keepalive_sec,omitempty"`

	// EdgeHubModule / CloudDevice / CloudHubService
	EnableDirectMethod  bool   `mapstructure:"enable_direct_method" json:"enable_direct_method,omitempty"`
	DirectMethodName    string `mapstructure:"direct_method_name" json:"direct_method_name,omitempty"`
	ConnectionStringFile string `mapstructure:"connection_string_file" json:"connection_string_file,omitempty"`
	ConnectionTimeoutSec int    `mapstructure:"connection_timeout_sec" json:"connection_timeout_sec,omitempty"`
	ResponseTimeoutSec   int    `mapstructure:"response_timeout_sec" json:"response_timeout_sec,omitempty"`
	ModuleID             string `mapstructure:"module_id" json:"module_id,omitempty"`
	DeviceID             string `mapstructure:"device_id" json:"device_id,omitempty"`
}

// Topics normalizes the Topic field (string or []string) into a slice.
func (b *BrokerConfig) Topics() []string {
	switch v := b.Topic.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Validate applies in-place defaults and rejects structurally invalid
// broker configs, mirroring TaskConfig.Validate()'s defaulting-plus-check
// pattern from the capture-agent lineage.
func (b *BrokerConfig) Validate() error {
	if b.ThrottleMaxMessageSec <= 0 {
		b.ThrottleMaxMessageSec = 10
	}
	if b.ThrottleSleepSec <= 0 {
		b.ThrottleSleepSec = 1.0
	}
	if b.ConnectionTimeoutSec <= 0 {
		b.ConnectionTimeoutSec = 15
	}
	if b.ResponseTimeoutSec <= 0 {
		b.ResponseTimeoutSec = 30
	}
	if b.KeepAliveSec <= 0 {
		b.KeepAliveSec = 60
	}
	return nil
}

// PipelineConfig is one entry of zeppelin.json's pipelines[] array.
type PipelineConfig struct {
	Name                     string                 `mapstructure:"name" json:"name"`
	Class                    string                 `mapstructure:"class" json:"class"`
	SourceBroker             BrokerConfig           `mapstructure:"source_broker" json:"source_broker"`
	DestinationBroker        BrokerConfig           `mapstructure:"destination_broker" json:"destination_broker"`
	JSONSchema               string                 `mapstructure:"json_schema" json:"json_schema,omitempty"`
	Config                   map[string]interface{} `mapstructure:"config" json:"config,omitempty"`
	CloudEvent               CloudEventTemplate      `mapstructure:"cloud_event" json:"cloud_event"`
	ValidationRules          ValidationRules         `mapstructure:"validation_rules" json:"validation_rules,omitempty"`
	ApplyGlobalValidationRules bool                 `mapstructure:"apply_global_validation_rules" json:"apply_global_validation_rules,omitempty"`
	MaxPayloadSizeBytes      int                    `mapstructure:"max_payload_size_bytes" json:"max_payload_size_bytes,omitempty"`
	ThreadIntervalSec        float64                `mapstructure:"thread_interval_sec" json:"thread_interval_sec,omitempty"`
	DataTypes                []string               `mapstructure:"data_types" json:"data_types,omitempty"`
	PopulateCEAttributes     []string               `mapstructure:"populate_ce_attributes" json:"populate_ce_attributes,omitempty"`
	DeviceIDAttributeName    string                 `mapstructure:"device_id_attribute_name" json:"device_id_attribute_name,omitempty"`
}

// ValidationRules is the engine-facing {units: [...]} shape.
type ValidationRules struct {
	Units []string `mapstructure:"units" json:"units,omitempty"`
}

// Validate defaults ThreadIntervalSec and recurses into both brokers.
func (p *PipelineConfig) Validate() error {
	if p.Name == "" {
		return errRequired("pipelines[].name")
	}
	if p.Class == "" {
		return errRequired("pipelines[].class")
	}
	if p.ThreadIntervalSec <= 0 {
		p.ThreadIntervalSec = 1.0
	}
	if err := p.SourceBroker.Validate(); err != nil {
		return err
	}
	if err := p.DestinationBroker.Validate(); err != nil {
		return err
	}
	return nil
}

// MetricsConfig controls the Prometheus exposition server (C_metrics).
type MetricsConfig struct {
	Listen string `mapstructure:"listen" json:"listen,omitempty"`
	Path   string `mapstructure:"path" json:"path,omitempty"`
}

// LogConfig controls the structured logger (internal/log).
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level,omitempty"`
	Format string `mapstructure:"format" json:"format,omitempty"` // "text" | "json"
}

// ControlConfig addresses the UDS control socket (A4).
type ControlConfig struct {
	Socket  string `mapstructure:"socket" json:"socket,omitempty"`
	PIDFile string `mapstructure:"pid_file" json:"pid_file,omitempty"`
}

// KafkaCommandConfig addresses the Kafka remote command channel topic.
type KafkaCommandConfig struct {
	Brokers         []string `mapstructure:"brokers" json:"brokers,omitempty"`
	Topic           string   `mapstructure:"topic" json:"topic,omitempty"`
	GroupID         string   `mapstructure:"group_id" json:"group_id,omitempty"`
	ResponseTopic   string   `mapstructure:"response_topic" json:"response_topic,omitempty"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset" json:"auto_offset_reset,omitempty"`
}

// CommandChannelConfig selects and parameterizes the remote command
// channel (A4); the UDS control socket is always available regardless of
// this setting.
type CommandChannelConfig struct {
	Enabled    bool               `mapstructure:"enabled" json:"enabled,omitempty"`
	Type       string             `mapstructure:"type" json:"type,omitempty"` // "kafka"
	Kafka      KafkaCommandConfig `mapstructure:"kafka" json:"kafka,omitempty"`
	CommandTTL string             `mapstructure:"command_ttl" json:"command_ttl,omitempty"`
}

// ObjectStoreConfig selects the block-reassembly persistence backend (A6).
type ObjectStoreConfig struct {
	Backend             string  `mapstructure:"backend" json:"backend,omitempty"` // "s3" | "fs"
	Bucket              string  `mapstructure:"bucket" json:"bucket,omitempty"`
	Prefix              string  `mapstructure:"prefix" json:"prefix,omitempty"`
	BaseDir             string  `mapstructure:"base_dir" json:"base_dir,omitempty"`
	Region              string  `mapstructure:"region" json:"region,omitempty"`
	PhotoTimeoutMinutes float64 `mapstructure:"photo_timeout_minutes" json:"photo_timeout_minutes,omitempty"`
}

// GlobalConfig is the root of zeppelin.json.
type GlobalConfig struct {
	Version               string                 `mapstructure:"version" json:"version"`
	VersionDate           string                 `mapstructure:"version_date" json:"version_date"`
	Pipelines             []PipelineConfig       `mapstructure:"pipelines" json:"pipelines"`
	GlobalValidationRules ValidationRules        `mapstructure:"global_validation_rules" json:"global_validation_rules,omitempty"`
	Metrics               MetricsConfig          `mapstructure:"metrics" json:"metrics,omitempty"`
	Log                   LogConfig              `mapstructure:"log" json:"log,omitempty"`
	Control               ControlConfig          `mapstructure:"control" json:"control,omitempty"`
	ObjectStore           ObjectStoreConfig      `mapstructure:"object_store" json:"object_store,omitempty"`
	CommandChannel        CommandChannelConfig   `mapstructure:"command_channel" json:"command_channel,omitempty"`
}

// Validate checks every pipeline and requires at least one.
func (g *GlobalConfig) Validate() error {
	if len(g.Pipelines) == 0 {
		return errRequired("pipelines")
	}
	for i := range g.Pipelines {
		if err := g.Pipelines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SyncIoTConfig models synciot.json (spec.md §6); owned by the (out of
// scope) sync journal, kept here since it shares the loader.
type SyncIoTConfig struct {
	IoTHub struct {
		ConnectionString string `mapstructure:"connection_string" json:"connection_string"`
		ConsumerGroup    string `mapstructure:"consumer_group" json:"consumer_group"`
	} `mapstructure:"iothub" json:"iothub"`
	PostgreSQL struct {
		Host                   string `mapstructure:"host" json:"host"`
		Port                   int    `mapstructure:"port" json:"port"`
		Database               string `mapstructure:"database" json:"database"`
		User                   string `mapstructure:"user" json:"user"`
		Password               string `mapstructure:"password" json:"password"`
		SSLMode                string `mapstructure:"sslmode" json:"sslmode"`
		ConfigTable            string `mapstructure:"config_table" json:"config_table"`
		ConfigKey              string `mapstructure:"config_key" json:"config_key"`
		UpdateConfigIntervalSec int   `mapstructure:"update_config_interval_sec" json:"update_config_interval_sec"`
		DefaultSchema          string `mapstructure:"default_schema" json:"default_schema"`
		DefaultTable           string `mapstructure:"default_table" json:"default_table"`
	} `mapstructure:"postgresql" json:"postgresql"`
	Routes []SyncRoute `mapstructure:"routes" json:"routes"`
}

type SyncRoute struct {
	Filters []SyncFilter `mapstructure:"filters" json:"filters"`
	Schema  string       `mapstructure:"schema" json:"schema,omitempty"`
	Table   string       `mapstructure:"table" json:"table,omitempty"`
	Action  string       `mapstructure:"action" json:"action,omitempty"` // "insert"
}

type SyncFilter struct {
	Attribute string `mapstructure:"attribute" json:"attribute"`
	Value     string `mapstructure:"value" json:"value"`
}

func errRequired(field string) error {
	return &validationError{field: field}
}

type validationError struct{ field string }

func (e *validationError) Error() string { return "config: missing required field " + e.field }
