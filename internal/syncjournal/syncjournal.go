// Package syncjournal matches outbound CloudEvents against synciot.json's
// routes and hands matching rows to a RowSink, the out-of-scope relational
// "sync to warehouse" collaborator (spec.md §1 Non-goals names the actual
// IoTHub-consumer/PostgreSQL writer as external; this package owns only the
// route/filter matching in front of it).
package syncjournal

import (
	"fmt"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
)

// Row is one record handed to a RowSink: the resolved schema/table target
// plus the flattened CloudEvent attributes to insert.
type Row struct {
	Schema string
	Table  string
	Record map[string]interface{}
}

// RowSink is the out-of-scope collaborator contract: a relational sink that
// knows how to insert a Row into its own warehouse (PostgreSQL in
// production). No implementation beyond MemSink ships here.
type RowSink interface {
	InsertRow(row Row) error
}

// Journal evaluates every CloudEvent that crosses a pipeline against
// synciot.json's routes, in order, and forwards the first match (or every
// match, when built with MatchAllRoutes) to the configured RowSink.
type Journal struct {
	routes         []config.SyncRoute
	sink           RowSink
	defaultSchema  string
	defaultTable   string
	matchFirstOnly bool
}

// Option configures a Journal at construction.
type Option func(*Journal)

// WithDefaultDestination sets the schema/table used when a matching route
// leaves Schema/Table empty, mirroring synciot.json's
// postgresql.default_schema/default_table fields.
func WithDefaultDestination(schema, table string) Option {
	return func(j *Journal) {
		j.defaultSchema = schema
		j.defaultTable = table
	}
}

// MatchAllRoutes forwards a row to every matching route instead of only the
// first. Off by default, matching the teacher's first-match routing rules.
func MatchAllRoutes() Option {
	return func(j *Journal) { j.matchFirstOnly = false }
}

// New builds a Journal from a parsed SyncIoTConfig and a sink.
func New(cfg *config.SyncIoTConfig, sink RowSink, opts ...Option) *Journal {
	j := &Journal{
		routes:         cfg.Routes,
		sink:           sink,
		defaultSchema:  cfg.PostgreSQL.DefaultSchema,
		defaultTable:   cfg.PostgreSQL.DefaultTable,
		matchFirstOnly: true,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record evaluates event against the routes' filters in order and forwards
// the first match to the sink (every match when built with MatchAllRoutes).
// Returns the number of rows forwarded.
func (j *Journal) Record(event core.CloudEvent) (int, error) {
	attrs := event.ToMap()
	forwarded := 0

	for _, route := range j.routes {
		if !matches(route, attrs) {
			continue
		}

		row := Row{
			Schema: firstNonEmpty(route.Schema, j.defaultSchema),
			Table:  firstNonEmpty(route.Table, j.defaultTable),
			Record: attrs,
		}
		if err := j.sink.InsertRow(row); err != nil {
			return forwarded, fmt.Errorf("syncjournal: insert into %s.%s: %w", row.Schema, row.Table, err)
		}
		forwarded++

		if j.matchFirstOnly {
			break
		}
	}

	return forwarded, nil
}

// matches reports whether every filter in route matches attrs. A route with
// no filters matches unconditionally, the same "catch-all last route" shape
// synciot.json's routes array is documented to support.
func matches(route config.SyncRoute, attrs map[string]interface{}) bool {
	for _, f := range route.Filters {
		v, ok := attrs[f.Attribute]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", v) != f.Value {
			return false
		}
	}
	return true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
