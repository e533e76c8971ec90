package changelog

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/zukunftch/zukunft.com/errors"
)

// DefaultSubjectPrefix is the subject tree the changefeed publishes under.
// The table name is appended, e.g. "zukunft.changes.words".
const DefaultSubjectPrefix = "zukunft.changes"

// Publisher forwards recorded change entries to NATS so other services
// (cache invalidation, notification, replication) can follow the trail
// without polling the changes table.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

// NewPublisher creates a changefeed publisher on an established NATS
// connection. An empty prefix selects DefaultSubjectPrefix.
func NewPublisher(conn *nats.Conn, prefix string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.Invalidf("changelog", "NewPublisher", "nil NATS connection")
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the changefeed subject for a table.
func (p *Publisher) Subject(table string) string {
	return p.prefix + "." + table
}

// PublishEntry sends one entry as JSON. Publishing is advisory: the durable
// audit row has already been written when this is called.
func (p *Publisher) PublishEntry(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapUnavailable(err, "changelog", "PublishEntry", "context check")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errors.WrapInvalid(err, "changelog", "PublishEntry", "marshal entry")
	}
	if err := p.conn.Publish(p.Subject(e.Table), data); err != nil {
		return errors.WrapUnavailable(err, "changelog", "PublishEntry", "publish")
	}
	return nil
}
