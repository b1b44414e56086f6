// Package sqlstore is a database/sql-backed store.MessageStore,
// grounded on the teacher's db.InitDB/createTables pattern
// (db/db.go): same getEnv-free explicit DSN construction, same
// CREATE TABLE IF NOT EXISTS migration-on-boot approach, generalized
// from Postgres-only to a Postgres/SQLite driver choice so a node can
// run durably without standing up a separate database server.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/dwnlabs/dwn-core/store"
)

// Driver selects which database/sql driver Store opens.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

// Store is a durable store.MessageStore backed by Postgres or SQLite.
type Store struct {
	driver Driver
	dsn    string
	db     *sql.DB
	blocks store.BlockBackend
}

// New builds a Store against driver using dsn. Call Open before use.
// Pass a non-nil blocks to delegate message bodies to an external
// content store (store/ipfsblock) instead of the body column.
func New(driver Driver, dsn string, blocks store.BlockBackend) *Store {
	return &Store{driver: driver, dsn: dsn, blocks: blocks}
}

func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open(string(s.driver), s.dsn)
	if err != nil {
		return fmt.Errorf("sqlstore: failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlstore: failed to connect to database: %w", err)
	}

	s.db = db

	if err := s.createTables(ctx); err != nil {
		return fmt.Errorf("sqlstore: failed to create tables: %w", err)
	}

	return nil
}

// q rewrites "?" placeholders to Postgres's "$1, $2, ..." form when
// needed; lib/pq, unlike modernc.org/sqlite, does not accept "?".
func (s *Store) q(query string) string {
	if s.driver != Postgres {
		return query
	}

	var b strings.Builder
	n := 0

	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	autoIncrement := "SERIAL PRIMARY KEY"
	if s.driver == SQLite {
		autoIncrement = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS dwn_messages (
			id %s,
			tenant TEXT NOT NULL,
			record_id TEXT NOT NULL,
			context_id TEXT NOT NULL DEFAULT '',
			protocol TEXT NOT NULL DEFAULT '',
			schema TEXT NOT NULL DEFAULT '',
			recipient TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			date_modified TEXT NOT NULL,
			message_cid TEXT NOT NULL,
			is_latest_tip BOOLEAN NOT NULL DEFAULT FALSE,
			body TEXT NOT NULL DEFAULT '',
			body_ref TEXT NOT NULL DEFAULT ''
		);`, autoIncrement)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return err
	}

	indexQueries := []string{
		`CREATE INDEX IF NOT EXISTS dwn_messages_record_idx ON dwn_messages (tenant, record_id);`,
		`CREATE INDEX IF NOT EXISTS dwn_messages_context_idx ON dwn_messages (tenant, context_id);`,
	}

	for _, q := range indexQueries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) Put(ctx context.Context, tenant string, rec store.Record) error {
	encoded, err := json.Marshal(rec.Message)
	if err != nil {
		return fmt.Errorf("sqlstore: failed to encode message: %w", err)
	}

	body, bodyRef := string(encoded), ""

	if s.blocks != nil {
		ref, err := s.blocks.Put(ctx, encoded)
		if err != nil {
			return fmt.Errorf("sqlstore: failed to store message block: %w", err)
		}

		body, bodyRef = "", ref
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, found, err := s.currentTip(ctx, tx, tenant, rec.IndexTags.RecordID)
	if err != nil {
		return err
	}

	isNewTip := true
	if found && !store.Supersedes(rec.IndexTags, current) {
		isNewTip = false
	}

	if found && isNewTip {
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE dwn_messages SET is_latest_tip = FALSE WHERE tenant = ? AND record_id = ? AND is_latest_tip = TRUE`),
			tenant, rec.IndexTags.RecordID); err != nil {
			return fmt.Errorf("sqlstore: failed to demote prior tip: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO dwn_messages
			(tenant, record_id, context_id, protocol, schema, recipient, author, date_modified, message_cid, is_latest_tip, body, body_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		tenant, rec.IndexTags.RecordID, rec.IndexTags.ContextID, rec.IndexTags.Protocol, rec.IndexTags.Schema,
		rec.IndexTags.Recipient, rec.IndexTags.Author, rec.IndexTags.DateModified, rec.IndexTags.MessageCID,
		isNewTip, body, bodyRef); err != nil {
		return fmt.Errorf("sqlstore: failed to insert message: %w", err)
	}

	return tx.Commit()
}

func (s *Store) currentTip(ctx context.Context, tx *sql.Tx, tenant, recordID string) (store.IndexTags, bool, error) {
	row := tx.QueryRowContext(ctx,
		s.q(`SELECT context_id, protocol, schema, recipient, author, date_modified, message_cid
		 FROM dwn_messages WHERE tenant = ? AND record_id = ? AND is_latest_tip = TRUE`),
		tenant, recordID)

	var tags store.IndexTags
	tags.RecordID = recordID

	err := row.Scan(&tags.ContextID, &tags.Protocol, &tags.Schema, &tags.Recipient, &tags.Author, &tags.DateModified, &tags.MessageCID)
	if err == sql.ErrNoRows {
		return store.IndexTags{}, false, nil
	}
	if err != nil {
		return store.IndexTags{}, false, fmt.Errorf("sqlstore: failed to read current tip: %w", err)
	}

	return tags, true, nil
}

func (s *Store) Get(ctx context.Context, tenant, recordID string) (store.Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT body, body_ref, message_cid FROM dwn_messages WHERE tenant = ? AND record_id = ? AND is_latest_tip = TRUE`),
		tenant, recordID)

	var body, bodyRef, messageCID string
	if err := row.Scan(&body, &bodyRef, &messageCID); err == sql.ErrNoRows {
		return store.Record{}, false, nil
	} else if err != nil {
		return store.Record{}, false, fmt.Errorf("sqlstore: failed to read record: %w", err)
	}

	return s.decodeRecord(ctx, body, bodyRef, messageCID, true)
}

func (s *Store) Query(ctx context.Context, tenant string, filter store.Filter) ([]store.Record, error) {
	clauses := []string{"tenant = ?"}
	args := []any{tenant}

	if filter.RecordID != "" {
		clauses = append(clauses, "record_id = ?")
		args = append(args, filter.RecordID)
	}

	if filter.ContextID != "" {
		clauses = append(clauses, "context_id = ?")
		args = append(args, filter.ContextID)
	}

	if filter.Protocol != "" {
		clauses = append(clauses, "protocol = ?")
		args = append(args, filter.Protocol)
	}

	if filter.Schema != "" {
		clauses = append(clauses, "schema = ?")
		args = append(args, filter.Schema)
	}

	if filter.Recipient != "" {
		clauses = append(clauses, "recipient = ?")
		args = append(args, filter.Recipient)
	}

	if filter.Author != "" {
		clauses = append(clauses, "author = ?")
		args = append(args, filter.Author)
	}

	if filter.LatestTipsOnly {
		clauses = append(clauses, "is_latest_tip = TRUE")
	}

	query := "SELECT body, body_ref, message_cid, is_latest_tip FROM dwn_messages WHERE " + joinAnd(clauses) + " ORDER BY date_modified ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query failed: %w", err)
	}
	defer rows.Close()

	var out []store.Record

	for rows.Next() {
		var body, bodyRef, messageCID string
		var isLatestTip bool

		if err := rows.Scan(&body, &bodyRef, &messageCID, &isLatestTip); err != nil {
			return nil, fmt.Errorf("sqlstore: failed to scan row: %w", err)
		}

		rec, _, err := s.decodeRecord(ctx, body, bodyRef, messageCID, isLatestTip)
		if err != nil {
			return nil, err
		}

		out = append(out, rec)
	}

	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, tenant, recordID string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM dwn_messages WHERE tenant = ? AND record_id = ?`), tenant, recordID)
	if err != nil {
		return fmt.Errorf("sqlstore: failed to delete record: %w", err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context, tenant string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM dwn_messages WHERE tenant = ?`), tenant)
	if err != nil {
		return fmt.Errorf("sqlstore: failed to clear tenant: %w", err)
	}

	return nil
}

func (s *Store) decodeRecord(ctx context.Context, body, bodyRef, messageCID string, isLatestTip bool) (store.Record, bool, error) {
	var rec store.Record

	raw := []byte(body)
	if bodyRef != "" {
		if s.blocks == nil {
			return store.Record{}, false, fmt.Errorf("sqlstore: record has external body_ref %q but no block backend is configured", bodyRef)
		}

		fetched, err := s.blocks.Get(ctx, bodyRef)
		if err != nil {
			return store.Record{}, false, fmt.Errorf("sqlstore: failed to fetch message block: %w", err)
		}

		raw = fetched
	}

	if err := json.Unmarshal(raw, &rec.Message); err != nil {
		return store.Record{}, false, fmt.Errorf("sqlstore: failed to decode message body: %w", err)
	}

	rec.IndexTags = store.IndexTags{
		RecordID:     rec.Message.RecordID,
		ContextID:    rec.Message.ContextID,
		Protocol:     rec.Message.Descriptor.Protocol,
		Schema:       rec.Message.Descriptor.Schema,
		Recipient:    rec.Message.Descriptor.Recipient,
		Author:       rec.Message.Author,
		DateModified: rec.Message.Descriptor.DateModified,
		MessageCID:   messageCID,
		IsLatestTip:  isLatestTip,
	}

	return rec, true, nil
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}

	return out
}
