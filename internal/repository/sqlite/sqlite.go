package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// Schema bootstraps the offline cache. Entities are stored as JSON
// documents with the columns the core filters on extracted alongside.
const Schema = `
CREATE TABLE IF NOT EXISTS channels (
	cid         TEXT PRIMARY KEY,
	sync_status TEXT NOT NULL DEFAULT 'completed',
	deleted_at  DATETIME,
	data        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	cid         TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'completed',
	cached      BOOLEAN NOT NULL DEFAULT 0,
	data        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_cid_created ON messages (cid, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_sync_status ON messages (sync_status);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	is_current BOOLEAN NOT NULL DEFAULT 0,
	data       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reactions (
	message_id  TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	type        TEXT NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'completed',
	data        TEXT NOT NULL,
	PRIMARY KEY (message_id, user_id, type)
);
CREATE INDEX IF NOT EXISTS idx_reactions_sync_status ON reactions (sync_status);

CREATE TABLE IF NOT EXISTS drafts (
	cid        TEXT NOT NULL,
	parent_id  TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (cid, parent_id)
);

CREATE TABLE IF NOT EXISTS sync_state (
	user_id            TEXT PRIMARY KEY,
	last_synced_at     DATETIME,
	marked_all_read_at DATETIME,
	updated_at         DATETIME NOT NULL
);
`

// Store implements repository.Repository for SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite-backed cache at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a SQLite store and runs a setup function.
// Useful for tests to apply an alternative schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==== ChannelRepository implementation ====

// SelectChannels retrieves channels by cid, skipping unknown cids.
func (s *Store) SelectChannels(ctx context.Context, cids []string) ([]*model.Channel, error) {
	if len(cids) == 0 {
		return nil, nil
	}
	query := `SELECT data FROM channels WHERE cid IN (` + placeholders(len(cids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(cids)...)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*model.Channel
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		var ch model.Channel
		if err := json.Unmarshal([]byte(data), &ch); err != nil {
			return nil, fmt.Errorf("decode channel: %w", err)
		}
		channels = append(channels, &ch)
	}
	return channels, rows.Err()
}

// SelectChannel retrieves one channel, or nil when not cached.
func (s *Store) SelectChannel(ctx context.Context, cid string) (*model.Channel, error) {
	channels, err := s.SelectChannels(ctx, []string{cid})
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, nil
	}
	return channels[0], nil
}

// SelectAllCids lists every cached channel id.
func (s *Store) SelectAllCids(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cid FROM channels`)
	if err != nil {
		return nil, fmt.Errorf("query cids: %w", err)
	}
	defer rows.Close()

	var cids []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scan cid: %w", err)
		}
		cids = append(cids, cid)
	}
	return cids, rows.Err()
}

// SelectChannelsBySyncStatus lists channels awaiting reconciliation.
func (s *Store) SelectChannelsBySyncStatus(ctx context.Context, status model.SyncStatus) ([]*model.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM channels WHERE sync_status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query channels by sync status: %w", err)
	}
	defer rows.Close()

	var channels []*model.Channel
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		var ch model.Channel
		if err := json.Unmarshal([]byte(data), &ch); err != nil {
			return nil, fmt.Errorf("decode channel: %w", err)
		}
		channels = append(channels, &ch)
	}
	return channels, rows.Err()
}

// InsertChannels upserts channels.
func (s *Store) InsertChannels(ctx context.Context, channels []*model.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO channels (cid, sync_status, deleted_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cid) DO UPDATE SET
			sync_status = excluded.sync_status,
			deleted_at  = excluded.deleted_at,
			data        = excluded.data
	`)
	if err != nil {
		return fmt.Errorf("prepare channel upsert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range channels {
		data, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("encode channel %s: %w", ch.CID(), err)
		}
		status := ch.SyncStatus
		if status == "" {
			status = model.SyncCompleted
		}
		var deletedAt any
		if ch.DeletedAt != nil {
			deletedAt = *ch.DeletedAt
		}
		if _, err := stmt.ExecContext(ctx, ch.CID(), string(status), deletedAt, string(data)); err != nil {
			return fmt.Errorf("upsert channel %s: %w", ch.CID(), err)
		}
	}
	return tx.Commit()
}

// DeleteChannel removes a channel record.
func (s *Store) DeleteChannel(ctx context.Context, cid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE cid = ?`, cid); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

// SetChannelDeletedAt marks a channel deleted without removing the row.
func (s *Store) SetChannelDeletedAt(ctx context.Context, cid string, deletedAt time.Time) error {
	ch, err := s.SelectChannel(ctx, cid)
	if err != nil {
		return err
	}
	if ch == nil {
		return nil
	}
	updated := ch.Clone()
	updated.DeletedAt = &deletedAt
	return s.InsertChannels(ctx, []*model.Channel{updated})
}

// ==== MessageRepository implementation ====

// SelectMessages retrieves messages by id, skipping unknown ids.
func (s *Store) SelectMessages(ctx context.Context, ids []string) ([]*model.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT data FROM messages WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// SelectMessage retrieves one message, or nil when not cached.
func (s *Store) SelectMessage(ctx context.Context, id string) (*model.Message, error) {
	messages, err := s.SelectMessages(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

// SelectMessagesForChannel retrieves a channel's newest messages. A
// non-positive limit returns every message.
func (s *Store) SelectMessagesForChannel(ctx context.Context, cid string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM messages
		WHERE cid = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, cid, limit)
	if err != nil {
		return nil, fmt.Errorf("query channel messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// SelectMessagesBySyncStatus lists messages awaiting reconciliation.
func (s *Store) SelectMessagesBySyncStatus(ctx context.Context, status model.SyncStatus) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM messages WHERE sync_status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query messages by sync status: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// InsertMessages upserts messages. cache marks locally composed rows.
func (s *Store) InsertMessages(ctx context.Context, messages []*model.Message, cache bool) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, cid, created_at, sync_status, cached, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cid         = excluded.cid,
			created_at  = excluded.created_at,
			sync_status = excluded.sync_status,
			cached      = MAX(cached, excluded.cached),
			data        = excluded.data
	`)
	if err != nil {
		return fmt.Errorf("prepare message upsert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message %s: %w", msg.ID, err)
		}
		status := msg.SyncStatus
		if status == "" {
			status = model.SyncCompleted
		}
		createdAt := msg.CreatedAt
		if createdAt.IsZero() {
			createdAt = msg.LocalCreatedAt
		}
		if _, err := stmt.ExecContext(ctx, msg.ID, msg.CID, createdAt, string(status), cache, string(data)); err != nil {
			return fmt.Errorf("upsert message %s: %w", msg.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteChannelMessage removes a single message record.
func (s *Store) DeleteChannelMessage(ctx context.Context, message *model.Message) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, message.ID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// DeleteChannelMessagesBefore removes a channel's messages created before
// the cutoff.
func (s *Store) DeleteChannelMessagesBefore(ctx context.Context, cid string, before time.Time) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE cid = ? AND created_at < ?`, cid, before); err != nil {
		return fmt.Errorf("delete messages before: %w", err)
	}
	return nil
}

// ==== UserRepository implementation ====

// SelectUsers retrieves users by id, skipping unknown ids.
func (s *Store) SelectUsers(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT data FROM users WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		var u model.User
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// InsertUsers upserts users without touching the is_current flag.
func (s *Store) InsertUsers(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO users (id, data)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`)
	if err != nil {
		return fmt.Errorf("prepare user upsert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode user %s: %w", u.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, u.ID, string(data)); err != nil {
			return fmt.Errorf("upsert user %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// InsertCurrentUser upserts the own-user record and flags it current.
func (s *Store) InsertCurrentUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode current user: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, is_current, data)
		VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET is_current = 1, data = excluded.data
	`, user.ID, string(data))
	if err != nil {
		return fmt.Errorf("upsert current user: %w", err)
	}
	return nil
}

// SelectCurrentUser retrieves the own-user record, or nil.
func (s *Store) SelectCurrentUser(ctx context.Context) (*model.User, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM users WHERE is_current = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query current user: %w", err)
	}
	var u model.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("decode current user: %w", err)
	}
	return &u, nil
}

// ==== ReactionRepository implementation ====

// InsertReaction upserts a reaction keyed by (message, user, type).
func (s *Store) InsertReaction(ctx context.Context, reaction *model.Reaction) error {
	data, err := json.Marshal(reaction)
	if err != nil {
		return fmt.Errorf("encode reaction: %w", err)
	}
	status := reaction.SyncStatus
	if status == "" {
		status = model.SyncCompleted
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reactions (message_id, user_id, type, sync_status, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id, user_id, type) DO UPDATE SET
			sync_status = excluded.sync_status,
			data        = excluded.data
	`, reaction.MessageID, reaction.UserID, reaction.Type, string(status), string(data))
	if err != nil {
		return fmt.Errorf("upsert reaction: %w", err)
	}
	return nil
}

// SelectReactionsBySyncStatus lists reactions awaiting reconciliation.
func (s *Store) SelectReactionsBySyncStatus(ctx context.Context, status model.SyncStatus) ([]*model.Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM reactions WHERE sync_status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query reactions by sync status: %w", err)
	}
	defer rows.Close()

	var reactions []*model.Reaction
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		var r model.Reaction
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode reaction: %w", err)
		}
		reactions = append(reactions, &r)
	}
	return reactions, rows.Err()
}

// DeleteReaction removes a reaction record.
func (s *Store) DeleteReaction(ctx context.Context, reaction *model.Reaction) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND type = ?
	`, reaction.MessageID, reaction.UserID, reaction.Type)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

// ==== DraftRepository implementation ====

// UpsertDraft saves a draft keyed by (cid, parent id).
func (s *Store) UpsertDraft(ctx context.Context, draft *model.Draft) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (cid, parent_id, text, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cid, parent_id) DO UPDATE SET
			text       = excluded.text,
			updated_at = excluded.updated_at
	`, draft.CID, draft.ParentID, draft.Text, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

// SelectDraft retrieves a draft, or nil.
func (s *Store) SelectDraft(ctx context.Context, cid, parentID string) (*model.Draft, error) {
	var d model.Draft
	err := s.db.QueryRowContext(ctx, `
		SELECT cid, parent_id, text, updated_at FROM drafts
		WHERE cid = ? AND parent_id = ?
	`, cid, parentID).Scan(&d.CID, &d.ParentID, &d.Text, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query draft: %w", err)
	}
	return &d, nil
}

// DeleteDraft removes a draft record.
func (s *Store) DeleteDraft(ctx context.Context, cid, parentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE cid = ? AND parent_id = ?`, cid, parentID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// ==== SyncStateRepository implementation ====

// SelectSyncState retrieves the state for a user, or nil.
func (s *Store) SelectSyncState(ctx context.Context, userID string) (*repository.SyncState, error) {
	var state repository.SyncState
	var lastSynced, markedAllRead sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, last_synced_at, marked_all_read_at, updated_at
		FROM sync_state WHERE user_id = ?
	`, userID).Scan(&state.UserID, &lastSynced, &markedAllRead, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query sync state: %w", err)
	}
	if lastSynced.Valid {
		state.LastSyncedAt = lastSynced.Time
	}
	if markedAllRead.Valid {
		state.MarkedAllReadAt = markedAllRead.Time
	}
	return &state, nil
}

// UpsertSyncState saves the state.
func (s *Store) UpsertSyncState(ctx context.Context, state *repository.SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (user_id, last_synced_at, marked_all_read_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			last_synced_at     = excluded.last_synced_at,
			marked_all_read_at = excluded.marked_all_read_at,
			updated_at         = excluded.updated_at
	`, state.UserID, state.LastSyncedAt, state.MarkedAllReadAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert sync state: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]*model.Message, error) {
	var messages []*model.Message
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var m model.Message
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAnySlice(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

var _ repository.Repository = (*Store)(nil)
