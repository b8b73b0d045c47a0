package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrEntryNotFound is returned when no archive entry has the given id.
var ErrEntryNotFound = errors.New("archive entry not found")

// Entry is one archived inbound message. Priority starts at zero and is
// raised by whoever triages the archive; Processed marks entries already
// handled, whether individually or as part of a digest.
type Entry struct {
	ID         int64
	MsgID      string
	ChatID     string
	ChatName   string
	SenderID   string
	SenderName string
	Body       string
	Timestamp  int64
	Priority   int
	Processed  bool
	CreatedAt  int64
}

// InsertMessage archives a message (idempotent on chat_id + msg_id).
func (db *DB) InsertMessage(e *Entry) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO archive_messages (msg_id, chat_id, chat_name, sender_id, sender_name, body, timestamp, priority, processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, msg_id) DO NOTHING`,
		e.MsgID, e.ChatID, e.ChatName, e.SenderID, e.SenderName, e.Body, e.Timestamp, e.Priority, e.Processed, now)
	return err
}

// ListMessages returns archived entries, most recent first. With
// onlyUnprocessed set, entries already processed are skipped.
func (db *DB) ListMessages(onlyUnprocessed bool, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, msg_id, chat_id, chat_name, sender_id, sender_name, body, timestamp, priority, processed, created_at
		FROM archive_messages`
	if onlyUnprocessed {
		query += ` WHERE processed = 0`
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// SetPriority updates the priority score of one entry.
func (db *DB) SetPriority(id int64, priority int) error {
	res, err := db.Exec(`UPDATE archive_messages SET priority = ? WHERE id = ?`, priority, id)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// MarkProcessed flags one entry as handled.
func (db *DB) MarkProcessed(id int64) error {
	res, err := db.Exec(`UPDATE archive_messages SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// Digest returns all unprocessed entries oldest first and marks them
// processed in the same transaction, so each entry appears in exactly one
// digest.
func (db *DB) Digest() ([]Entry, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`
		SELECT id, msg_id, chat_id, chat_name, sender_id, sender_name, body, timestamp, priority, processed, created_at
		FROM archive_messages WHERE processed = 0 ORDER BY timestamp ASC`)
	if err != nil {
		return nil, err
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`UPDATE archive_messages SET processed = 1 WHERE processed = 0`); err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit digest: %w", err)
	}
	return entries, nil
}

// Counts reports the total and unprocessed archive sizes.
func (db *DB) Counts() (total, unprocessed int, err error) {
	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(processed = 0), 0)
		FROM archive_messages`).Scan(&total, &unprocessed)
	return total, unprocessed, err
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.MsgID, &e.ChatID, &e.ChatName, &e.SenderID, &e.SenderName, &e.Body, &e.Timestamp, &e.Priority, &e.Processed, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
