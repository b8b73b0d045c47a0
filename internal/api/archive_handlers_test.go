package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/wabridge/wabridge/internal/archive"
)

func newArchiveServer(t *testing.T) (*testServer, *archive.DB) {
	t.Helper()
	db, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("migrate archive: %v", err)
	}
	ts := buildServer(t, &fakeBridge{}, readyStates(), nil, db)
	return ts, db
}

func seedEntry(t *testing.T, db *archive.DB, msgID, body string, ts int64) {
	t.Helper()
	e := &archive.Entry{
		MsgID:      msgID,
		ChatID:     "chat@c.us",
		ChatName:   "Chat",
		SenderID:   "sender@c.us",
		SenderName: "Sender",
		Body:       body,
		Timestamp:  ts,
	}
	if err := db.InsertMessage(e); err != nil {
		t.Fatalf("insert %s: %v", msgID, err)
	}
}

func firstEntryID(t *testing.T, db *archive.DB) int64 {
	t.Helper()
	entries, err := db.ListMessages(false, 0)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no entries seeded")
	}
	return entries[0].ID
}

func TestArchiveListRoute(t *testing.T) {
	ts, db := newArchiveServer(t)
	seedEntry(t, db, "m1", "oldest", 1000)
	seedEntry(t, db, "m2", "middle", 2000)
	seedEntry(t, db, "m3", "newest", 3000)

	rr := get(t, ts.Server, "/api/archive/messages")
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rr.Code)
	}
	body := decode(t, rr)
	if body["count"] != float64(3) || body["total"] != float64(3) {
		t.Fatalf("count/total = %v/%v, want 3/3", body["count"], body["total"])
	}
	if body["unprocessed"] != float64(3) {
		t.Fatalf("unprocessed = %v, want 3", body["unprocessed"])
	}
	msgs := body["messages"].([]any)
	first := msgs[0].(map[string]any)
	if first["message"] != "newest" {
		t.Fatalf("first listed = %v, want newest", first["message"])
	}
	if first["messageId"] != "m3" || first["chatId"] != "chat@c.us" {
		t.Fatalf("first entry view = %v", first)
	}
}

func TestArchiveListFilters(t *testing.T) {
	ts, db := newArchiveServer(t)
	seedEntry(t, db, "m1", "first", 1000)
	seedEntry(t, db, "m2", "second", 2000)
	if err := db.MarkProcessed(firstEntryID(t, db)); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	body := decode(t, get(t, ts.Server, "/api/archive/messages?unprocessed=true"))
	if body["count"] != float64(1) {
		t.Fatalf("unprocessed count = %v, want 1", body["count"])
	}

	body = decode(t, get(t, ts.Server, "/api/archive/messages?limit=1"))
	if body["count"] != float64(1) {
		t.Fatalf("limited count = %v, want 1", body["count"])
	}

	rr := get(t, ts.Server, "/api/archive/messages?unprocessed=bogus")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bogus filter: code = %d, want 400", rr.Code)
	}
	if b := decode(t, rr); b["error"] != "invalid_unprocessed" {
		t.Fatalf("bogus filter: error = %v", b["error"])
	}
}

func TestArchivePriorityRoute(t *testing.T) {
	ts, db := newArchiveServer(t)
	seedEntry(t, db, "m1", "prioritise me", 1000)
	id := firstEntryID(t, db)

	rr := post(t, ts.Server, fmt.Sprintf("/api/archive/messages/%d/priority", id), `{"priority":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["priority"] != float64(5) {
		t.Fatalf("priority = %v, want 5", body["priority"])
	}
	entries, err := db.ListMessages(false, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries[0].Priority != 5 {
		t.Fatalf("stored priority = %d, want 5", entries[0].Priority)
	}

	// Zero is a legal priority, not a missing field.
	rr = post(t, ts.Server, fmt.Sprintf("/api/archive/messages/%d/priority", id), `{"priority":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("priority 0: code = %d, want 200", rr.Code)
	}

	rr = post(t, ts.Server, fmt.Sprintf("/api/archive/messages/%d/priority", id), `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing priority: code = %d, want 400", rr.Code)
	}
	if b := decode(t, rr); b["error"] != "missing_priority" {
		t.Fatalf("missing priority: error = %v", b["error"])
	}

	rr = post(t, ts.Server, "/api/archive/messages/abc/priority", `{"priority":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id: code = %d, want 400", rr.Code)
	}

	rr = post(t, ts.Server, "/api/archive/messages/99999/priority", `{"priority":1}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id: code = %d, want 404", rr.Code)
	}
	if b := decode(t, rr); b["error"] != "entry_not_found" {
		t.Fatalf("unknown id: error = %v", b["error"])
	}
}

func TestArchiveProcessedRoute(t *testing.T) {
	ts, db := newArchiveServer(t)
	seedEntry(t, db, "m1", "done with this", 1000)
	id := firstEntryID(t, db)

	rr := post(t, ts.Server, fmt.Sprintf("/api/archive/messages/%d/processed", id), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rr.Code)
	}
	if body := decode(t, rr); body["processed"] != true {
		t.Fatalf("processed = %v, want true", body["processed"])
	}
	_, unprocessed, err := db.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if unprocessed != 0 {
		t.Fatalf("unprocessed = %d, want 0", unprocessed)
	}
}

func TestArchiveDigestRoute(t *testing.T) {
	ts, db := newArchiveServer(t)
	seedEntry(t, db, "m1", "first in line", 1000)
	seedEntry(t, db, "m2", "second in line", 2000)

	body := decode(t, post(t, ts.Server, "/api/archive/digest", ""))
	if body["count"] != float64(2) {
		t.Fatalf("digest count = %v, want 2", body["count"])
	}
	msgs := body["messages"].([]any)
	if msgs[0].(map[string]any)["message"] != "first in line" {
		t.Fatalf("digest order wrong: %v", msgs)
	}

	body = decode(t, post(t, ts.Server, "/api/archive/digest", ""))
	if body["count"] != float64(0) {
		t.Fatalf("second digest count = %v, want 0", body["count"])
	}
}

func TestArchiveRoutesAbsentWithoutDB(t *testing.T) {
	ts := newTestServer(t, &fakeBridge{})

	rr := get(t, ts.Server, "/api/archive/messages")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404 when archive is disabled", rr.Code)
	}
	if body := decode(t, rr); body["error"] != "not_found" {
		t.Fatalf("error = %v, want not_found", body["error"])
	}
}
