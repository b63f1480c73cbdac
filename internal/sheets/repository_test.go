package sheets_test

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/finchhealth/denialwatch/internal/sheets"
	"github.com/finchhealth/denialwatch/pkg/lifecycle"
	"github.com/finchhealth/denialwatch/pkg/pagination"
	"github.com/finchhealth/denialwatch/pkg/storage"
)

// memBlobs is an in-memory storage.System that records uploads and deletes.
type memBlobs struct {
	blobs   map[string][]byte
	deleted []string
	uploads int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (m *memBlobs) Start(lc *lifecycle.Coordinator) error { return nil }

func (m *memBlobs) Upload(_ context.Context, key string, reader io.Reader, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.blobs[key] = data
	m.uploads++
	return nil
}

func (m *memBlobs) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.blobs, key)
	return nil
}

func (m *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.blobs[key]
	return ok, nil
}

// sheetConn is a minimal driver connection scripted for the Create path:
// the fingerprint pre-check reads seenCount, the insert returns insertErr.
type sheetConn struct {
	seenCount int64
	insertErr error
}

func (c *sheetConn) Connect(context.Context) (driver.Conn, error) { return c, nil }
func (c *sheetConn) Driver() driver.Driver                        { return c }
func (c *sheetConn) Open(string) (driver.Conn, error)             { return c, nil }

func (c *sheetConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *sheetConn) Close() error { return nil }
func (c *sheetConn) Begin() (driver.Tx, error) {
	return c, nil
}
func (c *sheetConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return c, nil
}
func (c *sheetConn) Commit() error   { return nil }
func (c *sheetConn) Rollback() error { return nil }

func (c *sheetConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	switch {
	case strings.Contains(query, "COUNT(*)"):
		return &countRows{count: c.seenCount}, nil
	case strings.HasPrefix(strings.TrimSpace(query), "INSERT"):
		if c.insertErr != nil {
			return nil, c.insertErr
		}
		return nil, errors.New("insert success not scripted")
	default:
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
}

type countRows struct {
	count int64
	done  bool
}

func (r *countRows) Columns() []string { return []string{"count"} }
func (r *countRows) Close() error      { return nil }
func (r *countRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.count
	return nil
}

func newRepo(t *testing.T, conn *sheetConn, store *memBlobs) sheets.System {
	t.Helper()
	db := sql.OpenDB(conn)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return sheets.New(db, store, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func TestCreateDuplicateLeavesArchiveIntact(t *testing.T) {
	data := []byte("claim id,code,amount\nCLM-001,BV-01,10.00\n")
	key := "sheets/bupa/" + sheets.Fingerprint(data) + "/rejects.csv"

	store := newMemBlobs()
	store.blobs[key] = data

	sys := newRepo(t, &sheetConn{seenCount: 1}, store)

	_, err := sys.Create(context.Background(), sheets.CreateCommand{
		PayerID:  "bupa",
		Filename: "rejects.csv",
		Data:     data,
	})
	if !errors.Is(err, sheets.ErrDuplicate) {
		t.Fatalf("Create error = %v, want ErrDuplicate", err)
	}

	if store.uploads != 0 {
		t.Errorf("uploads = %d, want 0", store.uploads)
	}
	if len(store.deleted) != 0 {
		t.Errorf("deleted keys = %v, want none", store.deleted)
	}
	if _, ok := store.blobs[key]; !ok {
		t.Error("original archived blob is gone")
	}
}

func TestCreateInsertRaceKeepsWinnerBlob(t *testing.T) {
	data := []byte("claim id,code,amount\nCLM-001,BV-01,10.00\n")
	key := "sheets/bupa/" + sheets.Fingerprint(data) + "/rejects.csv"

	store := newMemBlobs()
	conn := &sheetConn{
		seenCount: 0,
		insertErr: &pgconn.PgError{Code: "23505"},
	}
	sys := newRepo(t, conn, store)

	_, err := sys.Create(context.Background(), sheets.CreateCommand{
		PayerID:  "bupa",
		Filename: "rejects.csv",
		Data:     data,
	})
	if !errors.Is(err, sheets.ErrDuplicate) {
		t.Fatalf("Create error = %v, want ErrDuplicate", err)
	}

	if len(store.deleted) != 0 {
		t.Errorf("deleted keys = %v, want none", store.deleted)
	}
	if _, ok := store.blobs[key]; !ok {
		t.Error("archived blob is gone after losing the insert race")
	}
}

func TestCreateInsertFailureCleansUpBlob(t *testing.T) {
	data := []byte("claim id,code,amount\nCLM-001,BV-01,10.00\n")
	key := "sheets/bupa/" + sheets.Fingerprint(data) + "/rejects.csv"

	store := newMemBlobs()
	conn := &sheetConn{
		seenCount: 0,
		insertErr: errors.New("connection reset"),
	}
	sys := newRepo(t, conn, store)

	_, err := sys.Create(context.Background(), sheets.CreateCommand{
		PayerID:  "bupa",
		Filename: "rejects.csv",
		Data:     data,
	})
	if err == nil || errors.Is(err, sheets.ErrDuplicate) {
		t.Fatalf("Create error = %v, want plain insert failure", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != key {
		t.Errorf("deleted keys = %v, want [%s]", store.deleted, key)
	}
}
