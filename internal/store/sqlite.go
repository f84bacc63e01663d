// ABOUTME: SQLite implementation of the KV interface using modernc.org/sqlite
// ABOUTME: Versioned rows, a change log shared by every process on the same file

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/2389/tabsaver/internal/dedupe"
)

const (
	// changeLogRetention bounds how long change_log rows are kept.
	changeLogRetention = 24 * time.Hour

	dedupeTTL  = 10 * time.Minute
	dedupeSize = 4096
)

// Options configures a SQLiteStore.
type Options struct {
	// Namespace scopes every read and write. Defaults to DefaultNamespace.
	Namespace string
	// Watch enables the fsnotify watcher that picks up changes committed by
	// other processes using the same database file.
	Watch bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SQLiteStore implements KV using SQLite
type SQLiteStore struct {
	db          *sql.DB
	path        string
	namespace   string
	logger      *slog.Logger
	broadcaster *Broadcaster
	seen        *dedupe.Cache

	pollMu sync.Mutex
	cursor int64 // last change_log seq delivered

	watcher   *watcher
	closeOnce sync.Once
	closed    chan struct{}
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers inside this process; other
	// processes are handled by busy_timeout.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:          db,
		path:        path,
		namespace:   namespace,
		logger:      logger,
		broadcaster: NewBroadcaster(logger),
		seen:        dedupe.New(dedupeTTL, dedupeSize),
		closed:      make(chan struct{}),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.pruneChangeLog(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pruning change log: %w", err)
	}

	// Start delivering from the current head; history is not replayed.
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM change_log`).Scan(&s.cursor); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading change log head: %w", err)
	}

	if opts.Watch {
		w, err := newWatcher(path, s.pollChanges, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("starting watcher: %w", err)
		}
		s.watcher = w
	}

	logger.Info("SQLite store initialized", "path", path, "namespace", namespace, "watch", opts.Watch)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			version    INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (namespace, key)
		);

		CREATE TABLE IF NOT EXISTS change_log (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			change_id  TEXT NOT NULL UNIQUE,
			namespace  TEXT NOT NULL,
			keys_json  TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_change_log_created ON change_log(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) pruneChangeLog() error {
	cutoff := time.Now().UTC().Add(-changeLogRetention).Format(time.RFC3339Nano)
	_, err := s.db.Exec(`DELETE FROM change_log WHERE created_at < ?`, cutoff)
	return err
}

// Namespace returns the namespace this store reads and writes.
func (s *SQLiteStore) Namespace() string {
	return s.namespace
}

// Get returns the items stored under keys.
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (map[string]Item, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	result := make(map[string]Item, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, s.namespace)
	for _, k := range keys {
		args = append(args, k)
	}

	query := `SELECT key, value, version FROM kv WHERE namespace = ? AND key IN (` + placeholders + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		var version int64
		if err := rows.Scan(&key, &value, &version); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result[key] = Item{Value: json.RawMessage(value), Version: version}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// Set writes every entry in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, values map[string]json.RawMessage) error {
	if s.isClosed() {
		return ErrClosed
	}
	if len(values) == 0 {
		return nil
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var change Change
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for _, k := range keys {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO kv (namespace, key, value, version, updated_at)
				VALUES (?, ?, ?, 1, ?)
				ON CONFLICT(namespace, key) DO UPDATE SET
					value = excluded.value,
					version = kv.version + 1,
					updated_at = excluded.updated_at
			`, s.namespace, k, string(values[k]), now)
			if err != nil {
				return fmt.Errorf("writing key %q: %w", k, err)
			}
		}
		var err error
		change, err = s.logChange(ctx, tx, keys)
		return err
	})
	if err != nil {
		return err
	}

	s.deliver(change)
	return nil
}

// Remove deletes keys. No change is recorded when none of them existed.
func (s *SQLiteStore) Remove(ctx context.Context, keys ...string) error {
	if s.isClosed() {
		return ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	var change Change
	var removed []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			res, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, s.namespace, k)
			if err != nil {
				return fmt.Errorf("removing key %q: %w", k, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				removed = append(removed, k)
			}
		}
		if len(removed) == 0 {
			return nil
		}
		var err error
		change, err = s.logChange(ctx, tx, removed)
		return err
	})
	if err != nil {
		return err
	}

	if len(removed) > 0 {
		s.deliver(change)
	}
	return nil
}

// CompareAndSwap writes value when the stored version equals expected.
func (s *SQLiteStore) CompareAndSwap(ctx context.Context, key string, expected int64, value json.RawMessage) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}

	var change Change
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)

		var res sql.Result
		var err error
		if expected == 0 {
			res, err = tx.ExecContext(ctx, `
				INSERT INTO kv (namespace, key, value, version, updated_at)
				VALUES (?, ?, ?, 1, ?)
				ON CONFLICT(namespace, key) DO NOTHING
			`, s.namespace, key, string(value), now)
		} else {
			res, err = tx.ExecContext(ctx, `
				UPDATE kv SET value = ?, version = version + 1, updated_at = ?
				WHERE namespace = ? AND key = ? AND version = ?
			`, string(value), now, s.namespace, key, expected)
		}
		if err != nil {
			return fmt.Errorf("writing key %q: %w", key, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return ErrVersionConflict
		}

		change, err = s.logChange(ctx, tx, []string{key})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.deliver(change)
	return expected + 1, nil
}

// Subscribe registers for change events from every namespace in the file.
func (s *SQLiteStore) Subscribe(ctx context.Context) (<-chan Change, string) {
	return s.broadcaster.Subscribe(ctx)
}

// Close stops the watcher, closes subscriber channels, and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.watcher != nil {
			s.watcher.Close()
		}
		s.broadcaster.Close()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) logChange(ctx context.Context, tx *sql.Tx, keys []string) (Change, error) {
	change := Change{
		ID:        uuid.New().String(),
		Namespace: s.namespace,
		Keys:      keys,
		At:        time.Now().UTC(),
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return Change{}, fmt.Errorf("encoding changed keys: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO change_log (change_id, namespace, keys_json, created_at)
		VALUES (?, ?, ?, ?)
	`, change.ID, change.Namespace, string(keysJSON), change.At.Format(time.RFC3339Nano))
	if err != nil {
		return Change{}, fmt.Errorf("recording change: %w", err)
	}
	return change, nil
}

// deliver publishes change unless it was already delivered.
func (s *SQLiteStore) deliver(change Change) {
	if s.seen.CheckAndMark(change.ID) {
		return
	}
	s.logger.Debug("change committed",
		"change_id", change.ID,
		"namespace", change.Namespace,
		"keys", change.Keys)
	s.broadcaster.Publish(change)
}

// pollChanges delivers change_log rows written since the last poll,
// including rows committed by other processes.
func (s *SQLiteStore) pollChanges(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}

	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, change_id, namespace, keys_json, created_at
		FROM change_log WHERE seq > ? ORDER BY seq
	`, s.cursor)
	if err != nil {
		return fmt.Errorf("querying change log: %w", err)
	}

	var pending []Change
	for rows.Next() {
		var seq int64
		var id, namespace, keysJSON, createdAt string
		if err := rows.Scan(&seq, &id, &namespace, &keysJSON, &createdAt); err != nil {
			rows.Close()
			return fmt.Errorf("scanning change: %w", err)
		}
		s.cursor = seq

		var keys []string
		if err := json.Unmarshal([]byte(keysJSON), &keys); err != nil {
			s.logger.Warn("skipping malformed change", "seq", seq, "error", err)
			continue
		}
		at, _ := time.Parse(time.RFC3339Nano, createdAt)
		pending = append(pending, Change{ID: id, Namespace: namespace, Keys: keys, At: at})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("iterating change log: %w", err)
	}

	for _, change := range pending {
		s.deliver(change)
	}
	return nil
}
