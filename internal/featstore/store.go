package featstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

var (
	// ErrStoreNotFound indicates the store file does not exist.
	ErrStoreNotFound = errors.New("feature store not found")
	// ErrStoreLocked indicates another writer holds the store.
	ErrStoreLocked = errors.New("feature store locked by another writer")
	// ErrStoreVersion indicates the file is not a feature store of the expected version.
	ErrStoreVersion = errors.New("feature store version mismatch")
	// ErrShowNotFound indicates the store holds no record for an identifier.
	ErrShowNotFound = errors.New("identifier not found in feature store")
	// ErrFieldNotFound indicates the record exists but lacks the requested field.
	ErrFieldNotFound = errors.New("field not found in feature store")
	// ErrReadOnly indicates a write was attempted through a read-only handle.
	ErrReadOnly = errors.New("feature store opened read-only")
)

// Options tunes how arrays are written.
type Options struct {
	// Precision is the dtype floating point arrays are stored with. Defaults
	// to Float32.
	Precision DType
}

func (o Options) precision() DType {
	if o.Precision.IsFloat() {
		return o.Precision
	}
	return Float32
}

// Store is a handle on one feature store file.
type Store struct {
	db        *sql.DB
	path      string
	lock      *flock.Flock
	readOnly  bool
	precision DType
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Create opens path for writing, creating the file and its parent directory
// when missing. The returned store holds an exclusive advisory lock on
// path+".lock" until Close.
func Create(path string, opts Options) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("feature store: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, path)
	}

	dsn, err := fileDSN(path, "rwc")
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=DELETE",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: lock, precision: opts.precision()}
	if err := store.initSchema(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Open opens an existing store read-only.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return nil, fmt.Errorf("stat feature store: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("feature store %s is a directory", path)
	}

	dsn, err := fileDSN(path, "ro")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply busy timeout: %w", err)
	}

	store := &Store{db: db, path: path, readOnly: true}
	if err := store.initSchema(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database connection and, for writers, the lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Unlock())
		s.lock = nil
	}
	return errors.Join(errs...)
}

// Write replaces every field stored for show with fields.
func (s *Store) Write(ctx context.Context, show string, fields map[string]Array) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if show == "" {
		return errors.New("write: empty identifier")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	type row struct {
		name  string
		dtype DType
		shape string
		blob  []byte
	}
	rows := make([]row, 0, len(names))
	for _, name := range names {
		arr := fields[name]
		if len(arr.Data) != arr.Len() {
			return fmt.Errorf("write %s/%s: shape %v needs %d values, got %d", show, name, arr.Shape, arr.Len(), len(arr.Data))
		}
		dtype := storedDType(arr, s.precision)
		blob, err := encodeData(arr.Data, dtype)
		if err != nil {
			return fmt.Errorf("write %s/%s: %w", show, name, err)
		}
		rows = append(rows, row{name: name, dtype: dtype, shape: formatShape(arr.Shape), blob: blob})
	}

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin write tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM fields WHERE show = ?", show); err != nil {
			return fmt.Errorf("clear %s: %w", show, err)
		}
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO fields (show, name, dtype, shape, data) VALUES (?, ?, ?, ?, ?)",
				show, r.name, string(r.dtype), r.shape, r.blob,
			); err != nil {
				return fmt.Errorf("insert %s/%s: %w", show, r.name, err)
			}
		}
		return tx.Commit()
	})
}

// Shows lists the identifiers held by the store in lexical order.
func (s *Store) Shows(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT DISTINCT show FROM fields ORDER BY show")
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()

	var shows []string
	for rows.Next() {
		var show string
		if err := rows.Scan(&show); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		shows = append(shows, show)
	}
	return shows, rows.Err()
}

// Fields lists the field names stored under show in lexical order.
func (s *Store) Fields(ctx context.Context, show string) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT name FROM fields WHERE show = ? ORDER BY name", show)
	if err != nil {
		return nil, fmt.Errorf("list fields for %s: %w", show, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan field name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrShowNotFound, show, s.path)
	}
	return names, nil
}

// Read returns one field stored under show.
func (s *Store) Read(ctx context.Context, show, field string) (Array, error) {
	ctx = ensureContext(ctx)
	var (
		dtype string
		shape string
		blob  []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT dtype, shape, data FROM fields WHERE show = ? AND name = ?", show, field,
	).Scan(&dtype, &shape, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		if _, ferr := s.Fields(ctx, show); ferr != nil {
			return Array{}, ferr
		}
		return Array{}, fmt.Errorf("%w: %s/%s in %s", ErrFieldNotFound, show, field, s.path)
	}
	if err != nil {
		return Array{}, fmt.Errorf("read %s/%s: %w", show, field, err)
	}
	arr, err := decodeRow(dtype, shape, blob)
	if err != nil {
		return Array{}, fmt.Errorf("read %s/%s: %w", show, field, err)
	}
	return arr, nil
}

// ReadAll returns every field stored under show.
func (s *Store) ReadAll(ctx context.Context, show string) (map[string]Array, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT name, dtype, shape, data FROM fields WHERE show = ? ORDER BY name", show)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", show, err)
	}
	defer rows.Close()

	out := make(map[string]Array)
	for rows.Next() {
		var (
			name  string
			dtype string
			shape string
			blob  []byte
		)
		if err := rows.Scan(&name, &dtype, &shape, &blob); err != nil {
			return nil, fmt.Errorf("scan %s: %w", show, err)
		}
		arr, err := decodeRow(dtype, shape, blob)
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", show, name, err)
		}
		out[name] = arr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrShowNotFound, show, s.path)
	}
	return out, nil
}

func decodeRow(dtypeValue, shapeValue string, blob []byte) (Array, error) {
	dtype, err := ParseDType(dtypeValue)
	if err != nil {
		return Array{}, err
	}
	shape, err := parseShape(shapeValue)
	if err != nil {
		return Array{}, err
	}
	count, err := shapeLen(shape)
	if err != nil {
		return Array{}, err
	}
	data, err := decodeData(blob, dtype, count)
	if err != nil {
		return Array{}, err
	}
	return Array{DType: dtype, Shape: shape, Data: data}, nil
}

// fileDSN builds a SQLite URI for path. The path is escaped so identifiers
// containing '#', '?' or '%' name the file they look like.
func fileDSN(path, mode string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve store path %q: %w", path, err)
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: url.Values{"mode": {mode}}.Encode(),
	}
	return u.String(), nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
