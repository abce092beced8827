// Package registry persists the controller's view of the mesh: the
// bootstrapping data it was given and the peers it has onboarded. It also
// answers the admission question the onboarding engine asks before every
// new handshake.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/meshonboard/ec-go/pkg/bootstrap"
)

// Registry errors.
var (
	ErrNotFound = errors.New("peer not found")
)

// migrations is an ordered list of idempotent schema statements.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bootstraps (
		peer_id  TEXT PRIMARY KEY,
		uri      TEXT NOT NULL,
		added_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS peers (
		peer_id       TEXT PRIMARY KEY,
		mac           TEXT NOT NULL DEFAULT '',
		ssid          TEXT NOT NULL DEFAULT '',
		akm           TEXT NOT NULL DEFAULT '',
		onboarded_at  TEXT NOT NULL,
		last_seen     TEXT NOT NULL,
		onboard_count INTEGER NOT NULL DEFAULT 1
	)`,
}

// PeerRecord is one onboarded peer.
type PeerRecord struct {
	PeerID       string
	MAC          string
	SSID         string
	AKM          string
	OnboardedAt  time.Time
	LastSeen     time.Time
	OnboardCount int
}

// Store is a SQLite-backed registry.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the registry database at path and runs migrations.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// --- Bootstrapping data ---

// AddBootstrap stores the public half of b, replacing an earlier entry for
// the same key.
func (s *Store) AddBootstrap(ctx context.Context, b *bootstrap.Data) error {
	pub := b.Public()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bootstraps (peer_id, uri, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(peer_id) DO UPDATE SET uri = excluded.uri`,
		pub.PeerID(), pub.URI(), s.stamp())
	if err != nil {
		return fmt.Errorf("add bootstrap: %w", err)
	}
	s.debugLog("bootstrap stored", "peer", pub.PeerID())
	return nil
}

// Bootstraps returns every stored bootstrap, oldest first. Rows that no
// longer parse are skipped.
func (s *Store) Bootstraps(ctx context.Context) ([]*bootstrap.Data, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT peer_id, uri FROM bootstraps ORDER BY added_at, peer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []*bootstrap.Data
	for rows.Next() {
		var id, uri string
		if err := rows.Scan(&id, &uri); err != nil {
			return nil, err
		}
		b, err := bootstrap.ParseURI(uri)
		if err != nil {
			s.debugLog("skipping unparsable bootstrap", "peer", id, "error", err)
			continue
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RemoveBootstrap deletes the bootstrap stored for peerID.
func (s *Store) RemoveBootstrap(ctx context.Context, peerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bootstraps WHERE peer_id = ?`, peerID)
	if err != nil {
		return err
	}
	return affected(res)
}

// --- Peers ---

// RecordOnboarded inserts or refreshes a peer after a completed
// configuration exchange.
func (s *Store) RecordOnboarded(ctx context.Context, p PeerRecord) error {
	now := s.stamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO peers (peer_id, mac, ssid, akm, onboarded_at, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(peer_id) DO UPDATE SET
			mac = excluded.mac, ssid = excluded.ssid, akm = excluded.akm,
			last_seen = excluded.last_seen, onboard_count = onboard_count + 1`,
		p.PeerID, p.MAC, p.SSID, p.AKM, now, now)
	if err != nil {
		return fmt.Errorf("record peer: %w", err)
	}
	s.debugLog("peer recorded", "peer", p.PeerID, "mac", p.MAC)
	return nil
}

// Touch updates a peer's last-seen time.
func (s *Store) Touch(ctx context.Context, peerID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE peers SET last_seen = ? WHERE peer_id = ?`, s.stamp(), peerID)
	if err != nil {
		return err
	}
	return affected(res)
}

// Peer returns one peer.
func (s *Store) Peer(ctx context.Context, peerID string) (*PeerRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT peer_id, mac, ssid, akm, onboarded_at, last_seen, onboard_count FROM peers WHERE peer_id = ?`, peerID)
	p, err := scanPeer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Peers lists every onboarded peer, most recently onboarded first.
func (s *Store) Peers(ctx context.Context) ([]*PeerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT peer_id, mac, ssid, akm, onboarded_at, last_seen, onboard_count FROM peers ORDER BY onboarded_at DESC, peer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []*PeerRecord
	for rows.Next() {
		p, err := scanPeer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of onboarded peers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM peers`).Scan(&n)
	return n, err
}

// Forget removes a peer.
func (s *Store) Forget(ctx context.Context, peerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM peers WHERE peer_id = ?`, peerID)
	if err != nil {
		return err
	}
	return affected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPeer(row scanner) (*PeerRecord, error) {
	var p PeerRecord
	var onboarded, seen string
	if err := row.Scan(&p.PeerID, &p.MAC, &p.SSID, &p.AKM, &onboarded, &seen, &p.OnboardCount); err != nil {
		return nil, err
	}
	p.OnboardedAt, _ = time.Parse(time.RFC3339Nano, onboarded)
	p.LastSeen, _ = time.Parse(time.RFC3339Nano, seen)
	return &p, nil
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
