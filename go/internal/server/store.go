package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/bidwatch/go/internal/models"

	_ "modernc.org/sqlite"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user not active")
	ErrAuctionClosed   = errors.New("auction closed")
)

// AmountTooLowError is the one structured bid rejection: it carries the
// price the bidder lost to and the minimum their next attempt must reach.
type AmountTooLowError struct {
	CurrentPrice    float64
	RequiredMinimum float64
}

func (e *AmountTooLowError) Error() string {
	return fmt.Sprintf("amount too low: current price %v, required minimum %v", e.CurrentPrice, e.RequiredMinimum)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS auctions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_name TEXT NOT NULL,
	current_price REAL NOT NULL DEFAULT 0,
	current_winner INTEGER NULL,
	min_increment REAL NOT NULL DEFAULT 1,
	end_time INTEGER NOT NULL,
	active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS bids (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	auction_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	amount REAL NOT NULL,
	ts INTEGER NOT NULL,
	FOREIGN KEY(auction_id) REFERENCES auctions(id),
	FOREIGN KEY(user_id) REFERENCES users(id)
);
`

// Store is the server's sqlite persistence plus the per-auction locks
// that serialize bid placement on the same item.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// OpenStore opens (and migrates) the sqlite database at path. Use
// ":memory:" for tests.
func OpenStore(path string, clock clockwork.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single pooled connection keeps the
	// in-memory database coherent across handlers as well.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{
		db:    db,
		clock: clock,
		locks: make(map[int64]*sync.Mutex),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// auctionLock returns the lock serializing bids for one auction,
// creating it on first use.
func (s *Store) auctionLock(auctionID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[auctionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[auctionID] = lock
	}
	return lock
}

func (s *Store) CreateUser(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (name, active) VALUES (?, 1)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, active FROM users")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) CreateAuction(ctx context.Context, itemName string, startPrice, minIncrement float64, durationSeconds int64) (int64, int64, error) {
	endTime := s.clock.Now().Unix() + durationSeconds
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO auctions (item_name, current_price, min_increment, end_time, active) VALUES (?, ?, ?, ?, 1)",
		itemName, startPrice, minIncrement, endTime)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert auction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}
	return id, endTime, nil
}

func (s *Store) GetAuction(ctx context.Context, auctionID int64) (*models.AuctionDetail, error) {
	var d models.AuctionDetail
	var winner sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, item_name, current_price, current_winner, min_increment, end_time, active FROM auctions WHERE id = ?",
		auctionID).Scan(&d.ID, &d.ItemName, &d.CurrentPrice, &winner, &d.MinIncrement, &d.EndTime, &d.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query auction: %w", err)
	}
	if winner.Valid {
		d.CurrentWinner = &winner.Int64
	}
	return &d, nil
}

// ExpireAuctions deactivates every auction whose deadline has passed.
// Listing calls this first so clients never see an expired auction
// still flagged active in the list.
func (s *Store) ExpireAuctions(ctx context.Context) error {
	now := s.clock.Now().Unix()
	if _, err := s.db.ExecContext(ctx, "UPDATE auctions SET active = 0 WHERE active = 1 AND end_time < ?", now); err != nil {
		return fmt.Errorf("failed to expire auctions: %w", err)
	}
	return nil
}

// ListAuctions returns active auctions, or every auction when all is set.
func (s *Store) ListAuctions(ctx context.Context, all bool) ([]models.AuctionSummary, error) {
	query := "SELECT id, item_name, current_price, current_winner, active, end_time FROM auctions WHERE active = 1 ORDER BY id DESC"
	if all {
		query = "SELECT id, item_name, current_price, current_winner, active, end_time FROM auctions ORDER BY id DESC"
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	auctions := []models.AuctionSummary{}
	for rows.Next() {
		var a models.AuctionSummary
		var winner sql.NullInt64
		if err := rows.Scan(&a.ID, &a.ItemName, &a.CurrentPrice, &winner, &a.Active, &a.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		if winner.Valid {
			a.CurrentWinner = &winner.Int64
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func (s *Store) CloseAuction(ctx context.Context, auctionID int64) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE auctions SET active = 0 WHERE id = ?", auctionID); err != nil {
		return fmt.Errorf("failed to close auction: %w", err)
	}
	return nil
}

func (s *Store) ListBids(ctx context.Context, auctionID int64) ([]models.Bid, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, amount, ts FROM bids WHERE auction_id = ? ORDER BY ts ASC", auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.UserID, &b.Amount, &b.TS); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// PlaceBid runs the whole bid transaction: existence and liveness
// checks, then a double-read of the current price inside the
// per-auction lock so two bidders racing on the same item cannot both
// win against the same price.
func (s *Store) PlaceBid(ctx context.Context, auctionID, userID int64, amount float64) (float64, error) {
	var currentPrice, minIncrement float64
	var endTime int64
	var active bool
	err := s.db.QueryRowContext(ctx,
		"SELECT current_price, min_increment, end_time, active FROM auctions WHERE id = ?",
		auctionID).Scan(&currentPrice, &minIncrement, &endTime, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAuctionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query auction: %w", err)
	}

	now := s.clock.Now().Unix()
	if !active || now > endTime {
		if now > endTime {
			// Deadline passed but nothing has marked it yet.
			if _, err := s.db.ExecContext(ctx, "UPDATE auctions SET active = 0 WHERE id = ?", auctionID); err != nil {
				return 0, fmt.Errorf("failed to deactivate auction: %w", err)
			}
		}
		return 0, ErrAuctionClosed
	}

	var userActive bool
	err = s.db.QueryRowContext(ctx, "SELECT active FROM users WHERE id = ?", userID).Scan(&userActive)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query user: %w", err)
	}
	if !userActive {
		return 0, ErrUserInactive
	}

	lock := s.auctionLock(auctionID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read inside the lock: another bid may have landed since the
	// first read.
	err = s.db.QueryRowContext(ctx, "SELECT current_price FROM auctions WHERE id = ?", auctionID).Scan(&currentPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAuctionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to re-read auction price: %w", err)
	}

	requiredMin := currentPrice + minIncrement
	if amount < requiredMin {
		return 0, &AmountTooLowError{CurrentPrice: currentPrice, RequiredMinimum: requiredMin}
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO bids (auction_id, user_id, amount, ts) VALUES (?, ?, ?, ?)",
		auctionID, userID, amount, now); err != nil {
		return 0, fmt.Errorf("failed to insert bid: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE auctions SET current_price = ?, current_winner = ? WHERE id = ?",
		amount, userID, auctionID); err != nil {
		return 0, fmt.Errorf("failed to update auction: %w", err)
	}

	return amount, nil
}
