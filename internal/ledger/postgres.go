package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

// PostgresStore persists records and holdings in PostgreSQL. Row locks on the holdings
// table serialize transactions that touch the same address.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Atomic locks the holdings rows of addrs in a stable order and runs fn in the same
// database transaction.
func (s *PostgresStore) Atomic(ctx context.Context, addrs []pubkey.Pubkey, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ordered := lockOrder(addrs)
	locked := make(map[pubkey.Pubkey]struct{}, len(ordered))
	for _, addr := range ordered {
		if _, err := tx.Exec(ctx, `INSERT INTO holdings (address, lamports) VALUES ($1, 0)
            ON CONFLICT (address) DO NOTHING`, addr.String()); err != nil {
			return fmt.Errorf("ensure holdings %s: %w", addr, err)
		}
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM holdings WHERE address = $1 FOR UPDATE`, addr.String()).Scan(&one); err != nil {
			return fmt.Errorf("lock holdings %s: %w", addr, err)
		}
		locked[addr] = struct{}{}
	}

	if err := fn(&postgresTx{tx: tx, locked: locked}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Record fetches the committed record for addr.
func (s *PostgresStore) Record(ctx context.Context, addr pubkey.Pubkey) (Record, error) {
	return recordFor(ctx, s.db, addr)
}

// Holdings returns the committed holdings for addr; unknown addresses hold zero.
func (s *PostgresStore) Holdings(ctx context.Context, addr pubkey.Pubkey) (uint64, error) {
	return holdingsFor(ctx, s.db, addr)
}

type postgresTx struct {
	tx     pgx.Tx
	locked map[pubkey.Pubkey]struct{}
}

func (t *postgresTx) checkLocked(addr pubkey.Pubkey) error {
	if _, ok := t.locked[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrNotLocked, addr)
	}
	return nil
}

func (t *postgresTx) Holdings(ctx context.Context, addr pubkey.Pubkey) (uint64, error) {
	if err := t.checkLocked(addr); err != nil {
		return 0, err
	}
	return holdingsFor(ctx, t.tx, addr)
}

func (t *postgresTx) SetHoldings(ctx context.Context, addr pubkey.Pubkey, amount uint64) error {
	if err := t.checkLocked(addr); err != nil {
		return err
	}
	cmd, err := t.tx.Exec(ctx, `UPDATE holdings SET lamports = $2::numeric WHERE address = $1`,
		addr.String(), strconv.FormatUint(amount, 10))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("holdings row for %s missing", addr)
	}
	return nil
}

func (t *postgresTx) Record(ctx context.Context, addr pubkey.Pubkey) (Record, error) {
	if err := t.checkLocked(addr); err != nil {
		return Record{}, err
	}
	return recordFor(ctx, t.tx, addr)
}

func (t *postgresTx) PutRecord(ctx context.Context, rec Record) error {
	if err := t.checkLocked(rec.Address); err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO ledger_accounts (address, owner, bump, balance, reserve, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6)
        ON CONFLICT (address) DO UPDATE SET balance = EXCLUDED.balance, reserve = EXCLUDED.reserve`,
		rec.Address.String(), rec.Owner.String(), int16(rec.Bump),
		strconv.FormatUint(rec.Balance, 10), strconv.FormatUint(rec.Reserve, 10), createdAt.UTC())
	return err
}

func recordFor(ctx context.Context, q rowQuerier, addr pubkey.Pubkey) (Record, error) {
	const query = `
        SELECT owner, bump, balance::text, reserve::text, created_at
        FROM ledger_accounts
        WHERE address = $1`
	var (
		owner, balance, reserve string
		bump                    int16
		createdAt               time.Time
	)
	if err := q.QueryRow(ctx, query, addr.String()).Scan(&owner, &bump, &balance, &reserve, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return Record{}, err
	}

	rec := Record{Address: addr, Bump: uint8(bump), CreatedAt: createdAt.UTC()}
	var err error
	if rec.Owner, err = pubkey.Parse(owner); err != nil {
		return Record{}, fmt.Errorf("record %s owner: %w", addr, err)
	}
	if rec.Balance, err = strconv.ParseUint(balance, 10, 64); err != nil {
		return Record{}, fmt.Errorf("record %s balance: %w", addr, err)
	}
	if rec.Reserve, err = strconv.ParseUint(reserve, 10, 64); err != nil {
		return Record{}, fmt.Errorf("record %s reserve: %w", addr, err)
	}
	return rec, nil
}

func holdingsFor(ctx context.Context, q rowQuerier, addr pubkey.Pubkey) (uint64, error) {
	var lamports string
	if err := q.QueryRow(ctx, `SELECT lamports::text FROM holdings WHERE address = $1`, addr.String()).Scan(&lamports); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseUint(lamports, 10, 64)
}
