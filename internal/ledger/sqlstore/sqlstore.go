package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/pkg/types"
)

type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

func OpenSQLite(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) WithTx(fn func(ledger.Tx) error) error {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{})
	if err != nil {
		return err
	}
	wrapped := &Tx{tx: tx}
	if err := fn(wrapped); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) GetRecord(hash common.Hash) (types.LedgerRecord, bool, error) {
	return getRecord(s.db, hash)
}

func (s *Store) RecordHashAt(index uint64) (common.Hash, bool, error) {
	return recordHashAt(s.db, index)
}

func (s *Store) CountRecords() (uint64, error) {
	return countRecords(s.db)
}

func (s *Store) GetBalance(account common.Address) (*big.Int, error) {
	return getBalance(s.db, account)
}

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) GetRecord(hash common.Hash) (types.LedgerRecord, bool, error) {
	return getRecord(t.tx, hash)
}

func (t *Tx) RecordHashAt(index uint64) (common.Hash, bool, error) {
	return recordHashAt(t.tx, index)
}

func (t *Tx) CountRecords() (uint64, error) {
	return countRecords(t.tx)
}

func (t *Tx) GetBalance(account common.Address) (*big.Int, error) {
	return getBalance(t.tx, account)
}

func (t *Tx) PutRecord(rec types.LedgerRecord) error {
	price := "0"
	if rec.Price != nil {
		price = rec.Price.String()
	}
	_, err := t.tx.Exec(
		`INSERT INTO course_records(idx, hash, owner, proof, price, state)
VALUES(?,?,?,?,?,?)
ON CONFLICT(hash) DO UPDATE SET
  owner=excluded.owner,
  proof=excluded.proof,
  price=excluded.price,
  state=excluded.state`,
		int64(rec.ID),
		rec.Hash.Hex(),
		rec.Owner.Hex(),
		rec.Proof.Hex(),
		price,
		string(rec.State),
	)
	return err
}

func (t *Tx) PutBalance(account common.Address, amount *big.Int) error {
	_, err := t.tx.Exec(
		`INSERT INTO account_balances(account, balance) VALUES(?,?)
ON CONFLICT(account) DO UPDATE SET balance=excluded.balance`,
		account.Hex(), amount.String(),
	)
	return err
}

func (t *Tx) MarkSeeded(account common.Address) (bool, error) {
	res, err := t.tx.Exec(`INSERT INTO seeded_accounts(account) VALUES(?) ON CONFLICT(account) DO NOTHING`, account.Hex())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getRecord(q queryer, hash common.Hash) (types.LedgerRecord, bool, error) {
	var (
		idx                   int64
		hashHex, owner, proof string
		price, state          string
	)
	row := q.QueryRow(`SELECT idx, hash, owner, proof, price, state FROM course_records WHERE hash = ?`, hash.Hex())
	err := row.Scan(&idx, &hashHex, &owner, &proof, &price, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return types.LedgerRecord{}, false, nil
	}
	if err != nil {
		return types.LedgerRecord{}, false, err
	}
	amount, ok := new(big.Int).SetString(price, 10)
	if !ok {
		return types.LedgerRecord{}, false, fmt.Errorf("corrupt price for %s: %q", hash.Hex(), price)
	}
	if _, ok := types.CourseState(state).Code(); !ok {
		return types.LedgerRecord{}, false, fmt.Errorf("corrupt state for %s: %q", hash.Hex(), state)
	}
	return types.LedgerRecord{
		ID:    uint64(idx),
		Price: amount,
		Owner: common.HexToAddress(owner),
		Hash:  common.HexToHash(hashHex),
		Proof: common.HexToHash(proof),
		State: types.CourseState(state),
	}, true, nil
}

func recordHashAt(q queryer, index uint64) (common.Hash, bool, error) {
	var hashHex string
	err := q.QueryRow(`SELECT hash FROM course_records WHERE idx = ?`, int64(index)).Scan(&hashHex)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, err
	}
	return common.HexToHash(hashHex), true, nil
}

func countRecords(q queryer) (uint64, error) {
	var n int64
	if err := q.QueryRow(`SELECT COUNT(*) FROM course_records`).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func getBalance(q queryer, account common.Address) (*big.Int, error) {
	var balance string
	err := q.QueryRow(`SELECT balance FROM account_balances WHERE account = ?`, account.Hex()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(balance, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance for %s: %q", account.Hex(), balance)
	}
	return amount, nil
}
