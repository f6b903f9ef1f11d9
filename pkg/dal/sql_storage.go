package dal

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

var logger = diag.CreateLogger()

const (
	defaultCallTimeout = 5 * time.Second
	defaultListHardCap = 1000
)

type sqlStorage struct {
	db          *sql.DB
	dialect     dialect
	callTimeout time.Duration
	listHardCap int
	now         func() time.Time

	// invoked after the balance update and before the transaction insert
	beforeTransactionInsert func(ctx context.Context) error
}

func (s *sqlStorage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.callTimeout)
}

func (s *sqlStorage) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup SQL storage")
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return types.StoreUnavailable(errors.Wrap(err, "Failed to setup storage"))
	}
	return nil
}

// withinTx runs fn in a db transaction, committing it if fn succeeds.
// Errors of fn are returned as is
func (s *sqlStorage) withinTx(
	ctx context.Context,
	opts *sql.TxOptions,
	fn func(tx *sql.Tx) error,
) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return types.StoreUnavailable(errors.Wrap(err, "Failed to begin transaction"))
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			logger.WithError(rbErr).Error(ctx, "Failed to rollback transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return types.StoreUnavailable(errors.Wrap(err, "Failed to commit transaction"))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner, extra ...interface{}) (*types.Account, error) {
	account := &types.Account{}
	var accountType string
	dest := append([]interface{}{
		&account.AccountNo,
		&account.Name,
		&accountType,
		&account.Balance,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	account.Type = types.AccountType(accountType)
	return account, nil
}

func (s *sqlStorage) GetAccountByNo(ctx context.Context, accountNo string) (*types.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `
	SELECT
		account_no, name, type, balance
	FROM accounts WHERE account_no = $1`, accountNo)
	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrapf(types.ErrAccountNotFound, "Unknown account: %v", accountNo)
		}
		return nil, types.StoreUnavailable(errors.Wrap(err, "Failed to get account"))
	}
	return account, nil
}

func (s *sqlStorage) GetCredentialsByAccountNo(ctx context.Context, accountNo string) (*CredentialsDTO, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `
	SELECT
		account_no, name, type, balance, password_credential
	FROM accounts WHERE account_no = $1`, accountNo)
	var passwordHash string
	account, err := scanAccount(row, &passwordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrapf(types.ErrAccountNotFound, "Unknown account: %v", accountNo)
		}
		return nil, types.StoreUnavailable(errors.Wrap(err, "Failed to get account credentials"))
	}
	return &CredentialsDTO{Account: *account, PasswordHash: passwordHash}, nil
}

func (s *sqlStorage) CreateAccount(ctx context.Context, account *CredentialsDTO) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `
	INSERT INTO accounts(account_no, name, password_credential, type, balance)
	VALUES($1, $2, $3, $4, $5)
	`,
		account.AccountNo,
		account.Name,
		account.PasswordHash,
		string(account.Type),
		account.Balance.StringFixed(types.AmountScale),
	); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return errors.Wrapf(types.ErrDuplicateAccountNo, "Account %v", account.AccountNo)
		}
		return types.StoreUnavailable(errors.Wrap(err, "Failed to insert account"))
	}
	return nil
}

func (s *sqlStorage) UpdateCredential(ctx context.Context, accountNo string, mutate CredentialMutation) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.withinTx(ctx, nil, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
		SELECT
			account_no, name, type, balance, password_credential
		FROM accounts WHERE account_no = $1`+s.dialect.lockClause, accountNo)
		var passwordHash string
		current, err := scanAccount(row, &passwordHash)
		if err != nil {
			if err == sql.ErrNoRows {
				return errors.Wrapf(types.ErrAccountNotFound, "Unknown account: %v", accountNo)
			}
			return types.StoreUnavailable(errors.Wrap(err, "Failed to lock account"))
		}

		newHash, err := mutate(&CredentialsDTO{Account: *current, PasswordHash: passwordHash})
		if err != nil {
			return err
		}
		if newHash == "" {
			return errors.New("Credential mutation returned empty hash")
		}

		if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET password_credential = $1 WHERE account_no = $2
		`, newHash, accountNo); err != nil {
			return types.StoreUnavailable(errors.Wrap(err, "Failed to update credential"))
		}
		return nil
	})
}

func toMicros(value time.Time) int64 {
	return value.UTC().UnixNano() / int64(time.Microsecond)
}

func fromMicros(value int64) time.Time {
	return time.Unix(0, value*int64(time.Microsecond)).UTC()
}

// nextTimestamp returns now, or 1µs after the latest transaction
// of the account if the clock did not move forward
func (s *sqlStorage) nextTimestamp(ctx context.Context, tx *sql.Tx, accountNo string) (int64, error) {
	var latest sql.NullInt64
	if err := tx.QueryRowContext(ctx, `
	SELECT MAX(timestamp) FROM transactions WHERE account_no = $1
	`, accountNo).Scan(&latest); err != nil {
		return 0, errors.Wrap(err, "Failed to get latest transaction timestamp")
	}
	now := toMicros(s.now())
	if latest.Valid && now <= latest.Int64 {
		return latest.Int64 + 1, nil
	}
	return now, nil
}

func checkTransaction(current *types.Account, trx *types.Transaction) error {
	if trx == nil {
		return errors.New("Balance mutation returned no transaction")
	}
	if !trx.Amount.IsPositive() {
		return errors.Errorf("Transaction amount must be positive, got %v", trx.Amount)
	}
	delta, err := trx.Kind.Delta(trx.Amount)
	if err != nil {
		return err
	}
	expected := current.Balance.Add(delta)
	if !expected.Equal(trx.BalanceAfter) {
		return errors.Errorf(
			"Balance after %v does not match current balance %v and %v of %v",
			trx.BalanceAfter, current.Balance, trx.Kind, trx.Amount,
		)
	}
	return nil
}

func (s *sqlStorage) CommitBalanceAndTransaction(
	ctx context.Context,
	accountNo string,
	mutate BalanceMutation,
) (*types.Account, *types.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated *types.Account
	var result *types.Transaction
	if err := s.withinTx(ctx, nil, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
		SELECT
			account_no, name, type, balance
		FROM accounts WHERE account_no = $1`+s.dialect.lockClause, accountNo)
		current, err := scanAccount(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return errors.Wrapf(types.ErrAccountNotFound, "Unknown account: %v", accountNo)
			}
			return types.StoreUnavailable(errors.Wrap(err, "Failed to lock account"))
		}

		trx, err := mutate(current)
		if err != nil {
			return err
		}
		if err := checkTransaction(current, trx); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = $1 WHERE account_no = $2
		`, trx.BalanceAfter.StringFixed(types.AmountScale), accountNo); err != nil {
			return types.StoreUnavailable(errors.Wrap(err, "Failed to update balance"))
		}

		if s.beforeTransactionInsert != nil {
			if err := s.beforeTransactionInsert(ctx); err != nil {
				return types.StoreUnavailable(err)
			}
		}

		timestamp, err := s.nextTimestamp(ctx, tx, accountNo)
		if err != nil {
			return types.StoreUnavailable(err)
		}

		result = &types.Transaction{
			AccountNo:    accountNo,
			Kind:         trx.Kind,
			Amount:       trx.Amount,
			BalanceAfter: trx.BalanceAfter,
			Timestamp:    fromMicros(timestamp),
		}
		if err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions(account_no, type, amount, balance_after, timestamp)
		VALUES($1, $2, $3, $4, $5)
		RETURNING id
		`,
			accountNo,
			string(trx.Kind),
			trx.Amount.StringFixed(types.AmountScale),
			trx.BalanceAfter.StringFixed(types.AmountScale),
			timestamp,
		).Scan(&result.ID); err != nil {
			return types.StoreUnavailable(errors.Wrap(err, "Failed to insert transaction"))
		}

		updated = current
		updated.Balance = trx.BalanceAfter
		return nil
	}); err != nil {
		return nil, nil, err
	}

	logger.WithData(diag.MsgData{
		"accountNo":     accountNo,
		"transactionID": result.ID,
		"kind":          result.Kind,
	}).Debug(ctx, "Balance and transaction committed")
	return updated, result, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *sqlStorage) clampLimit(limit int) int {
	if limit <= 0 || limit > s.listHardCap {
		return s.listHardCap
	}
	return limit
}

func queryTransactions(ctx context.Context, q queryer, accountNo string, limit int) ([]*types.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT
		id, account_no, type, amount, balance_after, timestamp
	FROM transactions
	WHERE account_no = $1
	ORDER BY timestamp DESC, id DESC
	LIMIT $2`, accountNo, limit)
	if err != nil {
		return nil, types.StoreUnavailable(errors.Wrap(err, "Failed to query transactions"))
	}
	defer rows.Close()

	result := []*types.Transaction{}
	for rows.Next() {
		trx := &types.Transaction{}
		var kind string
		var timestamp int64
		if err := rows.Scan(
			&trx.ID,
			&trx.AccountNo,
			&kind,
			&trx.Amount,
			&trx.BalanceAfter,
			&timestamp,
		); err != nil {
			return nil, types.StoreUnavailable(errors.Wrap(err, "Failed to scan transaction"))
		}
		trx.Kind = types.TransactionKind(kind)
		trx.Timestamp = fromMicros(timestamp)
		result = append(result, trx)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StoreUnavailable(errors.Wrap(err, "Failed to read transactions"))
	}
	return result, nil
}

func (s *sqlStorage) ListTransactions(ctx context.Context, accountNo string, limit int) ([]*types.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return queryTransactions(ctx, s.db, accountNo, s.clampLimit(limit))
}

func (s *sqlStorage) GetStatement(ctx context.Context, accountNo string, limit int) (*StatementDTO, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	statement := &StatementDTO{
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
	}
	if err := s.withinTx(ctx, s.dialect.snapshotTxOptions, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
		SELECT
			account_no, name, type, balance
		FROM accounts WHERE account_no = $1`, accountNo)
		account, err := scanAccount(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return errors.Wrapf(types.ErrAccountNotFound, "Unknown account: %v", accountNo)
			}
			return types.StoreUnavailable(errors.Wrap(err, "Failed to get account"))
		}
		statement.Account = *account

		rows, err := tx.QueryContext(ctx, `
		SELECT
			type, COUNT(*), SUM(`+s.dialect.amountCents+`)
		FROM transactions
		WHERE account_no = $1
		GROUP BY type`, accountNo)
		if err != nil {
			return types.StoreUnavailable(errors.Wrap(err, "Failed to query totals"))
		}
		defer rows.Close()
		for rows.Next() {
			var kind string
			var count int
			var cents decimal.Decimal
			if err := rows.Scan(&kind, &count, &cents); err != nil {
				return types.StoreUnavailable(errors.Wrap(err, "Failed to scan totals"))
			}
			total := cents.Shift(-types.AmountScale)
			switch types.TransactionKind(kind) {
			case types.TransactionKindDeposit:
				statement.TotalDeposited = total
			case types.TransactionKindWithdrawal:
				statement.TotalWithdrawn = total
			default:
				logger.Warn(ctx, "Skipping totals of unexpected transaction kind %v", kind)
				continue
			}
			statement.TransactionsCount += count
		}
		if err := rows.Err(); err != nil {
			return types.StoreUnavailable(errors.Wrap(err, "Failed to read totals"))
		}

		statement.Transactions, err = queryTransactions(ctx, tx, accountNo, s.clampLimit(limit))
		return err
	}); err != nil {
		return nil, err
	}
	return statement, nil
}

// SQLStorageOpt is an option of SQL storage
type SQLStorageOpt func(s *sqlStorage)

// WithSQLDb will set an explicit db instance for a storage
func WithSQLDb(db *sql.DB) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.db = db
	}
}

// WithDriver selects SQL dialect of a given driver (sqlite3 by default)
func WithDriver(driver string) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.dialect, _ = dialectFor(driver)
	}
}

// WithCallTimeout sets a timeout of each storage call
func WithCallTimeout(timeout time.Duration) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.callTimeout = timeout
	}
}

// WithListHardCap sets max number of transactions a single list call returns
func WithListHardCap(hardCap int) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.listHardCap = hardCap
	}
}

// WithNow sets a clock used to assign transaction timestamps
func WithNow(now func() time.Time) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.now = now
	}
}

// NewSQLStorage returns an instance of a SQL storage
func NewSQLStorage(opts ...SQLStorageOpt) (Storage, error) {
	storage := &sqlStorage{
		dialect:     sqlite3Dialect,
		callTimeout: defaultCallTimeout,
		listHardCap: defaultListHardCap,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(storage)
	}
	if storage.db == nil {
		return nil, errors.New("SQL db is required")
	}
	if storage.dialect.isUniqueViolation == nil {
		return nil, errors.New("Unsupported storage driver")
	}
	if storage.callTimeout <= 0 {
		storage.callTimeout = defaultCallTimeout
	}
	if storage.listHardCap <= 0 {
		storage.listHardCap = defaultListHardCap
	}
	return storage, nil
}
