package dal

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Supported driver names
const (
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
)

type dialect struct {
	schema string

	// appended to the account select inside a write transaction
	lockClause string

	// options of a transaction whose reads must all see the same snapshot
	snapshotTxOptions *sql.TxOptions

	// integer amount in cents, summed up for statement totals
	amountCents string

	isUniqueViolation func(err error) bool
}

var sqlite3Dialect = dialect{
	schema: `
CREATE TABLE IF NOT EXISTS customers(
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	name                TEXT NOT NULL,
	email               TEXT NOT NULL UNIQUE,
	password_credential TEXT NOT NULL,
	created_at          INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS accounts(
	account_no          TEXT NOT NULL PRIMARY KEY,
	customer_id         INTEGER NULL REFERENCES customers(id),
	name                TEXT NOT NULL,
	password_credential TEXT NOT NULL,
	type                TEXT NOT NULL,
	balance             TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions(
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	account_no    TEXT NOT NULL REFERENCES accounts(account_no),
	type          TEXT NOT NULL,
	amount        TEXT NOT NULL,
	balance_after TEXT NOT NULL,
	timestamp     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_account_no_timestamp
	ON transactions(account_no, timestamp DESC, id DESC);
`,
	// Write transactions are started with BEGIN IMMEDIATE (see sqliteDSN)
	// so the database write lock is already held
	lockClause:  "",
	amountCents: "CAST(ROUND(amount * 100) AS INTEGER)",
	isUniqueViolation: func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	},
}

var postgresDialect = dialect{
	schema: `
CREATE TABLE IF NOT EXISTS customers(
	id                  BIGSERIAL PRIMARY KEY,
	name                TEXT NOT NULL,
	email               TEXT NOT NULL UNIQUE,
	password_credential TEXT NOT NULL,
	created_at          BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS accounts(
	account_no          TEXT NOT NULL PRIMARY KEY,
	customer_id         BIGINT NULL REFERENCES customers(id),
	name                TEXT NOT NULL,
	password_credential TEXT NOT NULL,
	type                TEXT NOT NULL,
	balance             NUMERIC(18, 2) NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS transactions(
	id            BIGSERIAL PRIMARY KEY,
	account_no    TEXT NOT NULL REFERENCES accounts(account_no),
	type          TEXT NOT NULL,
	amount        NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
	balance_after NUMERIC(18, 2) NOT NULL,
	timestamp     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_account_no_timestamp
	ON transactions(account_no, timestamp DESC, id DESC);
`,
	lockClause:        " FOR UPDATE",
	snapshotTxOptions: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	amountCents:       "(amount * 100)::BIGINT",
	isUniqueViolation: func(err error) bool {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) {
			return false
		}
		return pqErr.Code == "23505"
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite3:
		return sqlite3Dialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	}
	return dialect{}, errors.Errorf("Unsupported storage driver: %v", driver)
}

var sqliteDSNDefaults = []struct {
	key   string
	value string
}{
	{"_txlock", "immediate"},
	{"_busy_timeout", "5000"},
	{"_journal_mode", "WAL"},
	{"_foreign_keys", "on"},
}

// sqliteDSN makes sure write transactions take the database lock at BEGIN
// and concurrent writers wait for each other instead of failing
func sqliteDSN(dsn string) string {
	for _, def := range sqliteDSNDefaults {
		if strings.Contains(dsn, def.key+"=") {
			continue
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + def.key + "=" + def.value
	}
	return dsn
}

// OpenDB opens a db pool for a given driver. For sqlite3 the dsn is
// extended with the locking settings the storage relies on
func OpenDB(driver string, dsn string) (*sql.DB, error) {
	if _, err := dialectFor(driver); err != nil {
		return nil, err
	}
	if driver == DriverSQLite3 {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %v db", driver)
	}
	return db, nil
}
