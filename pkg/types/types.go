package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AmountScale is a number of decimal places amounts and balances are kept with
const AmountScale = 2

// AccountType is a kind of an account
type AccountType string

// Known account types
const (
	AccountTypeSaving  AccountType = "Saving"
	AccountTypeCurrent AccountType = "Current"
)

// Valid returns true if the type is one of known account types
func (t AccountType) Valid() bool {
	return t == AccountTypeSaving || t == AccountTypeCurrent
}

// TransactionKind is a kind of a ledger transaction
type TransactionKind string

// Known transaction kinds
const (
	TransactionKindDeposit    TransactionKind = "Deposit"
	TransactionKindWithdrawal TransactionKind = "Withdrawal"
)

// Delta returns a signed balance change the given amount
// produces for a transaction of this kind
func (k TransactionKind) Delta(amount decimal.Decimal) (decimal.Decimal, error) {
	switch k {
	case TransactionKindDeposit:
		return amount, nil
	case TransactionKindWithdrawal:
		return amount.Neg(), nil
	}
	return decimal.Zero, errors.Errorf("Unexpected transaction kind: %v", k)
}

// Account is a read only snapshot of an account
type Account struct {
	AccountNo string
	Name      string
	Type      AccountType
	Balance   decimal.Decimal
}

func (a Account) String() string {
	return fmt.Sprintf("%s (%s, %s): %s", a.AccountNo, a.Name, a.Type, a.Balance.StringFixed(AmountScale))
}

// Transaction is a committed ledger record. Transactions are never changed once committed
type Transaction struct {
	ID           int64
	AccountNo    string
	Kind         TransactionKind
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Timestamp    time.Time
}

// String renders a history line
func (t Transaction) String() string {
	return fmt.Sprintf("%s - %s %s | Bal: %s",
		t.Timestamp.Format("2006-01-02 15:04:05"),
		t.Kind,
		t.Amount.StringFixed(AmountScale),
		t.BalanceAfter.StringFixed(AmountScale),
	)
}

// ValidateAmount checks that the amount is positive and has at most AmountScale decimals
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrMalformedAmount
	}
	return nil
}

// ParseAmount parses user supplied amount text
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, ErrMalformedAmount
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrMalformedAmount, "%q", value)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return decimal.Zero, errors.Wrapf(ErrMalformedAmount, "%q", value)
	}
	return amount, nil
}
