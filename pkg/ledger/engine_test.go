package ledger

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/auth"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/dal"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

func init() {
	rand.Seed(time.Now().Unix())
}

var testHasher = auth.NewBcryptHasher(bcrypt.MinCost)

func randomAmount() decimal.Decimal {
	return decimal.New(int64(1+rand.Intn(100000)), -types.AmountScale)
}

func newTestStorage(t *testing.T) dal.Storage {
	db, err := dal.OpenDB(dal.DriverSQLite3, "file:"+filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		panic(err)
	}
	t.Cleanup(func() { db.Close() })
	storage, err := dal.NewSQLStorage(dal.WithSQLDb(db))
	if err != nil {
		panic(err)
	}
	if err := storage.Setup(context.Background()); err != nil {
		panic(err)
	}
	return storage
}

type testEnv struct {
	storage dal.Storage
	engine  Engine
	auth    auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	storage := newTestStorage(t)
	return &testEnv{
		storage: storage,
		engine:  NewEngine(WithStorage(storage), WithHasher(testHasher)),
		auth:    auth.NewService(auth.WithStorage(storage), auth.WithHasher(testHasher)),
	}
}

func (env *testEnv) createAccount(t *testing.T, balance decimal.Decimal) (*types.Account, string) {
	password := faker.Password()
	account, err := env.engine.CreateAccount(
		context.Background(),
		faker.Name(),
		faker.CCNumber(),
		password,
		types.AccountTypeCurrent,
		balance,
	)
	if err != nil {
		panic(err)
	}
	return account, password
}

// assertLedgerConsistent checks that the stored balance equals
// initial balance plus the signed sum of all transactions
func (env *testEnv) assertLedgerConsistent(t *testing.T, accountNo string, initial decimal.Decimal) {
	stored, err := env.storage.GetAccountByNo(context.Background(), accountNo)
	if !assert.NoError(t, err) {
		return
	}
	transactions, err := env.storage.ListTransactions(context.Background(), accountNo, 0)
	if !assert.NoError(t, err) {
		return
	}
	want := initial
	for _, trx := range transactions {
		delta, err := trx.Kind.Delta(trx.Amount)
		if !assert.NoError(t, err) {
			return
		}
		want = want.Add(delta)
	}
	assert.True(t, want.Equal(stored.Balance), "Expected balance %v, got %v", want, stored.Balance)
	if len(transactions) > 0 {
		assert.True(t, transactions[0].BalanceAfter.Equal(stored.Balance))
	}
}

func Test_Engine_Scenarios(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	balance := func(t *testing.T) string {
		got, err := env.storage.GetAccountByNo(ctx, "A100")
		if err != nil {
			panic(err)
		}
		return got.Balance.StringFixed(types.AmountScale)
	}
	transactions := func(t *testing.T) []*types.Transaction {
		got, err := env.storage.ListTransactions(ctx, "A100", 0)
		if err != nil {
			panic(err)
		}
		return got
	}

	account, err := env.engine.CreateAccount(ctx, "Alice", "A100", "pw", types.AccountTypeSaving, decimal.RequireFromString("1000.00"))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "1000.00", balance(t))
	assert.Len(t, transactions(t), 0)

	account, err = env.engine.Deposit(ctx, account, decimal.RequireFromString("500.00"))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "1500.00", account.Balance.StringFixed(types.AmountScale))
	if got := transactions(t); assert.Len(t, got, 1) {
		assert.Equal(t, types.TransactionKindDeposit, got[0].Kind)
		assert.Equal(t, "500.00", got[0].Amount.StringFixed(types.AmountScale))
		assert.Equal(t, "1500.00", got[0].BalanceAfter.StringFixed(types.AmountScale))
	}

	_, err = env.engine.Withdraw(ctx, account, decimal.RequireFromString("2000.00"))
	assert.Equal(t, types.ErrInsufficientFunds, err)
	assert.Equal(t, "1500.00", balance(t))
	assert.Len(t, transactions(t), 1)

	account, err = env.engine.Withdraw(ctx, account, decimal.RequireFromString("1500.00"))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "0.00", account.Balance.StringFixed(types.AmountScale))
	if got := transactions(t); assert.Len(t, got, 2) {
		assert.Equal(t, types.TransactionKindWithdrawal, got[0].Kind)
		assert.Equal(t, "1500.00", got[0].Amount.StringFixed(types.AmountScale))
		assert.Equal(t, "0.00", got[0].BalanceAfter.StringFixed(types.AmountScale))
	}

	_, wrongPasswordErr := env.auth.Login(ctx, "A100", "wrong")
	_, unknownAccountErr := env.auth.Login(ctx, "A999", "pw")
	assert.Equal(t, types.ErrAuthenticationFailed, wrongPasswordErr)
	assert.Equal(t, wrongPasswordErr, unknownAccountErr)

	loggedIn, err := env.auth.Login(ctx, "A100", "pw")
	if assert.NoError(t, err) {
		assert.Equal(t, "0.00", loggedIn.Balance.StringFixed(types.AmountScale))
	}
	env.assertLedgerConsistent(t, "A100", decimal.RequireFromString("1000.00"))
}

func Test_Engine_CreateAccount(t *testing.T) {
	type args struct {
		name           string
		accountNo      string
		password       string
		accountType    types.AccountType
		initialBalance decimal.Decimal
	}
	validArgs := func() args {
		return args{
			name:           faker.Name(),
			accountNo:      faker.CCNumber(),
			password:       faker.Password(),
			accountType:    types.AccountTypeSaving,
			initialBalance: randomAmount(),
		}
	}
	type testCase struct {
		name   string
		args   args
		setup  func(env *testEnv)
		assert func(t *testing.T, env *testEnv, got *types.Account, err error)
	}
	invalid := func(name string, mutate func(a *args)) func() testCase {
		return func() testCase {
			a := validArgs()
			mutate(&a)
			return testCase{
				name: name,
				args: a,
				assert: func(t *testing.T, env *testEnv, got *types.Account, err error) {
					assert.Nil(t, got)
					assert.True(t, errors.Is(err, types.ErrValidation), "Expected validation error, got: %v", err)
					_, lookupErr := env.storage.GetAccountByNo(context.Background(), a.accountNo)
					assert.True(t, errors.Is(lookupErr, types.ErrAccountNotFound))
				},
			}
		}
	}
	tests := []func() testCase{
		func() testCase {
			a := validArgs()
			return testCase{
				name: "create account",
				args: a,
				assert: func(t *testing.T, env *testEnv, got *types.Account, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, a.accountNo, got.AccountNo)
					assert.Equal(t, a.name, got.Name)
					assert.Equal(t, a.accountType, got.Type)
					assert.True(t, a.initialBalance.Equal(got.Balance))

					credentials, err := env.storage.GetCredentialsByAccountNo(context.Background(), a.accountNo)
					if !assert.NoError(t, err) {
						return
					}
					assert.NotEqual(t, a.password, credentials.PasswordHash)
					assert.True(t, testHasher.Verify(credentials.PasswordHash, a.password))

					transactions, err := env.storage.ListTransactions(context.Background(), a.accountNo, 0)
					if assert.NoError(t, err) {
						assert.Len(t, transactions, 0)
					}
				},
			}
		},
		func() testCase {
			a := validArgs()
			a.initialBalance = decimal.Zero
			return testCase{
				name: "zero initial balance",
				args: a,
				assert: func(t *testing.T, env *testEnv, got *types.Account, err error) {
					if assert.NoError(t, err) {
						assert.True(t, got.Balance.IsZero())
					}
				},
			}
		},
		func() testCase {
			a := validArgs()
			return testCase{
				name: "duplicate account number",
				args: a,
				setup: func(env *testEnv) {
					if _, err := env.engine.CreateAccount(
						context.Background(), faker.Name(), a.accountNo, faker.Password(), types.AccountTypeCurrent, decimal.Zero,
					); err != nil {
						panic(err)
					}
				},
				assert: func(t *testing.T, env *testEnv, got *types.Account, err error) {
					assert.Nil(t, got)
					assert.True(t, errors.Is(err, types.ErrDuplicateAccountNo))
				},
			}
		},
		invalid("empty name", func(a *args) { a.name = " " }),
		invalid("empty account number", func(a *args) { a.accountNo = "" }),
		invalid("empty password", func(a *args) { a.password = "" }),
		invalid("password longer than 72 bytes", func(a *args) { a.password = strings.Repeat("p", auth.MaxPasswordLength+1) }),
		invalid("unknown account type", func(a *args) { a.accountType = types.AccountType(faker.Word()) }),
		invalid("negative initial balance", func(a *args) { a.initialBalance = randomAmount().Neg() }),
		invalid("initial balance with three decimals", func(a *args) { a.initialBalance = decimal.RequireFromString("10.001") }),
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}
			got, err := env.engine.CreateAccount(
				context.Background(),
				tt.args.name,
				tt.args.accountNo,
				tt.args.password,
				tt.args.accountType,
				tt.args.initialBalance,
			)
			tt.assert(t, env, got, err)
		})
	}
}

func Test_Engine_DepositWithdraw(t *testing.T) {
	type testCase struct {
		name    string
		initial decimal.Decimal
		run     func(env *testEnv, account *types.Account) (*types.Account, error)
		assert  func(t *testing.T, initial decimal.Decimal, got *types.Account, err error)
	}
	tests := []func() testCase{
		func() testCase {
			amount := randomAmount()
			return testCase{
				name:    "deposit",
				initial: randomAmount(),
				run: func(env *testEnv, account *types.Account) (*types.Account, error) {
					return env.engine.Deposit(context.Background(), account, amount)
				},
				assert: func(t *testing.T, initial decimal.Decimal, got *types.Account, err error) {
					if assert.NoError(t, err) {
						assert.True(t, initial.Add(amount).Equal(got.Balance))
					}
				},
			}
		},
		func() testCase {
			initial := randomAmount()
			return testCase{
				name:    "withdraw whole balance",
				initial: initial,
				run: func(env *testEnv, account *types.Account) (*types.Account, error) {
					return env.engine.Withdraw(context.Background(), account, initial)
				},
				assert: func(t *testing.T, initial decimal.Decimal, got *types.Account, err error) {
					if assert.NoError(t, err) {
						assert.True(t, got.Balance.IsZero())
					}
				},
			}
		},
		func() testCase {
			return testCase{
				name:    "withdraw uses stored balance rather than caller snapshot",
				initial: decimal.NewFromInt(100),
				run: func(env *testEnv, account *types.Account) (*types.Account, error) {
					stale := *account
					stale.Balance = decimal.NewFromInt(1000000)
					return env.engine.Withdraw(context.Background(), &stale, decimal.NewFromInt(500))
				},
				assert: func(t *testing.T, initial decimal.Decimal, got *types.Account, err error) {
					assert.Nil(t, got)
					assert.Equal(t, types.ErrInsufficientFunds, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name:    "deposit zero",
				initial: randomAmount(),
				run: func(env *testEnv, account *types.Account) (*types.Account, error) {
					return env.engine.Deposit(context.Background(), account, decimal.Zero)
				},
				assert: func(t *testing.T, initial decimal.Decimal, got *types.Account, err error) {
					assert.Equal(t, types.ErrNonPositiveAmount, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name:    "withdraw negative",
				initial: randomAmount(),
				run: func(env *testEnv, account *types.Account) (*types.Account, error) {
					return env.engine.Withdraw(context.Background(), account, randomAmount().Neg())
				},
				assert: func(t *testing.T, initial decimal.Decimal, got *types.Account, err error) {
					assert.Equal(t, types.ErrNonPositiveAmount, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name:    "deposit with three decimals",
				initial: randomAmount(),
				run: func(env *testEnv, account *types.Account) (*types.Account, error) {
					return env.engine.Deposit(context.Background(), account, decimal.RequireFromString("1.005"))
				},
				assert: func(t *testing.T, initial decimal.Decimal, got *types.Account, err error) {
					assert.Equal(t, types.ErrMalformedAmount, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name:    "unknown account",
				initial: randomAmount(),
				run: func(env *testEnv, account *types.Account) (*types.Account, error) {
					return env.engine.Deposit(context.Background(), &types.Account{AccountNo: faker.CCNumber()}, randomAmount())
				},
				assert: func(t *testing.T, initial decimal.Decimal, got *types.Account, err error) {
					assert.True(t, errors.Is(err, types.ErrAccountNotFound))
				},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			account, _ := env.createAccount(t, tt.initial)
			got, err := tt.run(env, account)
			tt.assert(t, tt.initial, got, err)
			env.assertLedgerConsistent(t, account.AccountNo, tt.initial)
			if err != nil {
				transactions, listErr := env.storage.ListTransactions(context.Background(), account.AccountNo, 0)
				if assert.NoError(t, listErr) {
					assert.Len(t, transactions, 0, "Failed operation must not record transactions")
				}
			}
		})
	}
}

func Test_Engine_ConcurrentWithdrawals(t *testing.T) {
	env := newTestEnv(t)
	initial := decimal.NewFromInt(1000)
	account, _ := env.createAccount(t, initial)

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Withdraw(context.Background(), account, decimal.NewFromInt(600))
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, types.ErrInsufficientFunds):
			insufficient++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	got, err := env.storage.GetAccountByNo(context.Background(), account.AccountNo)
	if assert.NoError(t, err) {
		assert.Equal(t, "400.00", got.Balance.StringFixed(types.AmountScale))
	}
	env.assertLedgerConsistent(t, account.AccountNo, initial)
}

func Test_Engine_ConcurrentDeposits(t *testing.T) {
	env := newTestEnv(t)
	initial := randomAmount()
	account, _ := env.createAccount(t, initial)

	const workers = 10
	amount := randomAmount()
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := env.engine.Deposit(context.Background(), account, amount)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := env.storage.GetAccountByNo(context.Background(), account.AccountNo)
	if assert.NoError(t, err) {
		want := initial.Add(amount.Mul(decimal.NewFromInt(workers)))
		assert.True(t, want.Equal(got.Balance), "Expected %v, got %v", want, got.Balance)
	}
	env.assertLedgerConsistent(t, account.AccountNo, initial)
}

func Test_Engine_ChangePassword(t *testing.T) {
	type testCase struct {
		name   string
		run    func(env *testEnv, account *types.Account, password string) (string, error)
		assert func(t *testing.T, env *testEnv, account *types.Account, password string, err error)
	}
	tests := []func() testCase{
		func() testCase {
			newPassword := "new-" + faker.Password()
			return testCase{
				name: "change password",
				run: func(env *testEnv, account *types.Account, password string) (string, error) {
					return newPassword, env.engine.ChangePassword(context.Background(), account, password, newPassword)
				},
				assert: func(t *testing.T, env *testEnv, account *types.Account, password string, err error) {
					if !assert.NoError(t, err) {
						return
					}
					_, err = env.auth.Login(context.Background(), account.AccountNo, password)
					assert.Equal(t, types.ErrAuthenticationFailed, err)
					got, err := env.auth.Login(context.Background(), account.AccountNo, newPassword)
					if assert.NoError(t, err) {
						assert.True(t, account.Balance.Equal(got.Balance))
					}
				},
			}
		},
		func() testCase {
			return testCase{
				name: "wrong old password",
				run: func(env *testEnv, account *types.Account, password string) (string, error) {
					return "", env.engine.ChangePassword(context.Background(), account, "wrong-"+password, faker.Password())
				},
				assert: func(t *testing.T, env *testEnv, account *types.Account, password string, err error) {
					assert.Equal(t, types.ErrAuthenticationFailed, err)
					_, err = env.auth.Login(context.Background(), account.AccountNo, password)
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "empty new password",
				run: func(env *testEnv, account *types.Account, password string) (string, error) {
					return "", env.engine.ChangePassword(context.Background(), account, password, "")
				},
				assert: func(t *testing.T, env *testEnv, account *types.Account, password string, err error) {
					assert.True(t, errors.Is(err, types.ErrValidation))
					_, err = env.auth.Login(context.Background(), account.AccountNo, password)
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			newPassword := strings.Repeat("p", auth.MaxPasswordLength+1)
			return testCase{
				name: "new password longer than 72 bytes",
				run: func(env *testEnv, account *types.Account, password string) (string, error) {
					return "", env.engine.ChangePassword(context.Background(), account, password, newPassword)
				},
				assert: func(t *testing.T, env *testEnv, account *types.Account, password string, err error) {
					assert.True(t, errors.Is(err, types.ErrInvalidAccount))
					assert.True(t, errors.Is(err, types.ErrValidation))
					_, err = env.auth.Login(context.Background(), account.AccountNo, password)
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "unknown account",
				run: func(env *testEnv, account *types.Account, password string) (string, error) {
					unknown := &types.Account{AccountNo: faker.CCNumber()}
					return "", env.engine.ChangePassword(context.Background(), unknown, password, faker.Password())
				},
				assert: func(t *testing.T, env *testEnv, account *types.Account, password string, err error) {
					assert.Equal(t, types.ErrAuthenticationFailed, err)
				},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			account, password := env.createAccount(t, randomAmount())
			_, err := tt.run(env, account, password)
			tt.assert(t, env, account, password, err)
			transactions, listErr := env.storage.ListTransactions(context.Background(), account.AccountNo, 0)
			if assert.NoError(t, listErr) {
				assert.Len(t, transactions, 0)
			}
		})
	}
}

func Test_Engine_ConcurrentChangePassword(t *testing.T) {
	env := newTestEnv(t)
	account, password := env.createAccount(t, randomAmount())

	const workers = 2
	newPasswords := make([]string, workers)
	errs := make([]error, workers)
	for i := range newPasswords {
		newPasswords[i] = "new-" + faker.Password()
	}
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = env.engine.ChangePassword(context.Background(), account, password, newPasswords[i])
		}(i)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			assert.Equal(t, -1, winner, "Only one change is expected to succeed")
			winner = i
			continue
		}
		assert.Equal(t, types.ErrAuthenticationFailed, err)
	}
	if !assert.NotEqual(t, -1, winner, "One change is expected to succeed") {
		return
	}

	_, err := env.auth.Login(context.Background(), account.AccountNo, password)
	assert.Equal(t, types.ErrAuthenticationFailed, err)
	for i, newPassword := range newPasswords {
		_, err := env.auth.Login(context.Background(), account.AccountNo, newPassword)
		if i == winner {
			assert.NoError(t, err)
		} else {
			assert.Equal(t, types.ErrAuthenticationFailed, err)
		}
	}
}

func Test_Engine_StoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	storage := dal.NewMockStorage(ctrl)
	engine := NewEngine(WithStorage(storage), WithHasher(testHasher))
	account := &types.Account{AccountNo: faker.CCNumber(), Balance: randomAmount()}
	cause := errors.New(faker.Sentence())

	storage.EXPECT().
		CommitBalanceAndTransaction(gomock.Any(), account.AccountNo, gomock.Any()).
		Return(nil, nil, types.StoreUnavailable(cause)).
		Times(2)
	storage.EXPECT().
		UpdateCredential(gomock.Any(), account.AccountNo, gomock.Any()).
		Return(types.StoreUnavailable(cause))
	storage.EXPECT().
		CreateAccount(gomock.Any(), gomock.Any()).
		Return(types.StoreUnavailable(cause))

	_, err := engine.Deposit(context.Background(), account, randomAmount())
	assert.True(t, errors.Is(err, types.ErrStoreUnavailable))
	_, err = engine.Withdraw(context.Background(), account, randomAmount())
	assert.True(t, errors.Is(err, types.ErrStoreUnavailable))
	err = engine.ChangePassword(context.Background(), account, faker.Password(), faker.Password())
	assert.True(t, errors.Is(err, types.ErrStoreUnavailable))
	_, err = engine.CreateAccount(context.Background(), faker.Name(), faker.CCNumber(), faker.Password(), types.AccountTypeSaving, decimal.Zero)
	assert.True(t, errors.Is(err, types.ErrStoreUnavailable))
	assert.Equal(t, cause, errors.Cause(err))
}
