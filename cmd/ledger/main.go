package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/evgeny-myasishchev/bank-ledger/config"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/app"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/auth"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/history"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/ledger"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	cmd         string
	accountNo   string
	password    string
	newPassword string
	name        string
	accountType string
	amount      string
	limit       int
}

func init() {
	flag.StringVar(&cliArgs.cmd, "cmd", "",
		"Command to run. Available commands: create-account, balance, deposit, withdraw, change-password, history, statement")
	flag.StringVar(&cliArgs.accountNo, "account", "", "Account number")
	flag.StringVar(&cliArgs.password, "password", "", "Account password")
	flag.StringVar(&cliArgs.newPassword, "new-password", "", "New account password (change-password)")
	flag.StringVar(&cliArgs.name, "name", "", "Account holder name (create-account)")
	flag.StringVar(&cliArgs.accountType, "type", string(types.AccountTypeSaving), "Account type: Saving or Current (create-account)")
	flag.StringVar(&cliArgs.amount, "amount", "0", "Amount (create-account, deposit, withdraw)")
	flag.IntVar(&cliArgs.limit, "limit", 0, "Max number of transactions (history). Recent activity if not set")

	flag.Parse()
}

func showHelpAndExit() {
	flag.PrintDefaults()
	os.Exit(1)
}

type services struct {
	auth    auth.Service
	engine  ledger.Engine
	history history.Service
}

func login(ctx context.Context, svc services) (*types.Account, error) {
	return svc.auth.Login(ctx, cliArgs.accountNo, cliArgs.password)
}

func run(ctx context.Context, svc services) error {
	switch cliArgs.cmd {
	case "create-account":
		initialBalance, err := types.ParseAmount(cliArgs.amount)
		if err != nil {
			return err
		}
		account, err := svc.engine.CreateAccount(ctx,
			cliArgs.name,
			cliArgs.accountNo,
			cliArgs.password,
			types.AccountType(cliArgs.accountType),
			initialBalance,
		)
		if err != nil {
			return err
		}
		fmt.Println(account)
	case "balance":
		account, err := login(ctx, svc)
		if err != nil {
			return err
		}
		fmt.Println(account)
	case "deposit", "withdraw":
		amount, err := types.ParseAmount(cliArgs.amount)
		if err != nil {
			return err
		}
		account, err := login(ctx, svc)
		if err != nil {
			return err
		}
		mutate := svc.engine.Deposit
		if cliArgs.cmd == "withdraw" {
			mutate = svc.engine.Withdraw
		}
		if account, err = mutate(ctx, account, amount); err != nil {
			return err
		}
		fmt.Println(account)
	case "change-password":
		account, err := login(ctx, svc)
		if err != nil {
			return err
		}
		if err := svc.engine.ChangePassword(ctx, account, cliArgs.password, cliArgs.newPassword); err != nil {
			return err
		}
		fmt.Println("Password changed")
	case "history":
		account, err := login(ctx, svc)
		if err != nil {
			return err
		}
		var transactions []*types.Transaction
		if cliArgs.limit > 0 {
			transactions, err = svc.history.ListTransactions(ctx, account.AccountNo, cliArgs.limit)
		} else {
			transactions, err = svc.history.Recent(ctx, account.AccountNo)
		}
		if err != nil {
			return err
		}
		for _, trx := range transactions {
			fmt.Println(trx)
		}
	case "statement":
		account, err := login(ctx, svc)
		if err != nil {
			return err
		}
		statement, err := svc.history.Statement(ctx, account.AccountNo)
		if err != nil {
			return err
		}
		fmt.Println(statement.Account)
		for _, trx := range statement.Transactions {
			fmt.Println(trx)
		}
		if statement.Truncated {
			fmt.Println("(older transactions omitted)")
		}
		fmt.Printf("Total deposited: %s\n", statement.TotalDeposited.StringFixed(types.AmountScale))
		fmt.Printf("Total withdrawn: %s\n", statement.TotalWithdrawn.StringFixed(types.AmountScale))
	default:
		showHelpAndExit()
	}
	return nil
}

func main() {
	if cliArgs.cmd == "" || cliArgs.accountNo == "" {
		showHelpAndExit()
	}
	ctx := diag.EnsureOperationID(context.Background())

	appCfg, err := config.LoadAppConfig()
	if err != nil {
		logger.WithError(err).Error(ctx, "Failed to load app config")
		os.Exit(1)
	}

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level.Value())
	})

	injector := app.BootstrapServices(appCfg)

	if err := injector(func(authSvc auth.Service, engine ledger.Engine, historySvc history.Service) error {
		return run(ctx, services{auth: authSvc, engine: engine, history: historySvc})
	}); err != nil {
		logger.WithError(err).Error(ctx, "Command %v failed", cliArgs.cmd)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

