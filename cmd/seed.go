package cmd

import (
	"fmt"
	"log"

	"github.com/cryptofono/cryptofono/internal/config"
	"github.com/cryptofono/cryptofono/internal/crypto"
	"github.com/cryptofono/cryptofono/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo accounts...")

		if err := seedAccounts(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

type seedAccount struct {
	phone        string
	accountType  string
	pin          string
	businessName *string
	merchantCode *string
}

// seedAccounts inserts deterministic demo accounts (idempotent). Wallets are
// created lazily on first use, so only the account rows go in here.
func seedAccounts(dbx *sqlx.DB) error {
	accounts := []seedAccount{
		{phone: "+254700000001", accountType: "regular", pin: "1234"},
		{phone: "+254700000002", accountType: "regular", pin: "1234"},
		{phone: "+254700000003", accountType: "merchant", pin: "4321",
			businessName: strptr("Duka La Mama"), merchantCode: strptr("DLM001")},
		{phone: "+254700000004", accountType: "merchant", pin: "4321",
			businessName: strptr("City Cafe"), merchantCode: strptr("CC0002")},
	}

	// idempotent upsert based on phone_number (UNIQUE)
	const q = `
INSERT INTO accounts
    (phone_number, account_type, pin_hash, business_name, merchant_code, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE
    account_type  = VALUES(account_type),
    business_name = VALUES(business_name),
    merchant_code = VALUES(merchant_code),
    updated_at    = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, a := range accounts {
		if _, err := tx.Exec(q, a.phone, a.accountType, crypto.HashPIN(a.pin), a.businessName, a.merchantCode); err != nil {
			return fmt.Errorf("insert account %q: %w", a.phone, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}

func strptr(s string) *string { return &s }
