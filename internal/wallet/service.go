package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cryptofono/cryptofono/internal/chain"
	"github.com/cryptofono/cryptofono/internal/crypto"
	"github.com/cryptofono/cryptofono/internal/metrics"
	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/cryptofono/cryptofono/internal/repository"
	"github.com/cryptofono/cryptofono/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const TransactionsKafkaTopic = "wallet.transactions"

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrMerchantNotFound = errors.New("merchant not found")
)

// InsufficientFundsError is returned by the pre-check, before any provider
// call goes out.
type InsufficientFundsError struct {
	Have    decimal.Decimal
	Need    decimal.Decimal
	Network string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient USDC balance on %s. You have %s USDC. Need at least %s USDC (including fees).",
		e.Network, e.Have.StringFixed(6), e.Need.String())
}

// Destination is a resolved transfer target: always a chain address, plus
// the internal account id when the target is a Cryptofono account.
type Destination struct {
	Address   string
	AccountID *int64
}

// Service orchestrates fund movements for one configured network: wallet
// setup, balance checks, transfers and the durable ledger writes behind
// them. A ledger row is written only after the provider reports success;
// there is no pending state and no retry.
type Service struct {
	db       *sqlx.DB
	wallets  repository.WalletsRepository
	accounts repository.AccountsRepository
	txs      repository.TransactionsRepository
	payments repository.MerchantPaymentsRepository
	outbox   repository.OutboxRepository
	provider chain.Provider
	cipher   *crypto.Cipher

	network   string
	feeMargin decimal.Decimal

	log *zap.Logger
}

// New constructs the orchestrator. The network tag is explicit and fixed at
// construction; nothing here reads ambient process state.
func New(
	db *sqlx.DB,
	wallets repository.WalletsRepository,
	accounts repository.AccountsRepository,
	txs repository.TransactionsRepository,
	payments repository.MerchantPaymentsRepository,
	outbox repository.OutboxRepository,
	provider chain.Provider,
	cipher *crypto.Cipher,
	network string,
	feeMargin decimal.Decimal,
	log *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		wallets:   wallets,
		accounts:  accounts,
		txs:       txs,
		payments:  payments,
		outbox:    outbox,
		provider:  provider,
		cipher:    cipher,
		network:   network,
		feeMargin: feeMargin,
		log:       log,
	}
}

func (s *Service) Network() string { return s.network }

// EnsureWallet returns the account's wallet for the configured network,
// creating one through the provider on first use. The generated owner key is
// stored encrypted; the plaintext never leaves this call.
func (s *Service) EnsureWallet(ctx context.Context, accountID int64) (*model.Wallet, error) {
	w, err := s.wallets.Get(ctx, accountID, s.network)
	if err != nil {
		return nil, fmt.Errorf("wallet lookup: %w", err)
	}
	if w != nil {
		return w, nil
	}

	ownerKey, err := crypto.GenerateOwnerKey()
	if err != nil {
		return nil, fmt.Errorf("generate owner key: %w", err)
	}
	encrypted, err := s.cipher.Encrypt(ownerKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt owner key: %w", err)
	}

	address, err := s.provider.CreateWallet(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	w = &model.Wallet{
		AccountID:    accountID,
		Network:      s.network,
		Address:      address,
		KeyEncrypted: encrypted,
		CreatedAt:    time.Now(),
	}
	if err := s.wallets.Insert(ctx, *w); err != nil {
		return nil, fmt.Errorf("wallet insert: %w", err)
	}

	s.log.Info("wallet created",
		zap.Int64("account_id", accountID),
		zap.String("network", s.network),
		zap.String("address", address))

	return w, nil
}

// Balance reports the account's available token balance via the provider.
func (s *Service) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	w, err := s.EnsureWallet(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.provider.Balance(ctx, w.Address)
}

// Address returns the account's wallet address for the configured network,
// creating the wallet if needed.
func (s *Service) Address(ctx context.Context, accountID int64) (string, error) {
	w, err := s.EnsureWallet(ctx, accountID)
	if err != nil {
		return "", err
	}
	return w.Address, nil
}

// ResolveAccountDestination looks up an internal recipient by phone and
// resolves their wallet address for this network, creating the wallet on
// first use.
func (s *Service) ResolveAccountDestination(ctx context.Context, phone string) (Destination, error) {
	acct, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return Destination{}, fmt.Errorf("recipient lookup: %w", err)
	}
	if acct == nil {
		return Destination{}, ErrAccountNotFound
	}
	w, err := s.EnsureWallet(ctx, acct.ID)
	if err != nil {
		return Destination{}, err
	}
	id := acct.ID
	return Destination{Address: w.Address, AccountID: &id}, nil
}

// ResolveMerchantDestination resolves a merchant code to the merchant's
// wallet address, creating the wallet on first use.
func (s *Service) ResolveMerchantDestination(ctx context.Context, code string) (*model.Account, Destination, error) {
	merchant, err := s.accounts.GetMerchantByCode(ctx, code)
	if err != nil {
		return nil, Destination{}, fmt.Errorf("merchant lookup: %w", err)
	}
	if merchant == nil {
		return nil, Destination{}, ErrMerchantNotFound
	}
	w, err := s.EnsureWallet(ctx, merchant.ID)
	if err != nil {
		return nil, Destination{}, err
	}
	id := merchant.ID
	return merchant, Destination{Address: w.Address, AccountID: &id}, nil
}

// Send executes one transfer: balance pre-check (amount + fee margin) before
// the provider is contacted, a single provider call, then exactly one ledger
// row carrying the provider transaction id. On any failure nothing is
// written.
func (s *Service) Send(ctx context.Context, senderID int64, dest Destination, amount decimal.Decimal, op model.TxType) (*model.Transaction, error) {
	txRow, err := s.execute(ctx, senderID, dest, amount, op)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues(op.String(), "failed").Inc()
		return nil, err
	}

	if err := s.record(ctx, txRow, nil); err != nil {
		// the chain transfer went through; the ledger write must not be lost silently
		s.log.Error("ledger write failed after provider success",
			zap.String("tx_id", txRow.TxID), zap.Error(err))
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	metrics.TransfersTotal.WithLabelValues(op.String(), "completed").Inc()

	return txRow, nil
}

// PayMerchant is Send plus the merchant_payments row; both rows and the
// outbox event commit in one store transaction after provider success.
func (s *Service) PayMerchant(ctx context.Context, customerID int64, merchant *model.Account, dest Destination, amount decimal.Decimal) (*model.Transaction, error) {
	txRow, err := s.execute(ctx, customerID, dest, amount, model.TxMerchantPayment)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues(model.TxMerchantPayment.String(), "failed").Inc()
		return nil, err
	}

	payment := &model.MerchantPayment{
		MerchantID: merchant.ID,
		CustomerID: customerID,
		Amount:     amount,
		TxID:       txRow.TxID,
		Status:     model.TxCompleted,
		Network:    s.network,
	}
	if err := s.record(ctx, txRow, payment); err != nil {
		s.log.Error("merchant payment write failed after provider success",
			zap.String("tx_id", txRow.TxID), zap.Error(err))
		return nil, fmt.Errorf("record merchant payment: %w", err)
	}

	metrics.TransfersTotal.WithLabelValues(model.TxMerchantPayment.String(), "completed").Inc()

	return txRow, nil
}

// execute runs the pre-checks and the single provider call. It builds the
// row to persist but writes nothing itself.
func (s *Service) execute(ctx context.Context, senderID int64, dest Destination, amount decimal.Decimal, op model.TxType) (*model.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}

	w, err := s.EnsureWallet(ctx, senderID)
	if err != nil {
		return nil, err
	}

	balance, err := s.provider.Balance(ctx, w.Address)
	if err != nil {
		return nil, err
	}

	need := amount.Add(s.feeMargin)
	if balance.LessThan(need) {
		return nil, &InsufficientFundsError{Have: balance, Need: need, Network: s.network}
	}

	ownerKey, err := s.cipher.Decrypt(w.KeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt owner key: %w", err)
	}

	txID, err := s.provider.Transfer(ctx, ownerKey, dest.Address, amount)
	if err != nil {
		return nil, err
	}

	return &model.Transaction{
		ID:               util.NewULID(),
		SenderID:         senderID,
		RecipientID:      dest.AccountID,
		RecipientAddress: dest.Address,
		Amount:           amount,
		Type:             op,
		TxID:             txID,
		Status:           model.TxCompleted,
		Network:          s.network,
	}, nil
}

// record persists the ledger row, the optional merchant payment row, and the
// archive outbox event in one transaction.
func (s *Service) record(ctx context.Context, t *model.Transaction, payment *model.MerchantPayment) error {
	env := model.Envelope{
		ID:          t.ID,
		SenderID:    t.SenderID,
		RecipientID: t.RecipientID,
		Address:     t.RecipientAddress,
		Amount:      t.Amount.String(),
		Type:        t.Type,
		TxID:        t.TxID,
		Status:      t.Status,
		Network:     t.Network,
		CreatedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.txs.Insert(ctx, tx, *t); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if payment != nil {
		if err := s.payments.Insert(ctx, tx, *payment); err != nil {
			return fmt.Errorf("insert merchant payment: %w", err)
		}
	}
	if err := s.outbox.Insert(ctx, tx, "transaction", t.ID, TransactionsKafkaTopic, payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}

	return tx.Commit()
}

// ---- history reads ----

func (s *Service) RecentTransactions(ctx context.Context, accountID int64, limit int) ([]model.TransactionView, error) {
	return s.txs.ListRecent(ctx, accountID, s.network, limit)
}

func (s *Service) MerchantPayments(ctx context.Context, merchantID int64, limit int) ([]model.MerchantPayment, error) {
	return s.payments.ListForMerchant(ctx, merchantID, s.network, limit)
}

func (s *Service) MerchantWithdrawals(ctx context.Context, merchantID int64, limit int) ([]model.Transaction, error) {
	return s.txs.ListWithdrawals(ctx, merchantID, s.network, limit)
}
