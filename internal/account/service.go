package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/cryptofono/cryptofono/internal/crypto"
	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/cryptofono/cryptofono/internal/repository"
	"github.com/cryptofono/cryptofono/internal/wallet"
	"go.uber.org/zap"
)

var ErrPhoneRegistered = errors.New("phone number already registered")

// Service covers account lifecycle: lookups, PIN validation and
// registration. Wallet setup during registration is best-effort; the wallet
// is created lazily on first use when the provider is down at sign-up time.
type Service struct {
	accounts repository.AccountsRepository
	wallets  *wallet.Service
	log      *zap.Logger
}

func New(accounts repository.AccountsRepository, wallets *wallet.Service, log *zap.Logger) *Service {
	return &Service{accounts: accounts, wallets: wallets, log: log}
}

func (s *Service) GetByPhone(ctx context.Context, phone string) (*model.Account, error) {
	return s.accounts.GetByPhone(ctx, phone)
}

func (s *Service) GetMerchantByCode(ctx context.Context, code string) (*model.Account, error) {
	return s.accounts.GetMerchantByCode(ctx, code)
}

// ValidatePIN compares the PIN digest against the stored hash.
func (s *Service) ValidatePIN(ctx context.Context, phone, pin string) (bool, error) {
	acct, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return false, err
	}
	if acct == nil {
		return false, nil
	}
	return acct.PINHash == crypto.HashPIN(pin), nil
}

// RegisterRegular creates a regular account and tries to set up its wallet.
func (s *Service) RegisterRegular(ctx context.Context, phone, pin string) (*model.Account, error) {
	existing, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneRegistered
	}

	id, err := s.accounts.CreateRegular(ctx, phone, crypto.HashPIN(pin))
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if _, werr := s.wallets.EnsureWallet(ctx, id); werr != nil {
		s.log.Warn("wallet setup deferred at registration",
			zap.Int64("account_id", id), zap.Error(werr))
	}

	return s.accounts.GetByID(ctx, id)
}

// RegisterMerchant creates a merchant account with a generated merchant code
// and tries to set up its wallet. Returns the created account (carrying the
// code).
func (s *Service) RegisterMerchant(ctx context.Context, phone, pin, businessName string) (*model.Account, error) {
	existing, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneRegistered
	}

	code, err := crypto.GenerateMerchantCode(businessName)
	if err != nil {
		return nil, fmt.Errorf("generate merchant code: %w", err)
	}

	id, err := s.accounts.CreateMerchant(ctx, phone, crypto.HashPIN(pin), businessName, code)
	if err != nil {
		return nil, fmt.Errorf("create merchant: %w", err)
	}

	if _, werr := s.wallets.EnsureWallet(ctx, id); werr != nil {
		s.log.Warn("wallet setup deferred at registration",
			zap.Int64("account_id", id), zap.Error(werr))
	}

	return s.accounts.GetByID(ctx, id)
}
