package ussd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cryptofono/cryptofono/internal/account"
	"github.com/cryptofono/cryptofono/internal/chain"
	"github.com/cryptofono/cryptofono/internal/crypto"
	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/cryptofono/cryptofono/internal/wallet"
)

// ---- in-memory fakes ----

type fakeAccounts struct {
	byID   map[int64]*model.Account
	nextID int64
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[int64]*model.Account{}}
}

func (f *fakeAccounts) GetByPhone(ctx context.Context, phone string) (*model.Account, error) {
	for _, a := range f.byID {
		if a.PhoneNumber == phone {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetMerchantByCode(ctx context.Context, code string) (*model.Account, error) {
	for _, a := range f.byID {
		if a.IsMerchant() && a.MerchantCode != nil && *a.MerchantCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) CreateRegular(ctx context.Context, phone, pinHash string) (int64, error) {
	f.nextID++
	f.byID[f.nextID] = &model.Account{
		ID: f.nextID, PhoneNumber: phone, AccountType: model.AccountRegular, PINHash: pinHash,
	}
	return f.nextID, nil
}

func (f *fakeAccounts) CreateMerchant(ctx context.Context, phone, pinHash, businessName, merchantCode string) (int64, error) {
	f.nextID++
	f.byID[f.nextID] = &model.Account{
		ID: f.nextID, PhoneNumber: phone, AccountType: model.AccountMerchant, PINHash: pinHash,
		BusinessName: &businessName, MerchantCode: &merchantCode,
	}
	return f.nextID, nil
}

type fakeWallets struct {
	byKey map[string]*model.Wallet
}

func walletKey(accountID int64, network string) string {
	return fmt.Sprintf("%d/%s", accountID, network)
}

func (f *fakeWallets) Get(ctx context.Context, accountID int64, network string) (*model.Wallet, error) {
	w, ok := f.byKey[walletKey(accountID, network)]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWallets) Insert(ctx context.Context, w model.Wallet) error {
	f.byKey[walletKey(w.AccountID, w.Network)] = &w
	return nil
}

type fakeTxs struct {
	rows []model.Transaction
}

func (f *fakeTxs) Insert(ctx context.Context, tx *sqlx.Tx, t model.Transaction) error {
	t.CreatedAt = time.Now()
	f.rows = append(f.rows, t)
	return nil
}

func (f *fakeTxs) ListRecent(ctx context.Context, accountID int64, network string, limit int) ([]model.TransactionView, error) {
	var out []model.TransactionView
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		t := f.rows[i]
		if t.Network != network {
			continue
		}
		if t.SenderID == accountID {
			out = append(out, model.TransactionView{Transaction: t, Direction: "sent"})
		} else if t.RecipientID != nil && *t.RecipientID == accountID {
			out = append(out, model.TransactionView{Transaction: t, Direction: "received"})
		}
	}
	return out, nil
}

func (f *fakeTxs) ListWithdrawals(ctx context.Context, accountID int64, network string, limit int) ([]model.Transaction, error) {
	var out []model.Transaction
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		t := f.rows[i]
		if t.SenderID == accountID && t.Type == model.TxWithdraw && t.Network == network {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakePayments struct {
	accounts *fakeAccounts
	rows     []model.MerchantPayment
}

func (f *fakePayments) Insert(ctx context.Context, tx *sqlx.Tx, p model.MerchantPayment) error {
	p.CreatedAt = time.Now()
	f.rows = append(f.rows, p)
	return nil
}

func (f *fakePayments) ListForMerchant(ctx context.Context, merchantID int64, network string, limit int) ([]model.MerchantPayment, error) {
	var out []model.MerchantPayment
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		p := f.rows[i]
		if p.MerchantID != merchantID || p.Network != network {
			continue
		}
		if a, _ := f.accounts.GetByID(ctx, p.CustomerID); a != nil {
			p.CustomerPhone = a.PhoneNumber
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeOutbox struct {
	events int
}

func (f *fakeOutbox) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) error {
	f.events++
	return nil
}

type fakeProvider struct {
	defaultBalance decimal.Decimal
	transferErr    error
	createCalls    int
	transferCalls  int
}

func (f *fakeProvider) CreateWallet(ctx context.Context, ownerKey string) (string, error) {
	f.createCalls++
	return fmt.Sprintf("0x%040x", f.createCalls), nil
}

func (f *fakeProvider) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return f.defaultBalance, nil
}

func (f *fakeProvider) Transfer(ctx context.Context, ownerKey, to string, amount decimal.Decimal) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.transferCalls++
	return fmt.Sprintf("0xhash%04d", f.transferCalls), nil
}

// ---- harness ----

type testEnv struct {
	router   *Router
	accounts *fakeAccounts
	txs      *fakeTxs
	payments *fakePayments
	outbox   *fakeOutbox
	provider *fakeProvider
	acctSvc  *account.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rawDB.Close() })
	// ledger writes only begin/commit here; the row inserts go to the fakes
	for i := 0; i < 32; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	dbx := sqlx.NewDb(rawDB, "sqlmock")

	accounts := newFakeAccounts()
	wallets := &fakeWallets{byKey: map[string]*model.Wallet{}}
	txs := &fakeTxs{}
	payments := &fakePayments{accounts: accounts}
	outbox := &fakeOutbox{}
	provider := &fakeProvider{defaultBalance: decimal.RequireFromString("100")}

	cipher, err := crypto.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	walletSvc := wallet.New(
		dbx, wallets, accounts, txs, payments, outbox,
		provider, cipher, "testnet", decimal.NewFromInt(1), zap.NewNop(),
	)
	acctSvc := account.New(accounts, walletSvc, zap.NewNop())

	return &testEnv{
		router:   NewRouter(acctSvc, walletSvc, zap.NewNop()),
		accounts: accounts,
		txs:      txs,
		payments: payments,
		outbox:   outbox,
		provider: provider,
		acctSvc:  acctSvc,
	}
}

func (e *testEnv) handle(t *testing.T, phone, text string) Response {
	t.Helper()
	res, err := e.router.Handle(context.Background(), phone, text)
	require.NoError(t, err)
	return res
}

func (e *testEnv) seedRegular(t *testing.T, phone, pin string) *model.Account {
	t.Helper()
	a, err := e.acctSvc.RegisterRegular(context.Background(), phone, pin)
	require.NoError(t, err)
	return a
}

func (e *testEnv) seedMerchant(t *testing.T, phone, pin, name string) *model.Account {
	t.Helper()
	a, err := e.acctSvc.RegisterMerchant(context.Background(), phone, pin, name)
	require.NoError(t, err)
	return a
}

const (
	alicePhone    = "+254711000001"
	bobPhone      = "+254711000002"
	merchantPhone = "+254711000009"
	extAddress    = "0x52908400098527886E0F7030069857D2E4169EE7"
)

// ---- registration ----

func TestRegistrationRegular(t *testing.T) {
	env := newTestEnv(t)

	res := env.handle(t, alicePhone, "")
	assert.False(t, res.End)
	assert.Contains(t, res.Body, "Welcome to Cryptofono")
	assert.Contains(t, res.Body, "1. Regular User")

	res = env.handle(t, alicePhone, "1")
	assert.Equal(t, "Create 4-digit PIN:", res.Body)

	res = env.handle(t, alicePhone, "1*12")
	assert.True(t, res.End)
	assert.Equal(t, "PIN must be exactly 4 digits. Please try again.", res.Body)

	res = env.handle(t, alicePhone, "1*1234")
	assert.Equal(t, "Confirm PIN:", res.Body)

	res = env.handle(t, alicePhone, "1*1234*9999")
	assert.True(t, res.End)
	assert.Equal(t, "PINs do not match. Please try again.", res.Body)
	acct, err := env.accounts.GetByPhone(context.Background(), alicePhone)
	require.NoError(t, err)
	assert.Nil(t, acct, "mismatched PINs must not create an account")

	res = env.handle(t, alicePhone, "1*1234*1234")
	assert.False(t, res.End)
	assert.Contains(t, res.Body, "Registration successful! Your testnet USDC wallet is ready.")
	acct, err = env.accounts.GetByPhone(context.Background(), alicePhone)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, model.AccountRegular, acct.AccountType)

	// continue to menu with the same replayed history
	res = env.handle(t, alicePhone, "1*1234*1234*1")
	assert.Contains(t, res.Body, "Main Menu:")
	assert.Contains(t, res.Body, "2. Send USDC")
}

func TestRegistrationMerchant(t *testing.T) {
	env := newTestEnv(t)

	res := env.handle(t, merchantPhone, "2*4321*4321")
	assert.Equal(t, "Enter Business Name:", res.Body)

	res = env.handle(t, merchantPhone, "2*4321*4321* ")
	assert.True(t, res.End)
	assert.Equal(t, "Business name cannot be empty. Please try again.", res.Body)

	res = env.handle(t, merchantPhone, "2*4321*4321*Duka La Mama")
	assert.False(t, res.End)
	assert.Contains(t, res.Body, "Registration successful! Your Merchant Code is: ")

	acct, err := env.accounts.GetByPhone(context.Background(), merchantPhone)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.True(t, acct.IsMerchant())
	require.NotNil(t, acct.MerchantCode)
	assert.Regexp(t, `^DLM\d{3}$`, *acct.MerchantCode)

	res = env.handle(t, merchantPhone, "2*4321*4321*Duka La Mama*1")
	assert.Contains(t, res.Body, "Main Menu:")
	assert.Contains(t, res.Body, "3. Withdraw")
}

// ---- login ----

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")

	res := env.handle(t, alicePhone, "")
	assert.False(t, res.End)
	assert.Contains(t, res.Body, "Welcome back to Cryptofono")

	res = env.handle(t, alicePhone, "12ab")
	assert.True(t, res.End)
	assert.Equal(t, "PIN must be 4 digits. Please try again.", res.Body)

	res = env.handle(t, alicePhone, "9999")
	assert.True(t, res.End)
	assert.Equal(t, "Invalid PIN. Please try again.", res.Body)

	res = env.handle(t, alicePhone, "1234")
	assert.False(t, res.End)
	assert.Contains(t, res.Body, "Login successful!")
	assert.Contains(t, res.Body, "1. Check Balance")
}

func TestWrongPINBlocksDeepEntries(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")

	res := env.handle(t, alicePhone, "9999*1")
	assert.True(t, res.End)
	assert.Equal(t, "Invalid PIN. Please try again.", res.Body)
}

// ---- reserved digits ----

func TestReservedDigits(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.seedMerchant(t, merchantPhone, "4321", "City Cafe")

	res := env.handle(t, alicePhone, "1234*2*0")
	assert.Contains(t, res.Body, "Main Menu:")

	res = env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*0")
	assert.Contains(t, res.Body, "Main Menu:", "0 returns to root from any depth")

	res = env.handle(t, alicePhone, "1234*9")
	assert.True(t, res.End)
	assert.Equal(t, "Thank you for using Cryptofono. Goodbye!", res.Body)

	res = env.handle(t, merchantPhone, "4321*7")
	assert.True(t, res.End)
	assert.Equal(t, "Thank you for using Cryptofono. Goodbye!", res.Body)

	// 7 is only an exit for merchants
	res = env.handle(t, alicePhone, "1234*7")
	assert.False(t, res.End)
	assert.Contains(t, res.Body, "Invalid option.")
}

// ---- balance and address ----

func TestBalance(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.provider.defaultBalance = decimal.RequireFromString("12.5")

	res := env.handle(t, alicePhone, "1234*1")
	assert.Contains(t, res.Body, "Your USDC Balance: 12.500000 USDC")
	assert.Contains(t, res.Body, "0. Back to Main Menu")
}

func TestWalletAddress(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")

	res := env.handle(t, alicePhone, "1234*5")
	assert.Contains(t, res.Body, "Your Wallet Address:\n0x")

	// wallet creation happened once, at registration
	assert.Equal(t, 1, env.provider.createCalls)
}

// ---- send to user ----

func TestSendToUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.seedRegular(t, bobPhone, "5678")

	res := env.handle(t, alicePhone, "1234*2")
	assert.Contains(t, res.Body, "Send USDC to:")

	res = env.handle(t, alicePhone, "1234*2*1")
	assert.Contains(t, res.Body, "Enter recipient phone number:")

	res = env.handle(t, alicePhone, "1234*2*1*+254799999999")
	assert.Contains(t, res.Body, "Cryptofono user not found. Please check number and try again.")

	// the invalid entry is consumed without advancing; the next one retries
	res = env.handle(t, alicePhone, "1234*2*1*+254799999999*"+bobPhone)
	assert.Contains(t, res.Body, "Enter amount to send (USDC):")

	res = env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*50")
	assert.Contains(t, res.Body, "Send 50 USDC to Cryptofono user *********0002?")
	assert.Contains(t, res.Body, "1. Confirm")
	assert.Empty(t, env.txs.rows, "nothing written before confirmation")

	res = env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*50*1")
	assert.Contains(t, res.Body, "Successfully sent 50 USDC to Cryptofono user *********0002")

	require.Len(t, env.txs.rows, 1)
	row := env.txs.rows[0]
	assert.Equal(t, model.TxSend, row.Type)
	require.NotNil(t, row.RecipientID)
	assert.Equal(t, "testnet", row.Network)
	assert.Equal(t, decimal.RequireFromString("50").String(), row.Amount.String())
	assert.Equal(t, 1, env.provider.transferCalls)
	assert.Equal(t, 1, env.outbox.events)

	// trailing entries after execution never re-run the transfer
	res = env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*50*1*5")
	assert.Contains(t, res.Body, "Invalid option.")
	assert.Len(t, env.txs.rows, 1)
	assert.Equal(t, 1, env.provider.transferCalls)
}

func TestSendCancelWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.seedRegular(t, bobPhone, "5678")

	res := env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*50*2")
	assert.Contains(t, res.Body, "Transaction cancelled.")
	assert.Empty(t, env.txs.rows)
	assert.Zero(t, env.provider.transferCalls)
	assert.Zero(t, env.outbox.events)
}

func TestSendInvalidConfirmOption(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.seedRegular(t, bobPhone, "5678")

	res := env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*50*3")
	assert.Contains(t, res.Body, "Invalid option. Transaction cancelled.")
	assert.Empty(t, env.txs.rows)
}

func TestInvalidAmountReprompts(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.seedRegular(t, bobPhone, "5678")

	for _, bad := range []string{"abc", "-5"} {
		res := env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*"+bad)
		assert.Contains(t, res.Body, "Invalid amount. Please enter a positive number.", "amount %q", bad)
	}

	// recovering after a bad amount
	res := env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*abc*50")
	assert.Contains(t, res.Body, "Send 50 USDC to Cryptofono user")
}

// ---- send to external address ----

func TestSendExternal(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")

	res := env.handle(t, alicePhone, "1234*2*2")
	assert.Contains(t, res.Body, "Enter recipient address:")

	res = env.handle(t, alicePhone, "1234*2*2*nothex")
	assert.Contains(t, res.Body, "Invalid Ethereum address. Please try again.")

	res = env.handle(t, alicePhone, "1234*2*2*"+extAddress+"*25.5")
	assert.Contains(t, res.Body, "Send 25.5 USDC to external address:\n"+extAddress)

	res = env.handle(t, alicePhone, "1234*2*2*"+extAddress+"*25.5*1")
	assert.Contains(t, res.Body, "Successfully sent 25.5 USDC to "+extAddress+" on testnet")

	require.Len(t, env.txs.rows, 1)
	assert.Equal(t, model.TxExternalSend, env.txs.rows[0].Type)
	assert.Nil(t, env.txs.rows[0].RecipientID)
}

func TestInsufficientBalanceStopsBeforeProvider(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.provider.defaultBalance = decimal.RequireFromString("10")

	res := env.handle(t, alicePhone, "1234*2*2*"+extAddress+"*50*1")
	assert.Contains(t, res.Body, "Insufficient USDC balance on testnet. You have 10.000000 USDC. Need at least 51 USDC (including fees).")
	assert.Zero(t, env.provider.transferCalls, "transfer must not be attempted")
	assert.Empty(t, env.txs.rows)
	assert.Zero(t, env.outbox.events)
}

func TestProviderFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.provider.transferErr = &chain.Error{Reason: "execution reverted"}

	res := env.handle(t, alicePhone, "1234*2*2*"+extAddress+"*50*1")
	assert.Contains(t, res.Body, "Failed to send USDC on testnet: execution reverted")
	assert.Empty(t, env.txs.rows)
	assert.Zero(t, env.outbox.events)
}

func TestProviderUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.provider.transferErr = chain.ErrUnavailable

	res := env.handle(t, alicePhone, "1234*2*2*"+extAddress+"*50*1")
	assert.Contains(t, res.Body, "Wallet provider temporarily unavailable. Please try again later.")
	assert.Empty(t, env.txs.rows)
}

// ---- pay merchant ----

func TestPayMerchant(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	m := env.seedMerchant(t, merchantPhone, "4321", "Duka La Mama")
	code := *m.MerchantCode

	res := env.handle(t, alicePhone, "1234*3")
	assert.Contains(t, res.Body, "Enter merchant code:")

	res = env.handle(t, alicePhone, "1234*3*NOPE99")
	assert.Contains(t, res.Body, "Invalid merchant code. Please check and try again.")

	res = env.handle(t, alicePhone, "1234*3*"+code)
	assert.Contains(t, res.Body, "Pay to: Duka La Mama\nEnter amount (USDC):")

	res = env.handle(t, alicePhone, "1234*3*"+code+"*15")
	assert.Contains(t, res.Body, "Pay 15 USDC to Duka La Mama?")

	res = env.handle(t, alicePhone, "1234*3*"+code+"*15*1")
	assert.Contains(t, res.Body, "Successfully sent 15 USDC to 0x")

	require.Len(t, env.txs.rows, 1)
	assert.Equal(t, model.TxMerchantPayment, env.txs.rows[0].Type)
	require.Len(t, env.payments.rows, 1)
	assert.Equal(t, m.ID, env.payments.rows[0].MerchantID)

	res = env.handle(t, alicePhone, "1234*3*"+code+"*15*2")
	assert.Contains(t, res.Body, "Payment cancelled.")
	assert.Len(t, env.txs.rows, 1)
}

// ---- merchant menu ----

func TestMerchantWithdrawExternal(t *testing.T) {
	env := newTestEnv(t)
	env.seedMerchant(t, merchantPhone, "4321", "City Cafe")

	res := env.handle(t, merchantPhone, "4321*3")
	assert.Contains(t, res.Body, "Withdraw to:")

	res = env.handle(t, merchantPhone, "4321*3*2")
	assert.Contains(t, res.Body, "Enter withdrawal address:")

	res = env.handle(t, merchantPhone, "4321*3*2*"+extAddress)
	assert.Contains(t, res.Body, "Enter amount to withdraw (USDC):")

	res = env.handle(t, merchantPhone, "4321*3*2*"+extAddress+"*30")
	assert.Contains(t, res.Body, "Withdraw 30 USDC to:\n"+extAddress)

	res = env.handle(t, merchantPhone, "4321*3*2*"+extAddress+"*30*1")
	assert.Contains(t, res.Body, "Successfully sent 30 USDC to "+extAddress+" on testnet")
	require.Len(t, env.txs.rows, 1)
	assert.Equal(t, model.TxWithdraw, env.txs.rows[0].Type)

	// withdrawal history shows the shortened address
	res = env.handle(t, merchantPhone, "4321*6")
	assert.Contains(t, res.Body, "Recent Withdrawals:")
	assert.Contains(t, res.Body, "1. Sent 30.00 USDC to 0x5290...9EE7")
}

func TestMerchantWithdrawCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.seedMerchant(t, merchantPhone, "4321", "City Cafe")

	res := env.handle(t, merchantPhone, "4321*3*2*"+extAddress+"*30*2")
	assert.Contains(t, res.Body, "Withdrawal cancelled.")
	assert.Empty(t, env.txs.rows)
}

func TestMerchantShareCode(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedMerchant(t, merchantPhone, "4321", "City Cafe")

	res := env.handle(t, merchantPhone, "4321*4")
	assert.Contains(t, res.Body, "Your Merchant Code is: "+*m.MerchantCode)
	assert.Contains(t, res.Body, "Share this code with customers for payments.")
}

// ---- histories ----

func TestTransactionHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.seedRegular(t, bobPhone, "5678")

	res := env.handle(t, alicePhone, "1234*4")
	assert.Contains(t, res.Body, "No recent transactions found.")

	env.handle(t, alicePhone, "1234*2*1*"+bobPhone+"*50*1")

	res = env.handle(t, alicePhone, "1234*4")
	assert.Contains(t, res.Body, "Recent Transactions:")
	assert.Contains(t, res.Body, "1. Sent 50.00 USDC - ")

	res = env.handle(t, bobPhone, "5678*4")
	assert.Contains(t, res.Body, "1. Received 50.00 USDC - ")
}

func TestMerchantPaymentsHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	m := env.seedMerchant(t, merchantPhone, "4321", "Duka La Mama")

	res := env.handle(t, merchantPhone, "4321*2")
	assert.Contains(t, res.Body, "No recent payments found.")

	env.handle(t, alicePhone, "1234*3*"+*m.MerchantCode+"*15*1")

	res = env.handle(t, merchantPhone, "4321*2")
	assert.Contains(t, res.Body, "Recent Payments:")
	assert.Contains(t, res.Body, "1. Received 15.00 USDC from ***0001 - ")
}

// ---- totality and replay ----

func TestEveryInputGetsAReply(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")

	for _, text := range []string{
		"1234*8", "1234*2*9*9", "1234*1*1*1", "1234*%", "1234*2*3",
	} {
		res, err := env.router.Handle(context.Background(), alicePhone, text)
		require.NoError(t, err, "text %q", text)
		assert.NotEmpty(t, res.Body, "text %q", text)
	}
}

func TestPrefixReplayIsStable(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegular(t, alicePhone, "1234")
	env.seedRegular(t, bobPhone, "5678")

	history := []string{"1234", "1234*2", "1234*2*1", "1234*2*1*" + bobPhone, "1234*2*1*" + bobPhone + "*50"}
	first := make([]string, len(history))
	for i, h := range history {
		first[i] = env.handle(t, alicePhone, h).Body
	}
	for i, h := range history {
		assert.Equal(t, first[i], env.handle(t, alicePhone, h).Body, "replayed %q", h)
	}
}
