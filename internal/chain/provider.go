package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Provider is the custodial wallet/chain service: it holds key material,
// answers balance queries and broadcasts transfers. Calls are synchronous and
// single-shot; the caller never retries.
type Provider interface {
	// CreateWallet derives (or loads) the smart wallet controlled by ownerKey
	// and returns its address.
	CreateWallet(ctx context.Context, ownerKey string) (string, error)
	// Balance returns the fungible token balance of address.
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	// Transfer moves amount from the wallet controlled by ownerKey to the
	// destination address and returns the provider transaction id.
	Transfer(ctx context.Context, ownerKey, to string, amount decimal.Decimal) (string, error)
}

// Error is a provider-reported failure; Reason is surfaced to the user
// verbatim.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// ErrUnavailable is returned when the breaker is open; no call went out.
var ErrUnavailable = &Error{Reason: "Wallet provider temporarily unavailable. Please try again later."}

// HTTPProvider talks JSON to the provider for one configured network.
type HTTPProvider struct {
	network      string
	baseURL      string
	walletPath   string
	balancePath  string
	transferPath string
	client       *http.Client
	br           *MicroBreaker
}

func NewHTTPProvider(
	network, baseURL, walletPath, balancePath, transferPath string,
	timeoutMs, failThreshold, openForMs int,
) *HTTPProvider {
	if timeoutMs <= 0 {
		timeoutMs = 15000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPProvider{
		network:      network,
		baseURL:      baseURL,
		walletPath:   walletPath,
		balancePath:  balancePath,
		transferPath: transferPath,
		client:       &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:           NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

var _ Provider = (*HTTPProvider)(nil)

func (p *HTTPProvider) Network() string { return p.network }

type walletReq struct {
	OwnerKey string `json:"owner_key"`
	Network  string `json:"network"`
}

type walletRes struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}

func (p *HTTPProvider) CreateWallet(ctx context.Context, ownerKey string) (string, error) {
	var res walletRes
	if err := p.post(ctx, p.walletPath, walletReq{OwnerKey: ownerKey, Network: p.network}, &res); err != nil {
		return "", err
	}
	if res.Address == "" {
		return "", &Error{Reason: nonEmpty(res.Error, "provider returned no wallet address")}
	}
	return res.Address, nil
}

type balanceReq struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

type balanceRes struct {
	Balance string `json:"balance"`
	Error   string `json:"error"`
}

func (p *HTTPProvider) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	var res balanceRes
	if err := p.post(ctx, p.balancePath, balanceReq{Address: address, Network: p.network}, &res); err != nil {
		return decimal.Zero, err
	}
	bal, err := decimal.NewFromString(res.Balance)
	if err != nil {
		return decimal.Zero, &Error{Reason: fmt.Sprintf("provider returned unparsable balance %q", res.Balance)}
	}
	return bal, nil
}

type transferReq struct {
	OwnerKey string `json:"owner_key"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
	Network  string `json:"network"`
}

type transferRes struct {
	TxID  string `json:"tx_id"`
	Error string `json:"error"`
}

func (p *HTTPProvider) Transfer(ctx context.Context, ownerKey, to string, amount decimal.Decimal) (string, error) {
	var res transferRes
	if err := p.post(ctx, p.transferPath, transferReq{
		OwnerKey: ownerKey,
		To:       to,
		Amount:   amount.String(),
		Network:  p.network,
	}, &res); err != nil {
		return "", err
	}
	if res.TxID == "" {
		return "", &Error{Reason: nonEmpty(res.Error, "provider returned no transaction id")}
	}
	return res.TxID, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, in, out any) error {
	if !p.br.TryAcquire() {
		return ErrUnavailable
	}

	if err := p.doPost(ctx, path, in, out); err != nil {
		p.br.OnFailure()
		return err
	}

	p.br.OnSuccess()

	return nil
}

func (p *HTTPProvider) doPost(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return &Error{Reason: fmt.Sprintf("wallet provider unreachable: %v", err)}
	}

	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return &Error{Reason: fmt.Sprintf("read provider response: %v", err)}
	}

	if res.StatusCode/100 != 2 {
		// error responses still carry a JSON reason when possible
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return &Error{Reason: nonEmpty(e.Error, fmt.Sprintf("provider %s status=%d", path, res.StatusCode))}
	}

	return json.Unmarshal(body, out)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
