package ussd

import (
	"context"
	"regexp"

	"github.com/cryptofono/cryptofono/internal/account"
	"github.com/cryptofono/cryptofono/internal/metrics"
	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/cryptofono/cryptofono/internal/wallet"
	"go.uber.org/zap"
)

var pinRe = regexp.MustCompile(`^\d{4}$`)

// request carries one decoded gateway exchange through a flow.
type request struct {
	phone   string
	account *model.Account // nil until registration completes
	entries []string
}

func (r *request) last() string { return r.entries[len(r.entries)-1] }

type handlerFunc func(ctx context.Context, req *request) (Response, error)

// pattern is a fixed-shape prefix match over the entry list: it matches when
// the list has exactly len(pattern) entries and every non-wildcard position
// is equal. "*" matches any single entry.
type pattern []string

func (p pattern) matches(entries []string) bool {
	if len(entries) != len(p) {
		return false
	}
	for i, want := range p {
		if want != "*" && entries[i] != want {
			return false
		}
	}
	return true
}

// route binds one pattern to a handler. prefix routes match any entry list
// strictly longer than the pattern; they back the transfer wizards, which
// consume a variable number of trailing entries.
type route struct {
	pat      pattern
	isPrefix bool
	fn       handlerFunc
}

func (r route) matches(entries []string) bool {
	if !r.isPrefix {
		return r.pat.matches(entries)
	}
	if len(entries) <= len(r.pat) {
		return false
	}
	return r.pat.matches(entries[:len(r.pat)])
}

// flow is an ordered route table; the first match wins, anything else falls
// through to the flow's canonical invalid-option response.
type flow struct {
	name     string
	routes   []route
	fallback handlerFunc
}

func (f *flow) dispatch(ctx context.Context, req *request) (Response, error) {
	for _, rt := range f.routes {
		if rt.matches(req.entries) {
			return rt.fn(ctx, req)
		}
	}
	return f.fallback(ctx, req)
}

// Router re-derives the session position from the entry list on every call;
// nothing is kept between requests. Dispatch: empty list -> welcome prompt,
// unknown phone -> registration flow, one entry -> PIN login, deeper ->
// account-type flow.
type Router struct {
	accounts *account.Service
	wallets  *wallet.Service
	log      *zap.Logger

	registration *flow
	regular      *flow
	merchant     *flow
}

func NewRouter(accounts *account.Service, wallets *wallet.Service, log *zap.Logger) *Router {
	r := &Router{
		accounts: accounts,
		wallets:  wallets,
		log:      log,
	}
	r.registration = r.registrationFlow()
	r.regular = r.regularFlow()
	r.merchant = r.merchantFlow()
	return r
}

// Handle processes one gateway exchange. It returns an error only for
// unexpected failures (store unreachable, broken invariants); the HTTP layer
// converts those into the one generic END message.
func (r *Router) Handle(ctx context.Context, phone, text string) (Response, error) {
	entries := DecodeEntries(text)

	acct, err := r.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return Response{}, err
	}

	res, err := r.route(ctx, &request{phone: phone, account: acct, entries: entries})
	if err != nil {
		return Response{}, err
	}

	metrics.UssdRequestsTotal.WithLabelValues(r.flowLabel(acct, entries), replyLabel(res)).Inc()

	return res, nil
}

func (r *Router) route(ctx context.Context, req *request) (Response, error) {
	// Session start: decide between login and registration.
	if len(req.entries) == 0 {
		if req.account != nil {
			return Con("Welcome back to Cryptofono\nEnter your 4-digit PIN:"), nil
		}
		return Con("Welcome to Cryptofono\nLet's create your account!\nChoose Account Type:\n1. Regular User\n2. Merchant"), nil
	}

	// Unknown phone at any depth: the whole history belongs to registration.
	if req.account == nil {
		return r.registration.dispatch(ctx, req)
	}

	// A registration-shaped history with a known account means the account
	// was created earlier in this same session; keep serving that flow.
	if res, handled, err := r.registrationContinuation(ctx, req); handled || err != nil {
		return res, err
	}

	// First entry is always the login PIN.
	pin := req.entries[0]
	if !pinRe.MatchString(pin) {
		return End("PIN must be 4 digits. Please try again."), nil
	}
	ok, err := r.accounts.ValidatePIN(ctx, req.phone, pin)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return End("Invalid PIN. Please try again."), nil
	}

	if len(req.entries) == 1 {
		if req.account.IsMerchant() {
			return Con("Login successful!\n%s", merchantMenuOptions), nil
		}
		return Con("Login successful!\n%s", regularMenuOptions), nil
	}

	// Reserved digits, checked before any flow branching: "0" returns to the
	// root menu, the flow's exit digit terminates.
	last := req.last()
	if last == "0" {
		if req.account.IsMerchant() {
			return merchantMenu(), nil
		}
		return regularMenu(), nil
	}
	if r.isExitDigit(req.account, last) {
		return End(msgGoodbye), nil
	}

	if req.account.IsMerchant() {
		return r.merchant.dispatch(ctx, req)
	}
	return r.regular.dispatch(ctx, req)
}

func (r *Router) isExitDigit(acct *model.Account, entry string) bool {
	if entry == "9" {
		return true
	}
	return acct.IsMerchant() && entry == "7"
}

func (r *Router) flowLabel(acct *model.Account, entries []string) string {
	switch {
	case acct == nil:
		return "registration"
	case len(entries) <= 1:
		return "login"
	case acct.IsMerchant():
		return "merchant"
	default:
		return "regular"
	}
}

func replyLabel(res Response) string {
	if res.End {
		return "end"
	}
	return "con"
}
