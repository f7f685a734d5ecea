package ussd

import (
	"context"
	"strings"
)

// registrationFlow covers unknown phone numbers: account type, PIN, PIN
// confirmation, then either "continue to menu" (regular) or business name
// and merchant creation.
func (r *Router) registrationFlow() *flow {
	return &flow{
		name: "registration",
		routes: []route{
			{pat: pattern{"1"}, fn: r.regPromptPIN},
			{pat: pattern{"2"}, fn: r.regPromptPIN},
			{pat: pattern{"1", "*"}, fn: r.regConfirmPIN},
			{pat: pattern{"2", "*"}, fn: r.regConfirmPIN},
			{pat: pattern{"1", "*", "*"}, fn: r.regCreateRegular},
			{pat: pattern{"2", "*", "*"}, fn: r.regPromptBusinessName},
			{pat: pattern{"2", "*", "*", "*"}, fn: r.regCreateMerchant},
		},
		fallback: func(ctx context.Context, req *request) (Response, error) {
			return End(msgInvalidEnd), nil
		},
	}
}

func (r *Router) regPromptPIN(ctx context.Context, req *request) (Response, error) {
	return Con("Create 4-digit PIN:"), nil
}

func (r *Router) regConfirmPIN(ctx context.Context, req *request) (Response, error) {
	if !pinRe.MatchString(req.entries[1]) {
		return End("PIN must be exactly 4 digits. Please try again."), nil
	}
	return Con("Confirm PIN:"), nil
}

func (r *Router) regCreateRegular(ctx context.Context, req *request) (Response, error) {
	pin, confirm := req.entries[1], req.entries[2]
	if !pinRe.MatchString(pin) {
		return End("PIN must be exactly 4 digits. Please try again."), nil
	}
	if pin != confirm {
		return End("PINs do not match. Please try again."), nil
	}

	if _, err := r.accounts.RegisterRegular(ctx, req.phone, pin); err != nil {
		return Response{}, err
	}
	return Con("Registration successful! Your %s USDC wallet is ready.\n\n1. Continue to menu", r.wallets.Network()), nil
}

func (r *Router) regPromptBusinessName(ctx context.Context, req *request) (Response, error) {
	pin, confirm := req.entries[1], req.entries[2]
	if !pinRe.MatchString(pin) {
		return End("PIN must be exactly 4 digits. Please try again."), nil
	}
	if pin != confirm {
		return End("PINs do not match. Please try again."), nil
	}
	return Con("Enter Business Name:"), nil
}

func (r *Router) regCreateMerchant(ctx context.Context, req *request) (Response, error) {
	pin, confirm := req.entries[1], req.entries[2]
	if !pinRe.MatchString(pin) {
		return End("PIN must be exactly 4 digits. Please try again."), nil
	}
	if pin != confirm {
		return End("PINs do not match. Please try again."), nil
	}

	businessName := strings.TrimSpace(req.entries[3])
	if businessName == "" {
		return End("Business name cannot be empty. Please try again."), nil
	}

	acct, err := r.accounts.RegisterMerchant(ctx, req.phone, pin, businessName)
	if err != nil {
		return Response{}, err
	}

	code := ""
	if acct != nil && acct.MerchantCode != nil {
		code = *acct.MerchantCode
	}
	return Con("Registration successful! Your Merchant Code is: %s\n\n1. Continue to menu", code), nil
}

// registrationContinuation recognizes "continue to menu" entries that follow
// a completed registration: the history is still registration-shaped but the
// account now exists. The embedded PIN must match, otherwise the history is
// handed to the normal login path.
func (r *Router) registrationContinuation(ctx context.Context, req *request) (Response, bool, error) {
	e := req.entries
	if len(e) < 3 || (e[0] != "1" && e[0] != "2") || !pinRe.MatchString(e[1]) || e[1] != e[2] {
		return Response{}, false, nil
	}
	ok, err := r.accounts.ValidatePIN(ctx, req.phone, e[1])
	if err != nil {
		return Response{}, false, err
	}
	if !ok {
		return Response{}, false, nil
	}

	switch {
	case e[0] == "1" && len(e) == 3:
		// replay of the request that created the account
		return Con("Registration successful! Your %s USDC wallet is ready.\n\n1. Continue to menu", r.wallets.Network()), true, nil
	case e[0] == "1" && len(e) == 4 && e[3] == "1":
		return regularMenu(), true, nil
	case e[0] == "2" && len(e) == 4:
		code := ""
		if req.account.MerchantCode != nil {
			code = *req.account.MerchantCode
		}
		return Con("Registration successful! Your Merchant Code is: %s\n\n1. Continue to menu", code), true, nil
	case e[0] == "2" && len(e) == 5 && e[4] == "1":
		return merchantMenu(), true, nil
	}
	return Response{}, false, nil
}
