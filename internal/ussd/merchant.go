package ussd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cryptofono/cryptofono/internal/model"
	"go.uber.org/zap"
)

func (r *Router) merchantFlow() *flow {
	withdrawUser := &txWizard{
		r:            r,
		op:           model.TxWithdraw,
		dest:         destUser,
		base:         3,
		amountPrompt: "Enter amount to withdraw (USDC):",
		confirmFmt:   "Withdraw %s USDC to Cryptofono user %s?",
		cancelMsg:    "Withdrawal cancelled.",
		failFmt:      "Failed to send USDC on %s: %s",
		failMsg:      "Failed to withdraw USDC. Please try again later.",
	}
	withdrawExternal := &txWizard{
		r:            r,
		op:           model.TxWithdraw,
		dest:         destAddress,
		base:         3,
		amountPrompt: "Enter amount to withdraw (USDC):",
		confirmFmt:   "Withdraw %s USDC to:\n%s",
		cancelMsg:    "Withdrawal cancelled.",
		failFmt:      "Failed to send USDC on %s: %s",
		failMsg:      "Failed to withdraw USDC. Please try again later.",
	}

	return &flow{
		name: "merchant",
		routes: []route{
			{pat: pattern{"*", "1"}, fn: r.checkBalance},
			{pat: pattern{"*", "2"}, fn: r.viewPayments},
			{pat: pattern{"*", "3"}, fn: promptText("Withdraw to:\n1. Cryptofono User\n2. External Wallet Address" + backSuffix)},
			{pat: pattern{"*", "4"}, fn: r.shareMerchantCode},
			{pat: pattern{"*", "5"}, fn: r.walletAddress},
			{pat: pattern{"*", "6"}, fn: r.viewWithdrawals},
			{pat: pattern{"*", "3", "1"}, fn: promptText("Enter recipient phone number:" + backSuffix)},
			{pat: pattern{"*", "3", "2"}, fn: promptText("Enter withdrawal address:" + backSuffix)},
			{pat: pattern{"*", "3", "1"}, isPrefix: true, fn: withdrawUser.handle},
			{pat: pattern{"*", "3", "2"}, isPrefix: true, fn: withdrawExternal.handle},
		},
		fallback: func(ctx context.Context, req *request) (Response, error) {
			return invalidWithNav(), nil
		},
	}
}

func (r *Router) shareMerchantCode(ctx context.Context, req *request) (Response, error) {
	code := ""
	if req.account.MerchantCode != nil {
		code = *req.account.MerchantCode
	}
	return Con("Your Merchant Code is: %s\n\nShare this code with customers for payments.%s", code, navSuffix), nil
}

func (r *Router) viewPayments(ctx context.Context, req *request) (Response, error) {
	payments, err := r.wallets.MerchantPayments(ctx, req.account.ID, historyLimit)
	if err != nil {
		r.log.Error("payment history failed", zap.Int64("account_id", req.account.ID), zap.Error(err))
		return Con("Could not retrieve payments. Please try again later.%s", navSuffix), nil
	}
	if len(payments) == 0 {
		return Con("No recent payments found.%s", navSuffix), nil
	}

	var b strings.Builder
	b.WriteString("Recent Payments:")
	for i, p := range payments {
		last4 := p.CustomerPhone
		if len(last4) > 4 {
			last4 = last4[len(last4)-4:]
		}
		fmt.Fprintf(&b, "\n%d. Received %s USDC from ***%s - %s", i+1, p.Amount.StringFixed(2), last4, historyDate(p.CreatedAt))
	}
	b.WriteString(navSuffix)
	return Con("%s", b.String()), nil
}

func (r *Router) viewWithdrawals(ctx context.Context, req *request) (Response, error) {
	withdrawals, err := r.wallets.MerchantWithdrawals(ctx, req.account.ID, historyLimit)
	if err != nil {
		r.log.Error("withdrawal history failed", zap.Int64("account_id", req.account.ID), zap.Error(err))
		return Con("Could not retrieve withdrawal history. Please try again later.%s", navSuffix), nil
	}
	if len(withdrawals) == 0 {
		return Con("No withdrawal history found.%s", navSuffix), nil
	}

	var b strings.Builder
	b.WriteString("Recent Withdrawals:")
	for i, w := range withdrawals {
		fmt.Fprintf(&b, "\n%d. Sent %s USDC to %s - %s", i+1, w.Amount.StringFixed(2), shortAddress(w.RecipientAddress), historyDate(w.CreatedAt))
	}
	b.WriteString(navSuffix)
	return Con("%s", b.String()), nil
}
