package ussd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cryptofono/cryptofono/internal/model"
	"go.uber.org/zap"
)

const historyLimit = 5

func (r *Router) regularFlow() *flow {
	sendUser := &txWizard{
		r:            r,
		op:           model.TxSend,
		dest:         destUser,
		base:         3,
		amountPrompt: "Enter amount to send (USDC):",
		confirmFmt:   "Send %s USDC to Cryptofono user %s?",
		cancelMsg:    "Transaction cancelled.",
		failFmt:      "Failed to send USDC on %s: %s",
		failMsg:      "Failed to send USDC. Please try again later.",
	}
	sendExternal := &txWizard{
		r:            r,
		op:           model.TxExternalSend,
		dest:         destAddress,
		base:         3,
		amountPrompt: "Enter amount to send (USDC):",
		confirmFmt:   "Send %s USDC to external address:\n%s",
		cancelMsg:    "Transaction cancelled.",
		failFmt:      "Failed to send USDC on %s: %s",
		failMsg:      "Failed to send USDC. Please try again later.",
	}
	payMerchant := &txWizard{
		r:          r,
		op:         model.TxMerchantPayment,
		dest:       destMerchant,
		base:       2,
		confirmFmt: "Pay %s USDC to %s?",
		cancelMsg:  "Payment cancelled.",
		failFmt:    "Failed to pay merchant on %s: %s",
		failMsg:    "Failed to pay merchant. Please try again later.",
	}

	return &flow{
		name: "regular",
		routes: []route{
			{pat: pattern{"*", "1"}, fn: r.checkBalance},
			{pat: pattern{"*", "2"}, fn: promptText("Send USDC to:\n1. Cryptofono User\n2. External Wallet Address" + backSuffix)},
			{pat: pattern{"*", "3"}, fn: promptText("Enter merchant code:" + backSuffix)},
			{pat: pattern{"*", "4"}, fn: r.viewTransactions},
			{pat: pattern{"*", "5"}, fn: r.walletAddress},
			{pat: pattern{"*", "6"}, fn: endGoodbye},
			{pat: pattern{"*", "2", "1"}, fn: promptText("Enter recipient phone number:" + backSuffix)},
			{pat: pattern{"*", "2", "2"}, fn: promptText("Enter recipient address:" + backSuffix)},
			{pat: pattern{"*", "2", "1"}, isPrefix: true, fn: sendUser.handle},
			{pat: pattern{"*", "2", "2"}, isPrefix: true, fn: sendExternal.handle},
			{pat: pattern{"*", "3"}, isPrefix: true, fn: payMerchant.handle},
		},
		fallback: func(ctx context.Context, req *request) (Response, error) {
			return invalidWithNav(), nil
		},
	}
}

func promptText(body string) handlerFunc {
	return func(ctx context.Context, req *request) (Response, error) {
		return Con("%s", body), nil
	}
}

func endGoodbye(ctx context.Context, req *request) (Response, error) {
	return End(msgGoodbye), nil
}

func (r *Router) checkBalance(ctx context.Context, req *request) (Response, error) {
	balance, err := r.wallets.Balance(ctx, req.account.ID)
	if err != nil {
		r.log.Error("balance lookup failed", zap.Int64("account_id", req.account.ID), zap.Error(err))
		return Con("Could not retrieve balance. Please try again later.%s", navSuffix), nil
	}
	return Con("Your USDC Balance: %s USDC%s", balance.StringFixed(6), navSuffix), nil
}

func (r *Router) walletAddress(ctx context.Context, req *request) (Response, error) {
	address, err := r.wallets.Address(ctx, req.account.ID)
	if err != nil {
		r.log.Error("address lookup failed", zap.Int64("account_id", req.account.ID), zap.Error(err))
		return Con("Could not retrieve wallet address. Please try again later.%s", navSuffix), nil
	}
	return Con("Your Wallet Address:\n%s%s", address, navSuffix), nil
}

func (r *Router) viewTransactions(ctx context.Context, req *request) (Response, error) {
	txs, err := r.wallets.RecentTransactions(ctx, req.account.ID, historyLimit)
	if err != nil {
		r.log.Error("transaction history failed", zap.Int64("account_id", req.account.ID), zap.Error(err))
		return Con("Could not retrieve transactions. Please try again later.%s", navSuffix), nil
	}
	if len(txs) == 0 {
		return Con("No recent transactions found.%s", navSuffix), nil
	}

	var b strings.Builder
	b.WriteString("Recent Transactions:")
	for i, tx := range txs {
		verb := "Sent"
		if tx.Direction == "received" {
			verb = "Received"
		}
		fmt.Fprintf(&b, "\n%d. %s %s USDC - %s", i+1, verb, tx.Amount.StringFixed(2), historyDate(tx.CreatedAt))
	}
	b.WriteString(navSuffix)
	return Con("%s", b.String()), nil
}

func historyDate(t time.Time) string { return t.Format("1/2/2006") }
