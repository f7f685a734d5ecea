package ussd

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cryptofono/cryptofono/internal/chain"
	"github.com/cryptofono/cryptofono/internal/crypto"
	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/cryptofono/cryptofono/internal/util"
	"github.com/cryptofono/cryptofono/internal/wallet"
	"go.uber.org/zap"
)

type destKind int

const (
	destUser destKind = iota
	destAddress
	destMerchant
)

type wizardStage int

const (
	stageDest wizardStage = iota
	stageAmount
	stageConfirm
)

// txWizard drives a destination / amount / confirmation sequence. Sessions
// are stateless, so every request replays the full entry history: entries
// after the wizard's base prefix are folded through the stage machine and
// only the response for the final entry is rendered. An invalid entry is
// consumed without advancing the stage, which re-prompts in place. The
// transfer itself runs only when the confirming "1" is the final entry, so
// replays of longer histories never execute twice.
type txWizard struct {
	r    *Router
	op   model.TxType
	dest destKind
	base int // entries consumed by the menu prefix ahead of the wizard

	amountPrompt string
	confirmFmt   string // applied to (amount, destination display)
	cancelMsg    string
	failFmt      string // applied to (network, provider reason)
	failMsg      string
}

func (w *txWizard) handle(ctx context.Context, req *request) (Response, error) {
	rest := req.entries[w.base:]

	stage := stageDest
	var (
		dest        wallet.Destination
		destDisplay string
		merchant    *model.Account
		amount      decimal.Decimal
	)

	for i, entry := range rest {
		final := i == len(rest)-1

		switch stage {
		case stageDest:
			res, ok, err := w.resolveDest(ctx, entry, &dest, &destDisplay, &merchant)
			if err != nil {
				return Response{}, err
			}
			if ok {
				stage = stageAmount
			}
			if final {
				return res, nil
			}

		case stageAmount:
			amt, err := decimal.NewFromString(entry)
			if err != nil || !amt.IsPositive() {
				if final {
					return Con("Invalid amount. Please enter a positive number.%s", backSuffix), nil
				}
				continue
			}
			amount = amt
			stage = stageConfirm
			if final {
				return Con("%s\n\n1. Confirm\n2. Cancel\n0. Back to Main Menu",
					fmt.Sprintf(w.confirmFmt, amount, destDisplay)), nil
			}

		case stageConfirm:
			if !final {
				// The decision was already rendered by an earlier request;
				// whatever follows is not a menu option.
				return invalidWithNav(), nil
			}
			switch entry {
			case "1":
				return w.execute(ctx, req, dest, destDisplay, merchant, amount), nil
			case "2":
				return Con("%s%s", w.cancelMsg, navSuffix), nil
			default:
				return Con("Invalid option. %s%s", w.cancelMsg, navSuffix), nil
			}
		}
	}

	// Unreachable: prefix routes only match with at least one trailing entry.
	return invalidWithNav(), nil
}

func (w *txWizard) resolveDest(ctx context.Context, entry string, dest *wallet.Destination, display *string, merchant **model.Account) (Response, bool, error) {
	switch w.dest {
	case destUser:
		phone := util.NormalizePhone(entry)
		d, err := w.r.wallets.ResolveAccountDestination(ctx, phone)
		if errors.Is(err, wallet.ErrAccountNotFound) {
			return Con("Cryptofono user not found. Please check number and try again.%s", backSuffix), false, nil
		}
		if err != nil {
			return Response{}, false, err
		}
		*dest, *display = d, maskPhone(phone)
		return Con("%s%s", w.amountPrompt, backSuffix), true, nil

	case destAddress:
		if !crypto.IsValidAddress(entry) {
			return Con("Invalid Ethereum address. Please try again.%s", backSuffix), false, nil
		}
		*dest, *display = wallet.Destination{Address: entry}, entry
		return Con("%s%s", w.amountPrompt, backSuffix), true, nil

	default: // destMerchant
		m, d, err := w.r.wallets.ResolveMerchantDestination(ctx, entry)
		if errors.Is(err, wallet.ErrMerchantNotFound) {
			return Con("Invalid merchant code. Please check and try again.%s", backSuffix), false, nil
		}
		if err != nil {
			return Response{}, false, err
		}
		name := ""
		if m.BusinessName != nil {
			name = *m.BusinessName
		}
		*dest, *display, *merchant = d, name, m
		return Con("Pay to: %s\nEnter amount (USDC):%s", name, backSuffix), true, nil
	}
}

func (w *txWizard) execute(ctx context.Context, req *request, dest wallet.Destination, display string, merchant *model.Account, amount decimal.Decimal) Response {
	var err error
	if w.dest == destMerchant {
		_, err = w.r.wallets.PayMerchant(ctx, req.account.ID, merchant, dest, amount)
	} else {
		_, err = w.r.wallets.Send(ctx, req.account.ID, dest, amount, w.op)
	}

	switch {
	case err == nil:
		if w.dest == destUser {
			return Con("Successfully sent %s USDC to Cryptofono user %s%s", amount, display, navSuffix)
		}
		return Con("Successfully sent %s USDC to %s on %s%s", amount, dest.Address, w.r.wallets.Network(), navSuffix)
	case errors.Is(err, wallet.ErrAccountNotFound):
		return Con("Recipient wallet not found. Transaction cancelled.%s", navSuffix)
	case errors.Is(err, chain.ErrUnavailable):
		return Con("%s%s", chain.ErrUnavailable.Error(), navSuffix)
	}

	var insufficient *wallet.InsufficientFundsError
	if errors.As(err, &insufficient) {
		return Con("%s%s", insufficient.Error(), navSuffix)
	}
	var provider *chain.Error
	if errors.As(err, &provider) {
		return Con("%s%s", fmt.Sprintf(w.failFmt, w.r.wallets.Network(), provider.Reason), navSuffix)
	}

	w.r.log.Error("transfer failed",
		zap.String("type", string(w.op)),
		zap.Int64("sender_id", req.account.ID),
		zap.Error(err))
	return Con("%s%s", w.failMsg, navSuffix)
}
