package ussd

import (
	"fmt"
	"strings"
)

// Response is one gateway reply: a CON response keeps the session open for
// one more entry, an END response terminates it.
type Response struct {
	End  bool
	Body string
}

func Con(format string, args ...any) Response {
	return Response{Body: fmt.Sprintf(format, args...)}
}

func End(format string, args ...any) Response {
	return Response{End: true, Body: fmt.Sprintf(format, args...)}
}

// Render produces the wire form: a literal "CON " or "END " prefix followed
// by the message body.
func (r Response) Render() string {
	if r.End {
		return "END " + r.Body
	}
	return "CON " + r.Body
}

// ---- shared message fragments ----

const (
	navSuffix  = "\n\n0. Back to Main Menu\n9. Exit"
	backSuffix = "\n\n0. Back to Main Menu"

	msgGoodbye        = "Thank you for using Cryptofono. Goodbye!"
	msgInvalidEnd     = "Invalid option. Please try again."
	msgGenericFailure = "An error occurred. Please try again later."

	regularMenuOptions  = "1. Check Balance\n2. Send USDC\n3. Pay a Merchant\n4. View Transactions\n5. My Wallet Address\n6. Exit"
	merchantMenuOptions = "1. Check Balance\n2. View Payments\n3. Withdraw\n4. Share Merchant Code\n5. My Wallet Address\n6. View Withdrawals\n7. Exit"
)

func regularMenu() Response  { return Con("Main Menu:\n%s", regularMenuOptions) }
func merchantMenu() Response { return Con("Main Menu:\n%s", merchantMenuOptions) }

func invalidWithNav() Response { return Con("%s%s", msgInvalidEnd, navSuffix) }

// maskPhone hides all but the last four digits for display.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// shortAddress renders 0xABCDEF...1234 for display in history lines.
func shortAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
