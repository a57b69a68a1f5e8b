// Package payment builds the ways a payee can be paid, as pure deep links.
// Nothing here talks to a payment provider.
package payment

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fkhayef/tripsettle/internal/money"
)

// Method identifies a settlement channel
type Method string

const (
	MethodVenmo  Method = "venmo"
	MethodPayPal Method = "paypal"
	MethodCash   Method = "cash"
)

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	switch m {
	case MethodVenmo, MethodPayPal, MethodCash:
		return true
	}
	return false
}

// Payee is the subset of a member's profile the resolver needs
type Payee struct {
	Name          string
	VenmoUsername string
	PaypalEmail   string
}

// SettlementOption is one way to pay; Link is empty for cash
type SettlementOption struct {
	Method Method `json:"method"`
	Label  string `json:"label"`
	Link   string `json:"link,omitempty"`
}

var venmoUsername = regexp.MustCompile(`^[A-Za-z0-9_-]{5,30}$`)

// Resolver turns stored payee identifiers into settlement options
type Resolver struct {
	validate *validator.Validate
}

// NewResolver creates a resolver
func NewResolver() *Resolver {
	return &Resolver{validate: validator.New()}
}

// ResolveSettlementOptions lists venmo, paypal and cash in that order. An
// identifier that is missing or malformed drops its option; cash is always
// offered.
func (r *Resolver) ResolveSettlementOptions(payee Payee, amount money.Cents, currency, note string) []SettlementOption {
	options := make([]SettlementOption, 0, 3)

	if user, ok := r.venmoUser(payee.VenmoUsername); ok {
		options = append(options, SettlementOption{
			Method: MethodVenmo,
			Label:  "Venmo @" + user,
			Link:   VenmoLink(user, amount, note),
		})
	}

	if email, ok := r.paypalEmail(payee.PaypalEmail); ok {
		options = append(options, SettlementOption{
			Method: MethodPayPal,
			Label:  "PayPal " + email,
			Link:   PayPalLink(email, amount, currency, note),
		})
	}

	options = append(options, SettlementOption{
		Method: MethodCash,
		Label:  "Cash",
	})

	return options
}

func (r *Resolver) venmoUser(raw string) (string, bool) {
	return NormalizeVenmoUsername(raw)
}

// NormalizeVenmoUsername strips a leading @ and reports whether what remains
// is a well-formed Venmo username
func NormalizeVenmoUsername(raw string) (string, bool) {
	user := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if !venmoUsername.MatchString(user) {
		return "", false
	}
	return user, true
}

func (r *Resolver) paypalEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", false
	}
	if err := r.validate.Var(email, "email"); err != nil {
		return "", false
	}
	return email, true
}

// VenmoLink builds a Venmo pay link for an already-validated username
func VenmoLink(user string, amount money.Cents, note string) string {
	q := url.Values{}
	q.Set("txn", "pay")
	q.Set("amount", amount.String())
	q.Set("note", note)
	return "https://venmo.com/" + url.PathEscape(user) + "?" + encodeOrdered(q, "txn", "amount", "note")
}

// PayPalLink builds a PayPal checkout link. The email goes into the business
// parameter, which only works for accounts that accept payments by email.
func PayPalLink(email string, amount money.Cents, currency, note string) string {
	q := url.Values{}
	q.Set("cmd", "_xclick")
	q.Set("business", email)
	q.Set("amount", amount.String())
	q.Set("currency_code", currency)
	q.Set("item_name", note)
	return "https://www.paypal.com/cgi-bin/webscr?" + encodeOrdered(q, "cmd", "business", "amount", "currency_code", "item_name")
}

// encodeOrdered is url.Values.Encode with a caller-chosen key order
func encodeOrdered(q url.Values, keys ...string) string {
	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.Get(k)))
	}
	return b.String()
}
