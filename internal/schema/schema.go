// Package schema enforces per-kind structural constraints on card-market
// events before the relay accepts them. Validation is pure: it reads the
// event through its tag accessors and never mutates it.
package schema

import (
	"strconv"
	"strings"

	"github.com/cardbazaar/ledger/internal/event"
)

// ValidationError carries the deduplicated list of issues found in an
// event. Issues are stable short strings suitable for OK reply reasons.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + strings.Join(e.Issues, ", ")
}

// Validate checks the event against its kind's schema. Returns nil when
// the event passes, or a *ValidationError listing every issue found.
// Unknown kinds pass baseline checks only; the relay's kind allow-list
// is the actual gate for unsupported kinds.
func Validate(ev *event.Event) error {
	var issues []string

	if ev.PubKey == "" {
		issues = append(issues, "missing pubkey")
	}

	switch ev.Kind {
	case event.KindCardDefinition:
		issues = append(issues, checkCardDefinition(ev)...)
	case event.KindUserCollection:
		issues = append(issues, checkUserCollection(ev)...)
	case event.KindTradeOffer:
		issues = append(issues, checkTradeOffer(ev)...)
	case event.KindTradeExecution:
		issues = append(issues, checkTradeExecution(ev)...)
	case event.KindPriceAlert:
		issues = append(issues, checkPriceAlert(ev)...)
	case event.KindPortfolioSnapshot:
		issues = append(issues, checkPortfolioSnapshot(ev)...)
	case event.KindTradeCancel:
		issues = append(issues, checkTradeCancel(ev)...)
	}

	issues = dedup(issues)
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func checkCardDefinition(ev *event.Event) []string {
	var issues []string
	if !hasDTagPrefix(ev, "card:") {
		issues = append(issues, "d tag must match card:<id>")
	}
	if _, ok := ev.TagValue("name"); !ok {
		issues = append(issues, "missing name tag")
	}
	if _, ok := ev.TagValue("rarity"); !ok {
		issues = append(issues, "missing rarity tag")
	}
	return issues
}

func checkUserCollection(ev *event.Event) []string {
	if !hasDTagPrefix(ev, "collection:") {
		return []string{"d tag must match collection:<discriminator>"}
	}
	return nil
}

func checkTradeOffer(ev *event.Event) []string {
	var issues []string
	if _, ok := ev.TagValue("card"); !ok {
		issues = append(issues, "missing card tag")
	}
	typ, ok := ev.TagValue("type")
	if !ok || (typ != event.OfferTypeBuy && typ != event.OfferTypeSell && typ != event.OfferTypeExchange) {
		issues = append(issues, "type must be buy, sell or exchange")
	}
	price, hasPrice := ev.TagValue("price")
	_, hasExchange := ev.TagValue("exchange_card")
	if !hasPrice && !hasExchange {
		issues = append(issues, "offer needs price or exchange_card")
	}
	if hasPrice && !isPositiveInt(price) {
		issues = append(issues, "price must be a positive integer")
	}
	if qty, ok := ev.TagValue("quantity"); !ok || !isPositiveInt(qty) {
		issues = append(issues, "quantity must be a positive integer")
	}
	if exp, ok := ev.TagValue("expires_at"); ok && !isInt(exp) {
		issues = append(issues, "expires_at must be an integer")
	}
	return issues
}

func checkTradeExecution(ev *event.Event) []string {
	var issues []string
	for _, name := range []string{"offer_id", "buyer", "seller", "card"} {
		if _, ok := ev.TagValue(name); !ok {
			issues = append(issues, "missing "+name+" tag")
		}
	}
	if qty, ok := ev.TagValue("quantity"); !ok || !isPositiveInt(qty) {
		issues = append(issues, "quantity must be a positive integer")
	}
	if price, ok := ev.TagValue("price"); !ok || !isPositiveInt(price) {
		issues = append(issues, "price must be a positive integer")
	}
	return issues
}

func checkPriceAlert(ev *event.Event) []string {
	var issues []string
	d, _ := ev.TagValue("d")
	if !validAlertDTag(d) {
		issues = append(issues, "d tag must match alert:<card>:<direction>")
	}
	if _, ok := ev.TagValue("card"); !ok {
		issues = append(issues, "missing card tag")
	}
	dir, ok := ev.TagValue("direction")
	if !ok || (dir != event.AlertAbove && dir != event.AlertBelow) {
		issues = append(issues, "direction must be above or below")
	}
	if th, ok := ev.TagValue("threshold"); !ok || !isPositiveInt(th) {
		issues = append(issues, "threshold must be a positive integer")
	}
	return issues
}

func checkPortfolioSnapshot(ev *event.Event) []string {
	var issues []string
	if !hasDTagPrefix(ev, "portfolio:") {
		issues = append(issues, "d tag must match portfolio:<discriminator>")
	}
	if tv, ok := ev.TagValue("total_value"); !ok || !isNumber(tv) {
		issues = append(issues, "total_value must be a number")
	}
	if cc, ok := ev.TagValue("card_count"); !ok || !isNumber(cc) {
		issues = append(issues, "card_count must be a number")
	}
	return issues
}

func checkTradeCancel(ev *event.Event) []string {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == "e" {
			if len(tag) == 2 || tag[len(tag)-1] == "cancel" {
				return nil
			}
		}
	}
	return []string{"cancel needs an e tag referencing the offer"}
}

func hasDTagPrefix(ev *event.Event, prefix string) bool {
	d, ok := ev.TagValue("d")
	return ok && strings.HasPrefix(d, prefix) && len(d) > len(prefix)
}

func validAlertDTag(d string) bool {
	rest, ok := strings.CutPrefix(d, "alert:")
	if !ok {
		return false
	}
	card, dir, ok := strings.Cut(rest, ":")
	return ok && card != "" && (dir == event.AlertAbove || dir == event.AlertBelow)
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isPositiveInt(s string) bool {
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n > 0
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func dedup(issues []string) []string {
	if len(issues) < 2 {
		return issues
	}
	seen := make(map[string]struct{}, len(issues))
	out := issues[:0]
	for _, issue := range issues {
		if _, ok := seen[issue]; ok {
			continue
		}
		seen[issue] = struct{}{}
		out = append(out, issue)
	}
	return out
}
