package main

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Coupon is one offer parsed from the checkout coupon popup. Ephemeral,
// scoped to a single checkout attempt.
type Coupon struct {
	Code        string
	Description string
	Terms       string
}

// paymentKeywords marks coupons that require a payment instrument other than
// the wallet this workflow always pays with. Matched case-insensitively
// against description + terms.
var paymentKeywords = []string{
	"card", "credit", "debit", "bank", "upi", "payment",
	"amazon pay", "wallet", "flash", "cred", "simpl",
}

// discountPattern matches the first currency amount in a coupon description,
// e.g. the 100 in "Flat ₹100 off".
var discountPattern = regexp.MustCompile(`₹(\d+)`)

// parseCoupons extracts coupon cards from the popup's serialized HTML.
// When the redeemable-offers section heading is present, only its cards are
// read; a popup without the heading is parsed whole. Cards without a visible
// code are skipped.
func parseCoupons(html string, sel SelectorConfig) ([]Coupon, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse coupon popup: %w", err)
	}

	scope := doc.Selection
	if sel.CouponSection != "" {
		if section := doc.Find(sel.CouponSection); section.Length() > 0 {
			scope = section
		}
	}

	var coupons []Coupon
	scope.Find(sel.CouponCard).Each(func(i int, card *goquery.Selection) {
		code := strings.TrimSpace(card.Find(sel.CouponCode).First().Text())
		if code == "" {
			return
		}
		coupons = append(coupons, Coupon{
			Code:        code,
			Description: strings.TrimSpace(card.Find(sel.CouponDescription).First().Text()),
			Terms:       strings.TrimSpace(card.Find(sel.CouponTerms).First().Text()),
		})
	})

	return coupons, nil
}

// requiresOtherPayment reports whether the coupon text names a payment
// instrument this workflow cannot use.
func requiresOtherPayment(c Coupon) bool {
	combined := strings.ToLower(c.Description + " " + c.Terms)
	for _, keyword := range paymentKeywords {
		if strings.Contains(combined, keyword) {
			return true
		}
	}
	return false
}

// discountAmount extracts the first ₹-amount in the description; coupons
// without one rank at 0.
func discountAmount(c Coupon) int {
	m := discountPattern.FindStringSubmatch(c.Description)
	if m == nil {
		return 0
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return amount
}

// rankCoupons drops ineligible coupons and orders the rest by descending
// discount amount. The sort is stable so equal discounts keep parse order.
func rankCoupons(coupons []Coupon) []Coupon {
	var eligible []Coupon
	for _, c := range coupons {
		if !requiresOtherPayment(c) {
			eligible = append(eligible, c)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return discountAmount(eligible[i]) > discountAmount(eligible[j])
	})
	return eligible
}

// selectBestCoupon parses the coupon popup HTML and picks the highest-value
// coupon redeemable with the configured payment method. ok is false when no
// eligible coupon exists, which is a valid checkout path, not an error.
func selectBestCoupon(html string, sel SelectorConfig) (Coupon, bool, error) {
	coupons, err := parseCoupons(html, sel)
	if err != nil {
		return Coupon{}, false, err
	}

	ranked := rankCoupons(coupons)
	if len(ranked) == 0 {
		return Coupon{}, false, nil
	}
	return ranked[0], true, nil
}
