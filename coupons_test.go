package main

import (
	"fmt"
	"testing"
)

func couponCardHTML(code, description, terms string) string {
	return fmt.Sprintf(`<div class="xKU6G">
		<span class="_3vb2y">%s</span>
		<div class="BT4Uo">%s</div>
		<div class="_3J1AT">%s</div>
	</div>`, code, description, terms)
}

func TestParseCouponsSkipsCardsWithoutCode(t *testing.T) {
	html := couponCardHTML("SAVE100", "Flat ₹100 off", "On orders above ₹199") +
		couponCardHTML("", "Mystery offer", "") +
		couponCardHTML("FREEDEL", "Free delivery", "")

	coupons, err := parseCoupons(html, DefaultConfig().Selectors)
	if err != nil {
		t.Fatalf("Expected parse to succeed, got error: %v", err)
	}

	if len(coupons) != 2 {
		t.Fatalf("Expected 2 coupons, got %d", len(coupons))
	}
	if coupons[0].Code != "SAVE100" || coupons[1].Code != "FREEDEL" {
		t.Errorf("Expected codes [SAVE100 FREEDEL], got [%s %s]", coupons[0].Code, coupons[1].Code)
	}
	if coupons[0].Terms != "On orders above ₹199" {
		t.Errorf("Expected terms to be parsed, got %q", coupons[0].Terms)
	}
}

func TestParseCouponsScopedToAvailableSection(t *testing.T) {
	// The popup lists unusable offers under their own heading; only cards in
	// the redeemable section may be considered.
	html := `<div>
		<h2>Available Coupons</h2>
		<div>` + couponCardHTML("SAVE100", "Flat ₹100 off", "") + `</div>
		<h2>Other offers</h2>
		<div>` + couponCardHTML("NOTYOURS", "Flat ₹500 off", "") + `</div>
	</div>`

	coupons, err := parseCoupons(html, DefaultConfig().Selectors)
	if err != nil {
		t.Fatalf("Expected parse to succeed, got error: %v", err)
	}

	if len(coupons) != 1 {
		t.Fatalf("Expected 1 coupon from the redeemable section, got %d", len(coupons))
	}
	if coupons[0].Code != "SAVE100" {
		t.Errorf("Expected coupon 'SAVE100', got '%s'", coupons[0].Code)
	}
}

func TestRequiresOtherPayment(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		expected bool
	}{
		{
			name:     "Bank card offer",
			coupon:   Coupon{Code: "BANK50", Description: "₹150 off on Bank cards"},
			expected: true,
		},
		{
			name:     "UPI offer uppercase",
			coupon:   Coupon{Code: "UPI20", Description: "20% off with UPI"},
			expected: true,
		},
		{
			name:     "Keyword in terms only",
			coupon:   Coupon{Code: "X", Description: "Flat ₹75 off", Terms: "Valid on credit transactions"},
			expected: true,
		},
		{
			name:     "Third-party wallet",
			coupon:   Coupon{Code: "WALLET10", Description: "Extra cashback via wallet"},
			expected: true,
		},
		{
			name:     "Plain flat discount",
			coupon:   Coupon{Code: "SAVE100", Description: "Flat ₹100 off"},
			expected: false,
		},
		{
			name:     "Free delivery",
			coupon:   Coupon{Code: "FREEDEL", Description: "Free delivery on your order"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := requiresOtherPayment(tt.coupon); got != tt.expected {
				t.Errorf("requiresOtherPayment() = %v, want %v for %q / %q",
					got, tt.expected, tt.coupon.Description, tt.coupon.Terms)
			}
		})
	}
}

func TestDiscountAmount(t *testing.T) {
	tests := []struct {
		description string
		expected    int
	}{
		{"Flat ₹100 off", 100},
		{"₹50 off, then ₹200 later", 50},
		{"Free delivery", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got := discountAmount(Coupon{Description: tt.description})
			if got != tt.expected {
				t.Errorf("discountAmount(%q) = %d, want %d", tt.description, got, tt.expected)
			}
		})
	}
}

func TestRankCouponsOrderAndFiltering(t *testing.T) {
	coupons := []Coupon{
		{Code: "SMALL", Description: "Flat ₹40 off"},
		{Code: "BANK", Description: "₹500 off on Bank cards"},
		{Code: "BIG", Description: "Flat ₹120 off"},
		{Code: "ALSO40", Description: "Get ₹40 off"},
		{Code: "NODISC", Description: "Free delivery"},
	}

	ranked := rankCoupons(coupons)

	if len(ranked) != 4 {
		t.Fatalf("Expected 4 eligible coupons, got %d", len(ranked))
	}
	for _, c := range ranked {
		if c.Code == "BANK" {
			t.Fatal("Denylisted coupon survived ranking")
		}
	}

	// Non-increasing discount magnitude, stable for ties.
	for i := 1; i < len(ranked); i++ {
		if discountAmount(ranked[i-1]) < discountAmount(ranked[i]) {
			t.Errorf("Ranking not non-increasing at index %d: %d < %d",
				i, discountAmount(ranked[i-1]), discountAmount(ranked[i]))
		}
	}
	if ranked[0].Code != "BIG" {
		t.Errorf("Expected 'BIG' first, got '%s'", ranked[0].Code)
	}
	if ranked[1].Code != "SMALL" || ranked[2].Code != "ALSO40" {
		t.Errorf("Expected tied coupons in parse order [SMALL ALSO40], got [%s %s]",
			ranked[1].Code, ranked[2].Code)
	}
}

func TestSelectBestCoupon(t *testing.T) {
	html := couponCardHTML("SAVE100", "Flat ₹100 off", "") +
		couponCardHTML("BANK50", "₹150 off on Bank cards", "")

	coupon, ok, err := selectBestCoupon(html, DefaultConfig().Selectors)
	if err != nil {
		t.Fatalf("Expected selection to succeed, got error: %v", err)
	}
	if !ok {
		t.Fatal("Expected an eligible coupon to be selected")
	}
	if coupon.Code != "SAVE100" {
		t.Errorf("Expected coupon 'SAVE100', got '%s'", coupon.Code)
	}
}

func TestSelectBestCouponNoneEligible(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"Empty popup", "<div></div>"},
		{"Only ineligible", couponCardHTML("BANK50", "₹150 off on Bank cards", "")},
		{"Only codeless", couponCardHTML("", "Flat ₹100 off", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := selectBestCoupon(tt.html, DefaultConfig().Selectors)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if ok {
				t.Error("Expected no coupon to be selected")
			}
		})
	}
}
