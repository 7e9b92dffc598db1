package main

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	StorefrontURL string `yaml:"storefront_url"`

	PhoneNumber     string `yaml:"phone_number"`
	DeliveryAddress string `yaml:"delivery_address"`

	BrowserProfilePath string `yaml:"browser_profile_path"`
	ScreenshotDir      string `yaml:"screenshot_dir"`

	Headless  bool `yaml:"headless"`
	DebugMode bool `yaml:"debug_mode"`

	PageLoadTimeout int `yaml:"page_load_timeout"`

	// Per-step wait budgets, in seconds. Popup probes use the short budget,
	// ordinary waits the step budget, cart/checkout controls the long one.
	PopupTimeout int `yaml:"popup_timeout"`
	StepTimeout  int `yaml:"step_timeout"`
	LongTimeout  int `yaml:"long_timeout"`

	LoginTimeout      int `yaml:"login_timeout"`
	LoginPollInterval int `yaml:"login_poll_interval"`

	ListenAddr string `yaml:"listen_addr"`

	Selectors SelectorConfig `yaml:"selectors"`

	Catalog Catalog `yaml:"catalog"`
}

// SelectorConfig is the versioned locator set for the storefront UI.
// Locators beginning with // (or .// for element-relative lookups) are XPath,
// the rest are CSS. Entries containing %s are templates filled in at runtime.
type SelectorConfig struct {
	SignInLink          string `yaml:"sign_in_link"`
	PhoneInput          string `yaml:"phone_input"`
	LoginContinueButton string `yaml:"login_continue_button"`

	LocationInput        string `yaml:"location_input"`
	LocationDropdown     string `yaml:"location_dropdown"`
	SavedAddressesHeader string `yaml:"saved_addresses_header"`
	AddressOption        string `yaml:"address_option"`

	HomeSearchBar       string `yaml:"home_search_bar"`
	SearchInput         string `yaml:"search_input"`
	AutosuggestList     string `yaml:"autosuggest_list"`
	FirstSuggestion     string `yaml:"first_suggestion"`
	SearchResults       string `yaml:"search_results"`
	FirstRestaurantCard string `yaml:"first_restaurant_card"`

	MenuSearchButton string `yaml:"menu_search_button"`
	MenuSearchInput  string `yaml:"menu_search_input"`
	FirstDishItem    string `yaml:"first_dish_item"`
	DecrementButton  string `yaml:"decrement_button"`
	AddButton        string `yaml:"add_button"`

	CustomizeContinueButton  string `yaml:"customize_continue_button"`
	StartAfreshButton        string `yaml:"start_afresh_button"`
	CustomizeFooterAddButton string `yaml:"customize_footer_add_button"`
	CustomizationModal       string `yaml:"customization_modal"`
	ModalAddItemButton       string `yaml:"modal_add_item_button"`

	ViewCartButton      string `yaml:"view_cart_button"`
	CheckoutAddressCard string `yaml:"checkout_address_card"`
	ApplyCouponButton   string `yaml:"apply_coupon_button"`
	CouponPopup         string `yaml:"coupon_popup"`
	CouponInput         string `yaml:"coupon_input"`
	CouponApplyLink     string `yaml:"coupon_apply_link"`
	CouponCloseButton   string `yaml:"coupon_close_button"`

	// CSS selectors used to parse coupon cards out of the popup HTML.
	// CouponSection narrows parsing to the redeemable-offers block, so cards
	// listed under other headings are never considered.
	CouponSection     string `yaml:"coupon_section"`
	CouponCard        string `yaml:"coupon_card"`
	CouponCode        string `yaml:"coupon_code"`
	CouponDescription string `yaml:"coupon_description"`
	CouponTerms       string `yaml:"coupon_terms"`

	YayButton           string `yaml:"yay_button"`
	ProceedToPayButton  string `yaml:"proceed_to_pay_button"`
	WalletPaymentMethod string `yaml:"wallet_payment_method"`
	PayButton           string `yaml:"pay_button"`
}

func DefaultConfig() *Config {
	userDataDir := getUserDataDir()

	return &Config{
		StorefrontURL:      "https://www.swiggy.com",
		PhoneNumber:        "",
		DeliveryAddress:    "Home",
		BrowserProfilePath: filepath.Join(userDataDir, "browser-profile"),
		ScreenshotDir:      ".",
		Headless:           false,
		DebugMode:          false,
		PageLoadTimeout:    30,
		PopupTimeout:       2,
		StepTimeout:        5,
		LongTimeout:        7,
		LoginTimeout:       60,
		LoginPollInterval:  2,
		ListenAddr:         ":8000",
		Selectors: SelectorConfig{
			SignInLink:          "//a[text()='Sign in']",
			PhoneInput:          "//input[@id='mobile']",
			LoginContinueButton: "//button[span/text()='CONTINUE']",

			LocationInput:        "#location",
			LocationDropdown:     "//input[@id='location']/following::div[@style='line-height:0'][1]",
			SavedAddressesHeader: "//div[contains(text(), 'Saved addresses')]",
			AddressOption:        "//span[contains(text(), '%s')]",

			HomeSearchBar:       "//div[contains(text(), 'Search for restaurant, item or more')]",
			SearchInput:         "//input[@placeholder='Search for restaurants and food']",
			AutosuggestList:     "//div[contains(@class, '_29yzU')]",
			FirstSuggestion:     "//div[contains(@class, '_29yzU')]//button[@data-testid='autosuggest-item'][1]",
			SearchResults:       "//div[contains(@class, 'Search_widgetsV2__27BBR')]",
			FirstRestaurantCard: "//div[contains(@class, 'Search_widgetsV2__27BBR')]//a[@data-testid='resturant-card-anchor-container'][1]",

			MenuSearchButton: "//button[.//div[text()='Search for dishes']]",
			MenuSearchInput:  "//input[@data-cy='menu-search-header']",
			FirstDishItem:    "(//div[@data-testid='normal-dish-item'])[1]",
			DecrementButton:  ".//button[contains(@class, 'add-button-left-container')]//div[text()='−']",
			AddButton:        ".//button[contains(@class, 'add-button-center-container')]",

			CustomizeContinueButton:  "//button[@data-testid='menu-customize-continue-button']",
			StartAfreshButton:        "//button[contains(@class, 'hoJL8') and text()='Yes, start afresh']",
			CustomizeFooterAddButton: "//button[@data-cy='customize-footer-add-button']",
			CustomizationModal:       "//div[contains(@class, 'styles_container__')]",
			ModalAddItemButton:       "//button[normalize-space()='Add Item']",

			ViewCartButton:      "//button[@id='view-cart-btn']",
			CheckoutAddressCard: "//div[@class='PPJbN' and text()='%s']/ancestor::div[@class='_3FahR']",
			ApplyCouponButton:   "//div[@role='button' and @aria-label='Apply Coupon']",
			CouponPopup:         "//div[contains(@class, '_2qrkp')]",
			CouponInput:         "//input[@placeholder='Enter coupon code']",
			CouponApplyLink:     "//a[text()='APPLY']",
			CouponCloseButton:   "//span[contains(@class, '_1X6No')]",

			CouponSection:     "h2:contains('Available Coupons') + div",
			CouponCard:        "div.xKU6G",
			CouponCode:        "span._3vb2y",
			CouponDescription: "div.BT4Uo",
			CouponTerms:       "div._3J1AT",

			YayButton:           "//button[contains(@class, '_1vTiX') and text()='YAY!']",
			ProceedToPayButton:  "//button[contains(@class, '_4dnMB') and text()='Proceed to Pay']",
			WalletPaymentMethod: "//div[@data-testid='pm_si_container' and .//div[contains(text(), 'Swiggy Money')]]",
			PayButton:           "//button[@data-testid='pm_si_pay_btn' and contains(text(), 'Pay')]",
		},
		Catalog: Catalog{
			{Restaurant: "Beijing Bites", Dishes: []string{"Chicken Schezwan Fried rice", "Honey Chilli Chicken"}},
			{Restaurant: "Quattro - The Leela Bhartiya City Bengaluru", Dishes: []string{"Paneer Tikka", "Chicken Tikka Pizza"}},
			{Restaurant: "Chung Wah", Dishes: []string{"Spring Rolls", "Chicken Lung Fung Soup"}},
			{Restaurant: "Pizza Hut", Dishes: []string{"Margherita Pizza"}},
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	// The login credential may live in the environment instead of the file.
	// This applies on the seed path too, so a first launch with only a .env
	// still logs in.
	if phone := os.Getenv("PHONE_NUMBER"); phone != "" {
		config.PhoneNumber = phone
	}

	if config.BrowserProfilePath != "" {
		if err := os.MkdirAll(config.BrowserProfilePath, 0755); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) popupWait() time.Duration { return time.Duration(c.PopupTimeout) * time.Second }
func (c *Config) stepWait() time.Duration  { return time.Duration(c.StepTimeout) * time.Second }
func (c *Config) longWait() time.Duration  { return time.Duration(c.LongTimeout) * time.Second }
