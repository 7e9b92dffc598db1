package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// quantityCleanupAttempts bounds the decrement loop that clears a stale
	// cart quantity left over from a previous session.
	quantityCleanupAttempts = 5

	// popupDismissPasses bounds the transient-dialog dismissal loop after
	// adding a dish to the cart.
	popupDismissPasses = 3

	// couponScrollMaxPasses is a defensive cap on the coupon-list
	// materialization loop. Termination normally comes from two equal
	// consecutive height measurements; the cap only guards against a page
	// that grows forever.
	couponScrollMaxPasses = 40
)

// OrderWorkflow sequences one order end to end: search, resolve, cart,
// checkout, coupon, pay. All requests are serialized against the single
// browser session; interleaved UI actions would corrupt page state.
type OrderWorkflow struct {
	config   *Config
	sessions *SessionManager
	log      *zap.Logger

	mu sync.Mutex
}

func NewOrderWorkflow(config *Config, sessions *SessionManager, log *zap.Logger) *OrderWorkflow {
	return &OrderWorkflow{config: config, sessions: sessions, log: log}
}

// PlaceOrder runs one order attempt for the free-text dish query. After
// every terminal outcome, success or failure, the session is restarted so
// the next request starts from a clean page.
func (w *OrderWorkflow) PlaceOrder(dishQuery string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sessions.Executor() == nil {
		if err := w.sessions.Restart(); err != nil {
			return fmt.Errorf("no active session: %w", err)
		}
	}

	err := w.placeOrder(w.sessions.Executor(), dishQuery)
	if err != nil {
		if isOrderRejection(err) {
			w.log.Info("order rejected", zap.String("dish", dishQuery), zap.String("reason", err.Error()))
		} else {
			w.log.Error("order attempt failed", zap.String("dish", dishQuery), zap.Error(err))
			if stage, ok := failedStage(err); ok {
				w.sessions.CaptureFailure(stage)
			}
		}
	} else {
		w.log.Info("order placed", zap.String("dish", dishQuery))
	}

	if restartErr := w.sessions.Restart(); restartErr != nil {
		w.log.Error("session restart failed", zap.Error(restartErr))
		w.sessions.Close()
	}

	return err
}

func (w *OrderWorkflow) placeOrder(exec Executor, query string) error {
	if err := w.openSearch(exec); err != nil {
		return &StepError{Stage: StageSearch, Cause: err}
	}

	match, err := resolveDish(query, w.config.Catalog)
	if err != nil {
		return err
	}
	w.log.Info("resolved dish",
		zap.String("query", query),
		zap.String("dish", match.Dish),
		zap.String("restaurant", match.Restaurant),
		zap.Int("score", match.Score))

	if err := w.openRestaurant(exec, match); err != nil {
		var unavailable *RestaurantUnavailableError
		if errors.As(err, &unavailable) {
			return err
		}
		return &StepError{Stage: StageSearch, Cause: err}
	}

	if err := w.addDishToCart(exec, match); err != nil {
		return &StepError{Stage: StageAddDish, Cause: err}
	}

	if err := w.checkout(exec); err != nil {
		return &StepError{Stage: StageCheckout, Cause: err}
	}

	return nil
}

// openSearch navigates from the storefront home to the search page.
func (w *OrderWorkflow) openSearch(exec Executor) error {
	sel := w.config.Selectors

	bar, err := exec.WaitClickable(sel.HomeSearchBar, w.config.stepWait())
	if err != nil {
		return err
	}
	if err := clickOrErr(bar); err != nil {
		return err
	}
	return exec.WaitURLContains("/search", w.config.stepWait())
}

// openRestaurant types the resolved restaurant into search, takes the first
// autosuggestion and opens the first result card. No suggestions within the
// budget means the restaurant is unavailable right now.
func (w *OrderWorkflow) openRestaurant(exec Executor, match DishMatch) error {
	sel := w.config.Selectors

	input, err := exec.WaitVisible(sel.SearchInput, w.config.stepWait())
	if err != nil {
		return err
	}
	if err := input.Input(match.Restaurant); err != nil {
		return fmt.Errorf("failed to enter restaurant name: %w", err)
	}

	if _, err := exec.WaitVisible(sel.AutosuggestList, w.config.stepWait()); err != nil {
		return &RestaurantUnavailableError{Name: match.Restaurant}
	}

	suggestion, err := exec.WaitClickable(sel.FirstSuggestion, w.config.stepWait())
	if err != nil {
		return err
	}
	if err := clickOrErr(suggestion); err != nil {
		return err
	}

	if _, err := exec.WaitVisible(sel.SearchResults, w.config.stepWait()); err != nil {
		return err
	}

	card, err := exec.WaitClickable(sel.FirstRestaurantCard, w.config.stepWait())
	if err != nil {
		return err
	}
	return clickOrErr(card)
}

// addDishToCart searches the restaurant menu for the matched dish, clears
// any stale quantity on its row and adds exactly one unit.
func (w *OrderWorkflow) addDishToCart(exec Executor, match DishMatch) error {
	sel := w.config.Selectors

	menuSearch, err := exec.WaitVisible(sel.MenuSearchButton, w.config.longWait())
	if err != nil {
		return err
	}
	if err := menuSearch.ScrollIntoView(); err != nil {
		w.log.Warn("could not scroll menu search into view", zap.Error(err))
	}
	if err := clickOrErr(menuSearch); err != nil {
		return err
	}

	input, err := exec.WaitVisible(sel.MenuSearchInput, w.config.longWait())
	if err != nil {
		return err
	}
	if err := input.Input(match.Dish); err != nil {
		return fmt.Errorf("failed to enter dish name: %w", err)
	}

	dish, err := exec.WaitVisible(sel.FirstDishItem, w.config.longWait())
	if err != nil {
		return err
	}
	if err := dish.ScrollIntoView(); err != nil {
		w.log.Warn("could not scroll dish row into view", zap.Error(err))
	}

	w.clearStaleQuantity(dish)

	add, ok := dish.Find(sel.AddButton)
	if !ok {
		return &UnexpectedPageStateError{Detail: "dish row has no add control"}
	}
	outcome := add.Click()
	if !outcome.Succeeded() {
		// An unconfirmed add would send an empty cart to checkout, so this
		// aborts the order.
		return outcome.Err
	}
	w.log.Info("dish added to cart",
		zap.String("dish", match.Dish),
		zap.String("strategy", outcome.Strategy))

	w.dismissPopups(exec)
	w.confirmCustomization(exec)

	time.Sleep(time.Second)
	return nil
}

// clearStaleQuantity decrements the dish row until its zero-quantity "add"
// presentation returns, so the order always holds exactly one unit. Bounded
// and best-effort: exhausting the budget logs and proceeds.
func (w *OrderWorkflow) clearStaleQuantity(dish Element) {
	sel := w.config.Selectors

	minus, ok := dish.Find(sel.DecrementButton)
	if !ok {
		return
	}
	w.log.Info("stale quantity on dish row, clearing")

	for attempt := 0; attempt < quantityCleanupAttempts; attempt++ {
		if err := clickOrErr(minus); err != nil {
			w.log.Warn("decrement click failed", zap.Error(err))
			return
		}
		time.Sleep(500 * time.Millisecond)

		if _, ok := dish.Find(sel.AddButton); ok {
			return
		}
		if minus, ok = dish.Find(sel.DecrementButton); !ok {
			return
		}
	}
	w.log.Warn("decrement control still present after cleanup budget, proceeding")
}

// dismissPopups polls the known transient dialogs in fixed priority order
// and dismisses any it finds, repeating until a pass finds nothing or the
// pass budget runs out. Multiple dialogs can stack within one pass.
func (w *OrderWorkflow) dismissPopups(exec Executor) {
	sel := w.config.Selectors
	dialogs := []struct {
		name    string
		locator string
	}{
		{"continue-customization", sel.CustomizeContinueButton},
		{"start-afresh", sel.StartAfreshButton},
	}

	for pass := 0; pass < popupDismissPasses; pass++ {
		dismissed := false
		for _, d := range dialogs {
			button, err := exec.WaitClickable(d.locator, w.config.popupWait())
			if err != nil {
				continue
			}
			if err := button.ScrollIntoView(); err != nil {
				w.log.Warn("could not scroll popup into view", zap.Error(err))
			}
			if err := clickOrErr(button); err != nil {
				w.log.Warn("popup dismissal failed",
					zap.String("dialog", d.name), zap.Error(err))
				continue
			}
			w.log.Info("dismissed popup", zap.String("dialog", d.name))
			dismissed = true
		}
		if !dismissed {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// confirmCustomization handles the optional customization footer and modal
// that some dishes raise after the add click. Both are best-effort; their
// absence is the common case.
func (w *OrderWorkflow) confirmCustomization(exec Executor) {
	sel := w.config.Selectors

	if footer, err := exec.WaitClickable(sel.CustomizeFooterAddButton, w.config.popupWait()); err == nil {
		if err := clickOrErr(footer); err != nil {
			w.log.Warn("customization footer click failed", zap.Error(err))
		}
	}

	if _, err := exec.WaitVisible(sel.CustomizationModal, w.config.popupWait()); err == nil {
		if button, err := exec.WaitClickable(sel.ModalAddItemButton, w.config.popupWait()); err == nil {
			if err := clickOrErr(button); err != nil {
				w.log.Warn("customization modal click failed", zap.Error(err))
			}
		}
	}
}

// checkout opens the cart, confirms the delivery address, applies the best
// eligible coupon and pays with the wallet method.
func (w *OrderWorkflow) checkout(exec Executor) error {
	sel := w.config.Selectors

	for _, step := range []struct {
		name    string
		locator string
	}{
		{"view cart", sel.ViewCartButton},
		{"delivery address", fmt.Sprintf(sel.CheckoutAddressCard, w.config.DeliveryAddress)},
		{"apply coupon", sel.ApplyCouponButton},
	} {
		el, err := exec.WaitClickable(step.locator, w.config.longWait())
		if err != nil {
			return err
		}
		if err := el.ScrollIntoView(); err != nil {
			w.log.Warn("scroll failed", zap.String("step", step.name), zap.Error(err))
		}
		if err := clickOrErr(el); err != nil {
			return err
		}
		w.log.Info("checkout step done", zap.String("step", step.name))
	}

	if err := w.applyBestCoupon(exec); err != nil {
		return err
	}

	// Celebratory dialog after a successful coupon application.
	if yay, err := exec.WaitClickable(sel.YayButton, w.config.popupWait()); err == nil {
		if err := clickOrErr(yay); err != nil {
			w.log.Warn("could not dismiss coupon confirmation", zap.Error(err))
		}
	}

	for _, step := range []struct {
		name    string
		locator string
	}{
		{"proceed to pay", sel.ProceedToPayButton},
		{"wallet payment method", sel.WalletPaymentMethod},
		{"pay", sel.PayButton},
	} {
		el, err := exec.WaitClickable(step.locator, w.config.longWait())
		if err != nil {
			return err
		}
		if err := el.ScrollIntoView(); err != nil {
			w.log.Warn("scroll failed", zap.String("step", step.name), zap.Error(err))
		}
		if err := clickOrErr(el); err != nil {
			return err
		}
		w.log.Info("checkout step done", zap.String("step", step.name))
	}

	return nil
}

// applyBestCoupon materializes the lazy coupon list, picks the best eligible
// coupon and applies it. An empty eligible set applies nothing and is a
// successful path.
func (w *OrderWorkflow) applyBestCoupon(exec Executor) error {
	sel := w.config.Selectors

	popup, err := exec.WaitVisible(sel.CouponPopup, w.config.longWait())
	if err != nil {
		return err
	}

	if err := materializeList(popup); err != nil {
		w.log.Warn("could not fully scroll coupon list", zap.Error(err))
	}

	html, err := popup.HTML()
	if err != nil {
		return fmt.Errorf("failed to read coupon popup: %w", err)
	}

	coupon, ok, err := selectBestCoupon(html, sel)
	if err != nil {
		return err
	}
	if !ok {
		w.log.Info("no eligible coupon, proceeding without one")
	} else {
		w.log.Info("applying coupon",
			zap.String("code", coupon.Code),
			zap.String("description", coupon.Description))

		input, err := exec.WaitVisible(sel.CouponInput, w.config.longWait())
		if err != nil {
			return err
		}
		if err := input.Input(coupon.Code); err != nil {
			return fmt.Errorf("failed to enter coupon code: %w", err)
		}

		apply, err := exec.WaitClickable(sel.CouponApplyLink, w.config.longWait())
		if err != nil {
			return err
		}
		if err := clickOrErr(apply); err != nil {
			return err
		}
	}

	if closeBtn, err := exec.WaitClickable(sel.CouponCloseButton, w.config.stepWait()); err == nil {
		if err := clickOrErr(closeBtn); err != nil {
			w.log.Warn("could not close coupon popup", zap.Error(err))
		}
	}
	return nil
}

// materializeList scrolls a lazy-loaded container to the bottom until two
// consecutive scroll-extent measurements are equal, meaning the content has
// stopped growing. The list length is not externally predictable, so the
// loop terminates on the equality condition, with couponScrollMaxPasses as
// a backstop against a misbehaving page.
func materializeList(container Element) error {
	last, err := container.ScrollHeight()
	if err != nil {
		return err
	}

	for pass := 0; pass < couponScrollMaxPasses; pass++ {
		if err := container.ScrollToBottom(); err != nil {
			return err
		}
		time.Sleep(500 * time.Millisecond)

		height, err := container.ScrollHeight()
		if err != nil {
			return err
		}
		if height == last {
			return nil
		}
		last = height
	}
	return nil
}

func clickOrErr(el Element) error {
	if outcome := el.Click(); !outcome.Succeeded() {
		return outcome.Err
	}
	return nil
}
