package main

import (
	"errors"
	"fmt"
	"strings"
)

// Stage identifies a step of the order workflow. Stage names double as the
// prefix of the diagnostic screenshot captured when the step fails.
type Stage string

const (
	StageLogin         Stage = "login"
	StageAddressSelect Stage = "address-selection"
	StageSearch        Stage = "search"
	StageAddDish       Stage = "add-dish"
	StageCheckout      Stage = "checkout"
)

// ErrLoginTimeout means the logged-in marker never appeared within the
// configured ceiling. Manual intervention (completing the OTP in the open
// browser window) can resolve it; the workflow never retries login itself.
var ErrLoginTimeout = errors.New("login not completed within the configured timeout")

// ElementNotFoundError reports a locator that never became visible or
// clickable within its timeout budget.
type ElementNotFoundError struct {
	Locator string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Locator)
}

// InteractionFailedError means every click strategy in the chain was
// exhausted against the element.
type InteractionFailedError struct {
	Locator   string
	Attempted []string
}

func (e *InteractionFailedError) Error() string {
	return fmt.Sprintf("all click strategies failed for %s (attempted: %s)",
		e.Locator, strings.Join(e.Attempted, ", "))
}

// DishNotAvailableError means no catalog dish scored at or above the fuzzy
// match cutoff. The message is part of the API contract.
type DishNotAvailableError struct {
	Query string
}

func (e *DishNotAvailableError) Error() string {
	return fmt.Sprintf("Sorry, the dish '%s' is not available. Please suggest another dish.", e.Query)
}

// RestaurantUnavailableError means the storefront search produced no
// suggestions for the resolved restaurant. The message is part of the API
// contract.
type RestaurantUnavailableError struct {
	Name string
}

func (e *RestaurantUnavailableError) Error() string {
	return fmt.Sprintf("Restaurant '%s' is unavailable right now. Please suggest another dish.", e.Name)
}

// UnexpectedPageStateError reports page content that matched none of the
// known shapes.
type UnexpectedPageStateError struct {
	Detail string
}

func (e *UnexpectedPageStateError) Error() string {
	return fmt.Sprintf("unexpected page state: %s", e.Detail)
}

// StepError is the terminal failure of one placeOrder attempt: the stage
// that failed and its cause. Anything that exhausts its local retry budget
// gets promoted to a StepError; the rest of the attempt is abandoned.
type StepError struct {
	Stage Stage
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }

// failedStage extracts the failing stage from a workflow error, if any.
func failedStage(err error) (Stage, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// isOrderRejection reports whether the error is a business outcome (bad dish,
// closed restaurant) rather than a mechanical step failure. Rejections need
// no diagnostic screenshot.
func isOrderRejection(err error) bool {
	var dish *DishNotAvailableError
	var rest *RestaurantUnavailableError
	return errors.As(err, &dish) || errors.As(err, &rest)
}
