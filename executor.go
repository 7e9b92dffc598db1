package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ClickOutcome records a run of the click strategy chain: every strategy
// attempted, in order, and the one that finally landed. Err is non-nil only
// when the whole chain was exhausted.
type ClickOutcome struct {
	Attempted []string
	Strategy  string
	Err       error
}

func (o ClickOutcome) Succeeded() bool { return o.Err == nil }

type clickStrategy struct {
	name string
	fn   func() error
}

// runClickChain tries each strategy in order and stops at the first that
// does not error. The chain itself is the only automatic retry in the
// system; callers never re-run it.
func runClickChain(locator string, strategies []clickStrategy) ClickOutcome {
	var out ClickOutcome
	for _, s := range strategies {
		out.Attempted = append(out.Attempted, s.name)
		if err := s.fn(); err == nil {
			out.Strategy = s.name
			return out
		}
	}
	out.Err = &InteractionFailedError{Locator: locator, Attempted: out.Attempted}
	return out
}

// Element is an opaque handle to a located UI element. Handles are owned for
// the duration of a single step and never cached across steps, because the
// page re-renders between them.
type Element interface {
	Click() ClickOutcome
	Input(text string) error
	ScrollIntoView() error
	Text() (string, error)
	HTML() (string, error)
	Find(locator string) (Element, bool)
	ScrollHeight() (int, error)
	ScrollToBottom() error
}

// Executor is the capability layer the workflow drives the page through.
// Every blocking operation is bounded by an explicit timeout; nothing here
// retries beyond the click chain.
type Executor interface {
	WaitVisible(locator string, timeout time.Duration) (Element, error)
	WaitClickable(locator string, timeout time.Duration) (Element, error)
	Probe(locator string) (Element, bool)
	WaitURLContains(fragment string, timeout time.Duration) error
	Screenshot(path string) error
}

// isXPath distinguishes the two locator dialects in the config: XPath
// expressions start with //, (, or .// for element-relative lookups.
func isXPath(locator string) bool {
	return strings.HasPrefix(locator, "//") ||
		strings.HasPrefix(locator, "(") ||
		strings.HasPrefix(locator, "./")
}

type rodExecutor struct {
	page *rod.Page
	log  *zap.Logger
}

func newRodExecutor(page *rod.Page, log *zap.Logger) *rodExecutor {
	return &rodExecutor{page: page, log: log}
}

func (e *rodExecutor) find(locator string, timeout time.Duration) (*rod.Element, error) {
	p := e.page.Timeout(timeout)

	var el *rod.Element
	var err error
	if isXPath(locator) {
		el, err = p.ElementX(locator)
	} else {
		el, err = p.Element(locator)
	}
	if err != nil {
		return nil, &ElementNotFoundError{Locator: locator}
	}
	return el.CancelTimeout(), nil
}

func (e *rodExecutor) WaitVisible(locator string, timeout time.Duration) (Element, error) {
	el, err := e.find(locator, timeout)
	if err != nil {
		return nil, err
	}
	if err := el.Timeout(timeout).WaitVisible(); err != nil {
		return nil, &ElementNotFoundError{Locator: locator}
	}
	return &rodElement{locator: locator, el: el.CancelTimeout(), page: e.page}, nil
}

func (e *rodExecutor) WaitClickable(locator string, timeout time.Duration) (Element, error) {
	el, err := e.find(locator, timeout)
	if err != nil {
		return nil, err
	}
	scoped := el.Timeout(timeout)
	if err := scoped.WaitVisible(); err != nil {
		return nil, &ElementNotFoundError{Locator: locator}
	}
	if err := scoped.WaitEnabled(); err != nil {
		return nil, &ElementNotFoundError{Locator: locator}
	}
	return &rodElement{locator: locator, el: el.CancelTimeout(), page: e.page}, nil
}

// Probe checks for the element right now, without waiting. Used for popup
// polling and the login marker, where absence is a normal answer.
func (e *rodExecutor) Probe(locator string) (Element, bool) {
	var ok bool
	var el *rod.Element
	var err error
	if isXPath(locator) {
		ok, el, err = e.page.HasX(locator)
	} else {
		ok, el, err = e.page.Has(locator)
	}
	if err != nil || !ok {
		return nil, false
	}
	return &rodElement{locator: locator, el: el, page: e.page}, true
}

func (e *rodExecutor) WaitURLContains(fragment string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		info, err := e.page.Info()
		if err == nil && strings.Contains(info.URL, fragment) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return &UnexpectedPageStateError{Detail: fmt.Sprintf("url never contained %q", fragment)}
}

func (e *rodExecutor) Screenshot(path string) error {
	data, err := e.page.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

type rodElement struct {
	locator string
	el      *rod.Element
	page    *rod.Page
}

// Click runs the ordered fallback chain: a direct element click, then a
// simulated pointer move-and-click, then a script-level invocation. The
// storefront's overlays and animations make any single strategy flaky.
func (r *rodElement) Click() ClickOutcome {
	return runClickChain(r.locator, []clickStrategy{
		{name: "direct", fn: func() error {
			return r.el.Click(proto.InputMouseButtonLeft, 1)
		}},
		{name: "pointer", fn: r.pointerClick},
		{name: "script", fn: func() error {
			_, err := r.el.Eval(`() => this.click()`)
			return err
		}},
	})
}

func (r *rodElement) pointerClick() error {
	shape, err := r.el.Shape()
	if err != nil {
		return err
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return fmt.Errorf("element %s has no visible area", r.locator)
	}
	if err := r.page.Mouse.MoveTo(*pt); err != nil {
		return err
	}
	return r.page.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (r *rodElement) Input(text string) error {
	if err := r.el.SelectAllText(); err != nil {
		return err
	}
	return r.el.Input(text)
}

func (r *rodElement) ScrollIntoView() error {
	if err := r.el.ScrollIntoView(); err != nil {
		return err
	}
	// Let the page settle before the next interaction.
	time.Sleep(500 * time.Millisecond)
	return nil
}

func (r *rodElement) Text() (string, error) { return r.el.Text() }

func (r *rodElement) HTML() (string, error) { return r.el.HTML() }

func (r *rodElement) Find(locator string) (Element, bool) {
	var ok bool
	var el *rod.Element
	var err error
	if isXPath(locator) {
		ok, el, err = r.el.HasX(locator)
	} else {
		ok, el, err = r.el.Has(locator)
	}
	if err != nil || !ok {
		return nil, false
	}
	return &rodElement{locator: locator, el: el, page: r.page}, true
}

func (r *rodElement) ScrollHeight() (int, error) {
	res, err := r.el.Eval(`() => this.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (r *rodElement) ScrollToBottom() error {
	_, err := r.el.Eval(`() => this.scrollTo(0, this.scrollHeight)`)
	return err
}
