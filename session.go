package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Session is the single browser session: launcher, browser, page and the
// executor bound to that page. Exactly one exists process-wide; it is
// replaced wholesale on restart, never mutated in place.
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	exec     Executor
	stopChan chan bool
}

// SessionManager owns the session lifecycle: open, authenticate, select the
// delivery address, and restart after every terminal order outcome so the
// next request starts from a known-clean page.
type SessionManager struct {
	config *Config
	log    *zap.Logger

	// mu guards session: the liveness watcher can uninstall it while the
	// workflow goroutine reads it.
	mu      sync.Mutex
	session *Session
}

func NewSessionManager(config *Config, log *zap.Logger) *SessionManager {
	return &SessionManager{config: config, log: log}
}

// Executor exposes the current session's UI capability layer.
func (m *SessionManager) Executor() Executor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	return m.session.exec
}

func (m *SessionManager) install(s *Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

// dropSession uninstalls a session whose browser died underneath us, so the
// next order triggers a restart instead of driving a dead page. A session
// replaced in the meantime is left alone.
func (m *SessionManager) dropSession(s *Session) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.mu.Unlock()

	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

// Start opens a fresh browser session, verifies (or performs) login and
// selects the delivery address. A failure here means the system has no
// authenticated session and must not serve requests.
func (m *SessionManager) Start() error {
	if err := m.openBrowser(); err != nil {
		return err
	}

	if err := m.ensureLoggedIn(); err != nil {
		m.CaptureFailure(StageLogin)
		return fmt.Errorf("login failed: %w", err)
	}

	if err := m.selectAddress(); err != nil {
		m.CaptureFailure(StageAddressSelect)
		return fmt.Errorf("address selection failed: %w", err)
	}

	m.log.Info("session ready",
		zap.String("address", m.config.DeliveryAddress))
	return nil
}

// Restart discards the current session and opens a new one. This is the
// system's sole recovery mechanism: one browser launch per order, in
// exchange for guaranteed clean state.
func (m *SessionManager) Restart() error {
	m.log.Info("restarting browser session")
	m.Close()
	if err := m.Start(); err != nil {
		m.Close()
		return err
	}
	return nil
}

func (m *SessionManager) Close() {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()
	if s == nil {
		return
	}

	select {
	case s.stopChan <- true:
	default:
	}

	if s.page != nil {
		s.page.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

func (m *SessionManager) openBrowser() error {
	// Disable leakless mode on Windows to prevent deadlock
	// See: https://github.com/go-rod/rod/issues/853
	useLeakless := runtime.GOOS != "windows"

	l := launcher.New().
		Leakless(useLeakless).
		Headless(m.config.Headless)

	// The persistent profile keeps authentication cookies across process
	// runs, so login usually doesn't repeat every launch.
	if m.config.BrowserProfilePath != "" {
		l = l.UserDataDir(m.config.BrowserProfilePath)
	}

	if chromePath, ok := launcher.LookPath(); ok {
		l = l.Bin(chromePath)
		m.log.Debug("using system chrome", zap.String("path", chromePath))
	}

	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		return fmt.Errorf("failed to create stealth page: %w", err)
	}

	if err := page.Navigate(m.config.StorefrontURL); err != nil {
		browser.Close()
		return fmt.Errorf("failed to navigate to storefront: %w", err)
	}
	if err := page.Timeout(time.Duration(m.config.PageLoadTimeout) * time.Second).WaitLoad(); err != nil {
		browser.Close()
		return fmt.Errorf("storefront failed to load: %w", err)
	}

	s := &Session{
		browser:  browser,
		page:     page,
		launcher: l,
		exec:     newRodExecutor(page, m.log),
		stopChan: make(chan bool, 1),
	}
	m.install(s)
	go m.watchBrowser(s)

	m.log.Info("browser session opened", zap.String("url", m.config.StorefrontURL))
	return nil
}

// watchBrowser probes session liveness so a browser window closed by the
// operator doesn't leave a dead session installed. On loss the session is
// uninstalled, which makes the next order restart immediately.
func (m *SessionManager) watchBrowser(s *Session) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.browser.Version(); err != nil {
				m.log.Warn("browser session lost, discarding it", zap.Error(err))
				m.dropSession(s)
				return
			}
		}
	}
}

// isLoggedIn checks for the sign-in link: present means not logged in.
func (m *SessionManager) isLoggedIn() bool {
	exec := m.Executor()
	if exec == nil {
		return false
	}
	_, present := exec.Probe(m.config.Selectors.SignInLink)
	return !present
}

func (m *SessionManager) ensureLoggedIn() error {
	if m.isLoggedIn() {
		m.log.Info("already logged in")
		return nil
	}
	return m.performLogin()
}

// performLogin triggers credential entry, then polls for the logged-in
// marker up to the configured ceiling. The OTP step happens in the visible
// browser window, so a human can complete login while we poll; hitting the
// ceiling is an operator problem, not something to retry automatically.
func (m *SessionManager) performLogin() error {
	exec := m.Executor()
	if exec == nil {
		return fmt.Errorf("no active session")
	}
	sel := m.config.Selectors

	signIn, err := exec.WaitClickable(sel.SignInLink, m.config.longWait())
	if err != nil {
		return err
	}
	if outcome := signIn.Click(); !outcome.Succeeded() {
		return outcome.Err
	}

	phoneInput, err := exec.WaitVisible(sel.PhoneInput, m.config.longWait())
	if err != nil {
		return err
	}
	if err := phoneInput.Input(m.config.PhoneNumber); err != nil {
		return fmt.Errorf("failed to enter phone number: %w", err)
	}
	m.log.Info("entered login phone number")

	// The continue button is best-effort: the page sometimes advances on
	// its own, and manual login can finish without it.
	if cont, err := exec.WaitClickable(sel.LoginContinueButton, m.config.stepWait()); err == nil {
		if outcome := cont.Click(); outcome.Succeeded() {
			m.log.Info("clicked login continue button")
		}
	} else {
		m.log.Warn("login continue button not found, waiting for manual login")
	}

	return m.waitForLogin()
}

func (m *SessionManager) waitForLogin() error {
	interval := time.Duration(m.config.LoginPollInterval) * time.Second
	deadline := time.Now().Add(time.Duration(m.config.LoginTimeout) * time.Second)

	for time.Now().Before(deadline) {
		if m.isLoggedIn() {
			m.log.Info("login detected")
			return nil
		}
		time.Sleep(interval)
	}
	return ErrLoginTimeout
}

// selectAddress opens the saved-addresses dropdown and picks the configured
// delivery address label.
func (m *SessionManager) selectAddress() error {
	exec := m.Executor()
	if exec == nil {
		return fmt.Errorf("no active session")
	}
	sel := m.config.Selectors

	if _, err := exec.WaitVisible(sel.LocationInput, m.config.stepWait()); err != nil {
		return err
	}

	dropdown, err := exec.WaitClickable(sel.LocationDropdown, m.config.stepWait())
	if err != nil {
		return err
	}
	if outcome := dropdown.Click(); !outcome.Succeeded() {
		return outcome.Err
	}

	if _, err := exec.WaitVisible(sel.SavedAddressesHeader, m.config.stepWait()); err != nil {
		return err
	}

	locator := fmt.Sprintf(sel.AddressOption, m.config.DeliveryAddress)
	address, err := exec.WaitClickable(locator, m.config.longWait())
	if err != nil {
		return err
	}
	if outcome := address.Click(); !outcome.Succeeded() {
		return outcome.Err
	}

	m.log.Info("delivery address selected", zap.String("address", m.config.DeliveryAddress))
	return nil
}

// CaptureFailure saves a full-page screenshot named after the failing stage,
// e.g. add_dish_error.png.
func (m *SessionManager) CaptureFailure(stage Stage) {
	exec := m.Executor()
	if exec == nil {
		return
	}
	name := strings.ReplaceAll(string(stage), "-", "_") + "_error.png"
	path := filepath.Join(m.config.ScreenshotDir, name)
	if err := exec.Screenshot(path); err != nil {
		m.log.Warn("failed to capture failure screenshot",
			zap.String("stage", string(stage)), zap.Error(err))
		return
	}
	m.log.Info("failure screenshot saved", zap.String("path", path))
}
