// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authform

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/logging"
	"github.com/jeranaias/authform/internal/ui/components"
	"github.com/jeranaias/authform/internal/ui/events"
	"github.com/jeranaias/authform/internal/ui/styles"
	"github.com/jeranaias/authform/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

const (
	opSignUp = "sign_up"
	opSignIn = "sign_in"
)

// authResultMsg carries a finished CreateUser or SignIn call back to the
// Update loop.
type authResultMsg struct {
	op      string
	session identity.SignedIn
	err     error
}

// sessionChangedMsg reports that the provider's session file changed on disk.
type sessionChangedMsg struct{}

// =============================================================================
// FOCUS SLOTS
// =============================================================================

// slot is a position in the tab order: the two inputs, then the buttons.
type slot int

const (
	slotNone slot = iota - 1
	slotEmail
	slotPassword
	slotSignUp
	slotSignInOut
	slotCount
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the authentication form. It is used by
// pointer: bus handlers registered in New mutate the same value Update does.
type Model struct {
	provider identity.Provider
	logger   *zap.Logger
	theme    *styles.Theme
	keys     components.FormKeyMap
	fullHelp bool

	// Widgets
	email     components.Field
	password  components.Field
	signUp    components.Button
	signInOut components.Button
	notice    components.Notice
	activity  components.Spinner
	keyboard  *components.Keyboard
	viewport  viewport.Model

	// Subscriptions owned by the form, released by Dispose.
	bus     *events.Bus
	subs    *events.Group
	changes <-chan struct{}

	// Session state
	session identity.Session
	state   ViewState
	pending int

	// Focus
	active Field
	focus  slot

	// Layout
	width  int
	height int
	inset  int
	layout layout

	disposed bool
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. Nil means no logging.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		m.logger = logging.OrNop(logger)
	}
}

// WithTheme sets the theme.
func WithTheme(theme *styles.Theme) Option {
	return func(m *Model) {
		if theme != nil {
			m.theme = theme
		}
	}
}

// WithKeyMap replaces the default key bindings.
func WithKeyMap(keys components.FormKeyMap) Option {
	return func(m *Model) {
		m.keys = keys
	}
}

// WithFullHelp makes the key panel show every binding.
func WithFullHelp(full bool) Option {
	return func(m *Model) {
		m.fullHelp = full
	}
}

// WithBus makes the form publish and listen on an existing bus.
func WithBus(bus *events.Bus) Option {
	return func(m *Model) {
		if bus != nil {
			m.bus = bus
		}
	}
}

// New creates a form bound to provider. The form shows SignedOut until Load
// (or Init) reads the provider's session.
func New(provider identity.Provider, opts ...Option) *Model {
	m := &Model{
		provider: provider,
		logger:   zap.NewNop(),
		theme:    styles.NewTheme("auto"),
		keys:     components.DefaultFormKeyMap(),
		bus:      events.NewBus(),
		subs:     &events.Group{},
		session:  identity.SignedOut{},
		state:    ViewStateFor(identity.SignedOut{}),
		focus:    slotNone,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.email = components.NewField(m.theme, "Email", "you@example.com", false)
	m.password = components.NewField(m.theme, "Password", "password", true)
	m.signUp = components.NewButton(m.theme, SignUpTitle)
	m.signInOut = components.NewButton(m.theme, m.state.ButtonTitle)
	m.notice = components.NewNotice(m.theme)
	m.activity = components.NewSpinner(m.theme, "working")
	m.keyboard = components.NewKeyboard(m.theme, m.bus, m.keys, m.fullHelp)
	m.viewport = viewport.New(0, 0)

	m.subs.Track(m.bus.Subscribe(events.KeyboardWillShow, m.keyboardWillShow))
	m.subs.Track(m.bus.Subscribe(events.KeyboardWillHide, m.keyboardWillHide))
	return m
}

// Init loads the session and starts watching the provider's session file.
func (m *Model) Init() tea.Cmd {
	m.Load()
	return tea.Batch(textinput.Blink, m.startWatching())
}

// Load reads the current session from the provider. Being signed out is not
// an error.
func (m *Model) Load() {
	m.refresh()
	m.logger.Debug("session loaded", zap.String("session", identity.Describe(m.session)))
}

// Dispose releases every subscription the form holds. Nothing the form
// registered fires afterwards, and late provider results are dropped.
func (m *Model) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.subs.Close()
	m.logger.Debug("form disposed")
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ViewState returns the state currently displayed.
func (m *Model) ViewState() ViewState { return m.state }

// Session returns the session the display was last refreshed from.
func (m *Model) Session() identity.Session { return m.session }

// ActiveField returns the input being edited, or NoField.
func (m *Model) ActiveField() Field { return m.active }

// NoticeVisible reports whether the error notice is up.
func (m *Model) NoticeVisible() bool { return m.notice.IsVisible() }

// NoticeMessage returns the text of the error notice.
func (m *Model) NoticeMessage() string { return m.notice.Message() }

// Pending returns the number of sign-up and sign-in calls still in flight.
func (m *Model) Pending() int { return m.pending }

// KeyboardVisible reports whether the key panel is showing.
func (m *Model) KeyboardVisible() bool { return m.keyboard.Visible() }

// Disposed reports whether Dispose has run.
func (m *Model) Disposed() bool { return m.disposed }

// =============================================================================
// OPERATIONS
// =============================================================================

// SubmitSignUp creates an account. It does nothing when either value is
// empty. The returned command runs the provider call off the loop; its
// result arrives in Update.
func (m *Model) SubmitSignUp(email, password string) tea.Cmd {
	if email == "" || password == "" {
		return nil
	}
	return m.authenticate(opSignUp, email, password, m.provider.CreateUser)
}

// SubmitSignInOrOut signs out when someone is signed in and signs in with
// email and password otherwise. Sign-out runs synchronously and a failure
// is only logged.
//
// When the provider's session no longer matches the display (a token
// expired, or another process signed in or out) the press only brings the
// display up to date; the user acts on what they can see.
func (m *Model) SubmitSignInOrOut(email, password string) tea.Cmd {
	current := m.provider.CurrentSession()
	if ViewStateFor(current) != m.state {
		stale := identity.IsSignedIn(current) != identity.IsSignedIn(m.session)
		m.refresh()
		if stale {
			m.logger.Info("session changed outside the form",
				zap.String("session", identity.Describe(m.session)))
			return nil
		}
	}
	if identity.IsSignedIn(m.session) {
		m.signOut()
		return nil
	}
	if email == "" || password == "" {
		return nil
	}
	return m.authenticate(opSignIn, email, password, m.provider.SignIn)
}

func (m *Model) authenticate(op, email, password string, call func(context.Context, string, string) (identity.SignedIn, error)) tea.Cmd {
	m.pending++
	m.logger.Debug("auth request started",
		zap.String("op", op),
		zap.String("email", util.MaskEmail(email)))

	return func() tea.Msg {
		session, err := call(context.Background(), email, password)
		return authResultMsg{op: op, session: session, err: err}
	}
}

func (m *Model) signOut() {
	if err := m.provider.SignOut(context.Background()); err != nil {
		m.logger.Warn("sign out failed", zap.Error(err))
		return
	}
	m.logger.Info("signed out")
	m.refresh()
}

func (m *Model) handleAuthResult(msg authResultMsg) {
	if m.pending > 0 {
		m.pending--
	}
	if m.pending == 0 {
		m.activity = m.activity.Stop()
	}
	if msg.err != nil {
		m.logger.Info("auth request failed", zap.String("op", msg.op), zap.Error(msg.err))
		m.notice.Show(NoticeTitle, identity.AsProviderError(msg.err).Error())
		return
	}
	m.logger.Info("auth request succeeded",
		zap.String("op", msg.op),
		zap.String("email", util.MaskEmail(msg.session.Email)))
	m.refresh()
}

// refresh re-derives the display from the provider. Every successful call
// ends here, so whichever completion arrives last decides what is shown.
func (m *Model) refresh() {
	s := m.provider.CurrentSession()
	if s == nil {
		s = identity.SignedOut{}
	}
	m.session = s
	m.state = ViewStateFor(s)
	m.signInOut.Title = m.state.ButtonTitle
}

// =============================================================================
// FOCUS
// =============================================================================

// FocusField starts editing f and shows the key panel.
func (m *Model) FocusField(f Field) tea.Cmd {
	var cmd tea.Cmd
	switch f {
	case EmailField:
		m.password.Blur()
		cmd = m.email.Focus()
		m.focus = slotEmail
	case PasswordField:
		m.email.Blur()
		cmd = m.password.Focus()
		m.focus = slotPassword
	default:
		return nil
	}
	m.signUp.Blur()
	m.signInOut.Blur()
	m.active = f

	if m.keyboard.Visible() {
		m.scrollToActive()
	} else {
		m.keyboard.Show()
	}
	return cmd
}

// BlurField stops editing f. The key panel hides once nothing is edited.
func (m *Model) BlurField(f Field) {
	if f == NoField || m.active != f {
		return
	}
	switch f {
	case EmailField:
		m.email.Blur()
	case PasswordField:
		m.password.Blur()
	}
	m.active = NoField
	if m.focus == slotEmail || m.focus == slotPassword {
		m.focus = slotNone
	}
	m.keyboard.Hide()
}

// ReturnKey handles return in f. In the password field it ends editing and
// returns false to suppress the default. Elsewhere it returns true and the
// caller moves on to the next input.
func (m *Model) ReturnKey(f Field) bool {
	if f == PasswordField {
		m.DismissKeyboard()
		return false
	}
	return true
}

// DismissKeyboard ends editing.
func (m *Model) DismissKeyboard() {
	m.BlurField(m.active)
}

func (m *Model) focusSlot(s slot) tea.Cmd {
	switch s {
	case slotEmail:
		return m.FocusField(EmailField)
	case slotPassword:
		return m.FocusField(PasswordField)
	}

	m.DismissKeyboard()
	m.signUp.Blur()
	m.signInOut.Blur()
	switch s {
	case slotSignUp:
		m.signUp.Focus()
	case slotSignInOut:
		m.signInOut.Focus()
	default:
		m.focus = slotNone
		return nil
	}
	m.focus = s
	m.scrollTo(m.layout.buttonsTop, components.ButtonHeight)
	return nil
}

func (m *Model) nextSlot(dir int) slot {
	if m.focus == slotNone {
		if dir > 0 {
			return slotEmail
		}
		return slotSignInOut
	}
	return slot((int(m.focus) + dir + int(slotCount)) % int(slotCount))
}

// =============================================================================
// KEYBOARD AVOIDANCE
// =============================================================================

func (m *Model) keyboardWillShow(payload any) {
	frame, _ := payload.(events.KeyboardFrame)
	m.inset = frame.Height
	m.resizeViewport()
	m.scrollToActive()
}

func (m *Model) keyboardWillHide(any) {
	m.inset = 0
	m.resizeViewport()
	m.viewport.SetYOffset(m.viewport.YOffset)
}

// Inset returns the rows currently taken by the key panel.
func (m *Model) Inset() int { return m.inset }

// ScrollOffset returns the first content row shown.
func (m *Model) ScrollOffset() int { return m.viewport.YOffset }

// VisibleRows returns how many content rows fit above the key panel.
func (m *Model) VisibleRows() int { return m.viewport.Height }
