// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authform

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/identity/identitytest"
	"github.com/jeranaias/authform/internal/ui/components"
	"github.com/jeranaias/authform/internal/ui/events"
	"github.com/jeranaias/authform/internal/ui/styles"
)

func newForm(t *testing.T, p identity.Provider, opts ...Option) *Model {
	t.Helper()
	opts = append([]Option{WithTheme(styles.NewTheme("dark"))}, opts...)
	m := New(p, opts...)
	t.Cleanup(m.Dispose)
	return m
}

// run executes cmd and feeds its messages back into the form, unpacking
// batches in order.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				m.Update(c())
			}
		}
		return
	}
	m.Update(msg)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// VIEW STATE
// =============================================================================

func TestViewStateFor(t *testing.T) {
	tests := []struct {
		name    string
		session identity.Session
		want    ViewState
	}{
		{"signed out", identity.SignedOut{}, ViewState{Label: "", ButtonTitle: SignInTitle}},
		{"nil", nil, ViewState{Label: "", ButtonTitle: SignInTitle}},
		{"signed in", identity.SignedIn{Email: "a@b.com"}, ViewState{Label: "a@b.com", ButtonTitle: SignOutTitle}},
		{"signed in without email", identity.SignedIn{UserID: "u1"}, ViewState{Label: "", ButtonTitle: SignOutTitle}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViewStateFor(tt.session); got != tt.want {
				t.Errorf("ViewStateFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestButtonTitleTracksSession(t *testing.T) {
	for _, s := range []identity.Session{identity.SignedOut{}, identity.SignedIn{Email: "x@y.z"}} {
		got := ViewStateFor(s).ButtonTitle == SignOutTitle
		if got != identity.IsSignedIn(s) {
			t.Errorf("ButtonTitle is Sign Out = %v for %T", got, s)
		}
	}
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_SignedIn(t *testing.T) {
	m := newForm(t, identitytest.SignedInAs("a@b.com"))
	m.Load()

	assert.Equal(t, ViewState{Label: "a@b.com", ButtonTitle: SignOutTitle}, m.ViewState())
	assert.True(t, identity.IsSignedIn(m.Session()))
}

func TestLoad_SignedOut(t *testing.T) {
	m := newForm(t, identitytest.New(nil))
	m.Load()

	assert.Equal(t, ViewState{ButtonTitle: SignInTitle}, m.ViewState())
	assert.False(t, m.NoticeVisible())
}

func TestNew_ShowsSignedOutBeforeLoad(t *testing.T) {
	fake := identitytest.SignedInAs("a@b.com")
	m := newForm(t, fake)

	assert.Equal(t, SignInTitle, m.ViewState().ButtonTitle)
	assert.Zero(t, fake.Calls("CurrentSession"))
}

// =============================================================================
// SIGN UP
// =============================================================================

func TestSubmitSignUp_EmptyFieldsAreNoop(t *testing.T) {
	tests := []struct{ email, password string }{
		{"", "pw"},
		{"a@b.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		fake := identitytest.New(nil)
		m := newForm(t, fake)
		m.Load()
		before := m.ViewState()

		if cmd := m.SubmitSignUp(tt.email, tt.password); cmd != nil {
			t.Errorf("SubmitSignUp(%q, %q) returned a command", tt.email, tt.password)
		}
		if cmd := m.SubmitSignInOrOut(tt.email, tt.password); cmd != nil {
			t.Errorf("SubmitSignInOrOut(%q, %q) returned a command", tt.email, tt.password)
		}
		if n := fake.TotalMutations(); n != 0 {
			t.Errorf("provider mutations = %d, want 0", n)
		}
		if m.ViewState() != before {
			t.Errorf("ViewState = %+v, want %+v", m.ViewState(), before)
		}
		if m.Pending() != 0 {
			t.Errorf("Pending = %d, want 0", m.Pending())
		}
	}
}

func TestSubmitSignUp_Success(t *testing.T) {
	fake := identitytest.New(nil)
	m := newForm(t, fake)
	m.Load()

	cmd := m.SubmitSignUp("new@b.com", "secret1")
	assert.Equal(t, 1, m.Pending())
	run(t, m, cmd)

	assert.Equal(t, 1, fake.Calls("CreateUser"))
	assert.Equal(t, ViewState{Label: "new@b.com", ButtonTitle: SignOutTitle}, m.ViewState())
	assert.Zero(t, m.Pending())
	assert.False(t, m.NoticeVisible())
}

func TestSubmitSignUp_FailureShowsNotice(t *testing.T) {
	fake := identitytest.New(nil)
	fake.CreateUserErr = identity.Errorf(identity.CodeEmailExists, nil)
	m := newForm(t, fake)
	m.Load()
	before := m.ViewState()

	run(t, m, m.SubmitSignUp("a@b.com", "secret1"))

	require.True(t, m.NoticeVisible())
	assert.Equal(t, identity.MessageFor(identity.CodeEmailExists), m.NoticeMessage())
	assert.Equal(t, before, m.ViewState())

	_, cmd := m.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	assert.IsType(t, components.NoticeDismissedMsg{}, cmd())
	assert.False(t, m.NoticeVisible())
}

func TestNotice_BlocksOtherInput(t *testing.T) {
	fake := identitytest.New(nil)
	fake.SignInErr = errors.New("nope")
	m := newForm(t, fake)
	m.Load()
	m.SetCredentials("a@b.com", "pw")

	run(t, m, m.SubmitSignInOrOut("a@b.com", "pw"))
	require.True(t, m.NoticeVisible())

	_, cmd := m.Update(keyMsg("ctrl+s"))
	assert.Nil(t, cmd)
	_, cmd = m.Update(keyMsg("ctrl+u"))
	assert.Nil(t, cmd)
	assert.Equal(t, 1, fake.TotalMutations())
	assert.True(t, m.NoticeVisible())
}

// =============================================================================
// SIGN IN / SIGN OUT
// =============================================================================

func TestSubmitSignInOrOut_SignsIn(t *testing.T) {
	fake := identitytest.New(nil)
	m := newForm(t, fake)
	m.Load()

	run(t, m, m.SubmitSignInOrOut("a@b.com", "pw"))

	assert.Equal(t, 1, fake.Calls("SignIn"))
	assert.Zero(t, fake.Calls("CreateUser"))
	assert.Equal(t, ViewState{Label: "a@b.com", ButtonTitle: SignOutTitle}, m.ViewState())
}

func TestSubmitSignInOrOut_SignInFailureShowsProviderMessage(t *testing.T) {
	fake := identitytest.New(nil)
	fake.SignInErr = identity.Errorf(identity.CodeInvalidPassword, nil)
	m := newForm(t, fake)
	m.Load()

	run(t, m, m.SubmitSignInOrOut("a@b.com", "wrong"))

	assert.True(t, m.NoticeVisible())
	assert.Equal(t, identity.MessageFor(identity.CodeInvalidPassword), m.NoticeMessage())
	assert.Equal(t, SignInTitle, m.ViewState().ButtonTitle)
}

func TestSubmitSignInOrOut_SignsOut(t *testing.T) {
	fake := identitytest.SignedInAs("a@b.com")
	m := newForm(t, fake)
	m.Load()

	cmd := m.SubmitSignInOrOut("", "")

	assert.Nil(t, cmd)
	assert.Equal(t, 1, fake.Calls("SignOut"))
	assert.Equal(t, ViewState{ButtonTitle: SignInTitle}, m.ViewState())
}

func TestSubmitSignInOrOut_ExpiredSessionOnlyRefreshes(t *testing.T) {
	fake := identitytest.SignedInAs("a@b.com")
	m := newForm(t, fake)
	m.Load()
	fake.SetSession(identity.SignedOut{})

	cmd := m.SubmitSignInOrOut("", "")

	assert.Nil(t, cmd)
	assert.Zero(t, fake.TotalMutations())
	assert.Equal(t, ViewState{ButtonTitle: SignInTitle}, m.ViewState())
	assert.Equal(t, SignInTitle, m.signInOut.Title)
}

func TestSubmitSignInOrOut_ExternalSignInOnlyRefreshes(t *testing.T) {
	fake := identitytest.New(nil)
	m := newForm(t, fake)
	m.Load()
	fake.SetSession(identity.SignedIn{Email: "other@b.com", UserID: "uid-other"})

	cmd := m.SubmitSignInOrOut("a@b.com", "pw")

	assert.Nil(t, cmd)
	assert.Zero(t, fake.TotalMutations(), "press must not sign out a session the user has not seen")
	assert.Equal(t, ViewState{Label: "other@b.com", ButtonTitle: SignOutTitle}, m.ViewState())
}

func TestSubmitSignInOrOut_SwitchedAccountSignsOut(t *testing.T) {
	fake := identitytest.SignedInAs("a@b.com")
	m := newForm(t, fake)
	m.Load()
	fake.SetSession(identity.SignedIn{Email: "other@b.com", UserID: "uid-other"})

	m.SubmitSignInOrOut("", "")

	assert.Equal(t, 1, fake.Calls("SignOut"))
	assert.Equal(t, ViewState{ButtonTitle: SignInTitle}, m.ViewState())
}

func TestSubmitSignInOrOut_PlainErrorShowsGenericMessage(t *testing.T) {
	fake := identitytest.New(nil)
	fake.SignInErr = context.DeadlineExceeded
	m := newForm(t, fake)
	m.Load()

	run(t, m, m.SubmitSignInOrOut("a@b.com", "pw"))

	require.True(t, m.NoticeVisible())
	assert.Equal(t, identity.GenericMessage, m.NoticeMessage())
}

func TestSubmitSignInOrOut_SignOutFailureIsSilent(t *testing.T) {
	fake := identitytest.SignedInAs("a@b.com")
	fake.SignOutErr = errors.New("keychain locked")
	m := newForm(t, fake)
	m.Load()

	cmd := m.SubmitSignInOrOut("a@b.com", "pw")

	assert.Nil(t, cmd)
	assert.Equal(t, 1, fake.Calls("SignOut"))
	assert.Zero(t, fake.Calls("SignIn"))
	assert.Equal(t, ViewState{Label: "a@b.com", ButtonTitle: SignOutTitle}, m.ViewState())
	assert.False(t, m.NoticeVisible())
}

func TestConcurrentSignIns_LastCompletionWins(t *testing.T) {
	fake := identitytest.New(nil)
	m := newForm(t, fake)
	m.Load()

	first := m.SubmitSignInOrOut("first@b.com", "pw")
	second := m.SubmitSignInOrOut("second@b.com", "pw")
	require.Equal(t, 2, m.Pending())

	// Both calls reach the provider; the second one lands last there but
	// its completion is delivered first.
	firstMsg := first()
	secondMsg := second()
	m.Update(secondMsg)
	assert.Equal(t, "second@b.com", m.ViewState().Label)
	m.Update(firstMsg)

	assert.Equal(t, 2, fake.Calls("SignIn"))
	assert.Zero(t, m.Pending())
	assert.Equal(t, ViewStateFor(fake.CurrentSession()), m.ViewState())
}

func TestSessionChangedMsg_Refreshes(t *testing.T) {
	fake := identitytest.SignedInAs("a@b.com")
	m := newForm(t, fake)
	m.Load()

	fake.SetSession(identity.SignedOut{})
	m.Update(sessionChangedMsg{})

	assert.Equal(t, ViewState{ButtonTitle: SignInTitle}, m.ViewState())
}

// =============================================================================
// FOCUS & RETURN KEY
// =============================================================================

func TestReturnKey(t *testing.T) {
	m := newForm(t, identitytest.New(nil))

	m.FocusField(PasswordField)
	require.Equal(t, PasswordField, m.ActiveField())
	require.True(t, m.KeyboardVisible())

	if m.ReturnKey(PasswordField) {
		t.Error("ReturnKey(password) = true, want false")
	}
	assert.Equal(t, NoField, m.ActiveField())
	assert.False(t, m.KeyboardVisible())

	m.FocusField(EmailField)
	if !m.ReturnKey(EmailField) {
		t.Error("ReturnKey(email) = false, want true")
	}
	assert.Equal(t, EmailField, m.ActiveField())
}

func TestBlurField_OnlyBlursActive(t *testing.T) {
	m := newForm(t, identitytest.New(nil))
	m.FocusField(EmailField)

	m.BlurField(PasswordField)
	assert.Equal(t, EmailField, m.ActiveField())
	assert.True(t, m.KeyboardVisible())

	m.BlurField(EmailField)
	assert.Equal(t, NoField, m.ActiveField())
	assert.False(t, m.KeyboardVisible())
}

func TestKeys_TabOrderAndEnter(t *testing.T) {
	fake := identitytest.New(nil)
	m := newForm(t, fake)
	m.Load()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})

	m.Update(keyMsg("tab"))
	assert.Equal(t, EmailField, m.ActiveField())

	for _, r := range "a@b.com" {
		m.Update(keyMsg(string(r)))
	}
	m.Update(keyMsg("enter"))
	assert.Equal(t, PasswordField, m.ActiveField(), "enter in email moves to password")

	m.Update(keyMsg("p"))
	m.Update(keyMsg("w"))
	email, password := m.Credentials()
	assert.Equal(t, "a@b.com", email)
	assert.Equal(t, "pw", password)

	m.Update(keyMsg("enter"))
	assert.Equal(t, NoField, m.ActiveField(), "enter in password ends editing")

	m.Update(keyMsg("tab")) // email
	m.Update(keyMsg("tab")) // password
	m.Update(keyMsg("tab")) // Sign Up
	assert.Equal(t, NoField, m.ActiveField())
	assert.False(t, m.KeyboardVisible())
	m.Update(keyMsg("tab")) // Sign In

	_, cmd := m.Update(keyMsg("enter"))
	run(t, m, cmd)
	assert.Equal(t, 1, fake.Calls("SignIn"))
	assert.Equal(t, "a@b.com", m.ViewState().Label)
}

func TestKeys_EscDismissesKeyboard(t *testing.T) {
	m := newForm(t, identitytest.New(nil))
	m.FocusField(EmailField)

	m.Update(keyMsg("esc"))

	assert.Equal(t, NoField, m.ActiveField())
	assert.False(t, m.KeyboardVisible())
}

func TestKeys_QuitDisposes(t *testing.T) {
	m := newForm(t, identitytest.New(nil))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Disposed())
}

// =============================================================================
// KEYBOARD AVOIDANCE
// =============================================================================

func TestKeyboard_InsetsAndScrollsActiveField(t *testing.T) {
	m := newForm(t, identitytest.New(nil))
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 14})
	full := m.VisibleRows()
	require.Equal(t, 13, full)

	m.FocusField(PasswordField)

	inset := m.keyboard.Height()
	require.Positive(t, inset)
	assert.Equal(t, inset, m.Inset())
	assert.Equal(t, full-inset, m.VisibleRows())

	top := m.layout.passwordTop
	offset := m.ScrollOffset()
	assert.Positive(t, offset)
	assert.LessOrEqual(t, offset, top)
	assert.LessOrEqual(t, top+components.FieldHeight, offset+m.VisibleRows())

	m.DismissKeyboard()
	assert.Zero(t, m.Inset())
	assert.Equal(t, full, m.VisibleRows())
}

func TestKeyboard_NoScrollWhenFieldVisible(t *testing.T) {
	m := newForm(t, identitytest.New(nil))
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 60})

	m.FocusField(EmailField)

	assert.Positive(t, m.Inset())
	assert.Zero(t, m.ScrollOffset())
}

func TestMouse_ClickFocusesAndDismisses(t *testing.T) {
	m := newForm(t, identitytest.New(nil))
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})

	m.Update(tea.MouseMsg{Type: tea.MouseLeft, X: 20, Y: m.layout.emailTop + 1 - m.ScrollOffset()})
	assert.Equal(t, EmailField, m.ActiveField())

	m.Update(tea.MouseMsg{Type: tea.MouseLeft, X: 0, Y: 0})
	assert.Equal(t, NoField, m.ActiveField())
	assert.False(t, m.KeyboardVisible())
}

func TestMouse_ClickSignUpButton(t *testing.T) {
	fake := identitytest.New(nil)
	m := newForm(t, fake)
	m.Load()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m.SetCredentials("a@b.com", "secret1")

	_, cmd := m.Update(tea.MouseMsg{
		Type: tea.MouseLeft,
		X:    m.layout.signUpLeft + 1,
		Y:    m.layout.buttonsTop + 1 - m.ScrollOffset(),
	})
	run(t, m, cmd)

	assert.Equal(t, 1, fake.Calls("CreateUser"))
}

// =============================================================================
// DISPOSE
// =============================================================================

func TestDispose_ReleasesSubscriptions(t *testing.T) {
	bus := events.NewBus()
	m := newForm(t, identitytest.New(nil), WithBus(bus))
	bus.Publish(events.KeyboardWillShow, events.KeyboardFrame{Height: 7})
	require.Equal(t, 7, m.Inset())
	bus.Publish(events.KeyboardWillHide, nil)
	require.Zero(t, m.Inset())

	m.Dispose()
	m.Dispose()

	bus.Publish(events.KeyboardWillShow, events.KeyboardFrame{Height: 7})
	assert.Zero(t, m.Inset())
}

func TestDispose_DropsLateResults(t *testing.T) {
	fake := identitytest.New(nil)
	fake.SignInErr = errors.New("late")
	m := newForm(t, fake)
	m.Load()

	cmd := m.SubmitSignInOrOut("a@b.com", "pw")
	m.Dispose()
	m.Update(cmd())

	assert.False(t, m.NoticeVisible())
	assert.Equal(t, SignInTitle, m.ViewState().ButtonTitle)
}

// =============================================================================
// VIEW
// =============================================================================

func TestView(t *testing.T) {
	fake := identitytest.New(nil)
	fake.SignInErr = identity.Errorf(identity.CodeEmailNotFound, nil)
	m := newForm(t, fake)
	assert.Equal(t, "Initializing...", m.View())

	m.Load()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()
	for _, want := range []string{"Email", "Password", SignUpTitle, SignInTitle, "signed out"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	run(t, m, m.SubmitSignInOrOut("a@b.com", "pw"))
	view = m.View()
	assert.Contains(t, view, NoticeTitle)
	assert.Contains(t, view, "There is no user record")
}

func TestView_SignedInShowsEmail(t *testing.T) {
	m := newForm(t, identitytest.SignedInAs("a@b.com"))
	m.Load()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	assert.Contains(t, view, "a@b.com")
	assert.Contains(t, view, SignOutTitle)
}

func TestActivity_RunsWhileRequestPending(t *testing.T) {
	fake := identitytest.New(nil)
	m := newForm(t, fake)
	m.Load()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m.SetCredentials("a@b.com", "secret1")

	_, cmd := m.Update(keyMsg("ctrl+s"))
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.Pending())
	assert.Contains(t, m.View(), "working")

	run(t, m, cmd)

	assert.Zero(t, m.Pending())
	assert.NotContains(t, m.View(), "working")
	assert.Equal(t, "a@b.com", m.ViewState().Label)
}
