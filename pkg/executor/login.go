package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/capture/pkg/apps"
	"github.com/entrhq/capture/pkg/browser"
	"github.com/entrhq/capture/pkg/logging"
)

// LoginOutcome classifies how the authentication handshake ended. The
// handshake cannot prove authentication succeeded; it reports how much
// confidence the caller may place in it.
type LoginOutcome int

const (
	// LoginVerified means the credential fields were observed holding
	// values within the wait window.
	LoginVerified LoginOutcome = iota

	// LoginUnverifiedProceeded means the wait window elapsed without
	// confirmation. The run continues anyway: cookies from a previous
	// session may already authenticate it, or the human completed the
	// second factor in a way the check cannot see.
	LoginUnverifiedProceeded

	// LoginFailed means the handshake could not even be attempted
	// (navigation or identity-field interaction errors).
	LoginFailed
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginVerified:
		return "verified"
	case LoginUnverifiedProceeded:
		return "unverified_proceeded"
	case LoginFailed:
		return "failed"
	}
	return "unknown"
}

const (
	// loginPollInterval is how often the wait phase re-checks the form.
	loginPollInterval = 2 * time.Second

	// loginSettleDelay follows the login page navigation; login pages
	// often hydrate their forms after network idle.
	loginSettleDelay = 2 * time.Second
)

// Sequencer drives the scripted login handshake: navigate to the login
// page, fill credentials, submit, then wait out the second-factor
// window polling the form state.
type Sequencer struct {
	profile  *apps.Profile
	email    string
	password string
	sleep    func(time.Duration)
	now      func() time.Time
	log      *logging.Logger
}

// NewSequencer creates a sequencer for one application profile.
func NewSequencer(profile *apps.Profile, email, password string) *Sequencer {
	log, _ := logging.NewLogger("login")
	return &Sequencer{
		profile:  profile,
		email:    email,
		password: password,
		sleep:    time.Sleep,
		now:      time.Now,
		log:      log,
	}
}

// Login performs the handshake on the given driver. It never returns an
// error; all internal failures reduce to an outcome. The secret is
// never written to the log.
func (s *Sequencer) Login(ctx context.Context, driver browser.Driver) LoginOutcome {
	s.log.Infof("logging in to %s as %s", s.profile.Name, s.email)

	if err := driver.Navigate(s.profile.LoginURL, browser.NavigateOptions{WaitUntil: "networkidle"}); err != nil {
		s.log.Errorf("login page navigation failed: %v", err)
		return LoginFailed
	}
	s.sleep(loginSettleDelay)

	if err := driver.Fill(s.profile.EmailField, s.email); err != nil {
		s.log.Errorf("identity field fill failed: %v", err)
		return LoginFailed
	}
	// Some applications split identity and secret across screens; both
	// of these are best-effort.
	if err := driver.Fill(s.profile.PasswordField, s.password); err != nil {
		s.log.Warnf("secret field fill failed, continuing: %v", err)
	}
	if err := driver.Click(s.profile.SubmitButton); err != nil {
		s.log.Warnf("submit click failed, continuing: %v", err)
	}

	return s.awaitVerification(ctx, driver)
}

// awaitVerification polls the form until both credential fields hold
// values or the second-factor window elapses.
func (s *Sequencer) awaitVerification(ctx context.Context, driver browser.Driver) LoginOutcome {
	deadline := s.now().Add(time.Duration(s.profile.MFAWaitTime) * time.Second)
	s.log.Infof("waiting up to %ds for login verification (second factor window)", s.profile.MFAWaitTime)

	for s.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			s.log.Warnf("login wait interrupted: %v", err)
			return LoginUnverifiedProceeded
		}
		if s.fieldsFilled(driver) {
			s.log.Infof("login verified")
			return LoginVerified
		}
		s.sleep(loginPollInterval)
	}

	s.log.Warnf("login unverified after %ds, proceeding anyway", s.profile.MFAWaitTime)
	return LoginUnverifiedProceeded
}

// fieldsFilled checks in-page that both credential inputs hold values.
func (s *Sequencer) fieldsFilled(driver browser.Driver) bool {
	script := fmt.Sprintf(`() => {
		const email = document.querySelector(%q);
		const password = document.querySelector(%q);
		return !!(email && email.value && password && password.value);
	}`, s.profile.EmailField, s.profile.PasswordField)
	result, err := driver.Evaluate(script)
	if err != nil {
		s.log.Warnf("form state check unavailable: %v", err)
		return false
	}
	filled, ok := result.(bool)
	return ok && filled
}
