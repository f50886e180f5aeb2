package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/capture/pkg/apps"
	"github.com/entrhq/capture/pkg/browser"
)

func testProfile() *apps.Profile {
	return &apps.Profile{
		Name:          "Testapp",
		URL:           "https://testapp.example.com",
		LoginURL:      "https://testapp.example.com/login",
		EmailField:    "input[type='email']",
		PasswordField: "input[type='password']",
		SubmitButton:  "button[type='submit']",
		MFAWaitTime:   15,
	}
}

// fakeClock lets the sequencer's wait loop run without real sleeping.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time        { return c.current }
func (c *fakeClock) sleep(d time.Duration) { c.current = c.current.Add(d) }

func newTestSequencer(driver browser.Driver) (*Sequencer, *fakeClock) {
	s := NewSequencer(testProfile(), "tester@example.com", "hunter2")
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	s.now = clock.now
	s.sleep = clock.sleep
	return s, clock
}

func TestLoginVerified(t *testing.T) {
	driver := newFakeDriver()
	driver.evalResult = true
	s, _ := newTestSequencer(driver)

	outcome := s.Login(context.Background(), driver)

	assert.Equal(t, LoginVerified, outcome)
	assert.Equal(t, []string{"https://testapp.example.com/login"}, driver.navigated)
	assert.Equal(t, "tester@example.com", driver.filled["input[type='email']"])
	assert.Equal(t, "hunter2", driver.filled["input[type='password']"])
	assert.Equal(t, []string{"button[type='submit']"}, driver.clicked)
}

func TestLoginUnverifiedProceedsAfterWait(t *testing.T) {
	driver := newFakeDriver()
	// The login form never disappears: second factor never entered.
	driver.evalResult = false
	s, clock := newTestSequencer(driver)
	start := clock.current

	outcome := s.Login(context.Background(), driver)

	assert.Equal(t, LoginUnverifiedProceeded, outcome)
	waited := clock.current.Sub(start)
	assert.GreaterOrEqual(t, waited, 15*time.Second, "should wait out the full second-factor window")
}

func TestLoginFailedOnNavigation(t *testing.T) {
	driver := &failingDriver{fakeDriver: newFakeDriver(), navErr: fmt.Errorf("dns failure")}
	s, _ := newTestSequencer(driver)

	outcome := s.Login(context.Background(), driver)

	assert.Equal(t, LoginFailed, outcome)
}

func TestLoginFailedOnFill(t *testing.T) {
	driver := &failingDriver{fakeDriver: newFakeDriver(), fillErr: fmt.Errorf("no such element")}
	s, _ := newTestSequencer(driver)

	outcome := s.Login(context.Background(), driver)

	assert.Equal(t, LoginFailed, outcome)
}

func TestLoginCanceledContextProceeds(t *testing.T) {
	driver := newFakeDriver()
	driver.evalResult = false
	s, _ := newTestSequencer(driver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := s.Login(ctx, driver)

	assert.Equal(t, LoginUnverifiedProceeded, outcome)
}

func TestLoginOutcomeStrings(t *testing.T) {
	assert.Equal(t, "verified", LoginVerified.String())
	assert.Equal(t, "unverified_proceeded", LoginUnverifiedProceeded.String())
	assert.Equal(t, "failed", LoginFailed.String())
}

// failingDriver overlays injectable errors on the fake driver.
type failingDriver struct {
	*fakeDriver
	navErr  error
	fillErr error
}

func (d *failingDriver) Navigate(url string, opts browser.NavigateOptions) error {
	if d.navErr != nil {
		return d.navErr
	}
	return d.fakeDriver.Navigate(url, opts)
}

func (d *failingDriver) Fill(selector, value string) error {
	if d.fillErr != nil {
		return d.fillErr
	}
	return d.fakeDriver.Fill(selector, value)
}
