package executor

import (
	"fmt"

	"github.com/entrhq/capture/pkg/apps"
)

// buildInstruction assembles the natural-language instruction handed to
// the agent: login steps with literal credentials, the task itself, and
// the post-task verification sequence (save, settle, full reload,
// settle, report).
func buildInstruction(profile *apps.Profile, task, email, password string) string {
	return fmt.Sprintf(`You are an AI agent helping to capture UI states for: %s

=== LOGIN INSTRUCTIONS ===
1. Navigate to %s
2. Click the login button or link
3. When asked for email, ENTER EXACTLY: %s
4. When asked for password, ENTER EXACTLY: %s
5. When prompted for 2FA/authentication code, WAIT UP TO %d SECONDS for the user to enter it
6. Do NOT try multiple times - wait the full time for user input in the browser
7. Once the browser shows the workspace (sidebar visible), proceed with the task
8. If login fails after the full wait, report failure - DO NOT loop

=== MAIN TASK ===
%s

=== EXECUTION STEPS ===
1. Complete the entire task as described
2. Save and confirm all changes
3. Wait 3 seconds for persistence
4. RELOAD THE ENTIRE PAGE (full refresh)
5. Wait 2 seconds for the page to load
6. Report success when complete`,
		task, profile.URL, email, password, profile.MFAWaitTime, task)
}
