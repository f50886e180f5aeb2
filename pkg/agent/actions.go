package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType identifies one of the browser operations the agent may take.
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionClick    ActionType = "click"
	ActionFill     ActionType = "fill"
	ActionWait     ActionType = "wait"
	ActionReload   ActionType = "reload"
	ActionDone     ActionType = "done"
	ActionFail     ActionType = "fail"
)

// Action is the structured decision the model returns each iteration.
type Action struct {
	Type     ActionType `json:"action"`
	URL      string     `json:"url,omitempty"`
	Selector string     `json:"selector,omitempty"`
	Value    string     `json:"value,omitempty"`
	Seconds  int        `json:"seconds,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// Validate checks that the action carries the fields its type requires.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionNavigate:
		if a.URL == "" {
			return fmt.Errorf("navigate action requires a url")
		}
	case ActionClick:
		if a.Selector == "" {
			return fmt.Errorf("click action requires a selector")
		}
	case ActionFill:
		if a.Selector == "" {
			return fmt.Errorf("fill action requires a selector")
		}
	case ActionWait:
		if a.Seconds <= 0 {
			return fmt.Errorf("wait action requires positive seconds")
		}
	case ActionReload, ActionDone, ActionFail:
		// No required fields.
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// ParseAction extracts the action JSON from a model response. Models
// frequently wrap JSON in markdown fences or surround it with prose;
// the parser tolerates both by isolating the first JSON object.
func ParseAction(response string) (*Action, error) {
	payload := strings.TrimSpace(response)

	// Strip markdown code fences.
	if strings.HasPrefix(payload, "```") {
		payload = strings.TrimPrefix(payload, "```json")
		payload = strings.TrimPrefix(payload, "```")
		if idx := strings.Index(payload, "```"); idx >= 0 {
			payload = payload[:idx]
		}
		payload = strings.TrimSpace(payload)
	}

	// Isolate the first balanced JSON object when prose surrounds it.
	if !strings.HasPrefix(payload, "{") {
		start := strings.Index(payload, "{")
		end := strings.LastIndex(payload, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in response: %q", truncateForError(response))
		}
		payload = payload[start : end+1]
	}

	var action Action
	if err := json.Unmarshal([]byte(payload), &action); err != nil {
		return nil, fmt.Errorf("failed to parse action: %w", err)
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}
	return &action, nil
}

func truncateForError(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Describe returns a short human-readable form for logs and manifests.
func (a *Action) Describe() string {
	switch a.Type {
	case ActionNavigate:
		return fmt.Sprintf("navigate %s", a.URL)
	case ActionClick:
		return fmt.Sprintf("click %s", a.Selector)
	case ActionFill:
		return fmt.Sprintf("fill %s", a.Selector)
	case ActionWait:
		return fmt.Sprintf("wait %ds", a.Seconds)
	case ActionReload:
		return "reload"
	case ActionDone:
		return "done"
	case ActionFail:
		return fmt.Sprintf("fail: %s", a.Reason)
	}
	return string(a.Type)
}
