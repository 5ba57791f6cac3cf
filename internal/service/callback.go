package service

import (
	"fmt"
	"strings"
)

// Callback prefixes for inline buttons.
const (
	CallbackDrop = "drop_"
	CallbackFork = "fork_"
)

// Drop decisions carried in callback data.
const (
	DropApprove = "approve"
	DropDecline = "decline"
)

// DropCallback encodes an approve or decline button for a submission.
func DropCallback(approved bool, submissionID string) string {
	action := DropDecline
	if approved {
		action = DropApprove
	}
	return fmt.Sprintf("%s%s_%s", CallbackDrop, action, submissionID)
}

// ForkCallback encodes a fork option button.
func ForkCallback(promptID, key string) string {
	return fmt.Sprintf("%s%s_%s", CallbackFork, promptID, key)
}

// DecodeCallback splits callback data into prefix, first and second parts.
// "drop_approve_<id>" gives ("drop_", "approve", "<id>") and
// "fork_<prompt>_<key>" gives ("fork_", "<prompt>", "<key>").
func DecodeCallback(data string) (prefix, first, second string, ok bool) {
	data = strings.TrimPrefix(data, "\f")

	for _, p := range []string{CallbackDrop, CallbackFork} {
		if !strings.HasPrefix(data, p) {
			continue
		}
		content := strings.TrimPrefix(data, p)
		if p == CallbackFork {
			// The key is always the last segment.
			i := strings.LastIndex(content, "_")
			if i <= 0 || i == len(content)-1 {
				return "", "", "", false
			}
			return p, content[:i], content[i+1:], true
		}
		parts := strings.SplitN(content, "_", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", "", false
		}
		return p, parts[0], parts[1], true
	}
	return "", "", "", false
}
