package github

import (
	"encoding/json"
	"fmt"

	"github.com/huangsam/cistat/internal/contract"
)

// Webhook event names stored in the events table. Each payload carries the
// record under a key of the same name.
const (
	workflowRunEvent = "workflow_run"
	workflowJobEvent = "workflow_job"
)

// decodePayloads extracts the event record of every payload. Payloads that
// cannot be decoded are skipped and reported once with their count.
func decodePayloads[T any](event string, payloads []json.RawMessage) []T {
	out := make([]T, 0, len(payloads))
	var skipped int
	var lastErr error
	for _, payload := range payloads {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(payload, &envelope); err != nil {
			skipped++
			lastErr = err
			continue
		}
		inner, ok := envelope[event]
		if !ok || string(inner) == "null" {
			skipped++
			lastErr = fmt.Errorf("payload has no %q object", event)
			continue
		}
		var record T
		if err := json.Unmarshal(inner, &record); err != nil {
			skipped++
			lastErr = err
			continue
		}
		out = append(out, record)
	}
	if skipped > 0 {
		contract.LogWarn(fmt.Sprintf("Skipped %d undecodable %s payloads", skipped, event), lastErr)
	}
	return out
}
