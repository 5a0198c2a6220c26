package state

import (
	"fmt"
	"hash/fnv"
)

// MessageIdentity computes a stable identity key for a message so the
// evidence-merge step can deduplicate status messages across re-runs.
// Precedence: tool-call id, then tool-result id, then a role+content
// hash for messages that carry no id at all.
func MessageIdentity(m Message) string {
	if m.ToolCallID != "" {
		return "call:" + m.ToolCallID
	}
	if m.ToolResultID != "" {
		return "result:" + m.ToolResultID
	}
	h := fnv.New64a()
	h.Write([]byte(m.Role))
	h.Write([]byte{0})
	h.Write([]byte(m.Content))
	return fmt.Sprintf("hash:%s:%016x", m.Role, h.Sum64())
}

// DedupAppend appends incoming messages to dst, skipping any whose
// identity already appears in dst or earlier in the incoming batch.
func DedupAppend(dst []Message, incoming ...Message) []Message {
	if len(incoming) == 0 {
		return dst
	}
	seen := make(map[string]struct{}, len(dst)+len(incoming))
	for _, m := range dst {
		seen[MessageIdentity(m)] = struct{}{}
	}
	for _, m := range incoming {
		key := MessageIdentity(m)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, m)
	}
	return dst
}
