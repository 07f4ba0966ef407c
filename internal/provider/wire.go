package provider

// NotExecutedResult is the tool content synthesized for calls that never ran
// because the turn was rejected or interrupted before reaching them.
const NotExecutedResult = `{"success":false,"error":"Tool call was not executed"}`

// PrepareMessages returns a copy of msgs shaped for strict wire protocols:
//   - every assistant tool call is answered by a tool message before the next
//     user or assistant turn (missing answers are synthesized);
//   - system notes appended inside a tool-result group are moved after it.
//
// All three backends reject histories where a tool call has no result.
func PrepareMessages(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	var pending []string
	answered := make(map[string]bool)
	var deferred []Message

	flush := func() {
		for _, id := range pending {
			if !answered[id] {
				out = append(out, ToolMessage(id, NotExecutedResult))
			}
		}
		pending = nil
		clear(answered)
		out = append(out, deferred...)
		deferred = nil
	}

	for _, msg := range msgs {
		switch {
		case msg.Role == RoleTool && len(pending) > 0:
			answered[msg.ToolCallID] = true
			out = append(out, msg)
		case msg.Role == RoleSystem && len(pending) > 0:
			deferred = append(deferred, msg)
		default:
			flush()
			out = append(out, msg)
			if msg.Role == RoleAssistant {
				for _, tc := range msg.ToolCalls {
					pending = append(pending, tc.ID)
				}
			}
		}
	}
	flush()
	return out
}

// ToolNameForCall scans earlier assistant messages for the call with the
// given ID and returns its tool name. Used by protocols that key results by
// function name rather than call ID.
func ToolNameForCall(msgs []Message, callID string) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != RoleAssistant {
			continue
		}
		for _, tc := range msgs[i].ToolCalls {
			if tc.ID == callID {
				return tc.Name
			}
		}
	}
	return ""
}

// SplitSystem separates system messages from the rest of the conversation
// for protocols that carry the system prompt in a dedicated field.
func SplitSystem(msgs []Message) (system []string, rest []Message) {
	rest = make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
