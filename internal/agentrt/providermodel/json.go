package providermodel

import "encoding/json"

// partEnvelope is the wire shape for one Part, discriminated by Kind. This
// mirrors the teacher's Kind-tagged marshaling so every provider adapter
// round-trips through a single, explicit representation instead of relying
// on json.RawMessage shape-sniffing at every call site.
type partEnvelope struct {
	Kind string `json:"kind"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

func encodePart(p Part) partEnvelope {
	switch v := p.(type) {
	case TextPart:
		return partEnvelope{Kind: "text", Text: v.Text}
	case ToolUsePart:
		return partEnvelope{Kind: "tool_use", ID: v.ID, Name: v.Name, Input: v.Input}
	case ToolResultPart:
		return partEnvelope{Kind: "tool_result", ToolUseID: v.ToolUseID, Content: v.Content, IsError: v.IsError}
	default:
		return partEnvelope{Kind: "unknown"}
	}
}

func decodePart(e partEnvelope) Part {
	switch e.Kind {
	case "text":
		return TextPart{Text: e.Text}
	case "tool_use":
		return ToolUsePart{ID: e.ID, Name: e.Name, Input: e.Input}
	case "tool_result":
		return ToolResultPart{ToolUseID: e.ToolUseID, Content: e.Content, IsError: e.IsError}
	default:
		// Fall back to shape-sniffing for payloads written before Kind was
		// added to the wire format, or hand-authored fixtures.
		switch {
		case e.ToolUseID != "":
			return ToolResultPart{ToolUseID: e.ToolUseID, Content: e.Content, IsError: e.IsError}
		case e.Name != "" && e.ID != "":
			return ToolUsePart{ID: e.ID, Name: e.Name, Input: e.Input}
		default:
			return TextPart{Text: e.Text}
		}
	}
}

// MarshalJSON encodes a Message with each Part tagged by an explicit Kind
// discriminator.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire struct {
		Role  ConversationRole `json:"role"`
		Parts []partEnvelope   `json:"parts"`
	}
	w := wire{Role: m.Role, Parts: make([]partEnvelope, len(m.Parts))}
	for i, p := range m.Parts {
		w.Parts[i] = encodePart(p)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a Message, dispatching each part envelope on its
// Kind field (or shape-sniffing when Kind is absent).
func (m *Message) UnmarshalJSON(data []byte) error {
	type wire struct {
		Role  ConversationRole `json:"role"`
		Parts []partEnvelope   `json:"parts"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Parts = make([]Part, len(w.Parts))
	for i, e := range w.Parts {
		m.Parts[i] = decodePart(e)
	}
	return nil
}
