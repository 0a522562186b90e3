// Package llm defines the conversation model shared by the orchestrator,
// the Gemini client, and the persistence layer.
//
// Turn and Part marshal to the same JSON shape the Gemini API uses for
// Content, so a persisted log can be replayed to the model without
// translation.
package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Conversation roles. A tool turn carries the local result of a dispatched
// function call back to the model.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// Turn is a single conversation entry: one role, one or more parts.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a union. Exactly one member is populated.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Blob is inline binary content, base64 encoded.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a model-issued tool invocation.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a tool result back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart builds an inline-data part from base64-encoded bytes.
func InlinePart(mimeType, data string) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

// NewUserTurn builds a user turn from the given parts.
func NewUserTurn(parts ...Part) *Turn {
	return &Turn{Role: RoleUser, Parts: parts}
}

// NewModelTurn builds a model turn containing a single text part.
func NewModelTurn(text string) *Turn {
	return &Turn{Role: RoleModel, Parts: []Part{TextPart(text)}}
}

// NewToolTurn builds a tool turn carrying exactly one function response
// whose payload is {"result": result}.
func NewToolTurn(name, result string) *Turn {
	return &Turn{
		Role: RoleTool,
		Parts: []Part{{
			FunctionResponse: &FunctionResponse{
				Name:     name,
				Response: map[string]any{"result": result},
			},
		}},
	}
}

// Text concatenates the text parts of the turn.
func (t *Turn) Text() string {
	var sb strings.Builder
	for _, p := range t.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// FunctionCalls returns the function-call parts of the turn, in order.
func (t *Turn) FunctionCalls() []*FunctionCall {
	var calls []*FunctionCall
	for _, p := range t.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}

// Clone returns a deep copy of the turn.
func (t *Turn) Clone() *Turn {
	cp := &Turn{Role: t.Role, Parts: make([]Part, len(t.Parts))}
	for i, p := range t.Parts {
		cp.Parts[i] = p.clone()
	}
	return cp
}

func (p Part) clone() Part {
	cp := Part{Text: p.Text}
	if p.InlineData != nil {
		b := *p.InlineData
		cp.InlineData = &b
	}
	if p.FunctionCall != nil {
		cp.FunctionCall = &FunctionCall{Name: p.FunctionCall.Name, Args: cloneMap(p.FunctionCall.Args)}
	}
	if p.FunctionResponse != nil {
		cp.FunctionResponse = &FunctionResponse{Name: p.FunctionResponse.Name, Response: cloneMap(p.FunctionResponse.Response)}
	}
	return cp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// CloneTurns deep-copies a log slice.
func CloneTurns(turns []*Turn) []*Turn {
	if turns == nil {
		return nil
	}
	cp := make([]*Turn, len(turns))
	for i, t := range turns {
		cp[i] = t.Clone()
	}
	return cp
}

// ErrInvalidLog reports a log that violates the conversation invariants.
var ErrInvalidLog = errors.New("invalid conversation log")

func (p Part) populated() int {
	n := 0
	if p.Text != "" {
		n++
	}
	if p.InlineData != nil {
		n++
	}
	if p.FunctionCall != nil {
		n++
	}
	if p.FunctionResponse != nil {
		n++
	}
	return n
}

// ValidateTurn checks a single turn against the role invariants:
// tool turns carry exactly one function response, user turns carry only
// text or inline data, model turns never carry a function response.
func ValidateTurn(t *Turn) error {
	if t == nil {
		return fmt.Errorf("%w: nil turn", ErrInvalidLog)
	}
	if len(t.Parts) == 0 {
		return fmt.Errorf("%w: turn with no parts", ErrInvalidLog)
	}
	for _, p := range t.Parts {
		if p.populated() != 1 {
			return fmt.Errorf("%w: part must have exactly one member", ErrInvalidLog)
		}
	}
	switch t.Role {
	case RoleUser:
		for _, p := range t.Parts {
			if p.FunctionCall != nil || p.FunctionResponse != nil {
				return fmt.Errorf("%w: user turn with function part", ErrInvalidLog)
			}
		}
	case RoleModel:
		for _, p := range t.Parts {
			if p.FunctionResponse != nil {
				return fmt.Errorf("%w: model turn with function response", ErrInvalidLog)
			}
			if p.InlineData != nil {
				return fmt.Errorf("%w: model turn with inline data", ErrInvalidLog)
			}
		}
	case RoleTool:
		if len(t.Parts) != 1 || t.Parts[0].FunctionResponse == nil {
			return fmt.Errorf("%w: tool turn must carry exactly one function response", ErrInvalidLog)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidLog, t.Role)
	}
	return nil
}

// ValidateLog checks every turn of a log. An empty log is valid.
func ValidateLog(turns []*Turn) error {
	for i, t := range turns {
		if err := ValidateTurn(t); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
	}
	return nil
}
