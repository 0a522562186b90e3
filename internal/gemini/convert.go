package gemini

import (
	"encoding/base64"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// toContents converts a conversation log to the SDK's content slice. Roles
// pass through unchanged; the API expects user/model/tool as-is.
func toContents(turns []*llm.Turn) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for i, t := range turns {
		parts := make([]*genai.Part, 0, len(t.Parts))
		for _, p := range t.Parts {
			part, err := toPart(p)
			if err != nil {
				return nil, fmt.Errorf("turn %d: %w", i, err)
			}
			parts = append(parts, part)
		}
		contents = append(contents, &genai.Content{Role: t.Role, Parts: parts})
	}
	return contents, nil
}

func toPart(p llm.Part) (*genai.Part, error) {
	switch {
	case p.Text != "":
		return &genai.Part{Text: p.Text}, nil
	case p.InlineData != nil:
		raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding inline data: %w", err)
		}
		return &genai.Part{InlineData: &genai.Blob{
			MIMEType: p.InlineData.MIMEType,
			Data:     raw,
		}}, nil
	case p.FunctionCall != nil:
		return &genai.Part{FunctionCall: &genai.FunctionCall{
			Name: p.FunctionCall.Name,
			Args: p.FunctionCall.Args,
		}}, nil
	case p.FunctionResponse != nil:
		return &genai.Part{FunctionResponse: &genai.FunctionResponse{
			Name:     p.FunctionResponse.Name,
			Response: p.FunctionResponse.Response,
		}}, nil
	default:
		return nil, fmt.Errorf("empty part")
	}
}

// fromContent converts the model's reply content to a turn, verbatim. Parts
// the protocol has no representation for are dropped; a reply with no usable
// parts is malformed.
func fromContent(c *genai.Content) (*llm.Turn, error) {
	if c == nil {
		return nil, llm.ErrMalformedReply
	}
	turn := &llm.Turn{Role: llm.RoleModel}
	for _, p := range c.Parts {
		switch {
		case p == nil:
			continue
		case p.Text != "":
			turn.Parts = append(turn.Parts, llm.TextPart(p.Text))
		case p.FunctionCall != nil:
			turn.Parts = append(turn.Parts, llm.Part{FunctionCall: &llm.FunctionCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			}})
		case p.InlineData != nil:
			turn.Parts = append(turn.Parts, llm.InlinePart(
				p.InlineData.MIMEType,
				base64.StdEncoding.EncodeToString(p.InlineData.Data),
			))
		}
	}
	if len(turn.Parts) == 0 {
		return nil, llm.ErrMalformedReply
	}
	return turn, nil
}

// toTools converts declarations to the SDK's tool list.
func toTools(decls []llm.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toSchema(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

func toSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toSchemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = toSchema(s.Items)
	}
	return out
}

func toSchemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "boolean":
		return genai.TypeBoolean
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}
