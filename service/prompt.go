package service

import (
	"fmt"
	"strings"

	"github.com/tieubaoca/pdfchat/types"
)

const (
	// DocumentMarker is where the escaped corpus goes in the instructions.
	DocumentMarker = "{document}"
	HistoryKey     = "chat_history"
	InputKey       = "input"
)

const DefaultInstructions = `You are a friendly assistant with access to the information contained in the document below:

####
{document}
####

Your task is to answer questions based exclusively on the information presented above and on the conversation history.
If the answer cannot be determined from this data, say that you do not know, without guessing or inventing information.`

var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

// EscapeBraces doubles every brace so that text survives Format unchanged.
// Apply it once per corpus.
func EscapeBraces(s string) string {
	return braceEscaper.Replace(s)
}

// NewPromptTemplate embeds the escaped corpus into the instructions and
// checks that the resulting system segment formats cleanly.
func NewPromptTemplate(corpus, instructions string) (*types.PromptTemplate, error) {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}
	if !strings.Contains(instructions, DocumentMarker) {
		return nil, fmt.Errorf("%w: instructions must contain %s", types.ErrTemplate, DocumentMarker)
	}

	system := strings.Replace(instructions, DocumentMarker, EscapeBraces(corpus), 1)
	if _, err := Format(system, nil); err != nil {
		return nil, err
	}
	return &types.PromptTemplate{
		System:     system,
		HistoryKey: HistoryKey,
		InputKey:   InputKey,
	}, nil
}

// Format expands a template segment. "{{" and "}}" produce literal braces and
// "{name}" is replaced with vars[name]. Unknown fields and unmatched braces
// are errors.
func Format(segment string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(segment))

	for i := 0; i < len(segment); i++ {
		c := segment[i]
		switch c {
		case '{':
			if i+1 < len(segment) && segment[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(segment[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: single '{' at offset %d", types.ErrTemplate, i)
			}
			name := segment[i+1 : i+1+end]
			if strings.ContainsRune(name, '{') {
				return "", fmt.Errorf("%w: unexpected '{' in field name at offset %d", types.ErrTemplate, i)
			}
			val, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: missing variable %q", types.ErrTemplate, name)
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(segment) && segment[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' at offset %d", types.ErrTemplate, i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// BuildModelRequest renders the system segment and pairs it with the history
// and the new input. History and input are values and are never parsed.
func BuildModelRequest(tpl *types.PromptTemplate, history []types.Message, input string) (types.ModelRequest, error) {
	if tpl == nil {
		return types.ModelRequest{}, types.ErrNotReady
	}
	system, err := Format(tpl.System, nil)
	if err != nil {
		return types.ModelRequest{}, err
	}
	if history == nil {
		history = []types.Message{}
	}
	return types.ModelRequest{
		System:  system,
		History: history,
		Input:   input,
	}, nil
}

// RenderMessages flattens a request into the three-part message list:
// system, every history turn, then the human input.
func RenderMessages(req types.ModelRequest) []types.Message {
	msgs := make([]types.Message, 0, len(req.History)+2)
	msgs = append(msgs, types.Message{Role: types.RoleSystem, Content: req.System})
	msgs = append(msgs, req.History...)
	msgs = append(msgs, types.HumanMessage(req.Input))
	return msgs
}
