package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/eckdocs/internal/document"
	"github.com/xelth-com/eckdocs/internal/utils"
	"go.uber.org/zap"
)

// ErrEmptyInstruction is returned when there is nothing to ask the model
var ErrEmptyInstruction = errors.New("instruction is empty")

// ClauseChange is one clause the model reports as changed or conflicting
type ClauseChange struct {
	Clause      string `json:"clause"`
	Description string `json:"description"`
}

// Proposal is the model's suggested replacement of an agreement body.
// When Fallback is set the structure and HTML are the original ones.
type Proposal struct {
	Structure    *document.Structure
	HTML         string
	Changes      []ClauseChange
	Conflicts    []ClauseChange
	FieldUpdates map[string]string
	Provider     string
	Fallback     bool
	Error        string
	Duration     time.Duration
}

type editResponse struct {
	Structure    json.RawMessage            `json:"structure"`
	Changes      []ClauseChange             `json:"changes"`
	Conflicts    []ClauseChange             `json:"conflicts"`
	FieldUpdates map[string]json.RawMessage `json:"fieldUpdates"`
}

// Editor asks a Completer for structure edits
type Editor struct {
	completer Completer
	log       *zap.Logger
}

// NewEditor wraps a completer
func NewEditor(c Completer, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{completer: c, log: log}
}

// BuildEditPrompt assembles the full prompt for one edit
func BuildEditPrompt(current *document.Structure, instruction string) (string, error) {
	raw, err := current.JSON()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(EditSystemPrompt)
	b.WriteString("\n### CURRENT STRUCTURE\n")
	b.Write(raw)
	b.WriteString("\n\n### INSTRUCTION\n")
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n")
	return b.String(), nil
}

// Propose asks for an edited structure. Backend and parse failures do not
// return an error; they yield a fallback proposal carrying the original.
func (e *Editor) Propose(ctx context.Context, current *document.Structure, instruction string) (*Proposal, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInstruction
	}
	if current == nil {
		current = &document.Structure{}
	}

	prompt, err := BuildEditPrompt(current, instruction)
	if err != nil {
		return nil, fmt.Errorf("encode structure: %w", err)
	}

	start := time.Now()
	p := &Proposal{Provider: e.completer.Name()}

	text, err := e.completer.Complete(ctx, prompt)
	p.Duration = time.Since(start)
	if err != nil {
		e.log.Warn("ai completion failed", zap.String("provider", p.Provider), zap.Error(err))
		return fallback(p, current, err.Error()), nil
	}

	parsed, err := parseEditResponse(text)
	if err != nil {
		e.log.Warn("ai response rejected", zap.String("provider", p.Provider), zap.Error(err))
		return fallback(p, current, err.Error()), nil
	}

	p.Structure = parsed.structure
	p.HTML = document.RenderStructure(parsed.structure)
	if strings.TrimSpace(p.HTML) == "" {
		return fallback(p, current, "rendered HTML is empty"), nil
	}
	p.Changes = parsed.changes
	p.Conflicts = parsed.conflicts
	p.FieldUpdates = parsed.fields
	return p, nil
}

func fallback(p *Proposal, original *document.Structure, reason string) *Proposal {
	p.Structure = original
	p.HTML = document.RenderStructure(original)
	p.Changes = nil
	p.Conflicts = nil
	p.FieldUpdates = nil
	p.Fallback = true
	p.Error = reason
	return p
}

type parsedEdit struct {
	structure *document.Structure
	changes   []ClauseChange
	conflicts []ClauseChange
	fields    map[string]string
}

// parseEditResponse validates raw model output
func parseEditResponse(text string) (*parsedEdit, error) {
	cleaned := utils.SanitizeJSON(text)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	var resp editResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if len(resp.Structure) == 0 {
		return nil, errors.New("response has no structure")
	}

	structure, err := document.ParseStructure(resp.Structure)
	if err != nil {
		return nil, err
	}
	if structure.Empty() {
		return nil, errors.New("structure has no renderable nodes")
	}

	fields := make(map[string]string, len(resp.FieldUpdates))
	for k, raw := range resp.FieldUpdates {
		if v, ok := scalarString(raw); ok {
			fields[k] = v
		}
	}

	return &parsedEdit{
		structure: structure,
		changes:   resp.Changes,
		conflicts: resp.Conflicts,
		fields:    fields,
	}, nil
}

// scalarString accepts JSON strings and numbers
func scalarString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var f json.Number
	if err := json.Unmarshal(raw, &f); err == nil {
		if _, err := strconv.ParseFloat(f.String(), 64); err == nil {
			return f.String(), true
		}
	}
	return "", false
}
