package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xelth-com/eckdocs/internal/document"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeCompleter) Name() string { return "fake" }

func original() *document.Structure {
	return &document.Structure{Nodes: []document.Node{
		{Type: document.NodeSection, ID: "rent", Title: "Rent", Text: "Rent is {{rent_amount}} per month."},
	}}
}

func TestProposeAcceptsValidEdit(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n" + `{
		"structure": {"nodes": [{"type": "section", "id": "rent", "title": "Rent", "text": "Rent is 12000 per month."}]},
		"changes": [{"clause": "rent", "description": "amount raised"}],
		"fieldUpdates": {"rentAmount": 12000, "city": "Kyiv", "bogus": {"x": 1}}
	}` + "\n```"}

	p, err := NewEditor(fc, nil).Propose(context.Background(), original(), "raise rent to 12000")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if p.Fallback {
		t.Fatalf("unexpected fallback: %s", p.Error)
	}
	if !strings.Contains(p.HTML, "Rent is 12000 per month.") {
		t.Errorf("HTML not regenerated: %s", p.HTML)
	}
	if len(p.Changes) != 1 || p.Changes[0].Clause != "rent" {
		t.Errorf("unexpected changes %+v", p.Changes)
	}
	if p.FieldUpdates["rentAmount"] != "12000" || p.FieldUpdates["city"] != "Kyiv" {
		t.Errorf("unexpected field updates %+v", p.FieldUpdates)
	}
	if _, ok := p.FieldUpdates["bogus"]; ok {
		t.Error("non-scalar field update should be dropped")
	}
	if !strings.Contains(fc.prompt, "raise rent to 12000") || !strings.Contains(fc.prompt, `"id":"rent"`) {
		t.Error("prompt should carry instruction and current structure")
	}
}

func TestProposeFallsBack(t *testing.T) {
	cases := map[string]*fakeCompleter{
		"backend error":   {err: errors.New("timeout")},
		"not json":        {reply: "I cannot help with that"},
		"no structure":    {reply: `{"changes": []}`},
		"empty structure": {reply: `{"structure": {"nodes": [{"type": "table"}]}}`},
	}
	for name, fc := range cases {
		t.Run(name, func(t *testing.T) {
			orig := original()
			p, err := NewEditor(fc, nil).Propose(context.Background(), orig, "change something")
			if err != nil {
				t.Fatalf("Propose should not fail: %v", err)
			}
			if !p.Fallback || p.Error == "" {
				t.Fatalf("expected fallback with reason, got %+v", p)
			}
			if p.Structure != orig {
				t.Error("fallback must return the original structure")
			}
			if p.HTML != document.RenderStructure(orig) {
				t.Error("fallback HTML must be the original rendering")
			}
		})
	}
}

func TestProposeRejectsEmptyInstruction(t *testing.T) {
	_, err := NewEditor(&fakeCompleter{}, nil).Propose(context.Background(), original(), "   ")
	if !errors.Is(err, ErrEmptyInstruction) {
		t.Errorf("expected ErrEmptyInstruction, got %v", err)
	}
}
