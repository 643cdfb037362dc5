package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeType tags a structure node
type NodeType string

const (
	NodeSection    NodeType = "section"
	NodeSubsection NodeType = "subsection"
	NodeParagraph  NodeType = "paragraph"
	NodeBulletList NodeType = "bulletList"
)

// Known reports whether the renderer understands t
func (t NodeType) Known() bool {
	switch t {
	case NodeSection, NodeSubsection, NodeParagraph, NodeBulletList:
		return true
	}
	return false
}

// Node is one entry of a structure tree. Which fields matter depends on Type:
// sections and subsections use Title, Text and Children, paragraphs use Text,
// bullet lists use Items.
type Node struct {
	Type     NodeType `json:"type"`
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text,omitempty"`
	Children []Node   `json:"children,omitempty"`
	Items    []string `json:"items,omitempty"`
}

// Structure is the authoritative JSON form of an agreement body
type Structure struct {
	Title string `json:"title,omitempty"`
	Nodes []Node `json:"nodes"`
}

// ParseStructure decodes raw JSON. Empty input and JSON null give an empty structure.
func ParseStructure(raw []byte) (*Structure, error) {
	s := &Structure{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return s, nil
	}
	if err := json.Unmarshal(trimmed, s); err != nil {
		return nil, fmt.Errorf("invalid structure: %w", err)
	}
	return s, nil
}

// Empty reports whether the structure has no renderable node
func (s *Structure) Empty() bool {
	if s == nil {
		return true
	}
	for _, n := range s.Nodes {
		if n.Type.Known() {
			return false
		}
	}
	return true
}

// JSON encodes the structure
func (s *Structure) JSON() ([]byte, error) {
	if s.Nodes == nil {
		s.Nodes = []Node{}
	}
	return json.Marshal(s)
}

// Visitor receives known nodes depth-first. Leave is called after all children.
type Visitor interface {
	Enter(n *Node, depth int)
	Leave(n *Node, depth int)
}

// Walk visits nodes depth-first, skipping unknown node types and their subtrees
func Walk(nodes []Node, v Visitor) {
	walk(nodes, v, 0)
}

func walk(nodes []Node, v Visitor, depth int) {
	for i := range nodes {
		n := &nodes[i]
		if !n.Type.Known() {
			continue
		}
		v.Enter(n, depth)
		if len(n.Children) > 0 {
			walk(n.Children, v, depth+1)
		}
		v.Leave(n, depth)
	}
}
