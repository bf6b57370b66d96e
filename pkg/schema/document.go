package schema

import (
	"strings"

	"github.com/aretw0/journey/pkg/domain"
)

// workflowDoc mirrors the document layout. It uses "mapstructure" tags to
// match the keys editors write.
type workflowDoc struct {
	ID          string    `mapstructure:"id"`
	Name        string    `mapstructure:"name"`
	Description string    `mapstructure:"description"`
	Variables   []string  `mapstructure:"variables"`
	Nodes       []nodeDoc `mapstructure:"nodes"`
}

type nodeDoc struct {
	ID     string     `mapstructure:"id"`
	Title  string     `mapstructure:"title"`
	Blocks []blockDoc `mapstructure:"blocks"`
}

type blockDoc struct {
	Type       string         `mapstructure:"type"`
	Content    string         `mapstructure:"content"`
	Prompt     string         `mapstructure:"prompt"`
	Target     string         `mapstructure:"target"`
	Source     *string        `mapstructure:"source"`
	Action     string         `mapstructure:"action"`
	ActionArgs map[string]any `mapstructure:"actionArgs"`
	Operation  string         `mapstructure:"operation"`
	Rules      []ruleDoc      `mapstructure:"rules"`
}

type ruleDoc struct {
	Variable string     `mapstructure:"variable"`
	Operator string     `mapstructure:"operator"`
	Value    *string    `mapstructure:"value"`
	Then     []blockDoc `mapstructure:"then"`
	Else     []blockDoc `mapstructure:"else"`
}

// operatorAliases maps shorthand operators accepted in documents.
var operatorAliases = map[string]domain.Operator{
	"":   domain.OpEquals,
	"==": domain.OpEquals,
	"!=": domain.OpNotEquals,
}

func (d workflowDoc) toDomain() *domain.Workflow {
	wf := &domain.Workflow{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Variables:   d.Variables,
		Nodes:       make([]domain.Node, len(d.Nodes)),
	}
	for i, n := range d.Nodes {
		wf.Nodes[i] = domain.Node{ID: n.ID, Title: n.Title, Blocks: toBlocks(n.Blocks)}
	}
	return wf
}

func toBlocks(docs []blockDoc) []domain.Block {
	if len(docs) == 0 {
		return nil
	}
	out := make([]domain.Block, 0, len(docs))
	for _, b := range docs {
		if block := b.toDomain(); block != nil {
			out = append(out, block)
		}
	}
	return out
}

func (b blockDoc) source() domain.ValueSource {
	return domain.ValueSource{Literal: b.Source, Action: b.Action, Args: b.ActionArgs}
}

func (b blockDoc) toDomain() domain.Block {
	switch domain.BlockKind(b.Type) {
	case domain.BlockPresentContent:
		return domain.PresentContent{Content: b.Content}
	case domain.BlockAwaitUserInput:
		return domain.AwaitUserInput{Target: b.Target, Prompt: b.Prompt}
	case domain.BlockSetVariable:
		return domain.SetVariable{Target: b.Target, Source: b.source()}
	case domain.BlockUpdateVariable:
		return domain.UpdateVariable{
			Target:    b.Target,
			Operation: domain.UpdateOperation(b.Operation),
			Source:    b.source(),
		}
	case domain.BlockGetVariable:
		src := ""
		if b.Source != nil {
			src = *b.Source
		}
		return domain.GetVariable{Source: src}
	case domain.BlockCondition:
		rules := make([]domain.ConditionRule, len(b.Rules))
		for i, r := range b.Rules {
			op, ok := operatorAliases[strings.TrimSpace(r.Operator)]
			if !ok {
				op = domain.Operator(r.Operator)
			}
			rules[i] = domain.ConditionRule{
				Variable: r.Variable,
				Operator: op,
				Value:    r.Value,
				Then:     toBlocks(r.Then),
				Else:     toBlocks(r.Else),
			}
		}
		return domain.Condition{Rules: rules}
	case domain.BlockGotoNode:
		return domain.GotoNode{Target: b.Target}
	case domain.BlockEndWorkflow:
		return domain.EndWorkflow{}
	}
	// Unreachable for schema-validated documents.
	return nil
}

// Encode converts a workflow back into a generic document using the same keys
// Parse accepts. Absent optional fields are omitted.
func Encode(wf *domain.Workflow) map[string]any {
	doc := map[string]any{"nodes": encodeNodes(wf.Nodes)}
	putString(doc, "id", wf.ID)
	putString(doc, "name", wf.Name)
	putString(doc, "description", wf.Description)
	if len(wf.Variables) > 0 {
		doc["variables"] = append([]string(nil), wf.Variables...)
	}
	return doc
}

func encodeNodes(nodes []domain.Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		node := map[string]any{"id": n.ID}
		putString(node, "title", n.Title)
		if len(n.Blocks) > 0 {
			node["blocks"] = encodeBlocks(n.Blocks)
		}
		out[i] = node
	}
	return out
}

func encodeBlocks(blocks []domain.Block) []any {
	out := make([]any, len(blocks))
	for i, b := range blocks {
		m := map[string]any{"type": string(b.Kind())}
		switch blk := b.(type) {
		case domain.PresentContent:
			m["content"] = blk.Content
		case domain.AwaitUserInput:
			putString(m, "target", blk.Target)
			putString(m, "prompt", blk.Prompt)
		case domain.SetVariable:
			putString(m, "target", blk.Target)
			putSource(m, blk.Source)
		case domain.UpdateVariable:
			putString(m, "target", blk.Target)
			putString(m, "operation", string(blk.Operation))
			putSource(m, blk.Source)
		case domain.GetVariable:
			putString(m, "source", blk.Source)
		case domain.Condition:
			rules := make([]any, len(blk.Rules))
			for j, r := range blk.Rules {
				rule := map[string]any{"variable": r.Variable, "operator": string(r.Operator)}
				if r.Value != nil {
					rule["value"] = *r.Value
				}
				if len(r.Then) > 0 {
					rule["then"] = encodeBlocks(r.Then)
				}
				if len(r.Else) > 0 {
					rule["else"] = encodeBlocks(r.Else)
				}
				rules[j] = rule
			}
			m["rules"] = rules
		case domain.GotoNode:
			putString(m, "target", blk.Target)
		}
		out[i] = m
	}
	return out
}

func putSource(m map[string]any, src domain.ValueSource) {
	if src.Literal != nil {
		m["source"] = *src.Literal
	}
	putString(m, "action", src.Action)
	if len(src.Args) > 0 {
		m["actionArgs"] = src.Args
	}
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
