package schema_test

import (
	"testing"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func codes(issues schema.Issues) []schema.IssueCode {
	out := make([]schema.IssueCode, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestCheck_Clean(t *testing.T) {
	wf, err := schema.ParseYAML([]byte(ageCheckYAML))
	require.NoError(t, err)

	issues := schema.Check(wf)
	assert.Empty(t, issues)
	assert.False(t, issues.HasErrors())
}

func TestCheck(t *testing.T) {
	cond := func(rules ...domain.ConditionRule) domain.Condition { return domain.Condition{Rules: rules} }

	tests := []struct {
		name   string
		wf     *domain.Workflow
		want   []schema.IssueCode
		errors bool
	}{
		{
			name: "empty workflow",
			wf:   &domain.Workflow{},
			want: []schema.IssueCode{schema.IssueEmptyWorkflow},
		},
		{
			name:   "duplicate and missing ids",
			wf:     &domain.Workflow{Nodes: []domain.Node{{ID: "a"}, {ID: "a"}, {ID: ""}}},
			want:   []schema.IssueCode{schema.IssueDuplicateNode, schema.IssueMissingNodeID},
			errors: true,
		},
		{
			name: "dangling goto in branch",
			wf: &domain.Workflow{Nodes: []domain.Node{{ID: "a", Blocks: []domain.Block{
				cond(domain.ConditionRule{Variable: "x", Operator: domain.OpIsTrue,
					Then: []domain.Block{domain.GotoNode{Target: "nowhere"}}}),
			}}}},
			want:   []schema.IssueCode{schema.IssueDanglingTarget},
			errors: true,
		},
		{
			name: "goto without target",
			wf: &domain.Workflow{Nodes: []domain.Node{{ID: "a", Blocks: []domain.Block{
				domain.GotoNode{},
			}}}},
			want:   []schema.IssueCode{schema.IssueMissingField},
			errors: true,
		},
		{
			name: "missing variable names",
			wf: &domain.Workflow{Nodes: []domain.Node{{ID: "a", Blocks: []domain.Block{
				domain.SetVariable{Source: domain.ValueSource{Literal: str("x")}},
				domain.UpdateVariable{},
				domain.GetVariable{},
			}}}},
			want:   []schema.IssueCode{schema.IssueMissingField, schema.IssueMissingField, schema.IssueMissingField},
			errors: true,
		},
		{
			name: "ambiguous source",
			wf: &domain.Workflow{Nodes: []domain.Node{{ID: "a", Blocks: []domain.Block{
				domain.SetVariable{Target: "x", Source: domain.ValueSource{Literal: str("1"), Action: "now"}},
			}}}},
			want: []schema.IssueCode{schema.IssueAmbiguousSource},
		},
		{
			name: "rule problems",
			wf: &domain.Workflow{Nodes: []domain.Node{{ID: "a", Blocks: []domain.Block{
				cond(
					domain.ConditionRule{Variable: "x", Operator: domain.OpGreaterThan, Value: str("ten")},
					domain.ConditionRule{Variable: "y", Operator: domain.OpEquals},
				),
				cond(domain.ConditionRule{Variable: "x", Operator: "matches"}),
			}}}},
			want:   []schema.IssueCode{schema.IssueIgnoredRules, schema.IssueNonNumericValue, schema.IssueUnknownOperator},
			errors: true,
		},
		{
			name: "control flow that has no effect",
			wf: &domain.Workflow{Nodes: []domain.Node{{ID: "a", Blocks: []domain.Block{
				cond(domain.ConditionRule{Variable: "x", Operator: domain.OpIsTrue,
					Then: []domain.Block{
						domain.EndWorkflow{},
						domain.GotoNode{Target: "a"},
					},
					Else: []domain.Block{
						domain.AwaitUserInput{Target: "y"},
						domain.PresentContent{Content: "skipped"},
						cond(domain.ConditionRule{Variable: "y", Operator: domain.OpIsTrue,
							Then: []domain.Block{domain.EndWorkflow{}}}),
					},
				}),
			}}}},
			want: []schema.IssueCode{schema.IssueShadowedControl, schema.IssueAwaitInBranch, schema.IssueNestedControl},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := schema.Check(tt.wf)
			assert.Equal(t, tt.want, codes(issues))
			assert.Equal(t, tt.errors, issues.HasErrors())
		})
	}
}

func TestIssue_String(t *testing.T) {
	is := schema.Issue{Severity: schema.SeverityError, Code: schema.IssueDanglingTarget, NodeID: "a", BlockIndex: 2, Message: "boom"}
	assert.Equal(t, "error dangling_reference at a[2]: boom", is.String())

	is = schema.Issue{Severity: schema.SeverityWarning, Code: schema.IssueEmptyWorkflow, BlockIndex: -1, Message: "empty"}
	assert.Equal(t, "warning empty_workflow: empty", is.String())
}
