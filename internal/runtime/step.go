package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/journey/internal/flow"
	"github.com/aretw0/journey/pkg/domain"
)

// step carries the state of a single Step call.
type step struct {
	engine   *Engine
	ctx      context.Context
	wf       *domain.Workflow
	resolver *flow.Resolver
	sess     *domain.Session
	logger   *slog.Logger

	actions    []domain.Action
	iterations int
}

func (s *step) run(limit int) {
	cur, ok := s.position()
	if !ok {
		return
	}

	for {
		switch cur.Kind {
		case flow.TargetTerminal:
			s.complete()
			return
		case flow.TargetDangling:
			s.fail(s.sess.Position(), domain.CodeDanglingReference,
				fmt.Sprintf("node %q does not exist", cur.Ref))
			return
		}

		if s.iterations >= limit {
			s.fail(s.sess.Position(), domain.CodeIterationLimit,
				fmt.Sprintf("step exceeded %d iterations without suspending or ending", limit))
			return
		}
		s.iterations++

		if cur.Kind != flow.TargetNextBlock {
			s.enter(cur)
		}
		if cur.PassThrough() {
			cur = s.resolver.Next(cur.NodeIndex, -1, flow.BranchNone)
			continue
		}

		s.sess.BlockIndex = cur.BlockIndex
		at := s.sess.Position()
		block := s.resolver.Node(cur.NodeIndex).Blocks[cur.BlockIndex]
		s.blockEvent(at, block)

		branch, stop := s.exec(at, block, nil)
		if stop {
			return
		}
		cur = s.resolver.Next(cur.NodeIndex, cur.BlockIndex, branch)
	}
}

// position resolves where this step begins.
func (s *step) position() (flow.Target, bool) {
	if !s.sess.Started() {
		return s.resolver.Entry(), true
	}

	idx, ok := s.resolver.Locate(s.sess.NodeIndex, s.sess.CurrentNodeID)
	if !ok {
		s.fail(s.sess.Position(), domain.CodeDanglingReference,
			fmt.Sprintf("current node %q does not exist", s.sess.CurrentNodeID))
		return flow.Target{}, false
	}

	if r := s.sess.Resume; r != nil {
		s.sess.Resume = nil
		branch := flow.BranchNone
		if r.Outcome != nil {
			branch = flow.BranchOf(*r.Outcome)
		}
		return s.resolver.Next(idx, s.sess.BlockIndex, branch), true
	}

	blocks := s.resolver.Node(idx).Blocks
	if s.sess.BlockIndex < 0 || s.sess.BlockIndex >= len(blocks) {
		return s.resolver.Next(idx, s.sess.BlockIndex, flow.BranchNone), true
	}
	return flow.Target{
		Kind:       flow.TargetNextBlock,
		NodeIndex:  idx,
		NodeID:     s.sess.CurrentNodeID,
		BlockIndex: s.sess.BlockIndex,
	}, true
}

func (s *step) enter(t flow.Target) {
	s.sess.CurrentNodeID = t.NodeID
	s.sess.NodeIndex = t.NodeIndex
	s.sess.BlockIndex = 0
	s.sess.History = append(s.sess.History, t.NodeID)

	if t.Kind == flow.TargetJump {
		s.emit(domain.Action{Kind: domain.ActionNavigated, NodeID: t.NodeID})
	}
	if hook := s.engine.hooks.OnNodeEnter; hook != nil {
		hook(s.ctx, &domain.NodeEvent{
			EventBase: s.engine.base(domain.EventNodeEnter, s.sess),
			NodeID:    t.NodeID,
		})
	}
	s.logger.DebugContext(s.ctx, "Entered node", "node_id", t.NodeID, "via", t.Kind.String())
}

// exec applies the side effects of one block. outcome is the result of the
// enclosing top-level condition when b runs inside a branch. It returns the
// branch taken (for conditions) and whether the step must stop.
func (s *step) exec(at domain.Position, b domain.Block, outcome *bool) (flow.Branch, bool) {
	switch blk := b.(type) {
	case domain.PresentContent:
		s.emit(domain.Action{
			Kind:       domain.ActionContentShown,
			NodeID:     at.NodeID,
			BlockIndex: at.BlockIndex,
			Text:       Interpolate(blk.Content, s.sess.Variables),
		})
	case domain.AwaitUserInput:
		s.await(at, blk, outcome)
		return flow.BranchNone, true
	case domain.SetVariable:
		return flow.BranchNone, !s.assign(at, blk.Kind(), blk.Target, domain.UpdateSet, blk.Source)
	case domain.UpdateVariable:
		return flow.BranchNone, !s.assign(at, blk.Kind(), blk.Target, blk.Operation, blk.Source)
	case domain.GetVariable:
		return flow.BranchNone, !s.read(at, blk)
	case domain.Condition:
		return s.condition(at, blk, outcome)
	case domain.GotoNode, domain.EndWorkflow:
		// Control only; the resolver decides where to go.
	}
	return flow.BranchNone, false
}

func (s *step) condition(at domain.Position, c domain.Condition, outcome *bool) (flow.Branch, bool) {
	if len(c.Rules) == 0 {
		return flow.BranchNone, false
	}
	if len(c.Rules) > 1 {
		s.logger.WarnContext(s.ctx, "Only the first condition rule is evaluated",
			"node_id", at.NodeID, "block_index", at.BlockIndex, "ignored", len(c.Rules)-1)
	}

	rule := c.Rules[0]
	result, warning := Evaluate(rule, s.sess.Variables)
	if warning != nil {
		s.warn(at, warning.Code, warning.Message)
	}
	s.logger.DebugContext(s.ctx, "Condition evaluated",
		"node_id", at.NodeID, "variable", rule.Variable, "operator", rule.Operator, "result", result)

	if outcome == nil {
		outcome = &result
	}
	branch := flow.BranchOf(result)
	for _, a := range rule.Branch(result) {
		if _, stop := s.exec(at, a, outcome); stop {
			return branch, true
		}
	}
	return branch, false
}

func (s *step) await(at domain.Position, blk domain.AwaitUserInput, outcome *bool) {
	req := &domain.InputRequest{
		ID:       s.engine.newID(),
		Variable: blk.Target,
		Prompt:   Interpolate(blk.Prompt, s.sess.Variables),
		Outcome:  outcome,
	}
	s.sess.Pending = req
	s.sess.Status = domain.StatusAwaitingInput
	s.emit(domain.Action{
		Kind:       domain.ActionInputRequested,
		NodeID:     at.NodeID,
		BlockIndex: at.BlockIndex,
		Text:       req.Prompt,
		Variable:   req.Variable,
		RequestID:  req.ID,
	})
}

func (s *step) assign(at domain.Position, kind domain.BlockKind, target string, op domain.UpdateOperation, src domain.ValueSource) bool {
	if target == "" {
		s.fail(at, domain.CodeInvalidBlock, fmt.Sprintf("%s has no target variable", kind))
		return false
	}
	if op != "" && op != domain.UpdateSet && op != domain.UpdateAppend {
		s.fail(at, domain.CodeInvalidBlock, fmt.Sprintf("%s has unsupported operation %q", kind, op))
		return false
	}

	value, ok := s.compute(at, src)
	if !ok {
		return false
	}
	if op == domain.UpdateAppend {
		prev := s.sess.Variables[target]
		value = domain.String(prev.String() + value.String())
	}

	s.sess.Variables[target] = value
	s.emit(domain.Action{
		Kind:       domain.ActionVariableChanged,
		NodeID:     at.NodeID,
		BlockIndex: at.BlockIndex,
		Variable:   target,
		Value:      &value,
	})
	return true
}

func (s *step) read(at domain.Position, blk domain.GetVariable) bool {
	if blk.Source == "" {
		s.fail(at, domain.CodeInvalidBlock, "GET_VARIABLE has no source variable")
		return false
	}
	value := s.sess.Variables[blk.Source]
	s.emit(domain.Action{
		Kind:       domain.ActionVariableRead,
		NodeID:     at.NodeID,
		BlockIndex: at.BlockIndex,
		Variable:   blk.Source,
		Value:      &value,
	})
	return true
}

// compute resolves a value source. Literals are interpolated; actions are delegated.
func (s *step) compute(at domain.Position, src domain.ValueSource) (domain.Value, bool) {
	switch {
	case src.IsAction():
		return s.call(at, src)
	case src.Literal != nil:
		return domain.String(Interpolate(*src.Literal, s.sess.Variables)), true
	default:
		return domain.Null(), true
	}
}

func (s *step) call(at domain.Position, src domain.ValueSource) (domain.Value, bool) {
	args := InterpolateArgs(src.Args, s.sess.Variables)
	event := &domain.ActionEvent{
		EventBase: s.engine.base(domain.EventActionCall, s.sess),
		NodeID:    at.NodeID,
		Action:    src.Action,
		Args:      args,
	}
	if hook := s.engine.hooks.OnActionCall; hook != nil {
		hook(s.ctx, event)
	}

	started := s.engine.now()
	var (
		result any
		err    error
	)
	if s.engine.actions == nil {
		err = fmt.Errorf("%w: %s", domain.ErrUnknownAction, src.Action)
	} else {
		result, err = s.engine.actions.Execute(s.ctx, src.Action, args)
	}

	var value domain.Value
	if err == nil {
		value, err = domain.ValueOf(result)
	}

	if hook := s.engine.hooks.OnActionReturn; hook != nil {
		ret := *event
		ret.EventBase = s.engine.base(domain.EventActionReturn, s.sess)
		ret.Result = result
		ret.Duration = s.engine.now().Sub(started)
		ret.IsError = err != nil
		hook(s.ctx, &ret)
	}

	if err != nil {
		s.fail(at, domain.CodeActionFailed, fmt.Sprintf("action %q failed: %v", src.Action, err))
		return domain.Value{}, false
	}
	return value, true
}

func (s *step) blockEvent(at domain.Position, b domain.Block) {
	if hook := s.engine.hooks.OnBlock; hook != nil {
		hook(s.ctx, &domain.BlockEvent{
			EventBase:  s.engine.base(domain.EventBlock, s.sess),
			NodeID:     at.NodeID,
			BlockIndex: at.BlockIndex,
			Kind:       b.Kind(),
		})
	}
	s.logger.DebugContext(s.ctx, "Executing block",
		"node_id", at.NodeID, "block_index", at.BlockIndex, "kind", b.Kind())
}

func (s *step) emit(a domain.Action) {
	s.actions = append(s.actions, a)
}

func (s *step) warn(at domain.Position, code domain.ErrorCode, msg string) {
	s.logger.WarnContext(s.ctx, "Condition evaluation warning",
		"node_id", at.NodeID, "block_index", at.BlockIndex, "code", code, "detail", msg)
	s.emit(domain.Action{
		Kind:       domain.ActionWarning,
		NodeID:     at.NodeID,
		BlockIndex: at.BlockIndex,
		Text:       msg,
		Code:       code,
	})
}

func (s *step) complete() {
	s.sess.Status = domain.StatusCompleted
	s.emit(domain.Action{
		Kind:       domain.ActionCompleted,
		NodeID:     s.sess.CurrentNodeID,
		BlockIndex: s.sess.BlockIndex,
	})
	s.logger.DebugContext(s.ctx, "Session completed", "iterations", s.iterations)
	s.end()
}

func (s *step) fail(at domain.Position, code domain.ErrorCode, msg string) {
	execErr := &domain.ExecError{
		Code:       code,
		NodeID:     at.NodeID,
		BlockIndex: at.BlockIndex,
		Message:    msg,
	}
	s.sess.Status = domain.StatusFailed
	s.sess.Error = execErr
	s.sess.Pending = nil
	s.emit(domain.Action{
		Kind:       domain.ActionError,
		NodeID:     at.NodeID,
		BlockIndex: at.BlockIndex,
		Text:       msg,
		Code:       code,
	})
	s.logger.WarnContext(s.ctx, "Session failed", "error", execErr)
	s.end()
}

func (s *step) end() {
	if hook := s.engine.hooks.OnSessionEnd; hook != nil {
		hook(s.ctx, &domain.SessionEvent{
			EventBase: s.engine.base(domain.EventSessionEnd, s.sess),
			Status:    s.sess.Status,
			Error:     s.sess.Error,
		})
	}
}
