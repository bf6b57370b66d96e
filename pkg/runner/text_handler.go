package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/journey/pkg/domain"
)

// Styler decorates text output, e.g. with markdown rendering or terminal colors.
// A nil Styler prints plain text.
type Styler interface {
	Content(text string) string
	Prompt(text string) string
	Warning(text string) string
	Error(text string) string
}

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader *bufio.Reader
	Writer io.Writer
	Styler Styler

	// ShowVariables prints variable_changed and variable_read actions.
	ShowVariables bool

	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithStyler configures output decoration.
func WithStyler(s Styler) TextHandlerOption {
	return func(h *TextHandler) {
		h.Styler = s
	}
}

// WithVariables makes the handler print variable changes and reads.
func WithVariables() TextHandlerOption {
	return func(h *TextHandler) {
		h.ShowVariables = true
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Output(ctx context.Context, actions []domain.Action) error {
	for _, act := range actions {
		var line string
		switch act.Kind {
		case domain.ActionContentShown:
			line = strings.TrimSpace(h.styled(act.Kind, act.Text))
		case domain.ActionWarning:
			line = h.styled(act.Kind, fmt.Sprintf("warning (%s): %s", act.Code, act.Text))
		case domain.ActionError:
			line = h.styled(act.Kind, fmt.Sprintf("error (%s): %s", act.Code, act.Text))
		case domain.ActionVariableChanged, domain.ActionVariableRead:
			if !h.ShowVariables {
				continue
			}
			line = fmt.Sprintf("  %s = %s", act.Variable, act.Value)
		default:
			continue
		}
		if _, err := fmt.Fprintln(h.Writer, line); err != nil {
			return err
		}
	}
	return nil
}

func (h *TextHandler) styled(kind domain.ActionKind, s string) string {
	if h.Styler == nil {
		return s
	}
	switch kind {
	case domain.ActionContentShown:
		return h.Styler.Content(s)
	case domain.ActionWarning:
		return h.Styler.Warning(s)
	case domain.ActionError:
		return h.Styler.Error(s)
	}
	return s
}

// Input prints the prompt and reads one line. The read happens on a
// background goroutine so a canceled ctx unblocks the caller.
func (h *TextHandler) Input(ctx context.Context, req *domain.InputRequest) (domain.Value, error) {
	prompt := "> "
	if req != nil && req.Prompt != "" {
		prompt = req.Prompt + " "
	}
	if h.Styler != nil {
		prompt = h.Styler.Prompt(prompt)
	}
	fmt.Fprint(h.Writer, prompt)

	if h.lines == nil {
		h.lines = make(chan lineResult, 1)
		go h.pump()
	}

	select {
	case <-ctx.Done():
		return domain.Value{}, ctx.Err()
	case res, ok := <-h.lines:
		if !ok {
			return domain.Value{}, io.EOF
		}
		if res.err != nil {
			return domain.Value{}, res.err
		}
		return domain.String(strings.TrimRight(res.text, "\r\n")), nil
	}
}

func (h *TextHandler) pump() {
	defer close(h.lines)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.lines <- lineResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.lines <- lineResult{err: err}
			}
			return
		}
	}
}
