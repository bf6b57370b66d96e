package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/journey/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Each step is written as one JSON array of actions. Input lines may be any
// JSON scalar; lines that are not valid JSON are taken as plain strings.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}
	return h.Encoder.Encode(actions)
}

func (h *JSONHandler) Input(ctx context.Context, req *domain.InputRequest) (domain.Value, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return domain.Value{}, err
	}
	text = strings.TrimSpace(text)

	var v domain.Value
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}
	return domain.String(text), nil
}
