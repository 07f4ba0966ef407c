package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Cyclone1070/mini/internal/provider"
)

// FileRecorder writes each request and its outcome to
// <Dir>/request-NNNN.json.
type FileRecorder struct {
	Dir    string
	Logger *slog.Logger
}

type artifact struct {
	Request  any               `json:"request"`
	Response *provider.Message `json:"response,omitempty"`
	Usage    *provider.Usage   `json:"usage,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func (r *FileRecorder) Record(n int, req *provider.ChatRequest, resp *provider.ChatResponse, err error) {
	var a artifact
	a.Request = req
	if resp != nil {
		// Prefer the exact wire payload when the adapter kept it.
		if len(resp.RawRequest) > 0 && json.Valid(resp.RawRequest) {
			a.Request = json.RawMessage(resp.RawRequest)
		}
		a.Response = &resp.Message
		a.Usage = resp.Usage
	}
	if err != nil {
		a.Error = err.Error()
	}

	if werr := r.write(n, a); werr != nil && r.Logger != nil {
		r.Logger.Warn("write debug artifact", "request", n, "err", werr)
	}
}

func (r *FileRecorder) write(n int, a artifact) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.Dir, fmt.Sprintf("request-%04d.json", n)), data, 0o644)
}
