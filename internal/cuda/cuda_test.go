package cuda

import (
	"context"
	"errors"
	"testing"

	"github.com/d8ahazard/audiolab-tools/internal/runner"
)

// seqRunner answers commands in order from a script of results.
type seqRunner struct {
	errs  []error
	calls []runner.Options
}

func (s *seqRunner) Run(_ context.Context, opts runner.Options) (runner.Result, error) {
	s.calls = append(s.calls, opts)
	if len(s.errs) == 0 {
		return runner.Result{}, nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return runner.Result{}, err
}

func TestDetectOverride(t *testing.T) {
	t.Run("existing override is used", func(t *testing.T) {
		dir := t.TempDir()
		r := &seqRunner{}
		info := NewDetector(r, func(string) string { return "" }).Detect(context.Background(), dir)

		if !info.Available {
			t.Error("expected CUDA available with existing override")
		}
		if info.Home != dir {
			t.Errorf("Home = %q, want %q", info.Home, dir)
		}
		if len(r.calls) != 0 {
			t.Errorf("override must short-circuit probing, ran %d commands", len(r.calls))
		}
	})

	t.Run("missing override disables CUDA", func(t *testing.T) {
		info := NewDetector(&seqRunner{}, func(string) string { return "" }).
			Detect(context.Background(), "/does/not/exist")

		if info.Available {
			t.Error("expected CUDA unavailable with missing override path")
		}
	})
}

func TestDetectProbes(t *testing.T) {
	t.Run("nvidia-smi success", func(t *testing.T) {
		r := &seqRunner{}
		info := NewDetector(r, func(string) string { return "" }).Detect(context.Background(), "")

		if !info.Available {
			t.Error("expected CUDA available when nvidia-smi exits zero")
		}
		if len(r.calls) == 0 || r.calls[0].Name != "nvidia-smi" {
			t.Errorf("first probe must be nvidia-smi, calls = %+v", r.calls)
		}
	})

	t.Run("torch fallback", func(t *testing.T) {
		r := &seqRunner{errs: []error{errors.New("no nvidia-smi"), nil}}
		info := NewDetector(r, func(string) string { return "" }).Detect(context.Background(), "")

		if !info.Available {
			t.Error("expected CUDA available via torch fallback")
		}
		if len(r.calls) != 2 || r.calls[1].Name != "python" {
			t.Errorf("second probe must be the torch query, calls = %+v", r.calls)
		}
	})

	t.Run("env CUDA_HOME wins over well-known locations", func(t *testing.T) {
		r := &seqRunner{}
		info := NewDetector(r, func(key string) string {
			if key == "CUDA_HOME" {
				return "/opt/cuda-12.4"
			}
			return ""
		}).Detect(context.Background(), "")

		if !info.Available {
			t.Fatal("expected CUDA available")
		}
		if info.Home != "/opt/cuda-12.4" {
			t.Errorf("Home = %q, want env value", info.Home)
		}
	})
}
