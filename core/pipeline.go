package core

import (
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// Pipeline composes the transform passes in their required order and feeds
// the output of each into the next. Passes P1–P5 run first, then the
// declaration manager normalizes file-level imports. The buffer has a
// single owner for the duration of one run; nothing is written until every
// pass has finished.
type Pipeline struct {
	cfg     Config
	matcher *Matcher
	passes  []Pass
	decl    *DeclManager
	logger  *zap.Logger
}

// NewPipeline builds the pipeline from an explicit config and operation
// table. A nil logger disables logging.
func NewPipeline(cfg Config, table OperationTable, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := NewMatcher(cfg)
	guard := NewGuard(cfg)
	return &Pipeline{
		cfg:     cfg,
		matcher: matcher,
		passes: []Pass{
			&initPass{cfg: cfg, matcher: matcher, guard: guard},
			&wrapPass{cfg: cfg, matcher: matcher},
			&catchPass{cfg: cfg, matcher: matcher, guard: guard},
			&earlyExitPass{cfg: cfg, matcher: matcher, guard: guard},
			&helperPass{cfg: cfg, matcher: matcher},
			&resolvePass{cfg: cfg, matcher: matcher, table: table},
		},
		decl:   NewDeclManager(cfg, guard),
		logger: logger,
	}
}

// Run applies the ordered passes and the declaration manager to src and
// returns the transformed text with the per-pass outcomes. Running the full
// pipeline on its own output is a no-op.
func (p *Pipeline) Run(src string) (string, []Outcome) {
	p.matcher.TakeDiagnostics() // drop anything left from a previous run

	cur := src
	outcomes := make([]Outcome, 0, len(p.passes)+1)
	for _, pass := range p.passes {
		next, out := pass.Apply(cur)
		for _, d := range p.matcher.TakeDiagnostics() {
			out.Notes = append(out.Notes, d.String())
		}
		p.logger.Debug("pass applied",
			zap.String("pass", out.Pass),
			zap.Int("matched", out.Matched),
			zap.Int("transformed", out.Transformed),
			zap.Int("skipped", out.Skipped),
			zap.Strings("notes", out.Notes),
		)
		outcomes = append(outcomes, out)
		cur = next
	}

	cur, declOut := p.decl.Ensure(cur)
	outcomes = append(outcomes, declOut)
	return cur, outcomes
}

// FileResult is the audit record of one whole-file run.
type FileResult struct {
	Path     string
	Original string
	Modified string
	Outcomes []Outcome
	Changed  bool
}

// Unresolved lists the notes of every pass, in pass order.
func (r *FileResult) Unresolved() []string {
	var notes []string
	for _, o := range r.Outcomes {
		notes = append(notes, o.Notes...)
	}
	return notes
}

// Diff renders a unified diff of the run, empty when nothing changed.
func (r *FileResult) Diff() (string, error) {
	if !r.Changed {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.Original),
		B:        difflib.SplitLines(r.Modified),
		FromFile: r.Path,
		ToFile:   r.Path + " (instrumented)",
		Context:  3,
	})
}

// RunFile loads path, runs the pipeline, and persists the result through w.
// Dry runs leave the file untouched. Only I/O failures return an error; a
// fully conformant file (all-zero passes) is a success.
func (p *Pipeline) RunFile(path string, w *AtomicWriter, dryRun bool) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	original := string(data)
	modified, outcomes := p.Run(original)

	res := &FileResult{
		Path:     path,
		Original: original,
		Modified: modified,
		Outcomes: outcomes,
		Changed:  modified != original,
	}
	if res.Changed && !dryRun {
		if err := w.WriteFile(path, modified); err != nil {
			return res, fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	return res, nil
}
