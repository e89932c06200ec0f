// Package analysis runs bond inference over a crystal loaded from disk and
// keeps the latest result for the CLI, the web server and the watcher.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ritzau/crystal-bonds/pkg/bonding"
	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/ritzau/crystal-bonds/pkg/config"
	"github.com/ritzau/crystal-bonds/pkg/covalent"
	"github.com/ritzau/crystal-bonds/pkg/crystal"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"github.com/ritzau/crystal-bonds/pkg/metrics"
	"github.com/ritzau/crystal-bonds/pkg/rules"
	"github.com/ritzau/crystal-bonds/pkg/sanity"
	"github.com/ritzau/crystal-bonds/pkg/voronoi"
)

var (
	// ErrNoCrystal is returned when no crystal file is configured.
	ErrNoCrystal = errors.New("no crystal file configured")
	// ErrUnknownMethod is returned for a method other than rules or voronoi.
	ErrUnknownMethod = errors.New("unknown inference method")
)

// MethodImport labels results whose bonds were read from a bond list.
const MethodImport = "import"

// Triggers label what started a run.
const (
	TriggerStartup = "startup"
	TriggerWatch   = "watch"
	TriggerAPI     = "api"
	TriggerCLI     = "cli"
)

// Options configures the inputs and parameters of every run.
type Options struct {
	CrystalPath string
	RulesPath   string // empty: rules derived from the radii table
	RadiiPath   string // empty: built-in reference radii
	Method      string
	Periodic    bool
	Cutoff      float64
	Sigma       float64
	MinTol      float64
	Workers     int
}

// OptionsFromConfig maps the loaded configuration onto runner options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CrystalPath: cfg.Crystal,
		RulesPath:   cfg.Rules,
		RadiiPath:   cfg.Radii,
		Method:      cfg.Method,
		Periodic:    cfg.Periodic,
		Cutoff:      cfg.Cutoff,
		Sigma:       cfg.Sigma,
		MinTol:      cfg.MinTol,
		Workers:     cfg.Workers,
	}
}

// RunOptions selects what a single run does.
type RunOptions struct {
	Method  string // empty: Options.Method
	Trigger string
	Reason  string // e.g. "initial analysis", "crystal changed"

	ReloadCrystal bool
	ReloadRules   bool
	ReloadRadii   bool
}

// Atom is one site of the analyzed crystal.
type Atom struct {
	Index   int        `json:"index"`
	Species string     `json:"species"`
	Frac    [3]float64 `json:"frac"`
	Cart    [3]float64 `json:"cart"`
}

// Result is an immutable snapshot of one run.
type Result struct {
	ID         string             `json:"id"`
	Crystal    string             `json:"crystal"`
	Method     string             `json:"method"`
	Periodic   bool               `json:"periodic"`
	Trigger    string             `json:"trigger"`
	Reason     string             `json:"reason"`
	Atoms      []Atom             `json:"atoms"`
	Bonds      []bondgraph.Bond   `json:"bonds"`
	Sane       bool               `json:"sane"`
	Violations []sanity.Violation `json:"violations"`
	Fragments  [][]int            `json:"fragments"`
	Rings      [][]int            `json:"rings"`
	Started    time.Time          `json:"started"`
	Duration   time.Duration      `json:"durationNs"`
}

// Publisher receives each completed result.
type Publisher interface {
	Publish(*Result)
}

// Runner owns the loaded inputs and serializes runs over them.
type Runner struct {
	opts      Options
	publisher Publisher

	mu      sync.Mutex // Prevent concurrent analysis runs
	crystal *crystal.Crystal
	radii   covalent.Table
	store   *rules.Store
	loaded  bool // store holds rules read from the configured source
	last    *Result
}

// NewRunner creates a runner. Inputs are read lazily by the first Run.
// publisher may be nil.
func NewRunner(opts Options, publisher Publisher) *Runner {
	return &Runner{
		opts:      opts,
		publisher: publisher,
		store:     rules.NewStore(nil),
	}
}

// SetPublisher replaces the publisher for subsequent runs.
func (r *Runner) SetPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

// Options returns the runner's configured options.
func (r *Runner) Options() Options { return r.opts }

// Rules returns the store used by rule-based runs. Rules appended or
// prepended through it apply from the next run on.
func (r *Runner) Rules() *rules.Store { return r.store }

// Last returns the most recent result, or nil before the first run.
func (r *Runner) Last() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run (re)loads inputs as requested, clears existing bonds and infers them
// afresh with the selected method.
func (r *Runner) Run(ctx context.Context, ro RunOptions) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	method := ro.Method
	if method == "" {
		method = r.opts.Method
	}
	log := logging.With("trigger", ro.Trigger, "method", method)
	log.Info("starting analysis", "reason", ro.Reason)

	res, err := r.run(ctx, method, ro)
	if err != nil {
		metrics.Runs.WithLabelValues(ro.Trigger, "error").Inc()
		log.Error("analysis failed", "reason", ro.Reason, "error", err)
		return nil, err
	}
	outcome := "ok"
	if !res.Sane {
		outcome = "violations"
	}
	metrics.Runs.WithLabelValues(ro.Trigger, outcome).Inc()
	log.Info("analysis complete",
		"crystal", res.Crystal,
		"bonds", len(res.Bonds),
		"fragments", len(res.Fragments),
		"sane", res.Sane,
		"durationMs", res.Duration.Milliseconds())

	r.last = res
	if r.publisher != nil {
		r.publisher.Publish(res)
	}
	return res, nil
}

func (r *Runner) run(ctx context.Context, method string, ro RunOptions) (*Result, error) {
	if method != bonding.MethodRules && method != bonding.MethodVoronoi {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err := r.load(ro); err != nil {
		return nil, err
	}

	start := time.Now()
	r.crystal.RemoveAllBonds()

	var sane bool
	var err error
	switch method {
	case bonding.MethodRules:
		sane, err = bonding.NewRuleBonder(r.store).Infer(r.crystal, r.opts.Periodic, nil)
	case bonding.MethodVoronoi:
		b := &bonding.GeometryBonder{
			Cutoff:      r.opts.Cutoff,
			Sigma:       r.opts.Sigma,
			MinTol:      r.opts.MinTol,
			Radii:       r.radii,
			Tessellator: voronoi.Clipper{},
			Workers:     r.opts.Workers,
		}
		sane, err = b.Infer(ctx, r.crystal, r.opts.Periodic)
	}
	if err != nil {
		return nil, err
	}

	return r.snapshot(method, sane, ro, start), nil
}

// Shells returns the atoms within hops bonds of atom i in the current bond
// graph, grouped by bond-path distance.
func (r *Runner) Shells(i, hops int) ([][]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.crystal == nil {
		return nil, ErrNoCrystal
	}
	shells := r.crystal.Bonds().Shells(i, hops)
	if shells == nil {
		return nil, fmt.Errorf("atom %d of %d: %w", i, r.crystal.N(), bondgraph.ErrAtomRange)
	}
	return shells, nil
}

// CheckBondList replaces the crystal's bonds with those listed in path
// ("i,j[,type]" lines) and runs the sanity check on them. Distances of
// imported bonds are unknown.
func (r *Runner) CheckBondList(path string, ro RunOptions) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ro); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	start := time.Now()
	r.crystal.RemoveAllBonds()
	n, err := bondgraph.ReadCSV(f, r.crystal.Bonds())
	if err != nil {
		r.crystal.RemoveAllBonds()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Info("bonds imported", "crystal", r.crystal.Name, "bonds", n, "path", path)

	sane := sanity.Check(r.crystal.Bonds(), r.crystal.Species(), r.crystal.Name)
	res := r.snapshot(MethodImport, sane, ro, start)
	r.last = res
	if r.publisher != nil {
		r.publisher.Publish(res)
	}
	return res, nil
}

func (r *Runner) load(ro RunOptions) error {
	if r.crystal == nil || ro.ReloadCrystal {
		if r.opts.CrystalPath == "" {
			return ErrNoCrystal
		}
		c, err := crystal.Load(r.opts.CrystalPath)
		if err != nil {
			return fmt.Errorf("loading crystal: %w", err)
		}
		logging.Debug("crystal loaded", "crystal", c.Name, "atoms", c.N(), "path", r.opts.CrystalPath)
		r.crystal = c
	}

	radiiChanged := false
	if r.radii == nil || ro.ReloadRadii {
		var t covalent.Table
		var err error
		if r.opts.RadiiPath == "" {
			t, err = covalent.Reference()
		} else {
			t, err = covalent.Load(r.opts.RadiiPath)
		}
		if err != nil {
			return fmt.Errorf("loading radii: %w", err)
		}
		r.radii = t
		radiiChanged = true
	}

	derived := r.opts.RulesPath == ""
	if !r.loaded || ro.ReloadRules || (derived && radiiChanged) {
		var rs rules.RuleSet
		if derived {
			rs = rules.BuildDefault(r.radii, r.opts.Sigma, r.opts.MinTol)
		} else {
			var err error
			if rs, err = rules.LoadFile(r.opts.RulesPath); err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}
		}
		logging.Debug("rules loaded", "rules", len(rs), "derived", derived)
		r.store.Set(rs)
		r.loaded = true
	}
	return nil
}

func (r *Runner) snapshot(method string, sane bool, ro RunOptions, start time.Time) *Result {
	c := r.crystal
	atoms := make([]Atom, c.N())
	for i, f := range c.Frac() {
		p := c.Box().ToCartesian(f)
		atoms[i] = Atom{
			Index:   i,
			Species: c.SpeciesOf(i),
			Frac:    [3]float64{f.X, f.Y, f.Z},
			Cart:    [3]float64{p.X, p.Y, p.Z},
		}
	}
	g := c.Bonds()
	return &Result{
		ID:         uuid.NewString(),
		Crystal:    c.Name,
		Method:     method,
		Periodic:   r.opts.Periodic,
		Trigger:    ro.Trigger,
		Reason:     ro.Reason,
		Atoms:      atoms,
		Bonds:      g.Edges(),
		Sane:       sane,
		Violations: sanity.Violations(g, c.Species()),
		Fragments:  g.Fragments(),
		Rings:      g.Rings(),
		Started:    start,
		Duration:   time.Since(start),
	}
}
