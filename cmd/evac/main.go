// Command evac runs floor-field evacuation simulation sets and prints
// per-timestep visualizations, evacuation-time counts or visit heatmaps.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"evac-ca/internal/core"
	"evac-ca/internal/results"
	"evac-ca/internal/scenario"
	"evac-ca/internal/sims/evac"
)

var log = logrus.New()

type options struct {
	envFile    string
	auxFile    string
	outputFile string
	format     string
	origin     int

	lines   int
	columns int

	noiseSeed int64
	useNoise  bool

	simulations int
	seed        int64
	pedestrians int
	density     float64
	useDensity  bool
	maxSteps    int

	vary     string
	varyMin  float64
	varyMax  float64
	varyStep float64

	dbPath  string
	fps     int
	verbose bool

	params evac.Params
}

func parseFlags() options {
	defaults := evac.DefaultConfig()
	var o options

	flag.StringVar(&o.envFile, "env-file", "", "environment layout file")
	flag.StringVar(&o.auxFile, "aux-file", "", "auxiliary file with simulation sets")
	flag.StringVar(&o.outputFile, "o", "", "output file (default stdout)")
	flag.StringVar(&o.format, "format", "timesteps", "output format: visual | timesteps | heatmap")
	flag.IntVar(&o.origin, "origin", int(scenario.StructureAndDoors),
		"environment origin: 1 structure, 2 structure+doors, 3 structure+pedestrians, 4 all, 5 generated")
	flag.IntVar(&o.lines, "lines", defaults.Lines, "lines of a generated environment")
	flag.IntVar(&o.columns, "columns", defaults.Columns, "columns of a generated environment")
	flag.Int64Var(&o.noiseSeed, "noise-seed", 0, "generate noise obstacles with this seed (generated origin)")
	flag.IntVar(&o.simulations, "simulations", 1, "runs per simulation set")
	flag.Int64Var(&o.seed, "seed", defaults.Seed, "base RNG seed, incremented per run")
	flag.IntVar(&o.pedestrians, "pedestrians", defaults.NumPedestrians, "pedestrians to insert at random")
	flag.Float64Var(&o.density, "density", 0, "pedestrian density over empty cells (overrides -pedestrians)")
	flag.IntVar(&o.maxSteps, "max-timesteps", 0, "abort a run after this many timesteps (0 = unbounded)")
	flag.StringVar(&o.vary, "vary", "", "coefficient to sweep: density | alpha | delta | ks | kd")
	flag.Float64Var(&o.varyMin, "min", 0, "sweep start")
	flag.Float64Var(&o.varyMax, "max", 0, "sweep end")
	flag.Float64Var(&o.varyStep, "step", 0.1, "sweep increment")
	flag.StringVar(&o.dbPath, "db", "", "SQLite results database (optional)")
	flag.IntVar(&o.fps, "fps", 1, "frames per second in visual mode on stdout")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")

	p := defaults.Params
	flag.Float64Var(&p.Ks, "ks", p.Ks, "static-field sensitivity")
	flag.Float64Var(&p.Kd, "kd", p.Kd, "dynamic-field sensitivity")
	flag.Float64Var(&p.Kf, "kf", p.Kf, "fire-field sensitivity")
	flag.Float64Var(&p.Alpha, "alpha", p.Alpha, "dynamic-field diffusion")
	flag.Float64Var(&p.Delta, "delta", p.Delta, "dynamic-field decay")
	flag.Float64Var(&p.Omega, "omega", p.Omega, "inertia boost")
	flag.Float64Var(&p.Mu, "mu", p.Mu, "conflict denial probability")
	flag.Float64Var(&p.Diagonal, "diagonal", p.Diagonal, "Varas diagonal step cost")
	flag.Float64Var(&p.RiskDistance, "risk-distance", p.RiskDistance, "exit distance with raised fire weight")
	flag.Float64Var(&p.FireAlpha, "fire-alpha", p.FireAlpha, "fire penalty scaling near exits")
	flag.Float64Var(&p.FireGamma, "fire-gamma", p.FireGamma, "fire-field cutoff radius")
	flag.Float64Var(&p.SpreadRate, "spread-rate", p.SpreadRate, "fire frontier speed in m/s")
	flag.BoolVar(&p.PreventCornerCrossing, "prevent-corner-crossing", p.PreventCornerCrossing, "forbid diagonals past obstacle corners")
	flag.BoolVar(&p.ImmediateExit, "immediate-exit", p.ImmediateExit, "skip the one-step exit dwell")
	flag.BoolVar(&p.AllowXMovement, "allow-x-movement", p.AllowXMovement, "allow crossing movements")
	flag.BoolVar(&p.IgnoreSelfTrace, "ignore-self-trace", p.IgnoreSelfTrace, "pedestrians ignore their own last trace")
	flag.BoolVar(&p.VelocityDensity, "velocity-density", p.VelocityDensity, "deposit trails only on actual movement")
	flag.BoolVar(&p.FirePresent, "fire", p.FirePresent, "mark fire as present in the output header (fire dynamics run only when the layout has '*' cells)")
	variant := flag.String("static-field", string(p.StaticField), "static field variant: zheng | varas")

	flag.Parse()

	p.StaticField = evac.StaticVariant(*variant)
	o.params = p
	o.useDensity = o.density > 0
	o.useNoise = o.noiseSeed != 0
	return o
}

func main() {
	o := parseFlags()

	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if o.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(o); err != nil {
		log.WithError(err).Fatal("simulation aborted")
	}
}

func run(o options) error {
	origin := scenario.Origin(o.origin)

	env, err := loadEnvironment(o, origin)
	if err != nil {
		return err
	}

	sets, err := loadSimulationSets(o, origin, env)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if o.outputFile != "" {
		f, err := os.Create(o.outputFile)
		if err != nil {
			return fmt.Errorf("open output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var store *results.Store
	if o.dbPath != "" {
		store, err = results.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		log.WithField("path", o.dbPath).Info("results database open")
	}

	cfg := evac.DefaultConfig()
	cfg.Seed = o.seed
	cfg.NumPedestrians = o.pedestrians
	cfg.Density = o.density
	cfg.UseDensity = o.useDensity
	cfg.MaxTimesteps = o.maxSteps
	cfg.Params = o.params

	world, err := evac.NewWithConfig(cfg, env)
	if err != nil {
		return err
	}

	printHeader(out, world)

	started := time.Now()
	for setIndex, set := range sets {
		if err := runSet(o, world, out, store, setIndex, set); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"set":   fmt.Sprintf("%d/%d", setIndex+1, len(sets)),
			"after": humanize.RelTime(started, time.Now(), "", ""),
		}).Info("simulation set finalized")
	}

	return nil
}

// loadEnvironment reads the layout file or generates a room, with optional
// noise obstacles.
func loadEnvironment(o options, origin scenario.Origin) (*evac.Environment, error) {
	if origin == scenario.Generated {
		if o.useNoise {
			return scenario.GenerateNoiseEnvironment(
				scenario.DefaultNoiseLayout(o.lines, o.columns, o.noiseSeed))
		}
		return evac.NewRoomEnvironment(o.lines, o.columns)
	}

	if o.envFile == "" {
		return nil, fmt.Errorf("an environment file is required for origin %d", origin)
	}
	f, err := os.Open(o.envFile)
	if err != nil {
		return nil, fmt.Errorf("open environment file: %w", err)
	}
	defer f.Close()
	return scenario.ParseEnvironment(f, origin)
}

// loadSimulationSets reads the auxiliary file, or synthesizes the single set
// implied by the layout's own doors.
func loadSimulationSets(o options, origin scenario.Origin, env *evac.Environment) ([]scenario.SimulationSet, error) {
	if !origin.UsesAuxiliaryData() && origin != scenario.Generated {
		if len(env.StaticExits()) == 0 {
			return nil, fmt.Errorf("layout declares no doors")
		}
		return []scenario.SimulationSet{env.StaticExits()}, nil
	}

	if o.auxFile == "" {
		if origin == scenario.Generated {
			// Default door in the middle of the east wall.
			size := env.Size()
			return []scenario.SimulationSet{
				{{{Lin: size.L / 2, Col: size.C - 1}}},
			}, nil
		}
		return nil, fmt.Errorf("an auxiliary file is required for origin %d", origin)
	}

	f, err := os.Open(o.auxFile)
	if err != nil {
		return nil, fmt.Errorf("open auxiliary file: %w", err)
	}
	defer f.Close()
	return scenario.ParseSimulationSets(f)
}

func runSet(o options, world *evac.World, out io.Writer, store *results.Store,
	setIndex int, set scenario.SimulationSet) error {

	if err := world.SetExits(set); err != nil {
		return err
	}

	err := world.PrepareSet()
	if errors.Is(err, evac.ErrInaccessibleExit) {
		if o.format == "timesteps" {
			printPlaceholder(out, o.simulations)
		} else {
			fmt.Fprintln(out, "At least one exit from the simulation set is inaccessible.")
		}
		log.WithField("set", setIndex).Warn("inaccessible exit, set skipped")
		return nil
	}
	if err != nil {
		return err
	}

	var setID string
	if store != nil {
		setID, err = store.CreateSet(fmt.Sprintf("set-%d", setIndex), formatSet(set), true)
		if err != nil {
			return err
		}
	}

	seed := o.seed
	varying := varyingValues(o)
	for _, value := range varying {
		if value.active {
			applyVariedValue(o, world, value.v)
			fmt.Fprintf(out, "*%.3f ", value.v)
		}

		for sim := 0; sim < o.simulations; sim++ {
			world.Reset(seed)
			seed++

			steps, err := runToCompletion(o, world, out, setIndex, sim)
			if err != nil {
				return err
			}

			if o.format == "timesteps" {
				fmt.Fprintf(out, "%d ", steps)
			}
			if store != nil {
				if _, err := store.SaveRun(setID, seed-1, steps,
					len(world.Pedestrians().List()), world.Pedestrians().Dead()); err != nil {
					log.WithError(err).Warn("run not persisted")
				}
			}
		}
		if o.format == "timesteps" {
			fmt.Fprintln(out)
		}
	}

	if store != nil {
		size := world.Size()
		heatmap := world.Heatmap()
		err := store.SaveHeatmap(setID, size.L, size.C, func(lin, col int) float64 {
			return float64(heatmap.At(lin, col)) / float64(o.simulations)
		})
		if err != nil {
			log.WithError(err).Warn("heatmap not persisted")
		}
	}

	if o.format == "heatmap" {
		printHeatmap(out, world, o.simulations)
		world.Heatmap().Fill(0)
	}

	return nil
}

func runToCompletion(o options, world *evac.World, out io.Writer, setIndex, sim int) (int, error) {
	visual := o.format == "visual"
	var pacer *core.FixedStep
	if visual && o.outputFile == "" {
		pacer = core.NewFixedStep(o.fps)
	}

	if visual {
		printFrame(out, world, sim, 0)
	}

	for !world.Done() {
		if o.maxSteps > 0 && world.Timestep() >= o.maxSteps {
			return world.Timestep(), fmt.Errorf("set %d run %d exceeded %d timesteps",
				setIndex, sim, o.maxSteps)
		}
		world.Step()
		if visual {
			if pacer != nil {
				pacer.Wait()
			}
			printFrame(out, world, sim, world.Timestep())
		}
	}

	return world.Timestep(), nil
}

type variedValue struct {
	v      float64
	active bool
}

// varyingValues expands the -vary sweep, or yields a single inactive value.
func varyingValues(o options) []variedValue {
	if o.vary == "" {
		return []variedValue{{}}
	}
	var values []variedValue
	for v := o.varyMin; v <= o.varyMax+core.Tolerance; v += o.varyStep {
		values = append(values, variedValue{v: v, active: true})
	}
	if len(values) == 0 {
		values = append(values, variedValue{})
	}
	return values
}

func applyVariedValue(o options, world *evac.World, v float64) {
	p := world.Params()
	switch o.vary {
	case "density":
		world.SetPopulation(0, v, true)
	case "alpha":
		p.Alpha = v
	case "delta":
		p.Delta = v
	case "ks":
		p.Ks = v
	case "kd":
		p.Kd = v
	}
	world.SetParams(p)
}

func printHeader(out io.Writer, world *evac.World) {
	snapshot := world.ParameterSnapshot()
	for _, group := range snapshot.Groups {
		var b strings.Builder
		for i, param := range group.Params {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%s", param.Key, param.Value)
		}
		fmt.Fprintf(out, "# %s: %s\n", group.Name, b.String())
	}
	fmt.Fprintln(out, "#")
}

func printFrame(out io.Writer, world *evac.World, sim, timestep int) {
	fmt.Fprintf(out, "Simulation %d - timestep %d\n\n", sim, timestep)
	for _, line := range world.DisplayRunes() {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
}

func printHeatmap(out io.Writer, world *evac.World, simulations int) {
	size := world.Size()
	heatmap := world.Heatmap()
	for i := 0; i < size.L; i++ {
		for j := 0; j < size.C; j++ {
			fmt.Fprintf(out, "%.2f ", float64(heatmap.At(i, j))/float64(simulations))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)
}

func printPlaceholder(out io.Writer, simulations int) {
	for i := 0; i < simulations; i++ {
		fmt.Fprintf(out, "%d ", -1)
	}
	fmt.Fprintln(out)
}

func formatSet(set scenario.SimulationSet) string {
	var b strings.Builder
	for i, exit := range set {
		if i > 0 {
			b.WriteString(", ")
		}
		for k, c := range exit {
			if k > 0 {
				b.WriteString("+")
			}
			fmt.Fprintf(&b, "%d %d", c.Lin, c.Col)
		}
	}
	return b.String()
}
