// Command evac-sweep explores coefficient combinations of the evacuation
// model over ensembles of stochastic runs, reporting the combinations with
// the best mean evacuation time.
package main

import (
	"flag"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"evac-ca/internal/core"
	"evac-ca/internal/results"
	"evac-ca/internal/scenario"
	"evac-ca/internal/sims/evac"
)

var log = logrus.New()

type paramSet struct {
	ks    float64
	kd    float64
	mu    float64
	omega float64
}

func (p paramSet) String() string {
	return fmt.Sprintf("ks=%.2f kd=%.2f mu=%.2f omega=%.2f", p.ks, p.kd, p.mu, p.omega)
}

type scenarioResult struct {
	params paramSet

	runs      int
	meanSteps float64
	minSteps  int
	maxSteps  int
	failed    int
}

func main() {
	lines := flag.Int("lines", 25, "environment lines")
	columns := flag.Int("columns", 25, "environment columns")
	pedestrians := flag.Int("pedestrians", 30, "pedestrians per run")
	simulations := flag.Int("simulations", 20, "runs per combination")
	seed := flag.Int64("seed", 1, "base seed, incremented per run")
	noiseSeed := flag.Int64("noise-seed", 0, "generate noise obstacles with this seed")
	maxSteps := flag.Int("max-timesteps", 5000, "per-run ceiling")
	workers := flag.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	dbPath := flag.String("db", "", "SQLite results database (optional)")
	flag.Parse()

	ksOptions := []float64{0.5, 1.0, 2.0, 4.0}
	kdOptions := []float64{0.0, 0.5, 1.0, 2.0}
	muOptions := []float64{0.0, 0.3, 0.6}
	omegaOptions := []float64{1.0, 1.5, 2.0}

	var sets []paramSet
	for _, ks := range ksOptions {
		for _, kd := range kdOptions {
			for _, mu := range muOptions {
				for _, omega := range omegaOptions {
					sets = append(sets, paramSet{ks: ks, kd: kd, mu: mu, omega: omega})
				}
			}
		}
	}

	log.WithFields(logrus.Fields{
		"combinations": len(sets),
		"workers":      *workers,
		"runs":         *simulations,
	}).Info("sweeping evacuation coefficients")

	var store *results.Store
	if *dbPath != "" {
		var err error
		store, err = results.Open(*dbPath)
		if err != nil {
			log.WithError(err).Fatal("results database unavailable")
		}
		defer store.Close()
	}

	jobs := make(chan paramSet)
	resultCh := make(chan scenarioResult)
	var wg sync.WaitGroup

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				res, err := runScenario(params, *lines, *columns, *pedestrians,
					*simulations, *seed, *noiseSeed, *maxSteps, store)
				if err != nil {
					log.WithError(err).WithField("params", params).Error("combination failed")
					continue
				}
				resultCh <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	go func() {
		for _, params := range sets {
			jobs <- params
		}
		close(jobs)
	}()

	start := time.Now()
	var all []scenarioResult
	for res := range resultCh {
		all = append(all, res)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].meanSteps < all[j].meanSteps })
	elapsed := time.Since(start)

	fmt.Printf("\nTop 5 combinations (elapsed %s):\n", elapsed.Round(time.Millisecond))
	for i := 0; i < len(all) && i < 5; i++ {
		res := all[i]
		fmt.Printf("%2d) mean=%.1f min=%d max=%d failed=%d runs=%s params=%s\n",
			i+1, res.meanSteps, res.minSteps, res.maxSteps, res.failed,
			humanize.Comma(int64(res.runs)), res.params)
	}
}

func runScenario(params paramSet, lines, columns, pedestrians, simulations int,
	baseSeed, noiseSeed int64, maxSteps int, store *results.Store) (scenarioResult, error) {

	var env *evac.Environment
	var err error
	if noiseSeed != 0 {
		env, err = scenario.GenerateNoiseEnvironment(
			scenario.DefaultNoiseLayout(lines, columns, noiseSeed))
	} else {
		env, err = evac.NewRoomEnvironment(lines, columns)
	}
	if err != nil {
		return scenarioResult{}, err
	}

	cfg := evac.DefaultConfig()
	cfg.Lines = lines
	cfg.Columns = columns
	cfg.Seed = baseSeed
	cfg.NumPedestrians = pedestrians
	cfg.MaxTimesteps = maxSteps
	cfg.Params.Ks = params.ks
	cfg.Params.Kd = params.kd
	cfg.Params.Mu = params.mu
	cfg.Params.Omega = params.omega

	world, err := evac.NewWithConfig(cfg, env)
	if err != nil {
		return scenarioResult{}, err
	}

	// A two-cell door centered on the east wall.
	door := []core.Coord{
		{Lin: lines/2 - 1, Col: columns - 1},
		{Lin: lines / 2, Col: columns - 1},
	}
	if err := world.SetExits([][]core.Coord{door}); err != nil {
		return scenarioResult{}, err
	}
	if err := world.PrepareSet(); err != nil {
		return scenarioResult{}, err
	}

	var setID string
	if store != nil {
		setID, err = store.CreateSet(params.String(), "east door", true)
		if err != nil {
			return scenarioResult{}, err
		}
	}

	res := scenarioResult{params: params, minSteps: -1}
	seed := baseSeed
	for sim := 0; sim < simulations; sim++ {
		world.Reset(seed)
		seed++

		steps, err := world.Run()
		if err != nil {
			res.failed++
			continue
		}

		res.runs++
		res.meanSteps += float64(steps)
		if res.minSteps < 0 || steps < res.minSteps {
			res.minSteps = steps
		}
		if steps > res.maxSteps {
			res.maxSteps = steps
		}

		if store != nil {
			if _, err := store.SaveRun(setID, seed-1, steps,
				len(world.Pedestrians().List()), world.Pedestrians().Dead()); err != nil {
				log.WithError(err).Warn("run not persisted")
			}
		}
	}

	if res.runs > 0 {
		res.meanSteps /= float64(res.runs)
	}
	if res.minSteps < 0 {
		res.minSteps = 0
	}
	return res, nil
}
