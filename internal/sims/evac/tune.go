package evac

// Params returns the current model coefficients.
func (w *World) Params() Params { return w.cfg.Params }

// SetParams replaces the model coefficients. Takes effect on the next Reset;
// runners mutate one coefficient between batches for sweep studies.
func (w *World) SetParams(p Params) {
	if w.env.FirePresent() {
		p.FirePresent = true
	}
	w.cfg.Params = p
	w.spreadInterval = p.FireSpreadInterval()
	w.prepared = false
}

// SetPopulation replaces the pedestrian population settings for runs that
// place pedestrians at random.
func (w *World) SetPopulation(count int, density float64, useDensity bool) {
	w.cfg.NumPedestrians = count
	w.cfg.Density = density
	w.cfg.UseDensity = useDensity
}

// SetMaxTimesteps installs a run ceiling; 0 removes it.
func (w *World) SetMaxTimesteps(limit int) {
	w.cfg.MaxTimesteps = limit
}

// StaticPedestrians reports whether the population comes from the layout.
func (w *World) StaticPedestrians() bool { return w.staticPeds }
