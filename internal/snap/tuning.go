package snap

// Tuning carries the numeric snap policy shared by the resolver and the
// proximity index. Values are loaded from configuration with these defaults.
type Tuning struct {
	// WallSnapDistance is the base proximity threshold for wall snapping.
	WallSnapDistance float64 `yaml:"wall_snap_distance"`
	// AttachedBiasMultiplier enlarges the threshold of the surface a piece
	// is already attached to, so dragging near the boundary does not
	// flicker between attached and free.
	AttachedBiasMultiplier float64 `yaml:"attached_bias_multiplier"`
	// RoofSearchRadius is the wider proximity radius for roof-only pieces,
	// which are dropped beside the slope rather than dragged onto it.
	RoofSearchRadius float64 `yaml:"roof_search_radius"`
	// Clearance offsets snapped pieces outward along the surface normal to
	// avoid z-fighting.
	Clearance float64 `yaml:"clearance"`
	// MinHeight and MaxHeight bound the adjustable target height of
	// wall-mounted pieces, below the wall top.
	MinHeight float64 `yaml:"min_height"`
	MaxHeight float64 `yaml:"max_height"`
}

// DefaultTuning returns the stock snap policy.
func DefaultTuning() Tuning {
	return Tuning{
		WallSnapDistance:       0.6,
		AttachedBiasMultiplier: 1.75,
		RoofSearchRadius:       2.5,
		Clearance:              0.01,
		MinHeight:              0.3,
		MaxHeight:              2.4,
	}
}

// Normalized returns the tuning with zero or negative fields replaced by
// defaults, so a partially filled config stays usable.
func (t Tuning) Normalized() Tuning {
	defaults := DefaultTuning()
	if t.WallSnapDistance <= 0 {
		t.WallSnapDistance = defaults.WallSnapDistance
	}
	if t.AttachedBiasMultiplier < 1 {
		t.AttachedBiasMultiplier = defaults.AttachedBiasMultiplier
	}
	if t.RoofSearchRadius <= 0 {
		t.RoofSearchRadius = defaults.RoofSearchRadius
	}
	if t.Clearance <= 0 {
		t.Clearance = defaults.Clearance
	}
	if t.MinHeight <= 0 {
		t.MinHeight = defaults.MinHeight
	}
	if t.MaxHeight <= t.MinHeight {
		t.MaxHeight = defaults.MaxHeight
	}
	return t
}
