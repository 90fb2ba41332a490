package limit

// Resolver constants.
const (
	// DefaultModelLimit is substituted when the model capability lookup fails.
	DefaultModelLimit = 128000

	// MinTokens is the floor for any session override.
	MinTokens = 4096

	// StepTokens is the slider granularity for session overrides.
	StepTokens = 1024
)

// Source identifies which tier produced the effective limit.
type Source string

const (
	// SourceModel means the model's own limit applies.
	SourceModel Source = "model"
	// SourceProfile means a profile override lowered the model limit.
	SourceProfile Source = "profile"
	// SourceSession means a session override is in effect.
	SourceSession Source = "session"
)

// EffectiveLimit is the resolved token ceiling for the current session.
// It is derived on every resolution and never cached beyond one cycle.
type EffectiveLimit struct {
	// Tokens is the effective ceiling.
	Tokens int `json:"tokens"`

	// Default is the ceiling without a session override:
	// min(profile override or model limit, model limit).
	Default int `json:"default"`

	// ModelLimit is the model limit the resolution started from.
	ModelLimit int `json:"model_limit"`

	// Source is the tier that produced Tokens.
	Source Source `json:"source"`

	// Clamped is true when the session override was moved into range.
	Clamped bool `json:"clamped,omitempty"`

	// Slider describes the adjustable range for session overrides.
	Slider Slider `json:"slider"`
}

// Slider is the adjustable range presented for session overrides.
type Slider struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// Resolve computes the effective limit from the model limit and the optional
// profile and session overrides.
//
// With a session override the result is clamp(session, MinTokens, max) where
// max = min(profile override or model limit, model limit). Without one the
// result is max. The floor wins when max is below MinTokens.
func Resolve(modelLimit int, profileOverride, sessionOverride *int) EffectiveLimit {
	if modelLimit <= 0 {
		modelLimit = DefaultModelLimit
	}

	effectiveMax := modelLimit
	source := SourceModel
	if p, ok := positive(profileOverride); ok && p < modelLimit {
		effectiveMax = p
		source = SourceProfile
	}

	lim := EffectiveLimit{
		Tokens:     effectiveMax,
		Default:    effectiveMax,
		ModelLimit: modelLimit,
		Source:     source,
		Slider: Slider{
			Min:  MinTokens,
			Max:  max(effectiveMax, MinTokens),
			Step: StepTokens,
		},
	}

	if s, ok := positive(sessionOverride); ok {
		lim.Tokens = clamp(s, MinTokens, effectiveMax)
		lim.Source = SourceSession
		lim.Clamped = lim.Tokens != s
	}

	return lim
}

// SnapToStep rounds a requested override to the nearest StepTokens multiple
// and clamps it into the slider range of lim.
func SnapToStep(tokens int, lim EffectiveLimit) int {
	snapped := ((tokens + StepTokens/2) / StepTokens) * StepTokens
	return clamp(snapped, lim.Slider.Min, lim.Slider.Max)
}

// clamp bounds v to [lo, hi]. When hi < lo the floor lo wins.
func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func positive(p *int) (int, bool) {
	if p == nil || *p <= 0 {
		return 0, false
	}
	return *p, true
}
