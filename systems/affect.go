package systems

import (
	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
)

// AffectParams holds the homeostatic decay constants.
type AffectParams struct {
	PleasureDecay float32
	ArousalDecay  float32
	ArousalFloor  float32
	PleasureMin   float32
	PleasureMax   float32

	HomeostasisDecay    float32
	HomeostasisSetPoint float32
}

// AffectParamsFromConfig extracts affect parameters.
func AffectParamsFromConfig(cfg *config.Config) AffectParams {
	ac := cfg.Affect
	return AffectParams{
		PleasureDecay: float32(ac.PleasureDecay),
		ArousalDecay:  float32(ac.ArousalDecay),
		ArousalFloor:  float32(ac.ArousalFloor),
		PleasureMin:   float32(ac.PleasureMin),
		PleasureMax:   float32(ac.PleasureMax),

		HomeostasisDecay:    float32(ac.HomeostasisDecay),
		HomeostasisSetPoint: float32(ac.HomeostasisSetPoint),
	}
}

// DecayAffect pulls pleasure toward zero, arousal toward its floor and
// homeostasis toward its set point.
func DecayAffect(a *components.Affect, p AffectParams) {
	a.Pleasure = clampFloat(a.Pleasure*p.PleasureDecay, p.PleasureMin, p.PleasureMax)
	a.Arousal = clamp01(max(p.ArousalFloor, a.Arousal*p.ArousalDecay))
	a.Homeostasis = clamp01(p.HomeostasisSetPoint + (a.Homeostasis-p.HomeostasisSetPoint)*p.HomeostasisDecay)
}
