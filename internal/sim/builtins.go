package sim

import "math"

// Fn is the signature of a built-in runtime function: given the live Sim
// (for time-series lookups a future builtin might need), the call node
// being evaluated (for future arity-dependent dispatch), the step size and
// current time, and the already-evaluated argument values, it returns the
// call's result. Arity mismatches yield NaN rather than erroring.
type Fn func(s *Sim, node *astNode, dt, t float64, args []float64) float64

// builtins is the fixed table of named runtime functions a Call node may
// bind to at annotation time. Unrecognized callees are left unbound.
var builtins = map[string]Fn{
	"min":   builtinMin,
	"max":   builtinMax,
	"pulse": builtinPulse,
}

func builtinMin(s *Sim, node *astNode, dt, t float64, args []float64) float64 {
	if len(args) != 2 {
		return math.NaN()
	}
	if args[0] < args[1] {
		return args[0]
	}
	return args[1]
}

func builtinMax(s *Sim, node *astNode, dt, t float64, args []float64) float64 {
	if len(args) != 2 {
		return math.NaN()
	}
	if args[0] > args[1] {
		return args[0]
	}
	return args[1]
}

// builtinPulse implements pulse(magnitude, first, interval?): zero before
// first; magnitude/dt on the single time-step containing each pulse
// instant, spaced interval apart; only the first pulse fires when interval
// is omitted or <= 0.
func builtinPulse(s *Sim, node *astNode, dt, t float64, args []float64) float64 {
	if len(args) != 2 && len(args) != 3 {
		return math.NaN()
	}
	magnitude, first := args[0], args[1]
	var interval float64
	if len(args) == 3 {
		interval = args[2]
	}

	if t < first {
		return 0
	}
	if interval <= 0 {
		if t < first+dt {
			return magnitude / dt
		}
		return 0
	}

	n := math.Floor((t - first) / interval)
	p := first + n*interval
	if p <= t && t < p+dt {
		return magnitude / dt
	}
	return 0
}
