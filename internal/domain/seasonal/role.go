package seasonal

import "strings"

// Role is an athlete's positional group.
type Role int

// Known roles. Anything unrecognized is RoleUnknown.
const (
	RoleUnknown Role = iota
	RoleForward
	RoleMidfielder
	RoleDefender
	RoleGoalkeeper
)

// String returns the canonical lowercase label.
func (r Role) String() string {
	switch r {
	case RoleForward:
		return "forward"
	case RoleMidfielder:
		return "midfielder"
	case RoleDefender:
		return "defender"
	case RoleGoalkeeper:
		return "goalkeeper"
	default:
		return "unknown"
	}
}

// ParseRole maps a free-form role label to a Role.
func ParseRole(label string) Role {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "fw", "forward":
		return RoleForward
	case "mf", "midfielder":
		return RoleMidfielder
	case "df", "defender":
		return RoleDefender
	case "gk", "goalkeeper":
		return RoleGoalkeeper
	default:
		return RoleUnknown
	}
}

// cohortLabel is the label a row is grouped and reported under. Unknown
// labels keep their own lowercased spelling so they form separate cohorts.
func cohortLabel(label string) string {
	if r := ParseRole(label); r != RoleUnknown {
		return r.String()
	}
	return strings.ToLower(strings.TrimSpace(label))
}

// Weights scales the three buckets for a role and adjusts single statistics.
// An override w adds (w-1)*z to the statistic's bucket after scaling.
type Weights struct {
	Attack    float64
	Defense   float64
	Negative  float64
	Overrides map[string]float64
}

// DefaultWeights returns the weight table for every known role.
func DefaultWeights() map[Role]Weights {
	return map[Role]Weights{
		RoleForward: {
			Attack: 1.0, Defense: 0.4, Negative: 0.6,
			Overrides: map[string]float64{
				"G_per_game": 2.5, "A_per_game": 1.5, "SOT_per_game": 0.9, "KP_per_game": 0.7,
				"Offsides_pg": -0.3, "YellowCards_pg": -0.4, "RedCards_pg": -1.8,
			},
		},
		RoleMidfielder: {
			Attack: 0.9, Defense: 0.8, Negative: 0.8,
			Overrides: map[string]float64{
				"A_per_game": 1.6, "KP_per_game": 1.5, "PassPct": 0.6,
				"Tackles_pg": 0.8, "FoulsCommitted_pg": -0.6,
				"YellowCards_pg": -0.5, "RedCards_pg": -1.8,
			},
		},
		RoleDefender: {
			Attack: 0.6, Defense: 1.2, Negative: 1.0,
			Overrides: map[string]float64{
				"Tackles_pg": 1.4, "PassPct": 0.6,
				"FoulsCommitted_pg": -0.7, "YellowCards_pg": -0.6, "RedCards_pg": -2.0,
			},
		},
		RoleGoalkeeper: {
			Attack: 0.4, Defense: 1.6, Negative: 1.0,
			Overrides: map[string]float64{
				"SavePct": 2.5, "GAA": -2.0, "PassPct": 0.6,
				"YellowCards_pg": -0.4, "RedCards_pg": -2.0,
			},
		},
	}
}
