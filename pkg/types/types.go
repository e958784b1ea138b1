package types

import (
	"fmt"
	"time"
)

// Color identifies one of the two parallel revisions of a service.
type Color string

const (
	ColorBlue  Color = "blue"
	ColorGreen Color = "green"
)

// Other returns the opposite color.
func (c Color) Other() Color {
	if c == ColorBlue {
		return ColorGreen
	}
	return ColorBlue
}

// Valid reports whether the color is one of the two known colors.
func (c Color) Valid() bool {
	return c == ColorBlue || c == ColorGreen
}

// Phase represents the current state of a deployment cycle
type Phase string

const (
	// PhaseBlueActive is the steady state: a single color serves 100% of traffic.
	// The name is historical; the active color may be either blue or green.
	PhaseBlueActive Phase = "BLUE_ACTIVE"

	// PhaseGreenDeploying means the pending revision is being created (0% traffic)
	PhaseGreenDeploying Phase = "GREEN_DEPLOYING"

	// PhaseGreenHealthy means the pending revision passed the health gate
	PhaseGreenHealthy Phase = "GREEN_HEALTHY"

	// PhaseCanary means the pending color receives a minority traffic split
	PhaseCanary Phase = "CANARY"

	// PhasePromoting means traffic is being shifted in steps toward the pending color
	PhasePromoting Phase = "PROMOTING"

	// PhaseGreenActive means the pending color reached 100% and the old
	// revision awaits decommissioning
	PhaseGreenActive Phase = "GREEN_ACTIVE"

	// PhaseRollingBack means traffic is being reverted to the original color
	PhaseRollingBack Phase = "ROLLING_BACK"

	// PhaseFailed means the deploy or health gate failed before any traffic moved
	PhaseFailed Phase = "FAILED"
)

// TrafficSplit maps each color to the percentage of traffic it receives
type TrafficSplit map[Color]int

// Validate checks that the split covers only known colors and sums to exactly 100
func (ts TrafficSplit) Validate() error {
	sum := 0
	for color, percent := range ts {
		if !color.Valid() {
			return fmt.Errorf("unknown color in traffic split: %s", color)
		}
		if percent < 0 || percent > 100 {
			return fmt.Errorf("traffic percentage out of range for %s: %d", color, percent)
		}
		sum += percent
	}
	if sum != 100 {
		return fmt.Errorf("traffic split must sum to 100, got %d", sum)
	}
	return nil
}

// Percent returns the percentage assigned to a color (0 if absent)
func (ts TrafficSplit) Percent(c Color) int {
	return ts[c]
}

// Equal reports whether two splits assign identical percentages
func (ts TrafficSplit) Equal(other TrafficSplit) bool {
	for _, c := range []Color{ColorBlue, ColorGreen} {
		if ts[c] != other[c] {
			return false
		}
	}
	return true
}

// AllTo returns a split routing 100% of traffic to a single color
func AllTo(c Color) TrafficSplit {
	return TrafficSplit{c: 100, c.Other(): 0}
}

// DeploymentState is the persisted record of a deployment cycle for one
// environment. It is owned exclusively by the controller.
type DeploymentState struct {
	ID                 string       `json:"id"`
	Environment        string       `json:"environment"`
	ActiveColor        Color        `json:"active_color"`
	PendingColor       Color        `json:"pending_color,omitempty"`
	Split              TrafficSplit `json:"traffic_split"`
	PendingRevisionURL string       `json:"pending_revision_url,omitempty"`
	Phase              Phase        `json:"phase"`
	ImageRef           string       `json:"image_ref,omitempty"`
	StartedAt          time.Time    `json:"started_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// HasPending reports whether a deployment cycle is in progress, i.e. a
// second deploy must be refused until it is promoted or rolled back.
func (s *DeploymentState) HasPending() bool {
	switch s.Phase {
	case PhaseGreenDeploying, PhaseGreenHealthy, PhaseCanary, PhasePromoting, PhaseGreenActive:
		return true
	}
	return false
}

// Steady resets the state to single-color steady state with all traffic
// on the given color.
func (s *DeploymentState) Steady(active Color) {
	s.ActiveColor = active
	s.PendingColor = ""
	s.PendingRevisionURL = ""
	s.Split = AllTo(active)
	s.Phase = PhaseBlueActive
	s.UpdatedAt = time.Now()
}
