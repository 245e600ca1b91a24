package config

import (
	"launchpad/native/common"
	"launchpad/native/launchpad"
)

// LaunchpadQuota converts the configured launchpad quota into its runtime form.
func (g Global) LaunchpadQuota() common.Quota {
	q := g.Quotas.Launchpad
	return common.Quota{
		MaxRequestsPerEpoch: q.MaxRequestsPerEpoch,
		MaxVolumePerEpoch:   q.MaxVolumePerEpoch,
		EpochSeconds:        q.EpochSeconds,
	}
}

// PauseSet builds the runtime pause view, seeding modules paused at startup.
func (g Global) PauseSet() *common.PauseSet {
	var paused []string
	if g.Pauses.Launchpad {
		paused = append(paused, launchpad.ModuleName)
	}
	return common.NewPauseSet(paused...)
}
