package models

// RunMode selects how much of the mirror pipeline a run performs.
type RunMode string

const (
	// RunModeDaily is the incremental mode: reuse the existing icon mapping.
	RunModeDaily RunMode = "daily"

	// RunModeFull additionally rebuilds the icon mapping and refreshes the icon pool.
	RunModeFull RunMode = "full"
)

// String returns the string representation of the run mode.
func (m RunMode) String() string {
	return string(m)
}

// RefreshIcons reports whether the mode rebuilds the icon mapping and pool.
func (m RunMode) RefreshIcons() bool {
	return m == RunModeFull
}

// CommitMessage returns the commit message used when a run in this mode
// produced changes to the tracked paths.
func (m RunMode) CommitMessage() string {
	if m == RunModeFull {
		return "Full EPG update (icons refreshed)"
	}
	return "Daily EPG update"
}
