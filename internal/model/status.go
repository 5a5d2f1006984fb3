package model

// ChannelStatus is the lifecycle status of a ChannelRecord.
type ChannelStatus string

const (
	// StatusCandidate is the initial status assigned on first stats fetch.
	StatusCandidate ChannelStatus = "candidate"

	// Archived statuses record the hard filter that excluded the channel.
	StatusArchivedTooOld        ChannelStatus = "archived_too_old"
	StatusArchivedTooLarge      ChannelStatus = "archived_too_large"
	StatusArchivedLowPotential  ChannelStatus = "archived_low_potential"
	StatusArchivedLowSampleSize ChannelStatus = "archived_low_sample_size"

	// Terminal statuses are set manually and suppress all future re-analysis.
	StatusArchivedUnreplicable  ChannelStatus = "archived_unreplicable"
	StatusArchivedNicheMismatch ChannelStatus = "archived_niche_mismatch"

	// Analyzed statuses are computed automatically by deep analysis.
	StatusAnalyzedLowConsistency ChannelStatus = "analyzed_low_consistency"
	StatusAnalyzedPromising      ChannelStatus = "analyzed_promising"

	// Curated promising statuses survive re-analysis: metrics refresh but the
	// status is never overwritten by an automatic one.
	StatusAnalyzedPrimeCandidate ChannelStatus = "analyzed_promising_prime_candidate"
	StatusAnalyzedMonitor        ChannelStatus = "analyzed_promising_monitor"
)

var terminalStatuses = map[ChannelStatus]bool{
	StatusArchivedUnreplicable:  true,
	StatusArchivedNicheMismatch: true,
}

var preservableStatuses = map[ChannelStatus]bool{
	StatusAnalyzedPrimeCandidate: true,
	StatusAnalyzedMonitor:        true,
}

// Terminal reports whether the status permanently excludes the channel from
// re-analysis.
func (s ChannelStatus) Terminal() bool {
	return terminalStatuses[s]
}

// Preservable reports whether the status must survive ordinary re-analysis.
func (s ChannelStatus) Preservable() bool {
	return preservableStatuses[s]
}

// ResolveAnalyzed returns the status to persist when a re-analysis computed
// the given automatic status: preservable statuses are kept, everything else
// takes the automatic result.
func ResolveAnalyzed(current, automatic ChannelStatus) ChannelStatus {
	if current.Preservable() {
		return current
	}
	return automatic
}

// Valid reports whether s is a known channel status.
func (s ChannelStatus) Valid() bool {
	switch s {
	case StatusCandidate,
		StatusArchivedTooOld, StatusArchivedTooLarge,
		StatusArchivedLowPotential, StatusArchivedLowSampleSize,
		StatusArchivedUnreplicable, StatusArchivedNicheMismatch,
		StatusAnalyzedLowConsistency, StatusAnalyzedPromising,
		StatusAnalyzedPrimeCandidate, StatusAnalyzedMonitor:
		return true
	}
	return false
}
