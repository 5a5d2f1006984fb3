package model

// ChannelAgeBand selects how young a channel must be to qualify.
type ChannelAgeBand string

const (
	// AgeBandNew targets channels created within the last 6 months.
	AgeBandNew ChannelAgeBand = "NEW"
	// AgeBandEstablished targets channels between 6 and 24 months old.
	AgeBandEstablished ChannelAgeBand = "ESTABLISHED"
)

// Valid reports whether b is a known age band.
func (b ChannelAgeBand) Valid() bool {
	return b == AgeBandNew || b == AgeBandEstablished
}

// ConsistencyLevel names the minimum consistency percentage a channel must
// reach to be considered promising.
type ConsistencyLevel string

const (
	ConsistencyModerate ConsistencyLevel = "MODERATE"
	ConsistencyHigh     ConsistencyLevel = "HIGH"
)

// Valid reports whether l is a known consistency level.
func (l ConsistencyLevel) Valid() bool {
	return l == ConsistencyModerate || l == ConsistencyHigh
}

// OutlierMagnitude names the subscriber multiplier a video must beat to count
// as an outlier.
type OutlierMagnitude string

const (
	MagnitudeStandard OutlierMagnitude = "STANDARD"
	MagnitudeStrong   OutlierMagnitude = "STRONG"
)

// Valid reports whether m is a known outlier magnitude.
func (m OutlierMagnitude) Valid() bool {
	return m == MagnitudeStandard || m == MagnitudeStrong
}

// RunStatus is the terminal status of a discovery run.
type RunStatus string

const (
	RunCompleted    RunStatus = "COMPLETED_SUCCESSFULLY"
	RunPartialQuota RunStatus = "PARTIAL_DUE_TO_QUOTA"
)

// RunOptions are the caller-supplied parameters for one discovery run.
type RunOptions struct {
	Query            string           `json:"query"`
	ChannelAgeBand   ChannelAgeBand   `json:"channelAgeBand"`
	ConsistencyLevel ConsistencyLevel `json:"consistencyLevel"`
	OutlierMagnitude OutlierMagnitude `json:"outlierMagnitude"`
	CategoryID       string           `json:"categoryId,omitempty"`
	RegionCode       string           `json:"regionCode,omitempty"`
	MaxResults       int              `json:"maxResults,omitempty"`
}

// RunSummary holds the bookkeeping totals stamped on a finished run.
type RunSummary struct {
	CandidatesFound    int    `json:"candidatesFound"`
	CandidatesAnalyzed int    `json:"candidatesAnalyzed"`
	APICreditsUsed     int    `json:"apiCreditsUsed"`
	Message            string `json:"message,omitempty"`
}

// ChannelResultAnalysis is the chosen-magnitude metric pair projected into
// run results.
type ChannelResultAnalysis struct {
	ConsistencyPercentage float64 `json:"consistencyPercentage"`
	OutlierVideoCount     int     `json:"outlierVideoCount"`
}

// ChannelResult is one ranked channel in the run output.
type ChannelResult struct {
	ChannelID       string                `json:"channelId"`
	ChannelTitle    string                `json:"channelTitle"`
	ChannelAgeDays  int                   `json:"channelAgeDays"`
	SubscriberCount int64                 `json:"subscriberCount"`
	VideoCount      int64                 `json:"videoCount"`
	Analysis        ChannelResultAnalysis `json:"analysis"`
}

// RunReport is the envelope returned to the caller.
type RunReport struct {
	Status  RunStatus       `json:"status"`
	Summary RunSummary      `json:"summary"`
	Results []ChannelResult `json:"results"`
}
