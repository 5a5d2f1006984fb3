package pipeline

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/sells-group/channel-scout/internal/model"
)

const defaultMaxResults = 10

// normalizeOptions validates the caller-supplied options and fills defaults.
// All failures are ValidationErrors, raised before any metered call.
func (p *Pipeline) normalizeOptions(opts model.RunOptions) (model.RunOptions, error) {
	opts.Query = strings.TrimSpace(opts.Query)
	if opts.Query == "" {
		return opts, &ValidationError{Field: "query", Reason: "must not be empty"}
	}

	if opts.ChannelAgeBand == "" {
		opts.ChannelAgeBand = model.AgeBandNew
	}
	if !opts.ChannelAgeBand.Valid() {
		return opts, &ValidationError{Field: "channelAgeBand", Reason: "must be NEW or ESTABLISHED"}
	}

	if opts.ConsistencyLevel == "" {
		opts.ConsistencyLevel = model.ConsistencyModerate
	}
	if !opts.ConsistencyLevel.Valid() {
		return opts, &ValidationError{Field: "consistencyLevel", Reason: "must be MODERATE or HIGH"}
	}

	if opts.OutlierMagnitude == "" {
		opts.OutlierMagnitude = model.MagnitudeStandard
	}
	if !opts.OutlierMagnitude.Valid() {
		return opts, &ValidationError{Field: "outlierMagnitude", Reason: "must be STANDARD or STRONG"}
	}

	if opts.CategoryID != "" {
		if _, err := strconv.Atoi(opts.CategoryID); err != nil {
			return opts, &ValidationError{Field: "categoryId", Reason: "must be numeric"}
		}
	}

	if opts.RegionCode != "" {
		opts.RegionCode = strings.ToUpper(opts.RegionCode)
		if len(opts.RegionCode) != 2 {
			return opts, &ValidationError{Field: "regionCode", Reason: "must be a 2-letter region code"}
		}
		if _, err := language.ParseRegion(opts.RegionCode); err != nil {
			return opts, &ValidationError{Field: "regionCode", Reason: "unknown region"}
		}
	}

	switch {
	case opts.MaxResults < 0:
		return opts, &ValidationError{Field: "maxResults", Reason: "must be positive"}
	case opts.MaxResults == 0:
		opts.MaxResults = defaultMaxResults
	case opts.MaxResults > p.cfg.MaxResultsCap:
		opts.MaxResults = p.cfg.MaxResultsCap
	}

	return opts, nil
}
