package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/pkg/youtube"
)

// searchOutcome carries the deduplicated channel ids and the quota cost of
// producing them (0 on a cache hit).
type searchOutcome struct {
	channelIDs []string
	cost       int
}

// searchCandidates is Phase 1: it turns the topic query and age band into an
// ordered-by-first-seen set of unique channel ids, consulting the search
// cache by parameter hash before paying for API pages.
func (p *Pipeline) searchCandidates(ctx context.Context, opts model.RunOptions) ([]string, int, error) {
	log := zap.L().With(zap.String("phase", "search"))

	publishedAfter := bandCutoff(p.now(), opts.ChannelAgeBand)
	hash := searchParamHash(opts, publishedAfter)

	// Only the caller whose closure actually ran pays for the pages; runs
	// that joined an in-flight search consumed nothing.
	var executed bool
	v, err, _ := p.search.Do(hash, func() (any, error) {
		executed = true
		return p.searchUncoalesced(ctx, opts, publishedAfter, hash, log)
	})
	outcome, _ := v.(searchOutcome)
	if !executed {
		outcome.cost = 0
	}
	if err != nil {
		return nil, outcome.cost, err
	}
	return outcome.channelIDs, outcome.cost, nil
}

func (p *Pipeline) searchUncoalesced(ctx context.Context, opts model.RunOptions, publishedAfter time.Time, hash string, log *zap.Logger) (searchOutcome, error) {
	if entry, err := p.store.GetSearchCache(ctx, hash); err != nil {
		log.Warn("search cache read failed", zap.Error(err))
	} else if entry != nil {
		log.Debug("search cache hit",
			zap.String("param_hash", hash),
			zap.Int("channels", len(entry.ChannelIDs)),
		)
		return searchOutcome{channelIDs: entry.ChannelIDs}, nil
	}

	var (
		ids       []string
		seen      = make(map[string]bool)
		pageToken string
		fetched   int
		cost      int
	)

	for page := 0; page < p.cfg.MaxSearchPages; page++ {
		remaining := p.cfg.MaxSearchResults - fetched
		if remaining <= 0 {
			break
		}
		size := p.cfg.SearchPageSize
		if remaining < size {
			size = remaining
		}

		resp, c, err := p.yt.SearchVideos(ctx, youtube.SearchRequest{
			Query:          opts.Query,
			PublishedAfter: publishedAfter,
			CategoryID:     opts.CategoryID,
			RegionCode:     opts.RegionCode,
			MaxResults:     size,
			PageToken:      pageToken,
		})
		cost += c
		if err != nil {
			return searchOutcome{cost: cost}, err
		}

		fetched += len(resp.Items)
		for _, item := range resp.Items {
			if item.ChannelID == "" || seen[item.ChannelID] {
				continue
			}
			seen[item.ChannelID] = true
			ids = append(ids, item.ChannelID)
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	ttl := time.Duration(p.cfg.SearchCacheTTLH) * time.Hour
	if err := p.store.PutSearchCache(ctx, hash, ids, ttl); err != nil {
		log.Warn("search cache write failed", zap.Error(err))
	}

	log.Debug("search pages fetched",
		zap.Int("results", fetched),
		zap.Int("unique_channels", len(ids)),
		zap.Int("cost", cost),
	)
	return searchOutcome{channelIDs: ids, cost: cost}, nil
}

// searchParamHash derives the cache key from the normalized search
// parameters. The publishedAfter cutoff is already day-normalized, so
// identical requests on one calendar day produce identical hashes.
func searchParamHash(opts model.RunOptions, publishedAfter time.Time) string {
	canonical := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(opts.Query)),
		publishedAfter.UTC().Format(time.RFC3339),
		opts.CategoryID,
		strings.ToUpper(opts.RegionCode),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
