package youtube

import "time"

// SearchRequest are the parameters for one page of a topic search.
type SearchRequest struct {
	Query          string
	PublishedAfter time.Time
	CategoryID     string
	RegionCode     string
	MaxResults     int
	PageToken      string
}

// SearchResult is one item from a topic search.
type SearchResult struct {
	VideoID      string
	ChannelID    string
	ChannelTitle string
}

// SearchPage is one page of topic search results.
type SearchPage struct {
	Items         []SearchResult
	NextPageToken string
}

// ChannelSnapshot is the point-in-time channel data returned by a stats
// batch lookup.
type ChannelSnapshot struct {
	ChannelID       string
	Title           string
	PublishedAt     time.Time
	SubscriberCount int64
	VideoCount      int64
	ViewCount       int64
}

// Video is a single video with the statistics needed for outlier scoring.
// Duration carries the API's ISO-8601 duration string.
type Video struct {
	VideoID     string    `json:"videoId"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Duration    string    `json:"duration"`
	ViewCount   int64     `json:"viewCount"`
}

// VideoCategory is one entry from the category listing.
type VideoCategory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
