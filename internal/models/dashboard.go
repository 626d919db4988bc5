package models

// Period is a named aggregation window.
type Period string

const (
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	Period90Days Period = "90d"
	PeriodAll    Period = "all"
	PeriodDay    Period = "day"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
)

var (
	DashboardPeriods = []Period{Period7Days, Period30Days, Period90Days, PeriodAll}
	TrendPeriods     = []Period{PeriodDay, PeriodWeek, PeriodMonth}
)

// Days returns the look-back window in calendar days, today included.
// Zero means unbounded.
func (p Period) Days() int {
	switch p {
	case PeriodDay:
		return 1
	case Period7Days, PeriodWeek:
		return 7
	case Period30Days, PeriodMonth:
		return 30
	case Period90Days:
		return 90
	}
	return 0
}

// In reports whether p is one of allowed.
func (p Period) In(allowed []Period) bool {
	for _, a := range allowed {
		if a == p {
			return true
		}
	}
	return false
}

type Dashboard struct {
	Period        Period       `json:"period"`
	Overview      Overview     `json:"overview"`
	TopProducts   []EntityStat `json:"topProducts"`
	TopCategories []EntityStat `json:"topCategories"`
	BannerStats   []BannerStat `json:"bannerStats"`
	DailyTrends   []DailyTrend `json:"dailyTrends"`
}

type Overview struct {
	TotalEvents    int64 `json:"totalEvents"`
	PageViews      int64 `json:"pageViews"`
	ProductViews   int64 `json:"productViews"`
	Clicks         int64 `json:"clicks"`
	UniqueVisitors int64 `json:"uniqueVisitors"`
}

// EntityStat is one Top-N row. Percentage is relative to the top row.
type EntityStat struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Slug           string `json:"slug,omitempty"`
	Views          int64  `json:"views"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
	Percentage     int64  `json:"percentage"`
}

type BannerStat struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	CTR         int64  `json:"ctr"`
}

type DailyTrend struct {
	Date           string `json:"date"`
	Views          int64  `json:"views"`
	Clicks         int64  `json:"clicks"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

// EntityCount is the raw grouping result of the Top-N pipeline.
type EntityCount struct {
	EntityID       string
	EntityName     string
	EntitySlug     string
	Count          int64
	UniqueVisitors int64
}

// EventTypeCount is a per-(entityId, eventType) grouping, used for banner stats.
type EventTypeCount struct {
	EntityID  string
	EventType EventType
	Count     int64
}
