package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	snapshotCacheKey = "analytics:realtime"
	snapshotCacheTTL = 5 * time.Second

	popularContentCap = 10
)

type TrendPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type GeoStat struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Count       int64   `json:"count"`
	Percentage  float64 `json:"percentage"`
}

type DeviceStat struct {
	DeviceType string `json:"device_type"`
	Count      int64  `json:"count"`
}

type ContentStat struct {
	ContentID string `json:"content_id"`
	Title     string `json:"title"`
	Views     int64  `json:"views"`
}

type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type CountryPeakHours struct {
	Country     string      `json:"country"`
	CountryCode string      `json:"country_code"`
	PeakHour    int         `json:"peak_hour"`
	PeakCount   int64       `json:"peak_count"`
	TotalVisits int64       `json:"total_visits"`
	TopHours    []HourCount `json:"top_hours"`
}

type WeekdayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type WeekdayStats struct {
	Weekdays      []WeekdayCount `json:"weekdays"` // Sunday..Saturday
	Hours         []int64        `json:"hours"`    // 24 buckets
	PeakDay       string         `json:"peak_day"`
	PeakDayCount  int64          `json:"peak_day_count"`
	PeakHour      int            `json:"peak_hour"`
	PeakHourCount int64          `json:"peak_hour_count"`
}

type RealtimeSnapshot struct {
	Today         int64              `json:"today"`
	Week          int64              `json:"week"`
	Month         int64              `json:"month"`
	ActiveViewers int64              `json:"active_viewers"`
	TopCountries  []GeoStat          `json:"top_countries"`
	Devices       []DeviceStat       `json:"devices"`
	PeakCountries []CountryPeakHours `json:"peak_countries"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// AnalyticsService computes read-only aggregates over the event and view-log
// stores. Queries run concurrently with ingestion without locking; results
// are eventually fresh, never transactional.
type AnalyticsService struct {
	db       *gorm.DB
	rdb      *redis.Client
	logger   *slog.Logger
	sessions *SessionService
}

func NewAnalyticsService(db *gorm.DB, rdb *redis.Client, logger *slog.Logger, sessions *SessionService) *AnalyticsService {
	return &AnalyticsService{db: db, rdb: rdb, logger: logger, sessions: sessions}
}

// GetTrafficTrend returns one pageview count per calendar day for the
// trailing N days, oldest first, zero-filled. Uses the write-time Date bucket
// so timezone handling stays consistent with ingestion.
func (s *AnalyticsService) GetTrafficTrend(days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 7
	}
	start := time.Now().AddDate(0, 0, -(days - 1))
	startDate := start.Format("2006-01-02")

	var rows []TrendPoint
	err := s.db.Model(&models.Event{}).
		Select("date, count(*) as count").
		Where("event_type = ? AND date >= ?", models.EventPageview, startDate).
		Group("date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Date] = row.Count
	}

	trend := make([]TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		trend = append(trend, TrendPoint{Date: date, Count: counts[date]})
	}
	return trend, nil
}

// GetHourlyStats returns 24 pageview buckets for the current calendar day.
func (s *AnalyticsService) GetHourlyStats() ([]int64, error) {
	today := time.Now().Format("2006-01-02")

	var rows []HourCount
	err := s.db.Model(&models.Event{}).
		Select("hour, count(*) as count").
		Where("event_type = ? AND date = ?", models.EventPageview, today).
		Group("hour").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]int64, 24)
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			buckets[row.Hour] = row.Count
		}
	}
	return buckets, nil
}

// GetGeoStats groups pageviews by country, sorted by count descending and
// capped at limit. Percentages are shares of the complete pageview total, not
// of the returned page.
func (s *AnalyticsService) GetGeoStats(limit int) ([]GeoStat, error) {
	if limit <= 0 {
		limit = 10
	}

	var total int64
	if err := s.db.Model(&models.Event{}).
		Where("event_type = ?", models.EventPageview).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []GeoStat
	err := s.db.Model(&models.Event{}).
		Select("country, country_code, count(*) as count").
		Where("event_type = ?", models.EventPageview).
		Group("country, country_code").
		Order("count desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if total > 0 {
			rows[i].Percentage = float64(rows[i].Count) / float64(total) * 100
		}
	}
	return rows, nil
}

// GetDeviceStats groups pageviews by device type, sorted by count descending.
func (s *AnalyticsService) GetDeviceStats() ([]DeviceStat, error) {
	var rows []DeviceStat
	err := s.db.Model(&models.Event{}).
		Select("device_type, count(*) as count").
		Where("event_type = ?", models.EventPageview).
		Group("device_type").
		Order("count desc").
		Scan(&rows).Error
	return rows, err
}

// GetPopularContent ranks view logs from the last N days by content id,
// independently per content kind, keeping the first-seen title per id and
// capping each kind at 10 entries.
func (s *AnalyticsService) GetPopularContent(days int) (map[string][]ContentStat, error) {
	if days <= 0 {
		days = 7
	}
	startDate := time.Now().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	var logs []models.ViewLog
	err := s.db.
		Select("content_type, content_id, content_title").
		Where("date >= ?", startDate).
		Order("timestamp asc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	type key struct{ kind, id string }
	counts := make(map[key]int64)
	titles := make(map[key]string)
	for _, row := range logs {
		k := key{row.ContentType, row.ContentID}
		counts[k]++
		if _, seen := titles[k]; !seen {
			titles[k] = row.ContentTitle
		}
	}

	result := map[string][]ContentStat{
		models.ContentDrama: {},
		models.ContentAnime: {},
		models.ContentKomik: {},
	}
	for k, count := range counts {
		result[k.kind] = append(result[k.kind], ContentStat{
			ContentID: k.id,
			Title:     titles[k],
			Views:     count,
		})
	}
	for kind := range result {
		list := result[kind]
		sort.Slice(list, func(i, j int) bool {
			if list[i].Views != list[j].Views {
				return list[i].Views > list[j].Views
			}
			return list[i].ContentID < list[j].ContentID
		})
		if len(list) > popularContentCap {
			list = list[:popularContentCap]
		}
		result[kind] = list
	}
	return result, nil
}

// GetPeakHoursByCountry computes, per country, the busiest hour of day, its
// count, the country's total pageviews and the top-5 hours. Sorted by total
// descending, capped at limit. The peak-hour tie-break is deterministic: the
// higher count wins and equal counts resolve to the earlier hour.
func (s *AnalyticsService) GetPeakHoursByCountry(limit int) ([]CountryPeakHours, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []struct {
		Country     string
		CountryCode string
		Hour        int
		Count       int64
	}
	err := s.db.Model(&models.Event{}).
		Select("country, country_code, hour, count(*) as count").
		Where("event_type = ?", models.EventPageview).
		Group("country, country_code, hour").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	type bucket struct {
		country string
		hours   [24]int64
	}
	byCountry := make(map[string]*bucket)
	for _, row := range rows {
		b, ok := byCountry[row.CountryCode]
		if !ok {
			b = &bucket{country: row.Country}
			byCountry[row.CountryCode] = b
		}
		if row.Hour >= 0 && row.Hour < 24 {
			b.hours[row.Hour] += row.Count
		}
	}

	result := make([]CountryPeakHours, 0, len(byCountry))
	for code, b := range byCountry {
		entry := CountryPeakHours{Country: b.country, CountryCode: code}
		hourCounts := make([]HourCount, 0, 24)
		for hour := 0; hour < 24; hour++ {
			count := b.hours[hour]
			entry.TotalVisits += count
			if count > entry.PeakCount {
				entry.PeakCount = count
				entry.PeakHour = hour
			}
			if count > 0 {
				hourCounts = append(hourCounts, HourCount{Hour: hour, Count: count})
			}
		}
		sort.Slice(hourCounts, func(i, j int) bool {
			if hourCounts[i].Count != hourCounts[j].Count {
				return hourCounts[i].Count > hourCounts[j].Count
			}
			return hourCounts[i].Hour < hourCounts[j].Hour
		})
		if len(hourCounts) > 5 {
			hourCounts = hourCounts[:5]
		}
		entry.TopHours = hourCounts
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalVisits != result[j].TotalVisits {
			return result[i].TotalVisits > result[j].TotalVisits
		}
		return result[i].CountryCode < result[j].CountryCode
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetWeekdayStats groups pageviews by day of week and by hour, optionally
// filtered to one country (empty country means all). Day of week comes from
// the stored Date bucket via time.Weekday.
func (s *AnalyticsService) GetWeekdayStats(countryCode string) (*WeekdayStats, error) {
	query := s.db.Model(&models.Event{}).
		Select("date, hour, count(*) as count").
		Where("event_type = ?", models.EventPageview)
	if countryCode != "" {
		query = query.Where("country_code = ?", countryCode)
	}

	var rows []struct {
		Date  string
		Hour  int
		Count int64
	}
	if err := query.Group("date, hour").Scan(&rows).Error; err != nil {
		return nil, err
	}

	var weekdays [7]int64
	hours := make([]int64, 24)
	for _, row := range rows {
		day, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		weekdays[int(day.Weekday())] += row.Count
		if row.Hour >= 0 && row.Hour < 24 {
			hours[row.Hour] += row.Count
		}
	}

	stats := &WeekdayStats{Hours: hours}
	for i, count := range weekdays {
		name := time.Weekday(i).String()
		stats.Weekdays = append(stats.Weekdays, WeekdayCount{Day: name, Count: count})
		if count > stats.PeakDayCount {
			stats.PeakDayCount = count
			stats.PeakDay = name
		}
	}
	for hour, count := range hours {
		if count > stats.PeakHourCount {
			stats.PeakHourCount = count
			stats.PeakHour = hour
		}
	}
	return stats, nil
}

// GetActiveViewers counts sessions seen within the liveness window.
func (s *AnalyticsService) GetActiveViewers() (int64, error) {
	return s.sessions.ActiveCount()
}

// GetRealtimeSnapshot composes the dashboard headline numbers from the other
// aggregations. When redis is reachable the snapshot is cached briefly to
// absorb dashboard polling.
func (s *AnalyticsService) GetRealtimeSnapshot(ctx context.Context) (*RealtimeSnapshot, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, snapshotCacheKey).Result(); err == nil {
			var snapshot RealtimeSnapshot
			if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
				return &snapshot, nil
			}
		}
	}

	now := time.Now()
	today := now.Format("2006-01-02")
	weekStart := now.AddDate(0, 0, -6).Format("2006-01-02")
	monthStart := now.AddDate(0, 0, -29).Format("2006-01-02")

	snapshot := &RealtimeSnapshot{GeneratedAt: now}

	count := func(sinceDate string) (int64, error) {
		var n int64
		err := s.db.Model(&models.Event{}).
			Where("event_type = ? AND date >= ?", models.EventPageview, sinceDate).
			Count(&n).Error
		return n, err
	}

	var err error
	if snapshot.Today, err = count(today); err != nil {
		return nil, err
	}
	if snapshot.Week, err = count(weekStart); err != nil {
		return nil, err
	}
	if snapshot.Month, err = count(monthStart); err != nil {
		return nil, err
	}
	if snapshot.ActiveViewers, err = s.sessions.ActiveCount(); err != nil {
		return nil, err
	}
	if snapshot.TopCountries, err = s.GetGeoStats(5); err != nil {
		return nil, err
	}
	if snapshot.Devices, err = s.GetDeviceStats(); err != nil {
		return nil, err
	}
	if snapshot.PeakCountries, err = s.GetPeakHoursByCountry(5); err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(snapshot); err == nil {
			if err := s.rdb.Set(ctx, snapshotCacheKey, data, snapshotCacheTTL).Err(); err != nil {
				s.logger.Debug("Failed to cache realtime snapshot", "error", err)
			}
		}
	}
	return snapshot, nil
}
