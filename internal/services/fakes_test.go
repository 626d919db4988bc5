package services

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
)

var errStoreDown = errors.New("store unavailable")

// fakeEventStore is an in-memory AnalyticsRepository.
type fakeEventStore struct {
	mu     sync.Mutex
	events []*models.AnalyticsEvent
	now    func() time.Time

	createErr error
	lookupErr error
	queryErr  error
	queries   int
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{now: time.Now}
}

func (f *fakeEventStore) add(e *models.AnalyticsEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	f.events = append(f.events, e)
}

func (f *fakeEventStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeEventStore) CreateEvent(_ context.Context, event *models.AnalyticsEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = f.now().UTC()
	}
	f.add(event)
	return nil
}

func (f *fakeEventStore) matching(filter models.EventFilter) []*models.AnalyticsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	var pattern *regexp.Regexp
	if filter.EventTypePattern != "" {
		pattern = regexp.MustCompile("(?i)" + filter.EventTypePattern)
	}

	var out []*models.AnalyticsEvent
	for _, e := range f.events {
		if len(filter.EventTypes) > 0 && !containsType(filter.EventTypes, e.EventType) {
			continue
		}
		if pattern != nil && !pattern.MatchString(string(e.EventType)) {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if (filter.EntityID != "" || filter.ExactEntity) && e.EntityID != filter.EntityID {
			continue
		}
		if filter.Actor != "" && e.Actor() != filter.Actor {
			continue
		}
		if !filter.Since.IsZero() && e.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !e.CreatedAt.Before(filter.Until) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsType(types []models.EventType, t models.EventType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (f *fakeEventStore) FindLatestEvent(_ context.Context, filter models.EventFilter) (*models.AnalyticsEvent, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var latest *models.AnalyticsEvent
	for _, e := range f.matching(filter) {
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, interfaces.ErrNotFound
	}
	return latest, nil
}

func (f *fakeEventStore) CountEvents(_ context.Context, filter models.EventFilter) (int64, error) {
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	return int64(len(f.matching(filter))), nil
}

func (f *fakeEventStore) TopEntities(_ context.Context, filter models.EventFilter, limit int) ([]*models.EntityCount, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	groups := map[string]*models.EntityCount{}
	actors := map[string]map[string]bool{}
	for _, e := range f.matching(filter) {
		g, ok := groups[e.EntityID]
		if !ok {
			g = &models.EntityCount{EntityID: e.EntityID}
			groups[e.EntityID] = g
			actors[e.EntityID] = map[string]bool{}
		}
		g.Count++
		g.EntityName = e.EntityName
		g.EntitySlug = e.EntitySlug
		actors[e.EntityID][e.Actor()] = true
	}

	rows := make([]*models.EntityCount, 0, len(groups))
	for id, g := range groups {
		g.UniqueVisitors = int64(len(actors[id]))
		rows = append(rows, g)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].EntityID < rows[j].EntityID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeEventStore) DailyTrends(_ context.Context, since, until time.Time) ([]*models.DailyTrend, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	days := map[string]*models.DailyTrend{}
	actors := map[string]map[string]bool{}
	for _, e := range f.matching(models.EventFilter{}.Between(since, until)) {
		key := utils.DateKey(e.CreatedAt)
		d, ok := days[key]
		if !ok {
			d = &models.DailyTrend{Date: key}
			days[key] = d
			actors[key] = map[string]bool{}
		}
		if strings.Contains(string(e.EventType), "view") {
			d.Views++
		}
		if strings.Contains(string(e.EventType), "click") {
			d.Clicks++
		}
		actors[key][e.Actor()] = true
	}

	rows := make([]*models.DailyTrend, 0, len(days))
	for key, d := range days {
		d.UniqueVisitors = int64(len(actors[key]))
		rows = append(rows, d)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

func (f *fakeEventStore) CountUniqueActors(_ context.Context, filter models.EventFilter) (int64, error) {
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	seen := map[string]bool{}
	for _, e := range f.matching(filter) {
		seen[e.Actor()] = true
	}
	return int64(len(seen)), nil
}

func (f *fakeEventStore) CountByEntityAndType(_ context.Context, filter models.EventFilter) ([]*models.EventTypeCount, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	type key struct {
		id string
		t  models.EventType
	}
	counts := map[key]int64{}
	for _, e := range f.matching(filter) {
		counts[key{e.EntityID, e.EventType}]++
	}
	rows := make([]*models.EventTypeCount, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, &models.EventTypeCount{EntityID: k.id, EventType: k.t, Count: n})
	}
	return rows, nil
}

func (f *fakeEventStore) DailyEntityRollups(_ context.Context, since, until time.Time) ([]*models.DailyAnalytics, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	type key struct {
		date string
		t    models.EntityType
		id   string
	}
	rows := map[key]*models.DailyAnalytics{}
	for _, e := range f.matching(models.EventFilter{}.Between(since, until)) {
		if e.EntityID == "" {
			continue
		}
		k := key{utils.DateKey(e.CreatedAt), e.EntityType, e.EntityID}
		row, ok := rows[k]
		if !ok {
			row = &models.DailyAnalytics{Date: k.date, EntityType: k.t, EntityID: k.id}
			rows[k] = row
		}
		d := models.RollupDeltaFor(e.EventType)
		row.Views += d.Views
		row.Clicks += d.Clicks
		row.Impressions += d.Impressions
	}
	out := make([]*models.DailyAnalytics, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// fakeRollups is an in-memory RollupRepository.
type fakeRollups struct {
	mu   sync.Mutex
	rows map[string]*models.DailyAnalytics
	err  error
}

func newFakeRollups() *fakeRollups {
	return &fakeRollups{rows: map[string]*models.DailyAnalytics{}}
}

func rollupKey(date string, t models.EntityType, id string) string {
	return date + "|" + string(t) + "|" + id
}

func (f *fakeRollups) get(date string, t models.EntityType, id string) *models.DailyAnalytics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[rollupKey(date, t, id)]
}

func (f *fakeRollups) Increment(_ context.Context, date string, t models.EntityType, id string, d models.RollupDelta) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rollupKey(date, t, id)
	row, ok := f.rows[k]
	if !ok {
		row = &models.DailyAnalytics{Date: date, EntityType: t, EntityID: id}
		f.rows[k] = row
	}
	row.Views += d.Views
	row.Clicks += d.Clicks
	row.Impressions += d.Impressions
	return nil
}

func (f *fakeRollups) Replace(_ context.Context, row *models.DailyAnalytics) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.rows[rollupKey(row.Date, row.EntityType, row.EntityID)] = &cp
	return nil
}

func (f *fakeRollups) GetRange(_ context.Context, from, to string, t models.EntityType) ([]*models.DailyAnalytics, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DailyAnalytics
	for _, r := range f.rows {
		if r.Date < from || r.Date > to {
			continue
		}
		if t != "" && r.EntityType != t {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

// fakeCatalog is an in-memory CatalogRepository.
type fakeCatalog struct {
	mu         sync.Mutex
	products   []*models.Product
	categories []*models.Category
	banners    []*models.Banner
	tags       []*models.Tag

	incrementErr error
	increments   int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{}
}

func (f *fakeCatalog) addProduct(slug, name string, active bool) *models.Product {
	p := &models.Product{ID: primitive.NewObjectID(), Slug: slug, Name: name, IsActive: active}
	f.products = append(f.products, p)
	return p
}

func (f *fakeCatalog) addCategory(slug, name string, parent *models.Category, productCount int64) *models.Category {
	c := &models.Category{ID: primitive.NewObjectID(), Slug: slug, Name: name, IsActive: true, ProductCount: productCount}
	if parent != nil {
		id := parent.ID
		c.ParentID = &id
	}
	f.categories = append(f.categories, c)
	return c
}

func (f *fakeCatalog) addBanner(title string) *models.Banner {
	b := &models.Banner{ID: primitive.NewObjectID(), Title: title, IsActive: true}
	f.banners = append(f.banners, b)
	return b
}

func (f *fakeCatalog) addTag(slug string) *models.Tag {
	t := &models.Tag{ID: primitive.NewObjectID(), Slug: slug, Name: slug}
	f.tags = append(f.tags, t)
	return t
}

func (f *fakeCatalog) product(key string) models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID.Hex() == key || p.Slug == key {
			return *p
		}
	}
	return models.Product{}
}

func (f *fakeCatalog) banner(id primitive.ObjectID) models.Banner {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.banners {
		if b.ID == id {
			return *b
		}
	}
	return models.Banner{}
}

func (f *fakeCatalog) incrementCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.increments
}

func (f *fakeCatalog) GetProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeCatalog) GetCategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeCatalog) GetCategoryByID(_ context.Context, id string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.ID.Hex() == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeCatalog) GetBannerByID(_ context.Context, id string) (*models.Banner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.banners {
		if b.ID.Hex() == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeCatalog) GetTagBySlug(_ context.Context, slug string) (*models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tags {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeCatalog) IncrementCounter(_ context.Context, t models.EntityType, key string, field interfaces.CounterField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	if f.incrementErr != nil {
		return f.incrementErr
	}

	switch t {
	case models.EntityProduct:
		for _, p := range f.products {
			if p.ID.Hex() == key || p.Slug == key {
				switch field {
				case interfaces.CounterTotalViews:
					p.TotalViews++
				case interfaces.CounterClicks:
					p.Clicks++
				case interfaces.CounterInquiries:
					p.Inquiries++
				}
				p.Score = models.ProductScore(p.TotalViews, p.Clicks, p.Inquiries)
				return nil
			}
		}
	case models.EntityCategory:
		for _, c := range f.categories {
			if c.ID.Hex() == key || c.Slug == key {
				switch field {
				case interfaces.CounterTotalViews:
					c.TotalViews++
				case interfaces.CounterClicks:
					c.Clicks++
				}
				return nil
			}
		}
	case models.EntityBanner:
		for _, b := range f.banners {
			if b.ID.Hex() == key {
				switch field {
				case interfaces.CounterImpressions:
					b.Impressions++
				case interfaces.CounterClicks:
					b.Clicks++
				}
				return nil
			}
		}
	case models.EntityTag:
		for _, tg := range f.tags {
			if tg.ID.Hex() == key || tg.Slug == key {
				switch field {
				case interfaces.CounterImpressions:
					tg.Impressions++
				case interfaces.CounterClicks:
					tg.Clicks++
				}
				return nil
			}
		}
	}
	return interfaces.ErrNotFound
}

func (f *fakeCatalog) ListCategoriesByProductCount(_ context.Context, limit int) ([]*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Category
	for _, c := range f.categories {
		if c.IsActive && c.ProductCount > 0 {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductCount != out[j].ProductCount {
			return out[i].ProductCount > out[j].ProductCount
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) ListBanners(_ context.Context, ids []string) ([]*models.Banner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Banner
	for _, b := range f.banners {
		if len(ids) == 0 && b.IsActive {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakePublisher records live feed messages.
type fakePublisher struct {
	mu       sync.Mutex
	messages []interface{}
}

func (p *fakePublisher) Publish(_, _ string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, data)
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}
