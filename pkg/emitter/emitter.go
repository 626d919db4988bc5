// Package emitter posts storefront interaction events to the tracking
// endpoint. Emission is fire-and-forget: failures are logged and never
// reach the caller.
package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 5 * time.Second

// Event is the tracking payload. It mirrors the server's track request.
type Event struct {
	EventType  string   `json:"eventType"`
	EntityType string   `json:"entityType"`
	EntityID   string   `json:"entityId,omitempty"`
	EntitySlug string   `json:"entitySlug,omitempty"`
	EntityName string   `json:"entityName,omitempty"`
	SessionID  string   `json:"sessionId,omitempty"`
	UserID     string   `json:"userId,omitempty"`
	Metadata   Metadata `json:"metadata"`
}

type Metadata struct {
	Referrer     string `json:"referrer,omitempty"`
	UserAgent    string `json:"userAgent,omitempty"`
	PagePath     string `json:"pagePath,omitempty"`
	PreviousPage string `json:"previousPage,omitempty"`
	UTMSource    string `json:"utmSource,omitempty"`
	UTMMedium    string `json:"utmMedium,omitempty"`
	UTMCampaign  string `json:"utmCampaign,omitempty"`
	SearchQuery  string `json:"searchQuery,omitempty"`
}

// Emitter tracks one browsing context. It is safe for concurrent use.
type Emitter struct {
	endpoint  string
	client    *http.Client
	storage   SessionStorage
	userAgent string
	log       logrus.FieldLogger
	now       func() time.Time

	mu       sync.Mutex
	lastKey  string
	lastPath string
	userID   string

	wg sync.WaitGroup
}

type Option func(*Emitter)

func WithHTTPClient(client *http.Client) Option {
	return func(e *Emitter) { e.client = client }
}

func WithStorage(storage SessionStorage) Option {
	return func(e *Emitter) { e.storage = storage }
}

func WithUserAgent(ua string) Option {
	return func(e *Emitter) { e.userAgent = ua }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Emitter) { e.log = log }
}

// New returns an emitter posting to endpoint, e.g.
// https://shop.example.com/api/v1/analytics/track.
func New(endpoint string, opts ...Option) *Emitter {
	e := &Emitter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.storage == nil {
		e.storage = NewMemoryStorage()
	}
	return e
}

// SessionID returns the stored session id, generating and storing one when
// storage holds none.
func (e *Emitter) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.storage.Get(SessionKey); ok {
		return id
	}
	id := NewSessionID(e.now())
	e.storage.Set(SessionKey, id)
	return id
}

// SetUserID attaches a signed-in user to subsequent events.
func (e *Emitter) SetUserID(userID string) {
	e.mu.Lock()
	e.userID = userID
	e.mu.Unlock()
}

// PageView emits one page_view per distinct pathname+query navigation.
// Repeats of the current navigation are suppressed. The event is keyed by
// pathname so query strings do not fragment page stats. It reports whether
// an event was sent.
func (e *Emitter) PageView(pathname, rawQuery, referrer string) bool {
	key := pathname + "?" + rawQuery
	sessionID := e.SessionID()

	e.mu.Lock()
	if key == e.lastKey {
		e.mu.Unlock()
		return false
	}
	previous := e.lastPath
	e.lastKey = key
	e.lastPath = pathname
	userID := e.userID
	e.mu.Unlock()

	e.send(Event{
		EventType:  "page_view",
		EntityType: "page",
		EntityID:   pathname,
		EntitySlug: pathname,
		SessionID:  sessionID,
		UserID:     userID,
		Metadata: Metadata{
			Referrer:     referrer,
			UserAgent:    e.userAgent,
			PagePath:     pathname,
			PreviousPage: previous,
		},
	})
	return true
}

// Track emits an arbitrary event, filling in the session and user.
func (e *Emitter) Track(event Event) {
	if event.SessionID == "" {
		event.SessionID = e.SessionID()
	}
	e.mu.Lock()
	if event.UserID == "" {
		event.UserID = e.userID
	}
	e.mu.Unlock()
	if event.Metadata.UserAgent == "" {
		event.Metadata.UserAgent = e.userAgent
	}
	e.send(event)
}

// Wait blocks until every in-flight emission has finished.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) send(event Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.WithField("panic", r).Warn("tracking emit panicked")
			}
		}()

		if err := e.post(event); err != nil {
			e.log.WithError(err).WithField("event_type", event.EventType).Debug("tracking emit failed")
		}
	}()
}

func (e *Emitter) post(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx/3xx answer from the tracking endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "tracking endpoint returned " + http.StatusText(e.Code)
}
