package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/threadscan/threadscan/internal/models"
)

const (
	StatusRunning  = "running"
	StatusComplete = "complete"

	// DefaultTTL is how long a finished scan stays pollable.
	DefaultTTL = 15 * time.Minute

	// maxLogLines caps the per-session log ring.
	maxLogLines = 200

	defaultMaxEntries = 256
)

// Session is the pollable state of one scan.
type Session struct {
	ID            string           `json:"id"`
	Query         string           `json:"query"`
	CreatedAt     time.Time        `json:"created_at"`
	Results       []models.Product `json:"results"`
	SitesTotal    int              `json:"sites_total"`
	SitesDone     int              `json:"sites_done"`
	Status        string           `json:"status"`
	Logs          []string         `json:"logs"`
	ExportPath    string           `json:"export_path,omitempty"`
	ExportedCount int              `json:"exported_count"`
}

// Store is the scan session cache. Implementations must be safe for
// concurrent use; Get returns a snapshot the caller may read freely.
type Store interface {
	Create(ctx context.Context, query string, sitesTotal int) (string, error)
	Get(ctx context.Context, id string) (*Session, bool)
	AddResults(ctx context.Context, id string, results []models.Product) error
	AddLog(ctx context.Context, id, message string) error
	MarkSiteDone(ctx context.Context, id, site string, siteErr error) error
	MarkComplete(ctx context.Context, id string) error
	ExportCSV(ctx context.Context, id, dir string) (string, error)
}

func (s *Session) appendLog(message string) {
	s.Logs = append(s.Logs, message)
	if len(s.Logs) > maxLogLines {
		s.Logs = s.Logs[len(s.Logs)-maxLogLines:]
	}
}

func siteDoneMessage(site string, siteErr error) string {
	if siteErr != nil {
		return fmt.Sprintf("%s: failed (%v)", site, siteErr)
	}
	return fmt.Sprintf("%s: completed", site)
}

// MemoryStore keeps sessions in an expirable LRU so abandoned scans age out
// on their own.
type MemoryStore struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, *Session]
}

func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryStore{
		entries: expirable.NewLRU[string, *Session](maxEntries, nil, ttl),
	}
}

func (m *MemoryStore) Create(_ context.Context, query string, sitesTotal int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.entries.Add(id, &Session{
		ID:         id,
		Query:      query,
		CreatedAt:  time.Now(),
		SitesTotal: sitesTotal,
		Status:     StatusRunning,
	})
	return id, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries.Get(id)
	if !ok {
		return nil, false
	}
	return snapshot(entry), true
}

func (m *MemoryStore) AddResults(_ context.Context, id string, results []models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries.Get(id); ok {
		entry.Results = append(entry.Results, results...)
	}
	return nil
}

func (m *MemoryStore) AddLog(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries.Get(id); ok {
		entry.appendLog(message)
	}
	return nil
}

func (m *MemoryStore) MarkSiteDone(_ context.Context, id, site string, siteErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries.Get(id); ok {
		entry.SitesDone++
		entry.appendLog(siteDoneMessage(site, siteErr))
	}
	return nil
}

func (m *MemoryStore) MarkComplete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries.Get(id); ok {
		entry.Status = StatusComplete
		entry.appendLog("scan: complete")
	}
	return nil
}

func (m *MemoryStore) ExportCSV(_ context.Context, id, dir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries.Get(id)
	if !ok {
		return "", ErrSessionNotFound
	}
	return exportCSV(entry, dir)
}

func snapshot(entry *Session) *Session {
	copied := *entry
	copied.Results = append([]models.Product(nil), entry.Results...)
	copied.Logs = append([]string(nil), entry.Logs...)
	return &copied
}

// EncodeCursor packs a scan id and result offset into an opaque cursor for
// polling clients.
func EncodeCursor(scanID string, offset int) string {
	payload := fmt.Sprintf("%s:%d", scanID, offset)
	return base64.URLEncoding.EncodeToString([]byte(payload))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(cursor string) (string, int, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", 0, fmt.Errorf("invalid cursor: %w", err)
	}
	scanID, offsetText, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", 0, fmt.Errorf("invalid cursor payload")
	}
	offset, err := strconv.Atoi(offsetText)
	if err != nil {
		return "", 0, fmt.Errorf("invalid cursor offset: %w", err)
	}
	return scanID, offset, nil
}
