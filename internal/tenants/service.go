// Package tenants provides the restaurant directory with file watching and
// persistence of the active restaurant.
package tenants

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/models"
)

// ErrNoTenants is returned when the directory file lists no restaurants.
var ErrNoTenants = errors.New("tenants file lists no restaurants")

// File represents the JSON file structure for the directory.
type File struct {
	Tenants []models.Tenant `json:"tenants"`
	Active  string          `json:"active,omitempty"`
	Version int             `json:"version,omitempty"`
}

// Event represents a directory event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of directory event.
type EventType int

const (
	EventLoaded EventType = iota
	EventChanged
	EventActiveChanged
	EventError
)

const debounceInterval = 100 * time.Millisecond

// Service holds the restaurant list and reloads it when the file changes.
type Service struct {
	mu            sync.RWMutex
	tenants       []models.Tenant
	active        string
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	stopOnce      sync.Once
	debounceTimer *time.Timer
}

// New loads the directory at filePath and starts watching it.
func New(filePath string) (*Service, error) {
	s := &Service{
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load tenants: %w", err)
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventLoaded})
	return s, nil
}

// Static returns a directory holding a single restaurant and no backing
// file.
func Static(tenant models.Tenant) *Service {
	return &Service{
		tenants:   []models.Tenant{tenant},
		active:    tenant.ID,
		eventChan: make(chan Event, 1),
		stopChan:  make(chan struct{}),
	}
}

// Events returns the event channel for subscribing to directory changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Tenants returns a copy of all restaurants.
func (s *Service) Tenants() []models.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Tenant(nil), s.tenants...)
}

// Count returns the number of restaurants.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants)
}

// Get returns the restaurant with id.
func (s *Service) Get(id string) (models.Tenant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

// Active returns the active restaurant, or the first one listed when the
// active id is unknown.
func (s *Service) Active() models.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.findLocked(s.active); ok {
		return t
	}
	if len(s.tenants) > 0 {
		return s.tenants[0]
	}
	return models.Tenant{}
}

// SetActive makes id the active restaurant and persists the choice when
// the directory is file-backed.
func (s *Service) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findLocked(id); !ok {
		return fmt.Errorf("tenant not found: %s", id)
	}
	if s.active == id {
		return nil
	}
	prev := s.active
	s.active = id

	if s.filePath != "" {
		if err := s.saveLocked(); err != nil {
			s.active = prev
			return fmt.Errorf("failed to save tenants: %w", err)
		}
	}

	s.sendEvent(Event{Type: EventActiveChanged})
	return nil
}

// Next returns the restaurant listed after the active one, wrapping around.
func (s *Service) Next() models.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tenants) == 0 {
		return models.Tenant{}
	}
	for i, t := range s.tenants {
		if t.ID == s.active {
			return s.tenants[(i+1)%len(s.tenants)]
		}
	}
	return s.tenants[0]
}

func (s *Service) findLocked(id string) (models.Tenant, bool) {
	for _, t := range s.tenants {
		if t.ID == id {
			return t, true
		}
	}
	return models.Tenant{}, false
}

// parse accepts the directory object or a bare array of restaurants.
func parse(data []byte) ([]models.Tenant, string, error) {
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		var list []models.Tenant
		if err2 := json.Unmarshal(data, &list); err2 != nil {
			return nil, "", fmt.Errorf("failed to parse tenants file: %w", err)
		}
		file.Tenants = list
	}

	tenants := make([]models.Tenant, 0, len(file.Tenants))
	for _, t := range file.Tenants {
		if t.ID == "" {
			logger.Warn("skipping tenant without id", "name", t.Name)
			continue
		}
		tenants = append(tenants, t)
	}
	if len(tenants) == 0 {
		return nil, "", ErrNoTenants
	}

	active := file.Active
	found := false
	for _, t := range tenants {
		if t.ID == active {
			found = true
			break
		}
	}
	if !found {
		active = tenants[0].ID
	}
	return tenants, active, nil
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	tenants, active, err := parse(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tenants = tenants
	s.active = active
	s.mu.Unlock()
	return nil
}

// saveLocked writes the directory file (must hold lock).
func (s *Service) saveLocked() error {
	data, err := json.MarshalIndent(File{Tenants: s.tenants, Active: s.active, Version: 1}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tenants: %w", err)
	}

	// Write to temp file first, then rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory so atomic renames are seen
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			s.mu.Lock()
			if s.debounceTimer != nil {
				s.debounceTimer.Stop()
			}
			s.debounceTimer = time.AfterFunc(debounceInterval, s.reload)
			s.mu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// reload re-reads the file after an external change. A broken file keeps
// the previous list.
func (s *Service) reload() {
	select {
	case <-s.stopChan:
		return
	default:
	}

	if err := s.load(); err != nil {
		logger.Warn("tenants reload failed", "path", s.filePath, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	logger.Debug("tenants reloaded", "path", s.filePath, "count", s.Count())
	s.sendEvent(Event{Type: EventChanged})
}

// sendEvent sends an event non-blocking, dropping the oldest when full.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher. Close is idempotent.
func (s *Service) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
