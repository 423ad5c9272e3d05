// Package session keeps conversation history, file contexts and project
// metadata for one assistant session, and persists them to a store.
package session

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/lang"
	"github.com/discochess/codeassist/internal/provider"
	"github.com/discochess/codeassist/internal/security"
	"github.com/discochess/codeassist/internal/store"
)

// DefaultWindow is the number of non-system messages kept after trimming.
const DefaultWindow = 10

// ErrNoStore is returned by Save and Load when the manager has no store.
var ErrNoStore = errors.New("session: no store configured")

// Message is one turn of the conversation.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FileContext is a file the user has shown the assistant.
type FileContext struct {
	Path         string         `json:"path"`
	Content      string         `json:"content"`
	Language     lang.Language  `json:"language"`
	LastModified time.Time      `json:"last_modified"`
	Size         int            `json:"size"`
	Analysis     map[string]any `json:"analysis,omitempty"`
}

// Project describes the project the session works on.
type Project struct {
	RootPath     string         `json:"root_path"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Languages    []string       `json:"languages,omitempty"`
	FileCount    int            `json:"file_count"`
	TotalSize    int64          `json:"total_size"`
	Structure    map[string]int `json:"structure,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	LastAnalyzed time.Time      `json:"last_analyzed,omitzero"`
}

// Summary is a short description of the session state.
type Summary struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	FileCount    int       `json:"file_count"`
	ProjectName  string    `json:"project_name,omitempty"`
	LastActivity time.Time `json:"last_activity,omitzero"`
}

type snapshot struct {
	SessionID string                 `json:"session_id"`
	Messages  []Message              `json:"messages"`
	Files     map[string]FileContext `json:"files"`
	Project   *Project               `json:"project,omitempty"`
	Metadata  map[string]any         `json:"metadata"`
	Timestamp time.Time              `json:"timestamp"`
}

// Manager holds the state of one session. It is safe for concurrent use.
type Manager struct {
	window   int
	autoSave bool
	store    store.Store
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	id       string
	messages []Message
	files    map[string]FileContext
	project  *Project
	metadata map[string]any
}

// New returns an empty session with a fresh UUID.
func New(opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	id := o.id
	if id == "" {
		id = uuid.NewString()
	}
	return &Manager{
		window:   o.window,
		autoSave: o.autoSave && o.store != nil,
		store:    o.store,
		logger:   o.logger.Named("session"),
		now:      o.now,
		id:       id,
		files:    make(map[string]FileContext),
		metadata: make(map[string]any),
	}
}

// ID returns the session identifier.
func (m *Manager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Key returns the store object name for a session id. The id is reduced to
// a single path element.
func Key(id string) string {
	return "sessions/" + security.SanitizeFilename(id) + ".json"
}

// AddMessage appends a message. When the history exceeds twice the window,
// it is cut back to every system message plus the most recent window
// others, in their original order.
func (m *Manager) AddMessage(ctx context.Context, role, content string, metadata map[string]any) error {
	m.mu.Lock()
	m.messages = append(m.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: m.now(),
		Metadata:  metadata,
	})
	if len(m.messages) > 2*m.window {
		m.messages = trim(m.messages, m.window)
	}
	m.mu.Unlock()

	return m.maybeSave(ctx)
}

func trim(msgs []Message, window int) []Message {
	var system, other []Message
	for _, msg := range msgs {
		if msg.Role == provider.RoleSystem {
			system = append(system, msg)
		} else {
			other = append(other, msg)
		}
	}
	if len(other) > window {
		other = other[len(other)-window:]
	}
	return append(system, other...)
}

// AddFile records or replaces the context for path. The modification time
// comes from the file system when path exists.
func (m *Manager) AddFile(ctx context.Context, path, content string, language lang.Language, analysis map[string]any) error {
	modified := m.now()
	if info, err := os.Stat(path); err == nil {
		modified = info.ModTime()
	}

	m.mu.Lock()
	m.files[path] = FileContext{
		Path:         path,
		Content:      content,
		Language:     language,
		LastModified: modified,
		Size:         len(content),
		Analysis:     analysis,
	}
	m.mu.Unlock()

	return m.maybeSave(ctx)
}

// SetProject replaces the project context.
func (m *Manager) SetProject(ctx context.Context, p Project) error {
	m.mu.Lock()
	m.project = &p
	m.mu.Unlock()

	return m.maybeSave(ctx)
}

// Project returns the project context, if set.
func (m *Manager) Project() (Project, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.project == nil {
		return Project{}, false
	}
	return *m.project, true
}

// SetMetadata stores a session-level value.
func (m *Manager) SetMetadata(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
}

// Metadata returns a session-level value.
func (m *Manager) Metadata(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.metadata[key]
	return v, ok
}

// History returns the last limit messages, or all of them when limit <= 0.
func (m *Manager) History(limit int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return slices.Clone(msgs)
}

// Conversation returns the history as provider messages.
func (m *Manager) Conversation(limit int) []provider.Message {
	history := m.History(limit)
	out := make([]provider.Message, len(history))
	for i, msg := range history {
		out[i] = provider.Message{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// File returns the context recorded for path.
func (m *Manager) File(path string) (FileContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	return f, ok
}

// RelevantFiles returns up to limit files ranked by the Jaccard similarity
// of their lowercased word sets with the query. Ties are ordered by path.
func (m *Manager) RelevantFiles(query string, limit int) []FileContext {
	q := words(query)

	type scored struct {
		score float64
		file  FileContext
	}
	m.mu.Lock()
	ranked := make([]scored, 0, len(m.files))
	for _, f := range m.files {
		ranked = append(ranked, scored{score: jaccard(q, words(f.Content)), file: f})
	}
	m.mu.Unlock()

	slices.SortFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.file.Path, b.file.Path)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]FileContext, len(ranked))
	for i, r := range ranked {
		out[i] = r.file
	}
	return out
}

func words(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Clear drops messages, files, project and metadata. The session id is
// kept.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.files = make(map[string]FileContext)
	m.project = nil
	m.metadata = make(map[string]any)
}

// Summary describes the current state.
func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{
		SessionID:    m.id,
		MessageCount: len(m.messages),
		FileCount:    len(m.files),
	}
	if m.project != nil {
		s.ProjectName = m.project.Name
	}
	if n := len(m.messages); n > 0 {
		s.LastActivity = m.messages[n-1].Timestamp
	}
	return s
}

// Save writes a JSON snapshot of the session to the store.
func (m *Manager) Save(ctx context.Context) error {
	if m.store == nil {
		return ErrNoStore
	}

	m.mu.Lock()
	snap := snapshot{
		SessionID: m.id,
		Messages:  m.messages,
		Files:     m.files,
		Project:   m.project,
		Metadata:  m.metadata,
		Timestamp: m.now(),
	}
	data, err := json.Marshal(snap)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", snap.SessionID, err)
	}

	if err := m.store.Put(ctx, Key(snap.SessionID), data); err != nil {
		return fmt.Errorf("saving session %s: %w", snap.SessionID, err)
	}
	return nil
}

// Load replaces the session state with the snapshot stored for id.
func (m *Manager) Load(ctx context.Context, id string) error {
	if m.store == nil {
		return ErrNoStore
	}
	data, err := m.store.Get(ctx, Key(id))
	if err != nil {
		return fmt.Errorf("loading session %s: %w", id, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = cmp.Or(snap.SessionID, id)
	m.messages = snap.Messages
	m.files = snap.Files
	if m.files == nil {
		m.files = make(map[string]FileContext)
	}
	m.project = snap.Project
	m.metadata = snap.Metadata
	if m.metadata == nil {
		m.metadata = make(map[string]any)
	}
	return nil
}

func (m *Manager) maybeSave(ctx context.Context) error {
	if !m.autoSave {
		return nil
	}
	if err := m.Save(ctx); err != nil {
		m.logger.Warn("auto-save failed", zap.String("session", m.ID()), zap.Error(err))
		return err
	}
	return nil
}
