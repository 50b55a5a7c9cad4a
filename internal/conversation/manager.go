package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxHistory = 2

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager keeps recent exchanges per session in memory. Only the last
// maxHistory user/assistant exchanges are retained.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxHistory int
	now        func() time.Time
}

func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

func (m *Manager) CreateSession() string {
	id := uuid.NewString()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[id] = &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

func (m *Manager) AddMessage(sessionID string, role string, content string) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		session = &Session{ID: sessionID, CreatedAt: now}
		m.sessions[sessionID] = session
	}

	session.Messages = append(session.Messages, Message{Role: role, Content: content, Timestamp: now})
	session.UpdatedAt = now

	limit := m.maxHistory * 2
	if len(session.Messages) > limit {
		session.Messages = append([]Message(nil), session.Messages[len(session.Messages)-limit:]...)
	}
}

func (m *Manager) AddExchange(sessionID string, userMessage string, assistantMessage string) {
	m.AddMessage(sessionID, "user", userMessage)
	m.AddMessage(sessionID, "assistant", assistantMessage)
}

// History formats the retained messages as "User: ..." / "Assistant: ..."
// lines. Unknown or empty sessions yield "".
func (m *Manager) History(sessionID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok || len(session.Messages) == 0 {
		return ""
	}

	lines := make([]string, 0, len(session.Messages))
	for _, msg := range session.Messages {
		lines = append(lines, fmt.Sprintf("%s: %s", displayRole(msg.Role), msg.Content))
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) Exists(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[sessionID]
	return ok
}

func (m *Manager) ClearSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func displayRole(role string) string {
	switch role {
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	default:
		return role
	}
}
