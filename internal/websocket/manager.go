package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager keeps the per-user index of live connections and pushes sync
// events to them. Clients never push data over the socket; inbound traffic
// is limited to ping messages.
type Manager struct {
	clients        map[string]*Client
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerUser int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
	logger         *zap.Logger
}

func NewManager(maxConnPerUser int, writeWait, pongWait, pingPeriod time.Duration, maxMessageSize int64, logger *zap.Logger) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerUser: maxConnPerUser,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		maxMessageSize: maxMessageSize,
		logger:         logger,
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.logger.Warn("max connections reached", zap.String("user_id", client.UserID))
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.logger.Info("client connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID))
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)

		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}

		close(client.Send)
		m.logger.Info("client disconnected", zap.String("client_id", client.ID))
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Warn("dropping unparsable message",
			zap.String("client_id", clientMsg.Client.ID), zap.Error(err))
		return
	}

	if msg.Type == TypePing {
		pong, err := NewMessage(TypePong, nil)
		if err != nil {
			return
		}
		m.SendToClient(clientMsg.Client.ID, pong)
	}
}

// BroadcastSyncCompleted tells the user's connected clients that new data is
// available to pull.
func (m *Manager) BroadcastSyncCompleted(userID string, syncTimestamp int64) {
	msg, err := NewMessage(TypeSyncCompleted, &SyncCompletedPayload{SyncTimestamp: syncTimestamp})
	if err != nil {
		m.logger.Error("failed to build sync event", zap.Error(err))
		return
	}
	m.BroadcastToUser(userID, msg, "")
}

// NotifySessionClosed tells the session's connection it lost affinity.
func (m *Manager) NotifySessionClosed(userID, reason string) {
	msg, err := NewMessage(TypeSessionClosed, &SessionClosedPayload{Reason: reason})
	if err != nil {
		return
	}
	m.BroadcastToUser(userID, msg, "")
}

func (m *Manager) BroadcastToUser(userID string, message *Message, excludeSession string) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	// Collect backlogged clients under the read lock but unregister them only
	// after releasing it: unregisterClient needs the write lock, so pushing
	// into Unregister while still holding the read lock wedges the Run loop.
	var backlogged []*Client

	m.clientsMutex.RLock()
	for clientID := range m.userIndex[userID] {
		client := m.clients[clientID]
		if excludeSession != "" && client.SessionToken == excludeSession {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			backlogged = append(backlogged, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range backlogged {
		m.logger.Warn("send buffer full, dropping connection",
			zap.String("client_id", client.ID))
		m.Unregister <- client
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.logger.Warn("send buffer full", zap.String("client_id", clientID))
	}

	return nil
}
