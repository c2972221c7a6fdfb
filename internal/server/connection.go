package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroom/holdemd/internal/engine"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	tableID     string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// GetTable returns the associated table ID
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case MessageTypeListTables:
		c.handleListTables()

	case MessageTypeStartHand:
		var data StartHandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start hand data")
			return
		}
		c.handleStartHand(data)

	case MessageTypeAct:
		var data ActData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse act data")
			return
		}
		c.handleAct(data)

	case MessageTypeGetState:
		var data GetStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse get state data")
			return
		}
		c.handleGetState(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	// Simple authentication - just accept any player name
	if data.PlayerName == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	c.SetPlayer(data.PlayerName)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerName,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	c.logger.Info("Join table request", "tableId", data.TableID, "player", c.GetPlayer())

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	seat, err := c.gameService.JoinTable(data.TableID, playerID, data.SeatNumber)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	c.SetTable(data.TableID)

	seats, err := c.gameService.Seats(data.TableID)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}
	stack := 0
	for _, s := range seats {
		if s.Seat == seat {
			stack = s.Stack
		}
	}

	response, _ := NewMessage(MessageTypeTableJoined, TableJoinedData{
		TableID:    data.TableID,
		SeatNumber: seat,
		Stack:      stack,
		Seats:      seats,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleLeaveTable(data LeaveTableData) {
	c.logger.Info("Leave table request", "tableId", data.TableID, "player", c.GetPlayer())

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	if err := c.gameService.LeaveTable(data.TableID, playerID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}

	c.SetTable("")

	response, _ := NewMessage(MessageTypeTableLeft, map[string]string{"tableId": data.TableID})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleListTables() {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	response, _ := NewMessage(MessageTypeTableList, TableListData{
		Tables: c.gameService.ListTables(),
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleStartHand(data StartHandData) {
	c.logger.Info("Start hand request", "tableId", data.TableID, "player", c.GetPlayer())

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}
	if c.GetPlayer() == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	if _, err := c.gameService.StartHand(c.ctx, data.TableID); err != nil {
		c.sendError("start_failed", err.Error())
		return
	}
	// State and hole cards are broadcast by the service.
}

func (c *Connection) handleAct(data ActData) {
	c.logger.Info("Act request", "player", c.GetPlayer(), "action", data.Action, "amount", data.Amount)

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	err := c.gameService.Act(c.ctx, data.TableID, playerID, data.Action, data.Amount)
	if err != nil {
		// The rejection is personal; whatever the engine DID commit
		// (such as a timeout fold) was already broadcast.
		c.sendRejection(data.TableID, err)
		return
	}
	// No direct response: the committed state is broadcast to the table.
}

func (c *Connection) handleGetState(data GetStateData) {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	state, err := c.gameService.State(c.ctx, data.TableID)
	if err != nil {
		if errors.Is(err, engine.ErrHandNotFound) {
			c.sendError(RejectHandNotFound, "No hand in flight")
			return
		}
		c.sendError("state_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeHandState, state)
	_ = c.SendMessage(response) // Ignore send errors

	// Re-send the caller's own cards so a reconnecting client can
	// resume without any other channel.
	if playerID := c.GetPlayer(); playerID != "" {
		if cards, err := c.gameService.HoleCards(c.ctx, data.TableID, playerID); err == nil {
			msg, _ := NewMessage(MessageTypeHoleCards, cards)
			_ = c.SendMessage(msg)
		}
	}
}

func (c *Connection) sendRejection(tableID string, cause error) {
	msg, err := NewMessage(MessageTypeActRejected, ActRejectedData{
		TableID: tableID,
		Code:    RejectionCode(cause),
		Message: cause.Error(),
	})
	if err != nil {
		c.logger.Error("Failed to create rejection message", "error", err)
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors
}
