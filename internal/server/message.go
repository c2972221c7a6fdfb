package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/cardroom/holdemd/internal/deck"
	"github.com/cardroom/holdemd/internal/engine"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type JoinTableData struct {
	TableID    string `json:"tableId"`
	SeatNumber *int   `json:"seatNumber,omitempty"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type StartHandData struct {
	TableID string `json:"tableId"`
}

// ActData carries a player's intent. The server applies it against
// current state and the turn check decides; clients never race on an
// observed version.
type ActData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"` // total bet level for raises
}

type GetStateData struct {
	TableID string `json:"tableId"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Stakes      string `json:"stakes"`
	HandActive  bool   `json:"handActive"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type SeatInfo struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Stack    int    `json:"stack"`
}

type TableJoinedData struct {
	TableID    string     `json:"tableId"`
	SeatNumber int        `json:"seatNumber"`
	Stack      int        `json:"stack"`
	Seats      []SeatInfo `json:"seats"`
}

// HoleCardsData is sent to exactly one player; it is the only message
// that ever carries unrevealed cards.
type HoleCardsData struct {
	TableID string      `json:"tableId"`
	HandID  string      `json:"handId"`
	Seat    int         `json:"seat"`
	Cards   []deck.Card `json:"cards"`
}

// ActRejectedData tells the caller why an intent did not apply. The
// accompanying hand_state broadcast carries whatever DID change, such
// as a timeout fold committed on the same request.
type ActRejectedData struct {
	TableID string `json:"tableId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Rejection codes for act_rejected messages.
const (
	RejectNotYourTurn   = "not_your_turn"
	RejectIllegalCheck  = "illegal_check"
	RejectRaiseTooSmall = "raise_too_small"
	RejectInvalidAction = "invalid_action"
	RejectHandComplete  = "hand_complete"
	RejectHandNotFound  = "hand_not_found"
	RejectSuperseded    = "superseded"
	RejectSeatNotFound  = "seat_not_found"
	RejectInternal      = "internal"
)

// RejectionCode maps an engine error to its wire code.
func RejectionCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return RejectNotYourTurn
	case errors.Is(err, engine.ErrIllegalCheck):
		return RejectIllegalCheck
	case errors.Is(err, engine.ErrRaiseTooSmall):
		return RejectRaiseTooSmall
	case errors.Is(err, engine.ErrHandComplete):
		return RejectHandComplete
	case errors.Is(err, engine.ErrHandNotFound):
		return RejectHandNotFound
	case errors.Is(err, engine.ErrSuperseded):
		return RejectSuperseded
	case errors.Is(err, engine.ErrSeatNotFound):
		return RejectSeatNotFound
	case errors.Is(err, engine.ErrInvalidAction):
		return RejectInvalidAction
	default:
		return RejectInternal
	}
}
