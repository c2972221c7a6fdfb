package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeAuth       MessageType = "auth"
	MessageTypeJoinTable  MessageType = "join_table"
	MessageTypeLeaveTable MessageType = "leave_table"
	MessageTypeListTables MessageType = "list_tables"
	MessageTypeStartHand  MessageType = "start_hand"
	MessageTypeAct        MessageType = "act"
	MessageTypeGetState   MessageType = "get_state"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableJoined  MessageType = "table_joined"
	MessageTypeTableLeft    MessageType = "table_left"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeHandState    MessageType = "hand_state"
	MessageTypeHoleCards    MessageType = "hole_cards"
	MessageTypeHandResult   MessageType = "hand_result"
	MessageTypeActRejected  MessageType = "act_rejected"
	MessageTypeError        MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
