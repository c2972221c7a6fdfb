package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroom/holdemd/internal/audit"
	"github.com/cardroom/holdemd/internal/deck"
	"github.com/cardroom/holdemd/internal/engine"
	"github.com/cardroom/holdemd/internal/gameid"
	"github.com/cardroom/holdemd/internal/store"
)

// Broadcaster delivers messages to connected clients. The websocket
// server implements it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToTable(tableID string, msg *Message)
	SendToPlayer(playerID string, msg *Message) error
}

// commitRetries bounds how often a single request replays its
// read-compute-commit cycle after losing the version race.
const commitRetries = 3

// tablePlayer is a seated player's standing between hands.
type tablePlayer struct {
	Seat     int
	PlayerID string
	Stack    int
}

// gameTable tracks one table's roster and its hand in flight.
type gameTable struct {
	config     TableConfig
	engine     *engine.Engine
	players    []*tablePlayer // seat order
	dealerSeat int
	handNo     int64
	handID     string // empty when no hand is in flight
	dealing    bool   // a StartHand holds the table while off the lock
}

func (t *gameTable) playerByID(playerID string) *tablePlayer {
	for _, p := range t.players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

func (t *gameTable) seatTaken(seat int) bool {
	for _, p := range t.players {
		if p.Seat == seat {
			return true
		}
	}
	return false
}

// GameService owns every table and drives the read-compute-commit
// cycle against the store. It holds no lock while a request is in
// flight against the store; the hand version is the concurrency
// control.
type GameService struct {
	logger *log.Logger
	store  store.Store
	clock  quartz.Clock
	trail  *audit.Trail // nil disables the audit trail
	ids    *gameid.Generator
	bc     Broadcaster

	mu     sync.Mutex
	tables map[string]*gameTable
}

// NewGameService builds the service and registers configured tables.
func NewGameService(cfg *ServerConfig, st store.Store, trail *audit.Trail, bc Broadcaster, clock quartz.Clock, logger *log.Logger) *GameService {
	svc := &GameService{
		logger: logger.WithPrefix("game"),
		store:  st,
		clock:  clock,
		trail:  trail,
		ids:    gameid.NewGenerator(nil),
		bc:     bc,
		tables: make(map[string]*gameTable),
	}

	for _, tc := range cfg.Tables {
		svc.tables[tc.Name] = &gameTable{
			config:     tc,
			engine:     engine.New(logger, time.Duration(tc.ActionTimeoutSeconds)*time.Second),
			dealerSeat: -1,
		}
		svc.logger.Info("Registered table", "table", tc.Name,
			"blinds", fmt.Sprintf("%d/%d", tc.SmallBlind, tc.BigBlind))
	}
	return svc
}

// JoinTable seats a player at the lowest free seat, or the requested
// one. Joining mid-hand is allowed; the player participates from the
// next deal.
func (s *GameService) JoinTable(tableID, playerID string, seatNumber *int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return 0, fmt.Errorf("table not found: %s", tableID)
	}
	if table.playerByID(playerID) != nil {
		return 0, fmt.Errorf("player %s already seated at %s", playerID, tableID)
	}
	if len(table.players) >= table.config.MaxPlayers {
		return 0, fmt.Errorf("table %s is full", tableID)
	}

	seat := -1
	if seatNumber != nil {
		if *seatNumber < 0 || *seatNumber >= table.config.MaxPlayers {
			return 0, fmt.Errorf("seat %d out of range", *seatNumber)
		}
		if table.seatTaken(*seatNumber) {
			return 0, fmt.Errorf("seat %d is taken", *seatNumber)
		}
		seat = *seatNumber
	} else {
		for n := 0; n < table.config.MaxPlayers; n++ {
			if !table.seatTaken(n) {
				seat = n
				break
			}
		}
	}

	table.players = append(table.players, &tablePlayer{
		Seat:     seat,
		PlayerID: playerID,
		Stack:    table.config.StartingStack,
	})
	sortPlayers(table.players)

	s.logger.Info("Player seated", "table", tableID, "player", playerID, "seat", seat)
	return seat, nil
}

// LeaveTable removes a player from the roster. A player in a live hand
// stays in that hand until it resolves; the turn deadline folds them
// if they never act again.
func (s *GameService) LeaveTable(tableID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return fmt.Errorf("table not found: %s", tableID)
	}
	for i, p := range table.players {
		if p.PlayerID == playerID {
			table.players = append(table.players[:i], table.players[i+1:]...)
			s.logger.Info("Player left", "table", tableID, "player", playerID)
			return nil
		}
	}
	return fmt.Errorf("player %s not seated at %s", playerID, tableID)
}

// ListTables summarizes every registered table.
func (s *GameService) ListTables() []TableInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []TableInfo
	for id, t := range s.tables {
		out = append(out, TableInfo{
			ID:          id,
			Name:        t.config.Name,
			PlayerCount: len(t.players),
			MaxPlayers:  t.config.MaxPlayers,
			Stakes:      fmt.Sprintf("%d/%d", t.config.SmallBlind, t.config.BigBlind),
			HandActive:  t.handID != "",
		})
	}
	return out
}

// Seats returns the current roster in seat order.
func (s *GameService) Seats(tableID string) ([]SeatInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("table not found: %s", tableID)
	}
	out := make([]SeatInfo, 0, len(table.players))
	for _, p := range table.players {
		out = append(out, SeatInfo{Seat: p.Seat, PlayerID: p.PlayerID, Stack: p.Stack})
	}
	return out, nil
}

// StartHand deals a fresh hand: fresh seed, dealer rotated one seat
// left, blinds posted. The created hand is persisted before anything
// is announced. The table is reserved under the lock before the deal
// leaves it, so concurrent starts cannot both pass the in-flight
// guard; the rotation state only advances once the hand is persisted.
func (s *GameService) StartHand(ctx context.Context, tableID string) (*engine.Hand, error) {
	s.mu.Lock()
	table, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("table not found: %s", tableID)
	}
	if table.handID != "" || table.dealing {
		s.mu.Unlock()
		return nil, fmt.Errorf("table %s already has a hand in flight", tableID)
	}

	eligible := make([]engine.Seat, 0, len(table.players))
	for _, p := range table.players {
		if p.Stack > 0 {
			eligible = append(eligible, engine.Seat{
				Number:        p.Seat,
				PlayerID:      p.PlayerID,
				StartingStack: p.Stack,
				Participating: true,
			})
		}
	}
	if len(eligible) < 2 {
		s.mu.Unlock()
		return nil, fmt.Errorf("table %s needs at least 2 funded players, has %d", tableID, len(eligible))
	}

	table.dealing = true
	dealerSeat := nextDealer(eligible, table.dealerSeat)
	handNo := table.handNo + 1

	cfg := engine.HandConfig{
		TableID:    tableID,
		HandID:     s.ids.Generate(),
		HandNo:     handNo,
		Seats:      eligible,
		DealerSeat: dealerSeat,
		SmallBlind: table.config.SmallBlind,
		BigBlind:   table.config.BigBlind,
		Now:        s.clock.Now(),
		Deadline:   time.Duration(table.config.ActionTimeoutSeconds) * time.Second,
	}
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		table.dealing = false
		s.mu.Unlock()
	}

	seed, err := deck.NewSeed()
	if err != nil {
		release()
		return nil, fmt.Errorf("generating deck seed: %w", err)
	}
	cfg.Seed = seed

	h, err := table.engine.Deal(cfg)
	if err != nil {
		release()
		return nil, fmt.Errorf("dealing hand on %s: %w", tableID, err)
	}
	if err := s.store.Create(ctx, h); err != nil {
		release()
		return nil, fmt.Errorf("persisting hand %s: %w", h.ID, err)
	}

	s.mu.Lock()
	table.dealing = false
	table.dealerSeat = dealerSeat
	table.handNo = handNo
	table.handID = h.ID
	s.mu.Unlock()

	s.logger.Info("Hand started", "table", tableID, "hand", h.ID, "no", h.HandNo,
		"dealer", h.DealerSeat, "players", len(eligible))

	s.sendHoleCards(h)

	// A deal where the blinds already put everyone all-in resolves
	// before any request arrives; settle it like any other completion.
	if h.Result() != nil {
		s.afterCommit(table, h)
	} else {
		s.broadcastState(h)
	}
	return h, nil
}

// Act applies a player's intent to the table's live hand. Whatever the
// engine committed is broadcast even when the caller's own intent was
// rejected; a timed-out actor's forced fold lands on the next request
// regardless of who sent it.
func (s *GameService) Act(ctx context.Context, tableID, playerID string, action string, amount int) error {
	actionType, err := engine.ParseActionType(action)
	if err != nil {
		return fmt.Errorf("%w: %s", engine.ErrInvalidAction, action)
	}

	s.mu.Lock()
	table, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("table not found: %s", tableID)
	}
	handID := table.handID
	s.mu.Unlock()

	if handID == "" {
		return engine.ErrHandNotFound
	}

	req := engine.ActionRequest{PlayerID: playerID, Type: actionType, Amount: amount}

	for attempt := 0; attempt <= commitRetries; attempt++ {
		h, err := s.store.Get(ctx, tableID, handID)
		if err != nil {
			return err
		}
		readVersion := h.Version

		changed, aerr := table.engine.Apply(h, req, s.clock.Now())
		if !changed {
			if aerr != nil {
				return aerr
			}
			return nil
		}

		if err := s.store.Commit(ctx, h, readVersion); err != nil {
			if errors.Is(err, engine.ErrSuperseded) {
				s.logger.Debug("Commit lost version race, retrying",
					"table", tableID, "hand", handID, "attempt", attempt)
				continue
			}
			return err
		}

		s.afterCommit(table, h)
		return aerr
	}

	return fmt.Errorf("hand %s: %w after %d attempts", handID, engine.ErrSuperseded, commitRetries)
}

// Poke re-examines the live hand without carrying an intent, so an
// expired deadline can be collected without waiting for a player
// request. The engine treats the unknown player as an observer; only
// the force-fold path can change anything.
func (s *GameService) Poke(ctx context.Context, tableID string) error {
	err := s.Act(ctx, tableID, "", engine.Fold.String(), 0)
	if errors.Is(err, engine.ErrNotYourTurn) || errors.Is(err, engine.ErrSeatNotFound) ||
		errors.Is(err, engine.ErrHandComplete) {
		return nil
	}
	return err
}

// State returns the live hand's public projection.
func (s *GameService) State(ctx context.Context, tableID string) (*engine.PublicState, error) {
	s.mu.Lock()
	table, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("table not found: %s", tableID)
	}
	handID := table.handID
	s.mu.Unlock()

	if handID == "" {
		return nil, engine.ErrHandNotFound
	}
	h, err := s.store.Get(ctx, tableID, handID)
	if err != nil {
		return nil, err
	}
	st := h.Public()
	return &st, nil
}

// HoleCards returns a seated player's own cards for the live hand.
func (s *GameService) HoleCards(ctx context.Context, tableID, playerID string) (*HoleCardsData, error) {
	s.mu.Lock()
	table, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("table not found: %s", tableID)
	}
	handID := table.handID
	player := table.playerByID(playerID)
	s.mu.Unlock()

	if handID == "" {
		return nil, engine.ErrHandNotFound
	}
	if player == nil {
		return nil, engine.ErrSeatNotFound
	}
	h, err := s.store.Get(ctx, tableID, handID)
	if err != nil {
		return nil, err
	}
	cards, ok := h.HoleCards(player.Seat)
	if !ok {
		return nil, engine.ErrSeatNotFound
	}
	return &HoleCardsData{
		TableID: tableID,
		HandID:  handID,
		Seat:    player.Seat,
		Cards:   cards.Cards(),
	}, nil
}

// afterCommit publishes the committed state and, when the hand just
// completed, settles stacks and records the audit trail.
func (s *GameService) afterCommit(table *gameTable, h *engine.Hand) {
	s.broadcastState(h)

	ev := h.Result()
	if ev == nil {
		return
	}

	s.settle(table, h)

	if s.trail != nil {
		if err := s.trail.Record(ev, s.clock.Now()); err != nil {
			s.logger.Error("Failed to record hand in audit trail",
				"table", h.TableID, "hand", h.ID, "error", err)
		}
	}

	if s.bc != nil {
		if msg, err := NewMessage(MessageTypeHandResult, ev); err == nil {
			s.bc.BroadcastToTable(h.TableID, msg)
		}
	}

	s.logger.Info("Hand complete", "table", h.TableID, "hand", h.ID,
		"winners", len(ev.Results.Winners), "lastStanding", ev.Results.LastStanding)
}

// settle writes the hand's final stacks back into the roster and clears
// the in-flight marker.
func (s *GameService) settle(table *gameTable, h *engine.Hand) {
	snap := h.Snapshot()
	winnings := map[int]int{}
	for _, w := range h.Results.Winners {
		winnings[w.Seat] += w.Amount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range table.players {
		if ss := snap.BySeat(p.Seat); ss != nil {
			p.Stack = ss.Stack + winnings[p.Seat]
		}
	}
	table.handID = ""
}

func (s *GameService) broadcastState(h *engine.Hand) {
	if s.bc == nil {
		return
	}
	state := h.Public()
	msg, err := NewMessage(MessageTypeHandState, state)
	if err != nil {
		s.logger.Error("Failed to encode hand state", "hand", h.ID, "error", err)
		return
	}
	s.bc.BroadcastToTable(h.TableID, msg)
}

func (s *GameService) sendHoleCards(h *engine.Hand) {
	if s.bc == nil {
		return
	}
	for _, seat := range h.Seats {
		if !seat.Participating {
			continue
		}
		cards, ok := h.HoleCards(seat.Number)
		if !ok {
			continue
		}
		msg, err := NewMessage(MessageTypeHoleCards, HoleCardsData{
			TableID: h.TableID,
			HandID:  h.ID,
			Seat:    seat.Number,
			Cards:   cards.Cards(),
		})
		if err != nil {
			continue
		}
		if err := s.bc.SendToPlayer(seat.PlayerID, msg); err != nil {
			s.logger.Debug("Could not deliver hole cards", "player", seat.PlayerID, "error", err)
		}
	}
}

func sortPlayers(players []*tablePlayer) {
	for i := 1; i < len(players); i++ {
		for j := i; j > 0 && players[j].Seat < players[j-1].Seat; j-- {
			players[j], players[j-1] = players[j-1], players[j]
		}
	}
}

// nextDealer rotates the button to the next eligible seat left of the
// previous dealer.
func nextDealer(seats []engine.Seat, prev int) int {
	if len(seats) == 0 {
		return prev
	}
	for _, s := range seats {
		if s.Number > prev {
			return s.Number
		}
	}
	return seats[0].Number
}
