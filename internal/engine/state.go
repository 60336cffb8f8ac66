package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/palacegame/palace/internal/models"
)

// GamePhase is the coarse lifecycle stage of a game.
type GamePhase string

const (
	PhaseSetup    GamePhase = "SETUP"
	PhaseSwap     GamePhase = "SWAP"
	PhasePlay     GamePhase = "PLAY"
	PhaseRoundEnd GamePhase = "ROUND_END"
	PhaseGameEnd  GamePhase = "GAME_END"
)

// Seat names one participant at game creation.
type Seat struct {
	ID  uuid.UUID
	Bot bool
}

// GameState is the complete state of one game. Players are kept in turn
// order; at any reachable state the deck, pile, burned cards and every
// player's three layers partition the full 52-card set.
//
// ProcessAction never mutates its input: each action yields a fresh
// deep-copied state, so retained snapshots stay valid for history and
// rollback.
type GameState struct {
	ID             uuid.UUID              `json:"id"`
	Phase          GamePhase              `json:"phase"`
	Players        []models.PlayerState   `json:"players"`
	CurrentPlayer  uuid.UUID              `json:"currentPlayer"`
	NextPlayer     uuid.UUID              `json:"nextPlayer"`
	Deck           []models.Card          `json:"deck"`
	Pile           []models.Card          `json:"pile"`
	Burned         []models.Card          `json:"burned"`
	LastAction     *models.GameAction     `json:"lastAction,omitempty"`
	SpecialEffects []models.SpecialEffect `json:"specialEffects"`
	Winner         uuid.UUID              `json:"winner,omitempty"`
	Config         GameConfig             `json:"config"`
	Timestamp      int64                  `json:"timestamp"`
	MoveHistory    []MoveHistoryEntry     `json:"moveHistory,omitempty"`
}

const (
	minPlayers = 2
	maxPlayers = 4
)

// NewGameState shuffles, deals and returns a game ready for the SWAP
// phase. Seats fix the turn order. Pass a seeded *rand.Rand for
// deterministic deals in tests; nil uses a time-seeded source.
func NewGameState(seats []Seat, cfg GameConfig, rng *rand.Rand) (*GameState, error) {
	if len(seats) < minPlayers || len(seats) > maxPlayers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, len(seats))
	}

	deck := NewDeck()
	Shuffle(deck, rng)

	playerIDs := make([]uuid.UUID, len(seats))
	for i, s := range seats {
		playerIDs[i] = s.ID
	}
	dealt, remaining, err := Deal(deck, playerIDs, cfg.StartingCards)
	if err != nil {
		return nil, err
	}

	state := &GameState{
		ID:             uuid.New(),
		Phase:          PhaseSetup,
		Players:        make([]models.PlayerState, 0, len(seats)),
		CurrentPlayer:  seats[0].ID,
		NextPlayer:     seats[1].ID,
		Deck:           remaining,
		Pile:           []models.Card{},
		Burned:         []models.Card{},
		SpecialEffects: []models.SpecialEffect{},
		Config:         cfg,
		Timestamp:      time.Now().UnixMilli(),
	}
	for _, s := range seats {
		p := dealt[s.ID]
		p.IsBot = s.Bot
		p.Ready = s.Bot // bots never confirm a swap
		state.Players = append(state.Players, p)
	}

	// Dealing is synchronous, so SETUP -> SWAP fires immediately.
	state.Phase = PhaseSwap
	return state, nil
}

// Player returns a pointer into the state's player slice, or nil if the
// ID is unknown. Mutations through it only ever touch fresh clones.
func (s *GameState) Player(id uuid.UUID) *models.PlayerState {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// playerIndex returns the turn-order index of a player, or -1.
func (s *GameState) playerIndex(id uuid.UUID) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy sharing no mutable memory with the
// original. Move history entries are themselves immutable snapshots, so
// the entry slice is copied shallowly.
func (s *GameState) Clone() *GameState {
	cp := *s
	cp.Players = make([]models.PlayerState, len(s.Players))
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	cp.Deck = append([]models.Card(nil), s.Deck...)
	cp.Pile = append([]models.Card(nil), s.Pile...)
	cp.Burned = append([]models.Card(nil), s.Burned...)
	cp.SpecialEffects = append([]models.SpecialEffect(nil), s.SpecialEffects...)
	cp.MoveHistory = append([]MoveHistoryEntry(nil), s.MoveHistory...)
	if s.LastAction != nil {
		action := *s.LastAction
		cp.LastAction = &action
	}
	return &cp
}

// ProcessAction is the sole state-mutating entry point. On success it
// returns a new state; on rejection it returns the prior state
// unchanged together with the error.
func ProcessAction(state *GameState, action models.GameAction) (*GameState, error) {
	actor := state.Player(action.PlayerID)
	if actor == nil {
		return state, fmt.Errorf("%w: %s", ErrInvalidPlayer, action.PlayerID)
	}
	if !actor.Connected && !action.Forced {
		// Forced actions come from the timeout scheduler, which may act
		// on behalf of an absent player.
		return state, fmt.Errorf("%w: %s", ErrPlayerDisconnected, action.PlayerID)
	}
	if err := checkPhase(state, action); err != nil {
		return state, err
	}

	if action.Timestamp == 0 {
		action.Timestamp = time.Now().UnixMilli()
	}

	next := state.Clone()
	next.MoveHistory = Record(next.MoveHistory, state, action)

	var err error
	switch action.Type {
	case models.ActionPlayCards:
		err = next.playCards(action)
	case models.ActionPickupPile:
		err = next.pickupPile(action)
	case models.ActionSwapCards:
		err = next.swapCards(action)
	case models.ActionConfirmReady:
		err = next.confirmReady(action)
	default:
		err = fmt.Errorf("%w: unknown action type %q", ErrPhaseViolation, action.Type)
	}
	if err != nil {
		return state, err
	}

	next.LastAction = &action
	next.Timestamp = action.Timestamp
	return next, nil
}

// checkPhase rejects actions that are illegal for the current phase or
// turn holder before any state is copied.
func checkPhase(state *GameState, action models.GameAction) error {
	switch state.Phase {
	case PhaseSwap:
		if action.Type != models.ActionSwapCards && action.Type != models.ActionConfirmReady {
			return fmt.Errorf("%w: %s during %s", ErrPhaseViolation, action.Type, state.Phase)
		}
	case PhasePlay:
		if action.Type != models.ActionPlayCards && action.Type != models.ActionPickupPile {
			return fmt.Errorf("%w: %s during %s", ErrPhaseViolation, action.Type, state.Phase)
		}
		if action.PlayerID != state.CurrentPlayer {
			return fmt.Errorf("%w: current player is %s", ErrTurnViolation, state.CurrentPlayer)
		}
	default:
		return fmt.Errorf("%w: %s during %s", ErrPhaseViolation, action.Type, state.Phase)
	}
	return nil
}

// playCards applies a PLAY_CARDS action: source check, validation (or
// the blind-pickup punishment), effect resolution, hand replenishment,
// turn advance and win detection.
func (s *GameState) playCards(action models.GameAction) error {
	actor := s.Player(action.PlayerID)
	if len(action.Cards) == 0 {
		return fmt.Errorf("%w: no cards named", ErrInvalidPlay)
	}

	source := actor.PlayableLocation()
	sourceCards, err := s.cardsFromSource(actor, source, action.Cards)
	if err != nil {
		return err
	}
	if source == models.LocationFaceDown && len(sourceCards) != 1 {
		return fmt.Errorf("%w: face-down cards are played one at a time", ErrInvalidCardSource)
	}

	if !IsValidPlay(sourceCards, s.Pile, s.Config.Rules) {
		if source == models.LocationFaceDown {
			// A blind face-down misplay is a game mechanic, not an
			// error: the player eats the pile plus the revealed card
			// and the turn moves on.
			s.punishBlindMisplay(actor, sourceCards[0], action)
			return nil
		}
		return fmt.Errorf("%w: threshold is %d", ErrInvalidPlay, EffectiveThreshold(s.Pile, s.Config.Rules))
	}

	result := ResolveEffects(sourceCards, s.Pile, s.Config.Rules)

	// Move the cards to the pile.
	s.removeFromSource(actor, source, sourceCards)
	for i := range sourceCards {
		sourceCards[i].Location = models.LocationPile
		sourceCards[i].FaceUp = true
	}
	s.Pile = append(s.Pile, sourceCards...)
	s.SpecialEffects = result.Effects

	if result.Burn {
		s.burnPile()
	}

	s.replenishHand(actor)

	if result.Burn {
		// The burning player replays; only recompute who follows them.
		s.NextPlayer = s.Players[s.playerAfter(s.playerIndex(actor.ID), 0)].ID
	} else {
		s.advanceTurn(result.SkipCount)
	}

	s.checkWin(actor)
	return nil
}

// pickupPile moves the whole pile into the actor's hand. If that yields
// an exact in-hand four-of-a-kind, the group auto-burns and the actor
// keeps the turn, mirroring the burn rule.
func (s *GameState) pickupPile(action models.GameAction) error {
	actor := s.Player(action.PlayerID)
	if action.Forced {
		actor.TimeoutWarnings++
	}

	for i := range s.Pile {
		s.Pile[i].Location = models.LocationHand
		s.Pile[i].FaceUp = true
		s.Pile[i].OwnerID = actor.ID
	}
	actor.Hand = append(actor.Hand, s.Pile...)
	s.Pile = []models.Card{}

	if s.Config.Rules.BurnOnFour {
		if group := FourOfAKind(actor.Hand); group != nil {
			actor.Hand = removeCards(actor.Hand, group)
			s.moveToBurned(group)
			s.SpecialEffects = []models.SpecialEffect{{Type: models.EffectBurn, Timestamp: action.Timestamp}}
			s.NextPlayer = s.Players[s.playerAfter(s.playerIndex(actor.ID), 0)].ID
			s.checkWin(actor)
			return nil
		}
	}

	s.SpecialEffects = nil
	s.advanceTurn(0)
	return nil
}

// swapCards exchanges one hand card for one face-up card during SWAP.
func (s *GameState) swapCards(action models.GameAction) error {
	actor := s.Player(action.PlayerID)
	if actor.Ready {
		return fmt.Errorf("%w: player already confirmed ready", ErrInvalidSwap)
	}
	if len(action.Cards) != 2 {
		return fmt.Errorf("%w: got %d cards", ErrInvalidSwap, len(action.Cards))
	}

	var handCard, faceUpCard *models.Card
	for i := range action.Cards {
		c := &action.Cards[i]
		switch {
		case containsCard(actor.Hand, *c):
			handCard = c
		case containsCard(actor.FaceUpCards, *c):
			faceUpCard = c
		}
	}
	if handCard == nil || faceUpCard == nil {
		return ErrInvalidSwap
	}

	actor.Hand = removeCards(actor.Hand, []models.Card{*handCard})
	actor.FaceUpCards = removeCards(actor.FaceUpCards, []models.Card{*faceUpCard})

	h := *handCard
	h.Location = models.LocationFaceUp
	f := *faceUpCard
	f.Location = models.LocationHand
	actor.FaceUpCards = append(actor.FaceUpCards, h)
	actor.Hand = append(actor.Hand, f)
	return nil
}

// confirmReady marks the actor ready and fires SWAP -> PLAY once every
// connected player has confirmed.
func (s *GameState) confirmReady(action models.GameAction) error {
	actor := s.Player(action.PlayerID)
	actor.Ready = true

	for _, p := range s.Players {
		if p.Connected && !p.Ready {
			return nil
		}
	}
	s.Phase = PhasePlay
	return nil
}

// cardsFromSource resolves the action's cards against the player's
// mandatory source layer, rejecting any card that is not there.
func (s *GameState) cardsFromSource(actor *models.PlayerState, source models.CardLocation, named []models.Card) ([]models.Card, error) {
	var pool []models.Card
	switch source {
	case models.LocationHand:
		pool = actor.Hand
	case models.LocationFaceUp:
		pool = actor.FaceUpCards
	case models.LocationFaceDown:
		pool = actor.FaceDownCards
	default:
		return nil, fmt.Errorf("%w: player has no cards", ErrInvalidCardSource)
	}

	resolved := make([]models.Card, 0, len(named))
	for _, want := range named {
		found := false
		for _, c := range pool {
			if c.ID == want.ID {
				resolved = append(resolved, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: card %s is not in the player's %s cards",
				ErrInvalidCardSource, want.ID, source)
		}
	}
	return resolved, nil
}

func (s *GameState) removeFromSource(actor *models.PlayerState, source models.CardLocation, cards []models.Card) {
	switch source {
	case models.LocationHand:
		actor.Hand = removeCards(actor.Hand, cards)
	case models.LocationFaceUp:
		actor.FaceUpCards = removeCards(actor.FaceUpCards, cards)
	case models.LocationFaceDown:
		actor.FaceDownCards = removeCards(actor.FaceDownCards, cards)
	}
}

// punishBlindMisplay gives the failed face-down card plus the whole
// pile to the actor's hand and passes the turn.
func (s *GameState) punishBlindMisplay(actor *models.PlayerState, card models.Card, action models.GameAction) {
	actor.FaceDownCards = removeCards(actor.FaceDownCards, []models.Card{card})

	pickup := append(append([]models.Card(nil), s.Pile...), card)
	for i := range pickup {
		pickup[i].Location = models.LocationHand
		pickup[i].FaceUp = true
		pickup[i].OwnerID = actor.ID
	}
	actor.Hand = append(actor.Hand, pickup...)
	s.Pile = []models.Card{}
	s.SpecialEffects = nil
	s.advanceTurn(0)
}

// burnPile discards the entire pile out of play.
func (s *GameState) burnPile() {
	s.moveToBurned(s.Pile)
	s.Pile = []models.Card{}
}

func (s *GameState) moveToBurned(cards []models.Card) {
	for _, c := range cards {
		c.Location = models.LocationBurned
		c.FaceUp = false
		c.OwnerID = uuid.Nil
		s.Burned = append(s.Burned, c)
	}
}

// replenishHand draws from the deck until the hand is back to the
// configured size or the deck runs dry.
func (s *GameState) replenishHand(actor *models.PlayerState) {
	target := s.Config.StartingCards.Hand
	for len(actor.Hand) < target && len(s.Deck) > 0 {
		c := s.Deck[0]
		s.Deck = s.Deck[1:]
		c.Location = models.LocationHand
		c.FaceUp = true
		c.OwnerID = actor.ID
		actor.Hand = append(actor.Hand, c)
	}
}

// advanceTurn moves CurrentPlayer past skipCount extra players and
// recomputes NextPlayer.
func (s *GameState) advanceTurn(skipCount int) {
	cur := s.playerIndex(s.CurrentPlayer)
	nextIdx := s.playerAfter(cur, skipCount)
	s.CurrentPlayer = s.Players[nextIdx].ID
	s.NextPlayer = s.Players[s.playerAfter(nextIdx, 0)].ID
}

// playerAfter returns the index of the player who acts after the player
// at fromIdx, bypassing skipCount additional players and anyone
// disconnected.
//
// Two players need their own arithmetic: a single jack must hand the
// turn straight back to the player who played it, which the general
// rotation below would only do by coincidence of modulus. Keeping the
// branch explicit also keeps the even/odd rule readable.
func (s *GameState) playerAfter(fromIdx, skipCount int) int {
	n := len(s.Players)
	if n == 2 && skipCount > 0 {
		otherIdx := (fromIdx + 1) % 2
		if skipCount%2 == 1 {
			// Odd number of jacks: the opponent is skipped, the
			// player goes again.
			if s.Players[fromIdx].Connected {
				return fromIdx
			}
			return otherIdx
		}
		if s.Players[otherIdx].Connected {
			return otherIdx
		}
		return fromIdx
	}

	idx := (fromIdx + 1 + skipCount) % n
	for hops := 0; hops < n; hops++ {
		if s.Players[idx].Connected {
			return idx
		}
		idx = (idx + 1) % n
	}
	return fromIdx
}

// checkWin fires PLAY -> ROUND_END the instant the actor has shed all
// three layers.
func (s *GameState) checkWin(actor *models.PlayerState) {
	if s.Phase == PhasePlay && actor.HasFinished() {
		s.Phase = PhaseRoundEnd
		s.Winner = actor.ID
	}
}

// SetConnected flips a player's connected flag from a collaborator
// signal. The engine does not detect network state itself.
func SetConnected(state *GameState, playerID uuid.UUID, connected bool) (*GameState, error) {
	if state.Player(playerID) == nil {
		return state, fmt.Errorf("%w: %s", ErrInvalidPlayer, playerID)
	}
	next := state.Clone()
	next.Player(playerID).Connected = connected
	next.Timestamp = time.Now().UnixMilli()
	return next, nil
}

// CompleteGame marks a ROUND_END game terminal. Multi-round tournament
// logic lives outside the engine; a single round ends the game.
func CompleteGame(state *GameState) (*GameState, error) {
	if state.Phase != PhaseRoundEnd {
		return state, fmt.Errorf("%w: CompleteGame during %s", ErrPhaseViolation, state.Phase)
	}
	next := state.Clone()
	next.Phase = PhaseGameEnd
	next.Timestamp = time.Now().UnixMilli()
	return next, nil
}

// VerifyCardConservation checks that the deck, pile, burned cards and
// every player's layers hold each of the 52 card IDs exactly once. A
// failure is fatal: the instance must be rebuilt from the last valid
// snapshot.
func VerifyCardConservation(state *GameState) error {
	seen := make(map[uuid.UUID]int, DeckSize)
	count := func(cards []models.Card) {
		for _, c := range cards {
			seen[c.ID]++
		}
	}
	count(state.Deck)
	count(state.Pile)
	count(state.Burned)
	for _, p := range state.Players {
		count(p.Hand)
		count(p.FaceUpCards)
		count(p.FaceDownCards)
	}

	if len(seen) != DeckSize {
		return fmt.Errorf("%w: %d distinct cards, want %d", ErrCardConservation, len(seen), DeckSize)
	}
	for id, n := range seen {
		if n != 1 {
			return fmt.Errorf("%w: card %s appears %d times", ErrCardConservation, id, n)
		}
	}
	return nil
}
