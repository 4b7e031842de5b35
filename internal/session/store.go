// Package session tracks per-chat conversational state for multi-step
// flows. Each chat owns at most one active session, and handlers for a
// given chat run serialized behind a per-chat lock so concurrent updates
// cannot interleave state transitions.
package session

import "sync"

// Step identifies which input the active flow is waiting for.
type Step string

const (
	StepSelectAsset     Step = "select_asset"
	StepEnterAmount     Step = "enter_amount"
	StepEnterAddress    Step = "enter_address"
	StepSelectSwapFrom  Step = "select_swap_from"
	StepSelectSwapTo    Step = "select_swap_to"
	StepEnterSwapToAddr Step = "enter_swap_to_address"
	StepEnterSwapAmount Step = "enter_swap_amount"
)

// Session carries the accumulated inputs of an in-progress flow. Fields
// are filled incrementally as the user advances through steps; which
// fields are meaningful depends on the current Step.
type Session struct {
	Step Step

	// Send flow.
	AssetID          string
	Symbol           string
	Balance          string
	Amount           string
	RecipientAddress string

	// Swap flow.
	FromSymbol      string
	FromBalance     string
	FromDecimals    int
	FromMint        string
	ToMint          string
	ToSymbol        string
	ToTokenName     string
	ToTokenDecimals int
	AmountBaseUnits string
	ExpectedOutput  string
}

// AssetRef is one entry of a chat's pending selection menu, keyed by the
// callback data of the button that offers it.
type AssetRef struct {
	ID       string
	Symbol   string
	Balance  string
	Decimals int
}

// Store holds sessions and selection menus keyed by chat ID. All methods
// are safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	sessions   map[int64]*Session
	selections map[int64]map[string]AssetRef
	chatLocks  map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions:   make(map[int64]*Session),
		selections: make(map[int64]map[string]AssetRef),
		chatLocks:  make(map[int64]*sync.Mutex),
	}
}

// Lock acquires the per-chat serialization lock and returns its unlock
// function. Updates for distinct chats proceed independently.
func (s *Store) Lock(chatID int64) func() {
	s.mu.Lock()
	l, ok := s.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.chatLocks[chatID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Get returns the chat's active session, or nil when no flow is in
// progress.
func (s *Store) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[chatID]
}

// Put installs sess as the chat's active session, replacing any prior one.
func (s *Store) Put(chatID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = sess
}

// Delete removes the chat's session. Deleting an absent session is a
// no-op.
func (s *Store) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// PutSelections replaces the chat's selection menu wholesale. Keys from
// an older menu never resolve against a newer one.
func (s *Store) PutSelections(chatID int64, refs map[string]AssetRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[chatID] = refs
}

// ResolveSelection looks up a menu key for the chat. The second return
// is false when no menu is stored or the key is unknown.
func (s *Store) ResolveSelection(chatID int64, key string) (AssetRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.selections[chatID][key]
	return ref, ok
}

// ClearSelections drops the chat's selection menu.
func (s *Store) ClearSelections(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, chatID)
}
