package openid4vp

import (
	"sync"
	"time"
)

// Store is the concurrent Presentation Store (spec component 4.1). It owns
// three mappings: TransactionId -> Presentation (primary), RequestId ->
// TransactionId (secondary, maintained atomically with the primary record),
// and ResponseCode -> TransactionId (for single-use Redirect retrieval).
//
// A single mutex guards all three maps. This serializes transitions per
// Presentation (satisfying the spec's per-record CAS requirement) at the cost
// of serializing unrelated Presentations too; given handlers are short and
// in-memory, that tradeoff favors correctness over the finer-grained
// per-record locking the spec allows as an alternative.
type Store struct {
	mu             sync.RWMutex
	byTransaction  map[TransactionId]Presentation
	byRequestID    map[RequestId]TransactionId
	byResponseCode map[ResponseCode]TransactionId
}

// NewStore returns an empty, ready-to-use Store.
func NewStore() *Store {
	return &Store{
		byTransaction:  make(map[TransactionId]Presentation),
		byRequestID:    make(map[RequestId]TransactionId),
		byResponseCode: make(map[ResponseCode]TransactionId),
	}
}

// Put upserts p by its TransactionId, maintaining the RequestId and ResponseCode
// secondary indices atomically with the primary record.
func (s *Store) Put(p Presentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(p)
}

func (s *Store) putLocked(p Presentation) {
	s.byTransaction[p.ID] = p
	s.byRequestID[p.RequestID] = p.ID
	if p.ResponseCode != nil {
		s.byResponseCode[*p.ResponseCode] = p.ID
	}
}

// LoadByTransactionID returns the Presentation stored under id, if any.
func (s *Store) LoadByTransactionID(id TransactionId) (Presentation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byTransaction[id]
	return p, ok
}

// LoadByRequestID resolves id via the secondary index and returns the
// Presentation, if any.
func (s *Store) LoadByRequestID(id RequestId) (Presentation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txID, ok := s.byRequestID[id]
	if !ok {
		return Presentation{}, false
	}
	p, ok := s.byTransaction[txID]
	return p, ok
}

// RetrieveRequestObject loads the Presentation for requestID and applies the
// Requested -> RequestObjectRetrieved transition under lock, so that concurrent
// fetches for the same RequestId observe an at-most-once transition.
func (s *Store) RetrieveRequestObject(requestID RequestId, now time.Time) (Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txID, ok := s.byRequestID[requestID]
	if !ok {
		return Presentation{}, ErrNotFound
	}
	p := s.byTransaction[txID]

	next, err := p.RetrieveRequestObject(now)
	if err != nil {
		return p, err
	}
	s.putLocked(next)
	return next, nil
}

// Submit loads the Presentation for requestID and applies the
// RequestObjectRetrieved -> Submitted transition under lock. Of concurrent
// callers racing on the same RequestId, exactly one observes
// RequestObjectRetrieved and succeeds; the rest fail with
// ErrPresentationNotInExpectedState.
func (s *Store) Submit(requestID RequestId, now time.Time, wr WalletResponse, code *ResponseCode) (Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txID, ok := s.byRequestID[requestID]
	if !ok {
		return Presentation{}, ErrPresentationDefinitionNotFound
	}
	p := s.byTransaction[txID]

	next, err := p.Submit(now, wr, code)
	if err != nil {
		return p, err
	}
	s.putLocked(next)
	return next, nil
}

// ConsumeResponseCode resolves code to a Presentation, verifies it matches
// txID, and atomically transitions it to the internal consumed state so a
// second retrieval with the same code fails. A code/id mismatch is reported
// identically to absence, so the caller cannot use it as an existence oracle.
func (s *Store) ConsumeResponseCode(txID TransactionId, code ResponseCode) (Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.byResponseCode[code]
	if !ok || owner != txID {
		return Presentation{}, ErrNotFound
	}

	p, ok := s.byTransaction[txID]
	if !ok {
		return Presentation{}, ErrNotFound
	}

	next, err := p.ConsumeResponseCode()
	if err != nil {
		return p, err
	}
	delete(s.byResponseCode, code)
	s.putLocked(next)
	return next, nil
}

// Sweep transitions every non-terminal Presentation with
// now - InitiatedAt >= maxAge to TimedOut. It is idempotent and
// ordering-insensitive across Presentations.
func (s *Store) Sweep(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, p := range s.byTransaction {
		if !p.IsExpired(now, maxAge) {
			continue
		}
		s.byTransaction[id] = p.TimeOut(now, "Expired")
		swept++
	}
	return swept
}

// Len returns the number of Presentations currently tracked, including terminal ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byTransaction)
}
