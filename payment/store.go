package payment

import (
	"sync"

	"github.com/vendorpay/vendorpay/provider"
)

// Store is the shared record state: payment intents and checkout sessions by
// processor identifier. Lookups take a read lock; mutations of a single
// record run under that record's own mutex so two writers racing on the same
// identifier serialize their read-modify-write.
type Store struct {
	mu       sync.RWMutex
	payments map[string]*provider.PaymentIntentRecord
	sessions map[string]*provider.CheckoutSessionRecord
	locks    map[string]*sync.Mutex
}

// NewStore creates an empty record store.
func NewStore() *Store {
	return &Store{
		payments: make(map[string]*provider.PaymentIntentRecord),
		sessions: make(map[string]*provider.CheckoutSessionRecord),
		locks:    make(map[string]*sync.Mutex),
	}
}

// keyLock returns the mutex guarding a record identifier, creating it on
// first use. Locks are never removed: records are never deleted either.
func (s *Store) keyLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// GetPayment returns a copy of the payment record, so readers never observe
// a half-applied mutation.
func (s *Store) GetPayment(id string) (provider.PaymentIntentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.payments[id]
	if !ok {
		return provider.PaymentIntentRecord{}, false
	}
	return *record, true
}

// PutPayment inserts or replaces a payment record under its key lock.
func (s *Store) PutPayment(record provider.PaymentIntentRecord) {
	lock := s.keyLock(record.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.payments[record.ID] = &record
	s.mu.Unlock()
}

// UpdatePayment runs fn on the payment record under its key lock. fn mutates
// a private copy; the copy replaces the stored record only after fn returns,
// so concurrent lookups observe either the old record or the new one, never
// an intermediate state. The update is discarded only if the record does not
// exist.
func (s *Store) UpdatePayment(id string, fn func(*provider.PaymentIntentRecord)) (provider.PaymentIntentRecord, bool) {
	lock := s.keyLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.payments[id]
	s.mu.RUnlock()
	if !ok {
		return provider.PaymentIntentRecord{}, false
	}

	record := *current
	fn(&record)

	s.mu.Lock()
	s.payments[id] = &record
	s.mu.Unlock()
	return record, true
}

// GetSession returns a copy of the checkout session record.
func (s *Store) GetSession(id string) (provider.CheckoutSessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sessions[id]
	if !ok {
		return provider.CheckoutSessionRecord{}, false
	}
	return *record, true
}

// PutSession inserts or replaces a checkout session record under its key
// lock.
func (s *Store) PutSession(record provider.CheckoutSessionRecord) {
	lock := s.keyLock(record.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.sessions[record.ID] = &record
	s.mu.Unlock()
}

// UpdateSession runs fn on a private copy of the session record under its
// key lock and swaps it in afterwards, same contract as UpdatePayment.
func (s *Store) UpdateSession(id string, fn func(*provider.CheckoutSessionRecord)) (provider.CheckoutSessionRecord, bool) {
	lock := s.keyLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return provider.CheckoutSessionRecord{}, false
	}

	record := *current
	fn(&record)

	s.mu.Lock()
	s.sessions[id] = &record
	s.mu.Unlock()
	return record, true
}
