// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/walterpribes/jotakareservas1/notice"
	"github.com/walterpribes/jotakareservas1/reservation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	reservations map[string]stored
	clients      map[string]reservation.Client
	phones       map[string]string // phone -> client id
	notices      map[string]notice.Notice
	seq          int
}

type stored struct {
	r   reservation.Reservation
	seq int // insertion order, last tie-break when listing
}

func NewMemory() *Memory {
	return &Memory{
		reservations: make(map[string]stored),
		clients:      make(map[string]reservation.Client),
		phones:       make(map[string]string),
		notices:      make(map[string]notice.Notice),
	}
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (m *Memory) CreateReservation(_ context.Context, r reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createReservationLocked(r)
}

func (m *Memory) createReservationLocked(r reservation.Reservation) error {
	if _, ok := m.reservations[r.ID]; ok {
		return &reservation.StorageError{Op: "create reservation", Kind: reservation.KindIntegrity, Err: fmt.Errorf("duplicate id %s", r.ID)}
	}
	if _, ok := m.clients[r.ClientID]; !ok {
		return &reservation.StorageError{Op: "create reservation", Kind: reservation.KindIntegrity, Err: fmt.Errorf("unknown client %s", r.ClientID)}
	}
	m.seq++
	r = r.Clone()
	r.Version = 1
	m.reservations[r.ID] = stored{r: r, seq: m.seq}
	return nil
}

func (m *Memory) GetReservation(_ context.Context, id string) (reservation.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getReservationLocked(id)
}

func (m *Memory) getReservationLocked(id string) (reservation.Reservation, error) {
	s, ok := m.reservations[id]
	if !ok {
		return reservation.Reservation{}, &reservation.NotFoundError{Kind: "reservation", ID: id}
	}
	return s.r.Clone(), nil
}

// UpdateReservation is a compare-and-swap on Version.
func (m *Memory) UpdateReservation(_ context.Context, r reservation.Reservation, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateReservationLocked(r, expectedVersion)
}

func (m *Memory) updateReservationLocked(r reservation.Reservation, expectedVersion int) error {
	s, ok := m.reservations[r.ID]
	if !ok {
		return &reservation.NotFoundError{Kind: "reservation", ID: r.ID}
	}
	if s.r.Version != expectedVersion {
		return &reservation.ConflictError{ID: r.ID, Expected: expectedVersion, Actual: s.r.Version}
	}
	next := r.Clone()
	// Identity is immutable after creation.
	next.UnitID = s.r.UnitID
	next.ClientID = s.r.ClientID
	next.CreatedAt = s.r.CreatedAt
	next.Version = expectedVersion + 1
	m.reservations[r.ID] = stored{r: next, seq: s.seq}
	return nil
}

func (m *Memory) DeleteReservation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteReservationLocked(id)
}

func (m *Memory) deleteReservationLocked(id string) error {
	if _, ok := m.reservations[id]; !ok {
		return &reservation.NotFoundError{Kind: "reservation", ID: id}
	}
	delete(m.reservations, id)
	return nil
}

func (m *Memory) ListReservations(_ context.Context, f reservation.ReservationFilter) ([]reservation.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listReservationsLocked(f), nil
}

func (m *Memory) listReservationsLocked(f reservation.ReservationFilter) []reservation.Reservation {
	var matches []stored
	for _, s := range m.reservations {
		if f.Match(s.r) {
			matches = append(matches, s)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].r, matches[j].r
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return matches[i].seq < matches[j].seq
	})
	result := make([]reservation.Reservation, len(matches))
	for i, s := range matches {
		result[i] = s.r.Clone()
	}
	return result
}

func (m *Memory) CountReservations(_ context.Context, f reservation.ReservationFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countReservationsLocked(f), nil
}

func (m *Memory) countReservationsLocked(f reservation.ReservationFilter) int {
	n := 0
	for _, s := range m.reservations {
		if f.Match(s.r) {
			n++
		}
	}
	return n
}

// =============================================================================
// CLIENTS
// =============================================================================

func (m *Memory) UpsertClient(_ context.Context, c reservation.Client) (reservation.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertClientLocked(c)
}

func (m *Memory) upsertClientLocked(c reservation.Client) (reservation.Client, error) {
	if id, ok := m.phones[c.Phone]; ok {
		existing := m.clients[id]
		existing.Name = c.Name
		existing.IsVip = existing.IsVip || c.IsVip
		m.clients[id] = existing
		return existing.Clone(), nil
	}
	if _, ok := m.clients[c.ID]; ok {
		return reservation.Client{}, &reservation.StorageError{Op: "upsert client", Kind: reservation.KindIntegrity, Err: fmt.Errorf("duplicate id %s", c.ID)}
	}
	c = c.Clone()
	m.clients[c.ID] = c
	m.phones[c.Phone] = c.ID
	return c.Clone(), nil
}

func (m *Memory) GetClient(_ context.Context, id string) (reservation.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getClientLocked(id)
}

func (m *Memory) getClientLocked(id string) (reservation.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return reservation.Client{}, &reservation.NotFoundError{Kind: "client", ID: id}
	}
	return c.Clone(), nil
}

func (m *Memory) ListClients(_ context.Context, f reservation.ClientFilter) ([]reservation.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listClientsLocked(f), nil
}

func (m *Memory) listClientsLocked(f reservation.ClientFilter) []reservation.Client {
	name := strings.ToLower(f.NameContains)
	var result []reservation.Client
	for _, c := range m.clients {
		if name != "" && !strings.Contains(strings.ToLower(c.Name), name) {
			continue
		}
		if f.PhoneContains != "" && !strings.Contains(c.Phone, f.PhoneContains) {
			continue
		}
		result = append(result, c.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) UpdateClient(_ context.Context, c reservation.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateClientLocked(c)
}

func (m *Memory) updateClientLocked(c reservation.Client) error {
	existing, ok := m.clients[c.ID]
	if !ok {
		return &reservation.NotFoundError{Kind: "client", ID: c.ID}
	}
	if owner, taken := m.phones[c.Phone]; taken && owner != c.ID {
		return &reservation.StorageError{Op: "update client", Kind: reservation.KindIntegrity, Err: fmt.Errorf("phone %s belongs to another client", c.Phone)}
	}
	delete(m.phones, existing.Phone)
	next := c.Clone()
	next.Visits = existing.Visits
	m.clients[c.ID] = next
	m.phones[c.Phone] = c.ID
	return nil
}

func (m *Memory) DeleteClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteClientLocked(id)
}

func (m *Memory) deleteClientLocked(id string) error {
	c, ok := m.clients[id]
	if !ok {
		return &reservation.NotFoundError{Kind: "client", ID: id}
	}
	if n := m.countReservationsLocked(reservation.ReservationFilter{ClientID: id}); n > 0 {
		return &reservation.StorageError{Op: "delete client", Kind: reservation.KindIntegrity, Err: fmt.Errorf("client is referenced by %d reservations", n)}
	}
	delete(m.clients, id)
	delete(m.phones, c.Phone)
	return nil
}

func (m *Memory) AddVisit(_ context.Context, clientID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addVisitLocked(clientID, date)
}

func (m *Memory) addVisitLocked(clientID, date string) (bool, error) {
	c, ok := m.clients[clientID]
	if !ok {
		return false, &reservation.NotFoundError{Kind: "client", ID: clientID}
	}
	c.Visits = append([]string(nil), c.Visits...)
	added := reservation.RecordVisit(&c, date)
	m.clients[clientID] = c
	return added, nil
}

// =============================================================================
// NOTICES
// =============================================================================

func (m *Memory) ListNotices(_ context.Context) ([]notice.Notice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]notice.Notice, 0, len(m.notices))
	for _, n := range m.notices {
		result = append(result, n)
	}
	notice.Sort(result)
	return result, nil
}

func (m *Memory) GetNotice(_ context.Context, id string) (notice.Notice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notices[id]
	if !ok {
		return notice.Notice{}, notice.ErrNotFound
	}
	return n, nil
}

func (m *Memory) SaveNotice(_ context.Context, n notice.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices[n.ID] = n
	return nil
}

func (m *Memory) DeleteNotice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notices[id]; !ok {
		return notice.ErrNotFound
	}
	delete(m.notices, id)
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(reservation.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	reservations map[string]stored
	clients      map[string]reservation.Client
	phones       map[string]string
	seq          int
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		reservations: make(map[string]stored, len(m.reservations)),
		clients:      make(map[string]reservation.Client, len(m.clients)),
		phones:       make(map[string]string, len(m.phones)),
		seq:          m.seq,
	}
	for k, v := range m.reservations {
		s.reservations[k] = v
	}
	for k, v := range m.clients {
		s.clients[k] = v
	}
	for k, v := range m.phones {
		s.phones[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.reservations = s.reservations
	m.clients = s.clients
	m.phones = s.phones
	m.seq = s.seq
}

// txView runs Store calls against the parent while WithTx holds its lock.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateReservation(_ context.Context, r reservation.Reservation) error {
	return tv.parent.createReservationLocked(r)
}

func (tv *txView) GetReservation(_ context.Context, id string) (reservation.Reservation, error) {
	return tv.parent.getReservationLocked(id)
}

func (tv *txView) UpdateReservation(_ context.Context, r reservation.Reservation, expectedVersion int) error {
	return tv.parent.updateReservationLocked(r, expectedVersion)
}

func (tv *txView) DeleteReservation(_ context.Context, id string) error {
	return tv.parent.deleteReservationLocked(id)
}

func (tv *txView) ListReservations(_ context.Context, f reservation.ReservationFilter) ([]reservation.Reservation, error) {
	return tv.parent.listReservationsLocked(f), nil
}

func (tv *txView) CountReservations(_ context.Context, f reservation.ReservationFilter) (int, error) {
	return tv.parent.countReservationsLocked(f), nil
}

func (tv *txView) UpsertClient(_ context.Context, c reservation.Client) (reservation.Client, error) {
	return tv.parent.upsertClientLocked(c)
}

func (tv *txView) GetClient(_ context.Context, id string) (reservation.Client, error) {
	return tv.parent.getClientLocked(id)
}

func (tv *txView) ListClients(_ context.Context, f reservation.ClientFilter) ([]reservation.Client, error) {
	return tv.parent.listClientsLocked(f), nil
}

func (tv *txView) UpdateClient(_ context.Context, c reservation.Client) error {
	return tv.parent.updateClientLocked(c)
}

func (tv *txView) DeleteClient(_ context.Context, id string) error {
	return tv.parent.deleteClientLocked(id)
}

func (tv *txView) AddVisit(_ context.Context, clientID, date string) (bool, error) {
	return tv.parent.addVisitLocked(clientID, date)
}

var (
	_ reservation.TxStore = (*Memory)(nil)
	_ notice.Store        = (*Memory)(nil)
)
