package syncer

import (
	"fmt"

	"github.com/avelar/hometask/internal/store"
)

// Mapper translates between local integer ids and remote push keys.
// It only reads the mapping columns the sync paths maintain; it never
// creates placeholder rows for unknown keys.
type Mapper struct {
	households *store.HouseholdStore
	people     *store.PersonStore
}

func NewMapper(households *store.HouseholdStore, people *store.PersonStore) *Mapper {
	return &Mapper{households: households, people: people}
}

// RemoteAssigneeID returns the push key for a local person, or "" when
// the person is nil, unknown, or not yet mirrored. Pushes proceed with
// the reference absent rather than failing.
func (m *Mapper) RemoteAssigneeID(personID *int64) (string, error) {
	if personID == nil {
		return "", nil
	}
	p, err := m.people.GetByID(*personID)
	if err != nil {
		return "", fmt.Errorf("map assignee: %w", err)
	}
	if p == nil {
		return "", nil
	}
	return p.RemoteID, nil
}

// LocalHouseholdID resolves a remote household key to a local id. An
// unmatched key falls back to the household driving the sync, on the
// grounds that the caller only pulls records it filtered by that
// household's key.
func (m *Mapper) LocalHouseholdID(remoteKey string, fallback int64) (int64, error) {
	if remoteKey == "" {
		return fallback, nil
	}
	h, err := m.households.GetByRemoteID(remoteKey)
	if err != nil {
		return 0, fmt.Errorf("map household: %w", err)
	}
	if h == nil {
		return fallback, nil
	}
	return h.ID, nil
}

// LocalAssigneeID resolves a remote person key to a local id. An
// unmatched key yields nil: the task arrives unassigned and a later
// pull re-links it once the person exists locally.
func (m *Mapper) LocalAssigneeID(remoteKey string) (*int64, error) {
	if remoteKey == "" {
		return nil, nil
	}
	p, err := m.people.GetByRemoteID(remoteKey)
	if err != nil {
		return nil, fmt.Errorf("map assignee key: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	id := p.ID
	return &id, nil
}
