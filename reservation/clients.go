package reservation

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// CLIENTS
// =============================================================================

// CreateClient registers a client, or refreshes the one with the same phone.
func (s *Service) CreateClient(ctx context.Context, name, phone string, isVip bool) (Client, error) {
	name = strings.TrimSpace(name)
	phone = CleanPhone(phone)
	if name == "" {
		return Client{}, invalid("name", "required")
	}
	if phone == "" {
		return Client{}, invalid("phone", "required")
	}
	return s.Store.UpsertClient(ctx, Client{ID: s.NewID(), Name: name, Phone: phone, IsVip: isVip})
}

func (s *Service) GetClient(ctx context.Context, id string) (Client, error) {
	return s.Store.GetClient(ctx, id)
}

// SearchClients matches an all-digit query against phones and anything else
// against names. An empty query lists everyone.
func (s *Service) SearchClients(ctx context.Context, q string) ([]Client, error) {
	q = strings.TrimSpace(q)
	var f ClientFilter
	switch {
	case q == "":
	case isDigits(q):
		f.PhoneContains = q
	default:
		f.NameContains = q
	}
	return s.Store.ListClients(ctx, f)
}

// ClientUpdate patches a client. Nil pointers are left untouched.
type ClientUpdate struct {
	Name  *string
	Phone *string
	IsVip *bool
	Notes *string
	Tags  []string // nil leaves tags untouched, empty clears them
}

// UpdateClient changes the client record. Reservations keep the name and
// phone they were booked with.
func (s *Service) UpdateClient(ctx context.Context, id string, u ClientUpdate) (Client, error) {
	c, err := s.Store.GetClient(ctx, id)
	if err != nil {
		return Client{}, err
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return Client{}, invalid("name", "must not be blank")
		}
		c.Name = name
	}
	if u.Phone != nil {
		phone := CleanPhone(*u.Phone)
		if phone == "" {
			return Client{}, invalid("phone", "must not be blank")
		}
		c.Phone = phone
	}
	if u.IsVip != nil {
		c.IsVip = *u.IsVip
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
	if u.Tags != nil {
		c.Tags = append([]string{}, u.Tags...)
	}
	if err := s.Store.UpdateClient(ctx, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

// DeleteClient removes a client. It fails with a KindIntegrity StorageError
// while reservations still reference the client.
func (s *Service) DeleteClient(ctx context.Context, id, actor string) error {
	if err := s.Store.DeleteClient(ctx, id); err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{
			"client_id": id,
			"kind":      StorageKindOf(err),
		}).Warn("client delete failed")
		return err
	}
	s.Log.WithFields(logrus.Fields{
		"client_id": id,
		"actor":     NormalizeActor(actor),
	}).Info("client deleted")
	return nil
}

// CountCompletedReservations returns how many of the client's reservations
// are COMPLETED.
func (s *Service) CountCompletedReservations(ctx context.Context, clientID string) (int, error) {
	return s.Store.CountReservations(ctx, ReservationFilter{ClientID: clientID, Status: StatusCompleted})
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
