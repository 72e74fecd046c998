// Package notice implements the staff notice board shared by all units.
package notice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("invalid notice")
	ErrNotFound   = errors.New("notice not found")
)

type Notice struct {
	ID          string
	Title       string
	Content     string
	AuthorName  string
	IsImportant bool
	CreatedAt   time.Time
}

// Store persists notices.
type Store interface {
	ListNotices(ctx context.Context) ([]Notice, error)
	GetNotice(ctx context.Context, id string) (Notice, error)
	SaveNotice(ctx context.Context, n Notice) error
	DeleteNotice(ctx context.Context, id string) error
}

// Sort orders notices important first, then newest first.
func Sort(ns []Notice) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].IsImportant != ns[j].IsImportant {
			return ns[i].IsImportant
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// Draft is the editable part of a notice.
type Draft struct {
	Title       string
	Content     string
	AuthorName  string
	IsImportant bool
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	return nil
}

// List returns the board in display order.
func (s *Service) List(ctx context.Context) ([]Notice, error) {
	ns, err := s.Store.ListNotices(ctx)
	if err != nil {
		return nil, err
	}
	Sort(ns)
	return ns, nil
}

func (s *Service) Create(ctx context.Context, d Draft) (Notice, error) {
	if err := d.validate(); err != nil {
		return Notice{}, err
	}
	n := Notice{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(d.Title),
		Content:     d.Content,
		AuthorName:  d.AuthorName,
		IsImportant: d.IsImportant,
		CreatedAt:   s.Now(),
	}
	if err := s.Store.SaveNotice(ctx, n); err != nil {
		return Notice{}, err
	}
	return n, nil
}

// Update rewrites title, content and importance. Author and creation time stay.
func (s *Service) Update(ctx context.Context, id string, d Draft) (Notice, error) {
	if err := d.validate(); err != nil {
		return Notice{}, err
	}
	n, err := s.Store.GetNotice(ctx, id)
	if err != nil {
		return Notice{}, err
	}
	n.Title = strings.TrimSpace(d.Title)
	n.Content = d.Content
	n.IsImportant = d.IsImportant
	if err := s.Store.SaveNotice(ctx, n); err != nil {
		return Notice{}, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.DeleteNotice(ctx, id)
}
