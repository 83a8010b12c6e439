package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/food-storefront/internal/realtime"
	"github.com/dmehra2102/food-storefront/internal/user/domain"
)

const UsersPath = "users"

var ErrMissingUID = errors.New("uid is required")

// Service manages user profiles and the admin flag.
type Service struct {
	log    *slog.Logger
	store  DataStore
	tracer trace.Tracer
}

func NewService(log *slog.Logger, store DataStore) *Service {
	return &Service{log: log, store: store, tracer: otel.Tracer("user-admin")}
}

// GetAllUsers lists every profile sorted by email, or uid when email is blank.
func (s *Service) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "GetAllUsers")
	defer span.End()

	snap, err := s.store.Get(ctx, UsersPath)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	children := snap.Children()
	users := make([]domain.User, 0, len(children))
	for uid, raw := range children {
		var p domain.Profile
		if err := (realtime.Snapshot{Value: raw}).Decode(&p); err != nil {
			s.log.Warn("skipping malformed user profile", "uid", uid, "err", err)
			continue
		}
		users = append(users, domain.User{UID: uid, Email: p.Email, Roles: p.Roles})
	}
	sort.Slice(users, func(i, j int) bool {
		if ki, kj := users[i].SortKey(), users[j].SortKey(); ki != kj {
			return ki < kj
		}
		return users[i].UID < users[j].UID
	})
	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, uid string) (domain.User, bool, error) {
	if uid == "" {
		return domain.User{}, false, ErrMissingUID
	}
	snap, err := s.store.Get(ctx, realtime.Join(UsersPath, uid))
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user %s: %w", uid, err)
	}
	if !snap.Exists() {
		return domain.User{}, false, nil
	}
	var p domain.Profile
	if err := snap.Decode(&p); err != nil {
		return domain.User{}, false, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return domain.User{UID: uid, Email: p.Email, Roles: p.Roles}, true, nil
}

// SetUserRoles overwrites the whole profile of uid.
func (s *Service) SetUserRoles(ctx context.Context, uid string, profile domain.Profile) error {
	ctx, span := s.tracer.Start(ctx, "SetUserRoles", trace.WithAttributes(attribute.String("user.uid", uid)))
	defer span.End()

	if uid == "" {
		return ErrMissingUID
	}
	if err := s.store.Set(ctx, realtime.Join(UsersPath, uid), profile); err != nil {
		span.RecordError(err)
		return fmt.Errorf("set user %s: %w", uid, err)
	}
	s.log.Info("user profile written", "uid", uid, "admin", profile.Roles.Admin)
	return nil
}

func (s *Service) UpdateUserAdminRole(ctx context.Context, uid string, isAdmin bool) error {
	ctx, span := s.tracer.Start(ctx, "UpdateUserAdminRole", trace.WithAttributes(attribute.String("user.uid", uid)))
	defer span.End()

	if uid == "" {
		return ErrMissingUID
	}
	if err := s.store.Update(ctx, realtime.Join(UsersPath, uid, "roles"), map[string]any{"admin": isAdmin}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update admin role %s: %w", uid, err)
	}
	s.log.Info("admin role updated", "uid", uid, "admin", isAdmin)
	return nil
}

// Roles reads the roles recorded in the profile of uid.
func (s *Service) Roles(ctx context.Context, uid string) ([]domain.Role, error) {
	u, ok, err := s.GetUser(ctx, uid)
	if err != nil || !ok {
		return nil, err
	}
	if u.IsAdmin() {
		return []domain.Role{domain.RoleAdmin}, nil
	}
	return nil, nil
}
