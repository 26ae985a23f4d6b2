package core

import (
	"context"

	"hsecore/pkg/domain"
)

// VisibleTabs returns the tabs a user may open in display order. Admins see every tab.
func VisibleTabs(u User) []Tab {
	var out []Tab
	for _, tab := range domain.AllTabs() {
		if u.CanView(tab) {
			out = append(out, tab)
		}
	}
	return out
}

// InitialTab returns the first visible tab, or ErrAccessDenied when there is none.
func InitialTab(u User) (Tab, error) {
	tabs := VisibleTabs(u)
	if len(tabs) == 0 {
		return "", ErrAccessDenied
	}
	return tabs[0], nil
}

// RequireTab returns ErrAccessDenied unless u may open tab.
func RequireTab(u User, tab Tab) error {
	if !u.CanView(tab) {
		return ErrAccessDenied
	}
	return nil
}

// RequireAdmin returns ErrAccessDenied unless u holds the admin role.
func RequireAdmin(u User) error {
	if !u.IsAdmin() {
		return ErrAccessDenied
	}
	return nil
}

// Authenticate looks up username and compares password verbatim. The
// returned user has its password cleared.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	var found User
	var ok bool
	if err := s.view(ctx, func(v TransactionView) error {
		found, ok = v.FindUserByUsername(username)
		return nil
	}); err != nil {
		return User{}, err
	}
	if !ok || found.Password != password {
		s.logger.Info("login rejected", "username", username)
		return User{}, ErrInvalidCredentials
	}
	found.Password = ""
	return found, nil
}
