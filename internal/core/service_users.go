package core

import (
	"context"
	"sort"
)

// CreateUser adds a login account. Username and password are required.
func (s *Service) CreateUser(ctx context.Context, user User) (User, Result, error) {
	const op = "create_user"
	if err := validateUser(user, true); err != nil {
		return User{}, Result{}, s.fail(ctx, op, user.ID, err)
	}
	var created User
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateUser(user)
		return err
	})
	created.Password = ""
	return created, res, err
}

// UpdateUser mutates an account. An empty password after the mutator keeps the stored one.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*User) error) (User, Result, error) {
	var updated User
	res, err := s.run(ctx, "update_user", &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateUser(id, func(u *User) error {
			stored := u.Password
			if err := mutator(u); err != nil {
				return err
			}
			if u.Password == "" {
				u.Password = stored
			}
			return validateUser(*u, false)
		})
		return err
	})
	updated.Password = ""
	return updated, res, err
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_user", &id, func(tx Transaction) error {
		return tx.DeleteUser(id)
	})
}

// ListUsers returns every account ordered by username, without passwords.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := s.view(ctx, func(v TransactionView) error {
		users = v.ListUsers()
		return nil
	})
	for i := range users {
		users[i].Password = ""
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, err
}
