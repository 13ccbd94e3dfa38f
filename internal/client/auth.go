package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/types"
)

const (
	loginPath           = "/auth/login/"
	profilePath         = "/auth/profile/"
	usersPath           = "/auth/users/"
	departmentRolesPath = "/auth/department-roles/"
)

// ErrPasswordMismatch is returned before any request when a new account's password and
// its confirmation differ.
var ErrPasswordMismatch = errors.New("password fields didn't match")

// AuthService handles login and the caller's profile
type AuthService struct {
	client *Client
}

// Login exchanges credentials for tokens and establishes the session. Bad credentials
// surface the backend's reason verbatim.
func (s *AuthService) Login(ctx context.Context, username, password string) (*types.User, error) {
	var result types.LoginResponse
	body := types.LoginRequest{Username: username, Password: password}
	if err := s.client.Post(ctx, loginPath, body, &result); err != nil {
		return nil, err
	}
	if err := s.client.session.Establish(ctx, &result.User, result.Access, result.Refresh); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &result.User, nil
}

// Logout clears the session locally. The backend keeps no server-side session.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.client.session.Logout(ctx)
}

// Refresh rotates the token pair now instead of waiting for a 401.
func (s *AuthService) Refresh(ctx context.Context) error {
	err := s.client.refresh(ctx, s.client.session.AccessToken())
	if err != nil && !apierrors.IsNetwork(err) && !errors.Is(err, apierrors.ErrNotAuthenticated) {
		return s.client.expire(ctx)
	}
	return err
}

// Profile fetches the caller's profile and records it on the session, completing a
// restored session.
func (s *AuthService) Profile(ctx context.Context) (*types.User, error) {
	if s.client.session.AccessToken() == "" {
		return nil, apierrors.ErrNotAuthenticated
	}
	var result types.User
	if err := s.client.Get(ctx, profilePath, &result); err != nil {
		return nil, err
	}
	s.client.session.SetUser(&result)
	return &result, nil
}

// UsersService handles user directory operations
type UsersService struct {
	client *Client
}

// List retrieves all users
func (s *UsersService) List(ctx context.Context) ([]types.User, error) {
	return getList[types.User](ctx, s.client, usersPath)
}

// Get retrieves a specific user by ID
func (s *UsersService) Get(ctx context.Context, id int) (*types.User, error) {
	var result types.User
	if err := s.client.Get(ctx, fmt.Sprintf("%s%d/", usersPath, id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create opens an account. Admin only. A missing confirmation defaults to the password.
// The token pair the backend returns for the new user is discarded; the caller's session
// is unchanged.
func (s *UsersService) Create(ctx context.Context, request *types.UserCreateRequest) (*types.User, error) {
	body := *request
	if body.ConfirmPassword == "" {
		body.ConfirmPassword = body.Password
	}
	if body.Password != body.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	var result types.LoginResponse
	if err := s.client.Post(ctx, usersPath, &body, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// Update patches a user. Admin only.
func (s *UsersService) Update(ctx context.Context, id int, request *types.UserUpdateRequest) (*types.User, error) {
	var result types.User
	if err := s.client.Patch(ctx, fmt.Sprintf("%s%d/", usersPath, id), request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Deactivate blocks a user from logging in while keeping their history. Admin only.
func (s *UsersService) Deactivate(ctx context.Context, id int) error {
	return s.client.Post(ctx, fmt.Sprintf("%s%d/deactivate/", usersPath, id), nil, nil)
}

// Delete removes a user. Admin only.
func (s *UsersService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, fmt.Sprintf("%s%d/", usersPath, id))
}

// DepartmentRolesService manages the department tags shown next to user names
type DepartmentRolesService struct {
	client *Client
}

// List retrieves every department role
func (s *DepartmentRolesService) List(ctx context.Context) ([]types.DepartmentRole, error) {
	return getList[types.DepartmentRole](ctx, s.client, departmentRolesPath)
}

// Create adds a department role. Admin only.
func (s *DepartmentRolesService) Create(ctx context.Context, request *types.DepartmentRoleRequest) (*types.DepartmentRole, error) {
	var result types.DepartmentRole
	if err := s.client.Post(ctx, departmentRolesPath, request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update patches the non-empty fields of request onto a role. Admin only.
func (s *DepartmentRolesService) Update(ctx context.Context, id int, request *types.DepartmentRoleRequest) (*types.DepartmentRole, error) {
	var result types.DepartmentRole
	if err := s.client.Patch(ctx, fmt.Sprintf("%s%d/", departmentRolesPath, id), request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a role and detaches it from its users. Admin only.
func (s *DepartmentRolesService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, fmt.Sprintf("%s%d/", departmentRolesPath, id))
}
