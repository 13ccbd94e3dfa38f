package fakeapi

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/tickora-io/tickora/internal/types"
)

// adminOnly rejects callers without the admin role the way the backend's IsAdminUser does.
func (s *Server) adminOnly(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c).Role != types.RoleAdmin {
			forbidden(c)
			return
		}
		next(c)
	}
}

func validRole(role string) bool {
	switch role {
	case types.RoleAdmin, types.RoleManager, types.RoleEmployee:
		return true
	}
	return false
}

func (s *Server) userByNameLocked(username string) *types.User {
	for _, u := range s.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

// rolesLocked resolves department role ids; ok is false if any id is unknown.
func (s *Server) rolesLocked(ids []int) ([]types.DepartmentRole, bool) {
	roles := make([]types.DepartmentRole, 0, len(ids))
	for _, id := range ids {
		r, found := s.roles[id]
		if !found {
			return nil, false
		}
		roles = append(roles, *r)
	}
	return roles, true
}

// Users

func (s *Server) handleCreateUser(c *gin.Context) {
	var req types.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password fields didn't match."})
		return
	}
	if req.Role == "" {
		req.Role = types.RoleEmployee
	}
	if !validRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": `"` + req.Role + `" is not a valid choice.`})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByNameLocked(req.Username) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A user with that username already exists."})
		return
	}
	roles, ok := s.rolesLocked(req.DepartmentRoleIDs)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid department role."})
		return
	}
	now := s.now()
	u := &types.User{
		ID: s.id(), Username: req.Username, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName,
		Role: req.Role, DepartmentRoles: roles, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	s.users[u.ID] = u
	s.passwords[u.Username] = req.Password
	access, refresh := s.issueLocked(u.ID)
	c.JSON(http.StatusCreated, types.LoginResponse{User: *u, Access: access, Refresh: refresh})
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req types.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Role != nil && !validRole(*req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": `"` + *req.Role + `" is not a valid choice.`})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		notFound(c)
		return
	}
	if req.Username != nil && *req.Username != u.Username {
		if s.userByNameLocked(*req.Username) != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A user with that username already exists."})
			return
		}
		s.passwords[*req.Username] = s.passwords[u.Username]
		delete(s.passwords, u.Username)
		u.Username = *req.Username
	}
	if req.DepartmentRoleIDs != nil {
		roles, ok := s.rolesLocked(*req.DepartmentRoleIDs)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid department role."})
			return
		}
		u.DepartmentRoles = roles
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	u.UpdatedAt = s.now()
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleDeactivateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	u.IsActive = false
	u.UpdatedAt = s.now()
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		notFound(c)
		return
	}
	delete(s.passwords, u.Username)
	delete(s.users, id)
	c.Status(http.StatusNoContent)
}

// Department roles

func (s *Server) handleListRoles(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := make([]types.DepartmentRole, 0, len(s.roles))
	for _, r := range s.roles {
		roles = append(roles, *r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	c.JSON(http.StatusOK, roles)
}

func (s *Server) roleNameTakenLocked(name string, except int) bool {
	for _, r := range s.roles {
		if r.Name == name && r.ID != except {
			return true
		}
	}
	return false
}

func (s *Server) handleCreateRole(c *gin.Context) {
	var req types.DepartmentRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and display_name are required"})
		return
	}
	if req.Color == "" {
		req.Color = "#6b7280"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roleNameTakenLocked(req.Name, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department role with this name already exists."})
		return
	}
	r := &types.DepartmentRole{ID: s.id(), Name: req.Name, DisplayName: req.DisplayName, Color: req.Color}
	s.roles[r.ID] = r
	c.JSON(http.StatusCreated, r)
}

func (s *Server) handleUpdateRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req types.DepartmentRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, found := s.roles[id]
	if !found {
		notFound(c)
		return
	}
	if req.Name != "" {
		if s.roleNameTakenLocked(req.Name, id) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "department role with this name already exists."})
			return
		}
		r.Name = req.Name
	}
	if req.DisplayName != "" {
		r.DisplayName = req.DisplayName
	}
	if req.Color != "" {
		r.Color = req.Color
	}
	s.syncRoleLocked(*r, false)
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleDeleteRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, found := s.roles[id]
	if !found {
		notFound(c)
		return
	}
	delete(s.roles, id)
	s.syncRoleLocked(*r, true)
	c.Status(http.StatusNoContent)
}

// syncRoleLocked refreshes or drops role on every user carrying it.
func (s *Server) syncRoleLocked(role types.DepartmentRole, remove bool) {
	for _, u := range s.users {
		kept := u.DepartmentRoles[:0]
		for _, r := range u.DepartmentRoles {
			if r.ID == role.ID {
				if remove {
					continue
				}
				r = role
			}
			kept = append(kept, r)
		}
		u.DepartmentRoles = kept
	}
}
