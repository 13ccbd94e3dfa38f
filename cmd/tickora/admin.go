package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tickora-io/tickora/internal/types"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "User accounts (changes are admin only)",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

var userShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserShow,
}

var userCreateCmd = &cobra.Command{
	Use:   "create USERNAME",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserCreate,
}

var userUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change a user's details, role or department roles",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserUpdate,
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID",
	Short: "Block a user from logging in",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDeactivate,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDelete,
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Department roles shown next to user names",
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List department roles",
	Args:  cobra.NoArgs,
	RunE:  runRoleList,
}

var roleCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Add a department role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleCreate,
}

var roleUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Rename or recolor a department role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleUpdate,
}

var roleDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a department role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleDelete,
}

var (
	userEmail     string
	userFirst     string
	userLast      string
	userRole      string
	userDeptRoles []int
	userPassword  string
	userActive    bool
	userYes       bool

	roleDisplay string
	roleColor   string
	roleName    string
)

func init() {
	for _, c := range []*cobra.Command{userCreateCmd, userUpdateCmd} {
		f := c.Flags()
		f.StringVar(&userEmail, "email", "", "Email address")
		f.StringVar(&userFirst, "first-name", "", "First name")
		f.StringVar(&userLast, "last-name", "", "Last name")
		f.StringVar(&userRole, "role", "", "admin, manager or employee")
		f.IntSliceVar(&userDeptRoles, "dept-role", nil, "Department role id (repeatable)")
	}
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Initial password (required)")
	userCreateCmd.MarkFlagRequired("password")
	userUpdateCmd.Flags().BoolVar(&userActive, "active", true, "Whether the account may log in")
	userDeleteCmd.Flags().BoolVar(&userYes, "yes", false, "Confirm the deletion")

	roleCreateCmd.Flags().StringVar(&roleDisplay, "display", "", "Display name (defaults to NAME)")
	roleCreateCmd.Flags().StringVar(&roleColor, "color", "", "Badge color, e.g. #0ea5e9")
	roleUpdateCmd.Flags().StringVar(&roleName, "name", "", "New name")
	roleUpdateCmd.Flags().StringVar(&roleDisplay, "display", "", "New display name")
	roleUpdateCmd.Flags().StringVar(&roleColor, "color", "", "New badge color")

	userCmd.AddCommand(userListCmd, userShowCmd, userCreateCmd, userUpdateCmd, userDeactivateCmd, userDeleteCmd)
	roleCmd.AddCommand(roleListCmd, roleCreateCmd, roleUpdateCmd, roleDeleteCmd)
	rootCmd.AddCommand(userCmd, roleCmd)
}

func checkRole(role string) error {
	switch role {
	case "", types.RoleAdmin, types.RoleManager, types.RoleEmployee:
		return nil
	}
	return fmt.Errorf("invalid role %q: want admin, manager or employee", role)
}

func roleNames(roles []types.DepartmentRole) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.DisplayName
	}
	return strings.Join(names, ", ")
}

func runUserList(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	users, err := current.api.Users.List(cmd.Context())
	if err != nil {
		return err
	}
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tROLE\tACTIVE\tDEPARTMENTS")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Username, fullName(u.FirstName, u.LastName), u.Role, u.IsActive, roleNames(u.DepartmentRoles))
	}
	return w.Flush()
}

func runUserShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "user id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	u, err := current.api.Users.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	printUser(cmd.OutOrStdout(), u)
	return nil
}

func printUser(out io.Writer, u *types.User) {
	fmt.Fprintf(out, "%s (%s)\n", u.Username, u.Role)
	if name := fullName(u.FirstName, u.LastName); name != "" {
		fmt.Fprintf(out, "  Name:        %s\n", name)
	}
	if u.Email != "" {
		fmt.Fprintf(out, "  Email:       %s\n", u.Email)
	}
	if len(u.DepartmentRoles) > 0 {
		fmt.Fprintf(out, "  Departments: %s\n", roleNames(u.DepartmentRoles))
	}
	status := "active"
	if !u.IsActive {
		status = "deactivated"
	}
	fmt.Fprintf(out, "  Status:      %s\n", status)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(out, "  Joined:      %s\n", relative(u.CreatedAt))
	}
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if err := checkRole(userRole); err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	u, err := current.api.Users.Create(cmd.Context(), &types.UserCreateRequest{
		Username:          args[0],
		Email:             userEmail,
		FirstName:         userFirst,
		LastName:          userLast,
		Role:              userRole,
		DepartmentRoleIDs: userDeptRoles,
		Password:          userPassword,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d, %s)\n", u.Username, u.ID, u.Role)
	return nil
}

func runUserUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "user id")
	if err != nil {
		return err
	}
	if err := checkRole(userRole); err != nil {
		return err
	}

	var req types.UserUpdateRequest
	f := cmd.Flags()
	if f.Changed("email") {
		req.Email = &userEmail
	}
	if f.Changed("first-name") {
		req.FirstName = &userFirst
	}
	if f.Changed("last-name") {
		req.LastName = &userLast
	}
	if f.Changed("role") {
		req.Role = &userRole
	}
	if f.Changed("dept-role") {
		ids := append([]int{}, userDeptRoles...)
		req.DepartmentRoleIDs = &ids
	}
	if f.Changed("active") {
		req.IsActive = &userActive
	}
	if req == (types.UserUpdateRequest{}) {
		return fmt.Errorf("nothing to update")
	}
	if err := requireLogin(); err != nil {
		return err
	}

	u, err := current.api.Users.Update(cmd.Context(), id, &req)
	if err != nil {
		return err
	}
	printUser(cmd.OutOrStdout(), u)
	return nil
}

func runUserDeactivate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "user id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	if err := current.api.Users.Deactivate(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %d deactivated\n", id)
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "user id")
	if err != nil {
		return err
	}
	if !userYes {
		return fmt.Errorf("deleting user %d removes the account for good; pass --yes to confirm, or use 'tickora user deactivate'", id)
	}
	if err := requireLogin(); err != nil {
		return err
	}
	if err := current.api.Users.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %d deleted\n", id)
	return nil
}

func runRoleList(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	roles, err := current.api.Roles.List(cmd.Context())
	if err != nil {
		return err
	}
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tNAME\tDISPLAY\tCOLOR")
	for _, r := range roles {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.DisplayName, r.Color)
	}
	return w.Flush()
}

func runRoleCreate(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	display := roleDisplay
	if display == "" {
		display = args[0]
	}
	r, err := current.api.Roles.Create(cmd.Context(), &types.DepartmentRoleRequest{Name: args[0], DisplayName: display, Color: roleColor})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created department role %s (id %d)\n", r.DisplayName, r.ID)
	return nil
}

func runRoleUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "role id")
	if err != nil {
		return err
	}
	req := types.DepartmentRoleRequest{Name: roleName, DisplayName: roleDisplay, Color: roleColor}
	if req == (types.DepartmentRoleRequest{}) {
		return fmt.Errorf("nothing to update")
	}
	if err := requireLogin(); err != nil {
		return err
	}
	r, err := current.api.Roles.Update(cmd.Context(), id, &req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated department role %d: %s (%s)\n", r.ID, r.DisplayName, r.Color)
	return nil
}

func runRoleDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "role id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	if err := current.api.Roles.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Department role %d deleted\n", id)
	return nil
}
