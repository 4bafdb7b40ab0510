package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/rmoldovan/taskgate/internal/config"
	"github.com/rmoldovan/taskgate/internal/task"
	"github.com/rmoldovan/taskgate/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo accounts and tasks",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoUsers = []user.CreateUserInput{
	{Username: "admin", Password: "admin123", Roles: []string{user.RoleAdmin}},
	{Username: "manager1", Password: "manager123", Roles: []string{user.RoleManager}},
	{Username: "user1", Password: "user123", Roles: []string{user.RoleUser}},
}

var demoTasks = []task.CreateTaskInput{
	{
		Title:       "Prepare onboarding checklist",
		Description: "Collect the accounts and access a new hire needs in week one.",
		AssignedTo:  "user1",
		CreatedBy:   "manager1",
	},
	{
		Title:       "Review quarterly access report",
		Description: "Check that role assignments still match team responsibilities.",
		AssignedTo:  "manager1",
		CreatedBy:   "admin",
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := user.NewStore(pool)
	taskStore := task.NewStore(pool)

	// Check if seed has already run.
	exists, err := userStore.ExistsByUsername(ctx, demoUsers[0].Username)
	if err != nil {
		return fmt.Errorf("checking existing users: %w", err)
	}
	if exists {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	for _, in := range demoUsers {
		u, err := userStore.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating user %q: %w", in.Username, err)
		}
		slog.Info("created user", "username", u.Username, "roles", u.Roles)
	}

	for _, in := range demoTasks {
		t, err := taskStore.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating task %q: %w", in.Title, err)
		}
		slog.Info("created task", "id", t.ID, "title", t.Title, "assigned_to", t.AssignedTo)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Accounts:  admin/admin123 (ADMIN), manager1/manager123 (MANAGER), user1/user123 (USER)\n")
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST localhost:8080/api/auth/login -d '{\"username\":\"manager1\",\"password\":\"manager123\"}'\n")
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' localhost:8080/api/tasks\n")

	return nil
}
