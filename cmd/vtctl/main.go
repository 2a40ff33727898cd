// main.go - Admin control tool for Vitrine
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"vitrine/internal"
	"vitrine/internal/analytics"
	"vitrine/internal/auth"
	"vitrine/internal/config"
	"vitrine/internal/gateway"
	"vitrine/internal/resetflow"
	"vitrine/internal/seeder"
	"vitrine/internal/users"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	minPasswordLength      = 8
)

// Command defines the interface for all command implementations
type Command interface {
	Name() string
	Description() string
	// Execute runs the command. app is nil when the application failed to start.
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&CreateAdminUserCommand{},
	&ChangeAdminPasswordCommand{},
	&GrantRoleCommand{},
	&IssueTokenCommand{},
	&MigrateCommand{},
	&SeedCommand{},
	&SimulateCommand{},
	&ResetCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	var app *internal.Application
	if _, isHelp := cmd.(*HelpCommand); !isHelp {
		var err error
		app, err = internal.NewApp()
		if err != nil {
			log.Printf("Warning: Failed to initialize app: %v", err)
			log.Println("Proceeding with limited functionality...")
		}
	}

	err := cmd.Execute(ctx, app, args)

	if app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: Cleanup error: %v", err)
		}
		app.Services.Close()
	}

	if err != nil {
		log.Fatalf("Command failed: %v", err)
	}
	log.Printf("Command %s completed successfully", cmd.Name())
}

// CreateAdminUserCommand creates a user holding the admin role.
type CreateAdminUserCommand struct{}

func (c *CreateAdminUserCommand) Name() string        { return "create-admin-user" }
func (c *CreateAdminUserCommand) Description() string { return "Creates an admin user: <email> [password]" }

func (c *CreateAdminUserCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errors.New("app initialization failed, cannot connect to database")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <email> [password]", c.Name())
	}

	email := args[0]
	if err := validateEmail(email); err != nil {
		return err
	}

	password := ""
	if len(args) >= 2 {
		password = args[1]
	} else {
		var err error
		if password, err = promptNewPassword(); err != nil {
			return err
		}
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	log.Printf("Creating admin user with email: %s", email)
	if _, err := users.CreateAdminUser(app.DBManager.GetConnection(), email, password); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			log.Printf("User %s already exists", email)
			return nil
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ChangeAdminPasswordCommand updates the password of an existing user.
type ChangeAdminPasswordCommand struct{}

func (c *ChangeAdminPasswordCommand) Name() string { return "change-admin-password" }
func (c *ChangeAdminPasswordCommand) Description() string {
	return "Changes the password of an existing user: [email] [password]"
}

func (c *ChangeAdminPasswordCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errors.New("app initialization failed, cannot connect to database")
	}

	var email string
	if len(args) >= 1 {
		email = args[0]
	} else {
		fmt.Print("Enter admin email: ")
		input, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(input)
	}
	if email == "" {
		return errors.New("email is required")
	}

	db := app.DBManager.GetConnection()
	if _, err := users.FindByEmail(db, email); err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}

	var newPassword string
	if len(args) >= 2 {
		newPassword = args[1]
	} else {
		var err error
		if newPassword, err = promptNewPassword(); err != nil {
			return err
		}
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	if err := users.ChangePassword(db, email, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Println("Password updated successfully")
	return nil
}

// GrantRoleCommand gives an existing user a role.
type GrantRoleCommand struct{}

func (c *GrantRoleCommand) Name() string        { return "grant-role" }
func (c *GrantRoleCommand) Description() string { return "Grants a role to a user: <email> [role]" }

func (c *GrantRoleCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errors.New("app initialization failed, cannot connect to database")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <email> [role]", c.Name())
	}
	role := users.RoleAdmin
	if len(args) >= 2 {
		role = args[1]
	}

	db := app.DBManager.GetConnection()
	user, err := users.FindByEmail(db, args[0])
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}
	if err := users.GrantRole(db, user.ID, role); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}

	fmt.Printf("Granted %s to %s\n", role, user.Email)
	return nil
}

// IssueTokenCommand prints a bearer token for a user, for scripts and the reset command.
type IssueTokenCommand struct{}

func (c *IssueTokenCommand) Name() string        { return "issue-token" }
func (c *IssueTokenCommand) Description() string { return "Prints a bearer token for a user: <email>" }

func (c *IssueTokenCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errors.New("app initialization failed, cannot connect to database")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <email>", c.Name())
	}

	user, err := users.FindByEmail(app.DBManager.GetConnection(), args[0])
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}

	cfg := config.GetConfig()
	token, expiresAt, err := auth.NewTokens(cfg.GetTokenSecret(), cfg.GetTokenTTL()).Issue(user.ID, user.Email)
	if err != nil {
		return err
	}

	fmt.Println(token)
	log.Printf("Token expires at %s", expiresAt.Format(time.RFC3339))
	return nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errors.New("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Println("Migrations completed successfully")
	return nil
}

// SeedCommand populates the DB with sample traffic
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Seeds the database with sample data: [-sessions N]" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	sessions := fs.Int("sessions", 2000, "number of sessions to generate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return errors.New("unable to initialise app")
	}
	if config.GetConfig().IsProduction() {
		return errors.New("refusing to seed a production database")
	}

	_, err := seeder.NewSeeder(app.DBManager, slog.Default(), *sessions).Run(ctx)
	return err
}

// SimulateCommand sends browser-like traffic to a running instance through the
// public tracking functions.
type SimulateCommand struct{}

func (c *SimulateCommand) Name() string { return "simulate" }
func (c *SimulateCommand) Description() string {
	return "Sends simulated visits to the tracking functions: [-url URL] [-visitors N] [-c N]"
}

func (c *SimulateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	baseURL := fs.String("url", "http://localhost:"+config.GetConfig().GetPort(), "base URL of the instance")
	visitorCount := fs.Int("visitors", 50, "number of simulated visitors")
	concurrency := fs.Int("c", 5, "number of concurrent visitors")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *visitorCount <= 0 {
		return errors.New("-visitors must be positive")
	}

	start := time.Now()
	stats := seeder.Simulate(ctx, gateway.NewClient(*baseURL), slog.Default(), seeder.SimulateConfig{
		Visitors:     *visitorCount,
		Concurrency:  *concurrency,
		ClickChance:  0.15,
		ReloadChance: 0.2,
		AdminChance:  0.05,
		Seed:         uint64(start.UnixNano()),
	})

	fmt.Printf("Simulated %d visitors against %s in %v\n", stats.Visitors, *baseURL, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  page views sent:     %d\n", stats.PageViews)
	fmt.Printf("  navigations skipped: %d\n", stats.Skipped)
	fmt.Printf("  WhatsApp clicks:     %d\n", stats.Clicks)
	return nil
}

// ResetCommand deletes analytics events after a two-step confirmation.
// With -url it calls the deployed reset function instead of the local database.
type ResetCommand struct{}

func (c *ResetCommand) Name() string { return "reset" }
func (c *ResetCommand) Description() string {
	return "Deletes analytics events: [-page-views=false] [-whatsapp-clicks=false] [-url URL -token TOKEN]"
}

func (c *ResetCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	pageViews := fs.Bool("page-views", true, "delete page views")
	clicks := fs.Bool("whatsapp-clicks", true, "delete WhatsApp clicks")
	baseURL := fs.String("url", "", "base URL of a deployed instance")
	token := fs.String("token", "", "admin bearer token for -url")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		resetter resetflow.Resetter
		counts   resetflow.Counts
	)
	if *baseURL != "" {
		if *token == "" {
			return errors.New("-token is required with -url")
		}
		client := gateway.NewClient(*baseURL, gateway.WithToken(*token))
		remote, err := resetflow.FetchCounts(ctx, client)
		if err != nil {
			return err
		}
		counts = remote
		resetter = resetflow.NewResetClient(client)
	} else {
		if app == nil {
			return errors.New("app initialization failed, cannot connect to database")
		}
		db := app.DBManager.GetConnection()
		totals, err := analytics.EventTotals(ctx, db)
		if err != nil {
			return err
		}
		counts = resetflow.Counts{PageViews: totals.PageViews, WhatsAppClicks: totals.WhatsAppClicks}
		resetter = resetflow.NewLocalResetter(db, slog.Default())
	}

	flow := resetflow.New(resetter).WithOptions(resetflow.Options{PageViews: *pageViews, WhatsAppClicks: *clicks})
	reader := bufio.NewReader(os.Stdin)

	if err := flow.Open(counts); err != nil {
		return err
	}
	if *baseURL != "" {
		fmt.Printf("Target: %s\n", *baseURL)
	}
	fmt.Printf("This deletes %d page views and %d WhatsApp clicks.\n", counts.PageViews, counts.WhatsAppClicks)
	if !promptYes(reader, "Continue? [y/N]: ") {
		flow.Cancel()
		fmt.Println("Reset cancelled.")
		return nil
	}
	if err := flow.Proceed(); err != nil {
		return err
	}

	if err := flow.SetAcknowledged(promptYes(reader, "I understand this cannot be undone [y/N]: ")); err != nil {
		return err
	}
	fmt.Printf("Type %s to confirm: ", resetflow.ConfirmationText)
	text, _ := reader.ReadString('\n')
	if err := flow.SetConfirmation(strings.TrimSpace(text)); err != nil {
		return err
	}

	result, err := flow.Confirm(ctx)
	if errors.Is(err, resetflow.ErrNotConfirmed) {
		fmt.Println("Confirmation did not match. Nothing was deleted.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	return nil
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errors.New("cannot check status: app initialization failed")
	}

	db := app.DBManager.GetConnection()

	var count int64
	if err := db.Model(&users.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	totals, err := analytics.EventTotals(ctx, db)
	if err != nil {
		return err
	}

	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Users: %d", count)
	log.Printf("- Page views: %d", totals.PageViews)
	log.Printf("- WhatsApp clicks: %d", totals.WhatsAppClicks)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	stats := sqlDB.Stats()
	log.Printf("- Max Open Connections: %d", stats.MaxOpenConnections)
	log.Printf("- Open Connections: %d", stats.OpenConnections)
	log.Printf("- In Use: %d", stats.InUse)
	log.Printf("- Idle: %d", stats.Idle)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// Helper functions

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// promptNewPassword reads a password twice from the terminal without echo.
func promptNewPassword() (string, error) {
	fmt.Printf("Enter new password (minimum %d characters): ", minPasswordLength)
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm new password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	password := strings.TrimSpace(string(passBytes))
	if password != strings.TrimSpace(string(confirmBytes)) {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func promptYes(reader *bufio.Reader, prompt string) bool {
	fmt.Print(prompt)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes" || answer == "s" || answer == "sim"
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := flag.Args()
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: vtctl [command] [args...]")
	fmt.Println("Available commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-22s %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
