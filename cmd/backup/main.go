package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"typingclash/internal/clock"
	"typingclash/internal/config"
	"typingclash/internal/database"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/offline"
	"typingclash/internal/repository"
	"typingclash/internal/service"
)

// app is what every subcommand works with once the database is open
type app struct {
	cfg *config.Config
	db  *database.DB
	log *logger.Logger
}

var envFile string

func main() {
	root := &cobra.Command{
		Use:           "backup",
		Short:         "TypingClash database maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(exportCmd(), importCmd(), importLegacyCmd(), migrateCmd(), membershipCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// open loads config, connects and brings the schema up to date
func open() (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if _, err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &app{cfg: cfg, db: db, log: log}, nil
}

func (a *app) close() {
	a.db.Close()
	a.log.Sync()
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.close()

			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			a.log.Info("exporting database", "path", output)
			if err := service.NewBackupService(a.db, a.log).Export(output); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if info, err := os.Stat(output); err == nil {
				fmt.Printf("Export complete! File size: %.2f MB\n", float64(info.Size())/1024/1024)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func importCmd() *cobra.Command {
	var (
		input     string
		clearData bool
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the database from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}
			a, err := open()
			if err != nil {
				return err
			}
			defer a.close()

			backups := service.NewBackupService(a.db, a.log)
			if clearData {
				if !yes && !confirm(cmd, "WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
					fmt.Println("Import cancelled")
					return nil
				}
				if err := backups.Clear(); err != nil {
					return fmt.Errorf("failed to clear database: %w", err)
				}
			}

			a.log.Info("importing database", "path", input)
			if err := backups.Import(input); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Println("Import complete!")
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup file to import")
	cmd.Flags().BoolVar(&clearData, "clear", false, "clear existing data before import (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func importLegacyCmd() *cobra.Command {
	var (
		account string
		input   string
	)
	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import a progress blob exported by the old browser client",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}
			var data service.LegacyData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("failed to parse %s: %w", input, err)
			}

			a, err := open()
			if err != nil {
				return err
			}
			defer a.close()

			users := repository.NewUserRepository(a.db)
			user, err := users.GetUserByAccountName(strings.ToLower(account))
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no account named %q", account)
			}

			legacy := newLegacyService(a, users)
			res, err := legacy.Import(user, &data)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
			if !res.Success {
				return fmt.Errorf("import finished with %d errors", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "user", "u", "", "account name to import into")
	cmd.Flags().StringVarP(&input, "file", "f", "", "legacy JSON file")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newLegacyService(a *app, users *repository.UserRepository) *service.LegacyImportService {
	clk := clock.System{}
	progressRepo := repository.NewProgressRepository(a.db)
	exerciseRepo := repository.NewExerciseRepository(a.db)
	achievementRepo := repository.NewAchievementRepository(a.db)
	pointsRepo := repository.NewPointsRepository(a.db)
	settingsRepo := repository.NewSettingsRepository(a.db)
	practice := service.NewPracticeService(progressRepo, exerciseRepo, achievementRepo, pointsRepo, nil,
		offline.NewQueue(), clk, service.PracticeConfig{}, a.log)
	return service.NewLegacyImportService(users, progressRepo, exerciseRepo, achievementRepo, pointsRepo,
		settingsRepo, practice, clk, a.log)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			db, err := database.InitializeWithConfig(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			applied, err := db.RunMigrations(cfg.MigrationsPath)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			if len(applied) == 0 {
				fmt.Println("Schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Println("Applied", name)
			}
			return nil
		},
	}
}

func membershipCmd() *cobra.Command {
	var (
		account string
		tier    string
		expires string
		level   int
	)
	cmd := &cobra.Command{
		Use:   "membership",
		Short: "Set an account's membership tier and level",
		RunE: func(cmd *cobra.Command, args []string) error {
			var expiresAt *time.Time
			if expires != "" {
				t, err := parseExpiry(expires, time.Now())
				if err != nil {
					return err
				}
				expiresAt = &t
			}

			a, err := open()
			if err != nil {
				return err
			}
			defer a.close()

			users := repository.NewUserRepository(a.db)
			user, err := users.GetUserByAccountName(strings.ToLower(account))
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no account named %q", account)
			}

			profiles := service.NewProfileService(users, a.db, a.log)
			if cmd.Flags().Changed("tier") {
				if err := profiles.SetMembership(user.ID, models.Tier(tier), expiresAt); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("level") {
				if err := profiles.SetLevel(user.ID, level); err != nil {
					return err
				}
			}
			fmt.Printf("Updated %s\n", user.AccountName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "user", "u", "", "account name")
	cmd.Flags().StringVar(&tier, "tier", "free", "membership tier: free or premium")
	cmd.Flags().StringVar(&expires, "expires", "", "premium expiry as a date (2006-01-02) or a duration from now (720h)")
	cmd.Flags().IntVar(&level, "level", 1, "account level")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// parseExpiry accepts a calendar date or a duration relative to now
func parseExpiry(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(clock.DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q: use 2006-01-02, RFC3339 or a duration", s)
	}
	return now.Add(d), nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
