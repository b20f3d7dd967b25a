package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/systembundle"
)

const cliUser = "cli"

// withDatabase connects, migrates and hands the database to fn.
func withDatabase(ctx context.Context, fn func(*gorm.DB) error) error {
	ormDB, err := connectDatabase(ctx)
	if err != nil {
		return err
	}
	defer ormDB.Close()

	if err := migrateAll(ormDB); err != nil {
		return err
	}
	return fn(ormDB)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(*gorm.DB) error { return nil })
		},
	}
}

func newWhitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage the emails allowed to log in",
	}

	role := ""
	password := ""
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Whitelist an email, optionally with a local password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password != "" {
				if err := core.ValidatePassword(password); err != nil {
					return err
				}
			}
			return withDatabase(cmd.Context(), func(ormDB *gorm.DB) error {
				entry := systembundle.WhitelistEntry{Email: args[0], Role: core.Role(role), AddedBy: cliUser}
				accountId, err := systembundle.SaveWhitelistEntry(ormDB, &entry)
				if len(entry.Errors) > 0 {
					return fmt.Errorf("%w: %v", err, entry.Errors)
				}
				if err != nil {
					return err
				}
				if err := revokeSessions(cmd.Context(), ormDB, accountId); err != nil {
					return err
				}
				if password != "" {
					if _, err := systembundle.SetAccountPassword(ormDB, entry.Email, password); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s whitelisted as %s\n", entry.Email, entry.Role)
				return nil
			})
		},
	}
	add.Flags().StringVar(&role, "role", string(core.RoleSampler), "sampler or lab_admin")
	add.Flags().StringVar(&password, "password", "", "local password for logins without identity token")

	importCmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Whitelist the email and role columns of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), func(ormDB *gorm.DB) error {
				result, changed, err := systembundle.ImportWhitelist(ormDB, data, cliUser)
				if err != nil {
					return err
				}
				for _, accountId := range changed {
					if err := revokeSessions(cmd.Context(), ormDB, accountId); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "imported %d, skipped %d, errors %d\n", result.Imported, result.Skipped, len(result.Errors))
				for _, e := range result.Errors {
					fmt.Fprintf(out, "row %d (%s): %s\n", e.RowNumber, e.Email, e.ErrorMessage)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(add, importCmd)
	return cmd
}

// revokeSessions logs out an account whose role was changed from the command line.
func revokeSessions(ctx context.Context, ormDB *gorm.DB, accountId uint) error {
	if accountId == 0 {
		return nil
	}
	sessions, err := core.NewSessionStore(ctx, core.Config)
	if err != nil {
		return err
	}
	if closer, ok := sessions.(io.Closer); ok {
		defer closer.Close()
	}
	return systembundle.RevokeAccountSessions(ctx, ormDB, sessions, accountId)
}

func newBackupCmd() *cobra.Command {
	out := ""
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a full JSON backup of samples, accounts and whitelist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				cat, err := catalog.Load(core.Config.Catalog)
				if err != nil {
					return err
				}
				out = systembundle.BackupFilename(cat.AppName, time.Now())
			}

			return withDatabase(cmd.Context(), func(ormDB *gorm.DB) error {
				backup, err := systembundle.BuildBackup(cmd.Context(), ormDB, cliUser)
				if err != nil {
					return err
				}

				file, err := os.Create(out)
				if err != nil {
					return err
				}
				w := bufio.NewWriter(file)
				if err := systembundle.WriteBackup(w, backup); err != nil {
					file.Close()
					return err
				}
				if err := w.Flush(); err != nil {
					file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return err
				}

				core.Logger.Info("backup written",
					zap.String("file", out),
					zap.Int("samples", len(backup.Samples)),
					zap.Int("users", len(backup.Users)),
					zap.Int("whitelist", len(backup.Whitelist)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default <app>_Backup_<date>.json)")
	return cmd
}
