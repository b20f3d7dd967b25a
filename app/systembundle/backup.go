package systembundle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jinzhu/gorm"
	"golang.org/x/sync/errgroup"

	"onlab_backend/app/core"
	"onlab_backend/app/samplebundle"
)

const BackupVersion = "1.0"

// BuildBackup collects samples with their details, accounts and the whitelist concurrently.
func BuildBackup(ctx context.Context, ormDB *gorm.DB, exportedBy string) (*Backup, error) {
	backup := &Backup{
		Metadata: BackupMetadata{
			Version:    BackupVersion,
			ExportDate: now().UTC(),
			ExportedBy: exportedBy,
		},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		samples, err := samplebundle.FindSamplesWithDetails(ormDB, nil)
		if err != nil {
			return fmt.Errorf("loading samples: %w", err)
		}
		backup.Samples = samples
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		users := core.Users{}
		if err := ormDB.Order("id asc").Find(&users).Error; err != nil {
			return fmt.Errorf("loading users: %w", err)
		}
		backup.Users = users
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		whitelist, err := ListWhitelist(ormDB)
		if err != nil {
			return fmt.Errorf("loading whitelist: %w", err)
		}
		backup.Whitelist = whitelist
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return backup, nil
}

func WriteBackup(w io.Writer, backup *Backup) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

func BackupFilename(appName string, t time.Time) string {
	return fmt.Sprintf("%s_Backup_%s.json", appName, t.Format("2006-01-02"))
}
