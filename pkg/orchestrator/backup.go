package orchestrator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// createBackup snapshots all template files under projectRoot into a
// timestamped directory, mirroring the original layout. Files already under a
// backup directory are skipped so backups never nest.
func (o *Orchestrator) createBackup(projectRoot string) (string, error) {
	backupDir := filepath.Join(projectRoot, o.config.BackupDirName, time.Now().Format("20060102_150405"))

	copied := 0
	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == o.config.BackupDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), o.config.TemplateExtension) {
			return nil
		}

		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return err
		}

		target := filepath.Join(backupDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}

		copied++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to back up templates: %w", err)
	}

	o.log.Info("created template backup", "dir", backupDir, "files", copied)
	return backupDir, nil
}
