// Command migrate applies or rolls back the ledger schema.
//
//	migrate up
//	migrate down [N]
//	migrate goto <version>
//	migrate version
//	migrate force <version>
//
// Rolling back below the audit trail migration drops every audit record, so
// down and goto refuse to cross it unless ALLOW_AUDIT_TRAIL_DROP=true.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"trustledger/internal/config"
	"trustledger/internal/database"
	"trustledger/internal/logger"
)

// auditTrailVersion is the migration that creates audit_records.
const auditTrailVersion = 2

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(os.Args[1:]); err != nil {
		logger.Get().Fatalw("migration failed", "error", err)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: migrate <up|down|goto|version|force> [N]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m, err := database.NewMigrate(cfg.PostgresURL())
	if err != nil {
		return err
	}
	defer database.CloseMigrate(m)

	log := logger.Named("migrate")
	allowDrop := os.Getenv("ALLOW_AUDIT_TRAIL_DROP") == "true"

	switch cmd := args[0]; cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("up: %w", err)
		}

	case "down":
		steps, err := intArg(args, 1)
		if err != nil {
			return err
		}
		current, err := currentVersion(m)
		if err != nil {
			return err
		}
		if err := guardAuditTrail(current, int(current)-steps, allowDrop); err != nil {
			return err
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("down %d: %w", steps, err)
		}

	case "goto":
		if len(args) < 2 {
			return errors.New("usage: migrate goto <version>")
		}
		target, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		current, err := currentVersion(m)
		if err != nil {
			return err
		}
		if err := guardAuditTrail(current, int(target), allowDrop); err != nil {
			return err
		}
		if err := m.Migrate(uint(target)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("goto %d: %w", target, err)
		}

	case "version":

	case "force":
		if len(args) < 2 {
			return errors.New("usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force %d: %w", version, err)
		}

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Infow("schema is empty", "command", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	log.Infow("schema version", "command", args[0], "version", version, "dirty", dirty)
	return nil
}

// intArg parses args[i] as a positive count, defaulting to 1.
func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 1, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid step count %q", args[i])
	}
	return n, nil
}

func currentVersion(m *migrate.Migrate) (uint, error) {
	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

// guardAuditTrail rejects a move from current to target that would roll
// back the audit_records migration.
func guardAuditTrail(current uint, target int, allow bool) error {
	if allow || current < auditTrailVersion || target >= auditTrailVersion {
		return nil
	}
	return fmt.Errorf("rolling back to version %d drops the audit trail; set ALLOW_AUDIT_TRAIL_DROP=true to proceed", target)
}
