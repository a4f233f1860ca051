package hypertable

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/pkg/render"
)

// TriggerName is the invalidation-logging trigger installed on every
// source hypertable that feeds at least one aggregate.
const TriggerName = "tidemark_invalidation_trigger"

// InstallInvalidationTrigger puts the invalidation-logging trigger on the
// source table. Installation is idempotent: a second aggregate over the
// same source finds the trigger already present and leaves it alone.
func (s *Service) InstallInvalidationTrigger(ctx context.Context, ht *state.Hypertable) error {
	installed, err := s.triggerInstalled(ctx, ht)
	if err != nil {
		return err
	}
	if installed {
		s.logger.Debug("invalidation trigger already present",
			slog.String("table", ht.Schema+"."+ht.Name))
		return nil
	}

	stmt := fmt.Sprintf(
		"CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s.%s FOR EACH ROW EXECUTE FUNCTION %s.log_invalidation(%d)",
		render.QuoteIdent(TriggerName),
		render.QuoteIdent(ht.Schema), render.QuoteIdent(ht.Name),
		"_tidemark_internal", ht.ID)
	if err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to install invalidation trigger on %s.%s: %w", ht.Schema, ht.Name, err)
	}

	s.logger.Info("installed invalidation trigger",
		slog.String("table", ht.Schema+"."+ht.Name))
	return nil
}

func (s *Service) triggerInstalled(ctx context.Context, ht *state.Hypertable) (bool, error) {
	d := s.db.Dialect()
	if d.Name != "postgres" {
		// Non-Postgres targets have no trigger runtime; sources stay
		// fully invalidated until refreshed explicitly.
		s.logger.Warn("target does not support invalidation triggers",
			slog.String("dialect", d.Name))
		return true, nil
	}

	query := fmt.Sprintf(
		"SELECT count(*) FROM information_schema.triggers WHERE trigger_schema = %s AND event_object_table = %s AND trigger_name = %s",
		render.QuoteLiteral(ht.Schema), render.QuoteLiteral(ht.Name), render.QuoteLiteral(TriggerName))

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to check for invalidation trigger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, fmt.Errorf("failed to scan trigger count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return count > 0, nil
}
