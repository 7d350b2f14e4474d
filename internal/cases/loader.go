package cases

import (
	"context"
	"fmt"
)

// Install writes the given definitions into the store, replacing the table
// allow-list of each case. Safe to run repeatedly.
func Install(ctx context.Context, store Store, defs []Definition) error {
	for _, def := range defs {
		if err := store.UpsertCase(ctx, def); err != nil {
			return fmt.Errorf("install case %q: %w", def.ID, err)
		}
		if err := store.ReplaceAvailableTables(ctx, def.ID, def.AllowedTables); err != nil {
			return fmt.Errorf("install case %q tables: %w", def.ID, err)
		}
	}
	return nil
}
