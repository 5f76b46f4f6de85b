package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/firesweep/storage"
)

// PurgeSweep removes a sweep's archived logs from archive, when archive is
// set, and then its stored results. Logs that are already gone are ignored.
// Rows are only deleted once every log was removed, so a failed purge can be
// retried.
func PurgeSweep(ctx context.Context, store Store, archive storage.ArtifactStore, sweepID uuid.UUID) (int, error) {
	if archive != nil {
		total, err := store.CountBySweep(ctx, sweepID)
		if err != nil {
			return 0, err
		}
		records, err := store.ListBySweep(ctx, sweepID, total, 0)
		if err != nil {
			return 0, err
		}
		for _, r := range records {
			if r.LogKey == "" {
				continue
			}
			err := archive.Delete(ctx, r.LogKey)
			if err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				return 0, fmt.Errorf("failed to delete archived log %s: %w", r.LogKey, err)
			}
		}
	}

	return store.DeleteBySweep(ctx, sweepID)
}
