package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rtcwstats/internal/store"
)

// GroupRecord casts a named match grouping (a monthly period per bucket) to
// its record form.
func GroupRecord(name, regionType string, matchIDs []string) (store.Record, error) {
	data, err := json.Marshal(map[string]any{
		"group_name": name,
		"matches":    matchIDs,
	})
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to marshal group %s: %w", name, err)
	}
	return store.Record{
		PK:     pkGroup,
		SK:     name,
		GSI1PK: pkGroup + "#" + regionType,
		GSI1SK: name,
		Data:   data,
	}, nil
}

// GroupExists reports whether a grouping has already been written.
func GroupExists(ctx context.Context, st store.Store, name string) (bool, error) {
	_, err := st.Get(ctx, pkGroup, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check group %s: %w", name, err)
}
