package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Dosada05/match-arena/models"
)

// runInTx wraps fn in a transaction with rollback on error or panic. Engine
// invariants depend on this: a state transition either commits whole or is
// not observable at all.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SplitPrize divides the pool across n winners with integer division. The
// remainder is not redistributed across members; it goes to the captain (see
// SettlementService).
func SplitPrize(pool int64, memberCount int) (share int64, remainder int64) {
	if memberCount <= 0 {
		return 0, pool
	}
	share = pool / int64(memberCount)
	remainder = pool % int64(memberCount)
	return share, remainder
}

// teamLabel is what notifications call a team: its display name when the
// slot is claimed, the slot letter otherwise.
func teamLabel(team *models.Team) string {
	if team != nil && team.Claimed() {
		return *team.DisplayName
	}
	if team != nil {
		return "Team " + string(team.Slot)
	}
	return "Unknown team"
}

func matchRoom(matchID int) string {
	return fmt.Sprintf("match_%d", matchID)
}

// GetExtensionFromContentType resolves an upload's file extension from its
// declared content type. Only image types are accepted for evidence.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: '%s'", contentType)
	}
}
