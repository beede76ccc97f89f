package service

import (
	"errors"

	"github.com/campuslink/campuslink-api/internal/dto"
)

// ErrForbidden indicates the acting user does not own the record the
// operation mutates.
var ErrForbidden = errors.New("insufficient permissions for this record")

// ActionsFor resolves the moderation menu for a record: owners may delete,
// everyone else may report. Exactly one capability is ever offered.
func ActionsFor(currentUserID, ownerID string) dto.ModerationCapabilities {
	if currentUserID != "" && currentUserID == ownerID {
		return dto.ModerationCapabilities{CanDelete: true}
	}
	return dto.ModerationCapabilities{CanReport: true}
}
