package services

import (
	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/storage"
)

// isValidRegistrationTransition encodes the registration state machine.
// withdrawn is terminal; waitlisted -> confirmed is the promotion path.
func isValidRegistrationTransition(current, next models.RegistrationStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.RegistrationStatus][]models.RegistrationStatus{
		models.RegistrationRegistered: {models.RegistrationConfirmed, models.RegistrationWithdrawn},
		models.RegistrationWaitlisted: {models.RegistrationConfirmed, models.RegistrationWithdrawn},
		models.RegistrationConfirmed:  {models.RegistrationWithdrawn},
		models.RegistrationWithdrawn:  {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

func populatePlayerAvatarURL(player *models.Player, uploader storage.FileUploader) {
	if player == nil || uploader == nil {
		return
	}
	if player.AvatarKey != nil && *player.AvatarKey != "" {
		url := uploader.GetPublicURL(*player.AvatarKey)
		if url != "" {
			player.AvatarURL = &url
		}
	}
}
