package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/tawnybot/tawnybot/internal/core/models"
)

// JSON error codes discord uses for things that don't exist
var unknownCodes = map[int]bool{
	discordgo.ErrCodeUnknownChannel: true,
	discordgo.ErrCodeUnknownGuild:   true,
	discordgo.ErrCodeUnknownMember:  true,
	discordgo.ErrCodeUnknownRole:    true,
}

// classify wraps err so callers can tell a missing guild/role/channel (models.ErrLookup)
// apart from everything else, which is treated as transient
func classify(msg string, err error) error {
	var re *discordgo.RESTError
	if errors.As(err, &re) {
		if re.Message != nil && unknownCodes[re.Message.Code] {
			return fmt.Errorf("%s: %w: %w", msg, models.ErrLookup, err)
		}
		if re.Response != nil && re.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %w", msg, models.ErrLookup, err)
		}
	}

	return fmt.Errorf("%s: %w: %w", msg, models.ErrTransientPlatform, err)
}
