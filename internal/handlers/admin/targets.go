package admin

import (
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	errs "github.com/iamwavecut/gmbot/internal/errors"
)

// ResolveTarget finds the user an administrative command addresses:
// the replied-to sender first, then a text-mention entity, then a
// numeric ID argument. A bare @username cannot be resolved through the
// platform API and reports as unresolved.
func ResolveTarget(msg *api.Message) (*api.User, error) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From, nil
	}

	for _, entity := range msg.Entities {
		if entity.Type == "text_mention" && entity.User != nil {
			return entity.User, nil
		}
	}

	for _, field := range strings.Fields(msg.CommandArguments()) {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		return &api.User{ID: id}, nil
	}

	return nil, errors.WithMessage(errs.ErrUnresolvedTarget, "reply to the user, text-mention them or pass their numeric ID")
}

// argumentsWithoutTarget strips the numeric target ID so commands like
// "/warnings 123456" and a plain reply parse the same way.
func argumentsWithoutTarget(msg *api.Message) string {
	fields := strings.Fields(msg.CommandArguments())
	kept := make([]string, 0, len(fields))
	skipped := false
	for _, field := range fields {
		if !skipped {
			if _, err := strconv.ParseInt(field, 10, 64); err == nil {
				skipped = true
				continue
			}
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}
