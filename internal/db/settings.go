package db

const (
	DefaultWarnThreshold         = 3
	DefaultMuteDurationHours     = 24
	DefaultServiceMsgDeleteAfter = 30
	DefaultEventMsgDeleteAfter   = 30
)

func DefaultSettings(chatID int64) *Settings {
	return &Settings{
		ID:                    chatID,
		Language:              "en",
		WarnThreshold:         DefaultWarnThreshold,
		MuteDurationHours:     DefaultMuteDurationHours,
		EditDeletionEnabled:   false,
		NSFWFilterEnabled:     false,
		SelfDestructSeconds:   0,
		ServiceMsgEnabled:     true,
		ServiceMsgDeleteAfter: DefaultServiceMsgDeleteAfter,
		EventMsgEnabled:       true,
		EventMsgDeleteAfter:   DefaultEventMsgDeleteAfter,
	}
}
