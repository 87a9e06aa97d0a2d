package schedule

import (
	"fmt"
	"time"
)

// DeletionKey names a deferred message deletion so a later reschedule
// or cancel targets the same pending task.
func DeletionKey(chatID int64, messageID int) string {
	return fmt.Sprintf("delete:%d:%d", chatID, messageID)
}

func Seconds(n uint) time.Duration {
	return time.Duration(n) * time.Second
}
