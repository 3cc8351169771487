package fsutil

import (
	"os"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	removeAttempts  = 4
	removeBaseDelay = 100 * time.Millisecond
)

// RemoveAllRetry removes path, retrying with a doubling delay while another
// process holds a file open.
func RemoveAllRetry(path string) error {
	return removeAllWith(path, os.RemoveAll, removeBaseDelay)
}

func removeAllWith(path string, remove func(string) error, base time.Duration) error {
	return retry.Do(
		func() error { return remove(path) },
		retry.Attempts(removeAttempts),
		retry.Delay(base),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// Exists reports whether path exists without following a final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
