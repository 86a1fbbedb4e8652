//go:build !linux && !darwin

package enum

import (
	"os"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// Access and change times are left zero where the platform stat is not wired.
func fileTimes(_ string, info os.FileInfo) types.FileTimes {
	return types.FileTimes{Modified: info.ModTime()}
}
