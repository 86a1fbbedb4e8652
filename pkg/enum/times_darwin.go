//go:build darwin

package enum

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/praetorian-inc/panscan/pkg/types"
)

func fileTimes(path string, info os.FileInfo) types.FileTimes {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return types.FileTimes{Modified: info.ModTime()}
	}
	return types.FileTimes{
		Modified: time.Unix(st.Mtimespec.Unix()),
		Accessed: time.Unix(st.Atimespec.Unix()),
		Changed:  time.Unix(st.Ctimespec.Unix()),
	}
}
