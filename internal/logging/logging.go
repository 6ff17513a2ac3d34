package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// AppName prefixes log, dump and export file names.
const AppName = "mapreader"

// LogFilePath builds the session log file path: <logsDir>/mapreader.<start>.log
func LogFilePath(logsDir string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", AppName, sessionStart.Format("20060102_150405")),
	)
}
