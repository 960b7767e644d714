package logging

// Logger appearance
const (
	// LogPrefix is shown before every log line
	LogPrefix = "konverge"

	// LogTimeFormat is the timestamp layout used by the logger
	LogTimeFormat = "15:04:05"
)
