package logging_test

import "log/slog"

func slogGroup() slog.Attr {
	return slog.Group("stats", slog.Int("frames", 98))
}
