package common

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lmittmann/tint"
)

// ConfigureSlog so that it easy to locate the source file & line as the Goland IDE picks up the relative file path.
func ConfigureSlog(writeTo io.Writer, level slog.Level) {
	wd, err := os.Getwd()
	var tintHandler slog.Handler
	if err != nil {
		slog.Error("Unable to find working dir, falling back to default slog Config")
		tintHandler = tint.NewHandler(writeTo, &tint.Options{AddSource: true, Level: level})
	} else {
		unixPath := filepath.ToSlash(wd)
		tintHandler = tint.NewHandler(writeTo, &tint.Options{
			AddSource: true,
			Level:     level,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key != slog.SourceKey {
					return attr
				}
				source, ok := attr.Value.Any().(*slog.Source)
				if !ok {
					return attr
				}
				var sb strings.Builder
				sb.WriteString("." + strings.TrimPrefix(source.File, unixPath))
				sb.WriteString(":")
				sb.WriteString(strconv.Itoa(source.Line))
				return slog.Attr{Key: attr.Key, Value: slog.StringValue(sb.String())}
			},
		})
	}
	slog.SetDefault(slog.New(tintHandler))
}

// LevelForEnv is debug everywhere except prod
func LevelForEnv(env string) slog.Level {
	if env == "prod" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
