package adns7550

import (
	"context"
	"fmt"
	"log/slog"
)

func (d *Dev) logerr(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelError, msg, attrs...)
}

func (d *Dev) warn(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelWarn, msg, attrs...)
}

func (d *Dev) info(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelInfo, msg, attrs...)
}

func (d *Dev) debug(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelDebug, msg, attrs...)
}

func (d *Dev) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	d.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// hexAttr formats a register byte the way the datasheet prints it.
func hexAttr(key string, v byte) slog.Attr {
	return slog.String(key, fmt.Sprintf("0x%02X", v))
}
