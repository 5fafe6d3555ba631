package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestTuneSQLiteDSN(t *testing.T) {
	// 裸路径补齐全部默认参数
	dsn := tuneSQLiteDSN("./data/rps-arena.db")
	assert.Equal(t, "./data/rps-arena.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", dsn)

	// 配置里已经写了的参数不覆盖
	dsn = tuneSQLiteDSN("./data/rps-arena.db?_busy_timeout=100")
	assert.Equal(t, "./data/rps-arena.db?_busy_timeout=100&_journal_mode=WAL&_foreign_keys=on", dsn)

	dsn = tuneSQLiteDSN("file::memory:?cache=shared")
	assert.Contains(t, dsn, "cache=shared")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, parseLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
	// 未识别的值落到info
	assert.Equal(t, gormlogger.Info, parseLogLevel("verbose"))
}
