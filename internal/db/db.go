package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Init 初始化数据库连接并执行自动迁移。
// dsn 为空时 sqlite 将回退到默认值 quickblog.db。
func Init(driver, dsn string) error {
	gdb, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 按驱动打开连接并迁移核心模型，不修改全局 DB。
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// 级联删除由服务层在事务中完成
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates the tables for every model.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&User{},
		&Blog{},
		&Comment{},
	)
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	dsn = strings.TrimSpace(dsn)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		if dsn == "" {
			dsn = "quickblog.db"
		}
		if !strings.HasPrefix(dsn, "file:") {
			if err := ensureParentDir(dsn); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres dsn is required")
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
