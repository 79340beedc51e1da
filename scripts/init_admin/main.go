package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/quickblog/internal/config"
	"github.com/quickblog/internal/db"
)

// 创建后台管理员账号；用户名与密码默认取自 ADMIN_USERNAME / ADMIN_PASSWORD。
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}

	username := flag.String("username", cfg.AdminUserName, "admin username")
	password := flag.String("password", cfg.AdminPassword, "admin password")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("username and password are required (flags or ADMIN_USERNAME / ADMIN_PASSWORD)")
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabaseDSN); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	created, err := db.EnsureUser(db.DB, *username, *password)
	if err != nil {
		log.Fatal("创建用户失败:", err)
	}
	if !created {
		fmt.Printf("用户 %s 已存在，无需初始化\n", *username)
		return
	}

	fmt.Println("管理员用户创建成功")
	fmt.Printf("用户名: %s\n", *username)
}
