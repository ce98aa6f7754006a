package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/service"
)

// admintoken 签发管理端 token，或为 admin.password_hash 生成 bcrypt 哈希
func main() {
	var (
		username string
		password string
	)
	flag.StringVar(&username, "user", "", "签发 token 的用户名，缺省读取 admin.username")
	flag.StringVar(&password, "hash", "", "仅输出该密码的 bcrypt 哈希")
	flag.Parse()

	if password != "" {
		hash, err := service.HashPassword(password)
		if err != nil {
			log.Fatalf("生成哈希失败: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg := config.Load()
	if username == "" {
		username = cfg.Admin.Username
	}
	token, expiresAt, err := service.NewAuthService(cfg.Admin).GenerateJWT(username)
	if err != nil {
		log.Fatalf("签发 token 失败: %v", err)
	}
	fmt.Println(token)
	fmt.Printf("expires_at: %s\n", expiresAt.Format(time.RFC3339))
}
