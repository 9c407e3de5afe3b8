package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"LumiFM/config"

	_ "github.com/go-sql-driver/mysql"
)

// DB 是全局数据库连接
var DB *sql.DB

// ConnectDB 建立MySQL连接并配置连接池
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	DB.SetMaxIdleConns(10)
	DB.SetMaxOpenConns(50)
	DB.SetConnMaxLifetime(time.Hour)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB 初始化曲目表结构
func InitDB() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schema := `CREATE TABLE IF NOT EXISTS tracks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL,
		album VARCHAR(255) DEFAULT '',
		duration DOUBLE NOT NULL DEFAULT 0,
		audio_key VARCHAR(512) NOT NULL,
		cover_key VARCHAR(512) DEFAULT '',
		track_order INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_track_order (track_order)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

	if _, err := DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	return nil
}
