package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"LumiFM/config"
	"LumiFM/logger"
)

var minioClient *minio.Client

// PresignExpiry 预签名链接的有效期。曲目在一次会话内反复播放，
// 链接过期由前端重新拉取目录解决。
const PresignExpiry = 6 * time.Hour

// InitMinio 初始化 MinIO 客户端并确认存储桶存在。
// 未配置 endpoint 时跳过（本地开发直接用静态路径播放）。
func InitMinio(cfg *config.Config) error {
	if cfg.MinioEndpoint == "" {
		logger.Info("MinIO 未配置，音源使用静态路径")
		return nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶 %s 不存在", cfg.MinioBucket)
	}

	minioClient = client
	logger.Info("MinIO 连接成功", logger.String("bucket", cfg.MinioBucket))
	return nil
}

// Enabled 返回对象存储是否可用。
func Enabled() bool {
	return minioClient != nil
}

// PresignedURL 为对象生成限时下载链接，作为曲目的可播放 URI。
func PresignedURL(ctx context.Context, bucket, key string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}
	u, err := minioClient.PresignedGetObject(ctx, bucket, key, PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成预签名链接失败 %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}
