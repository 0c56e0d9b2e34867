package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kube-rca/sage/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:          "sage",
	Short:        "sage runs the alert analysis pipeline for Kubernetes incidents",
	SilenceUsage: true,
	// 서브커맨드 없이 실행하면 API 서버 시작
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, ingestCmd)
}

// setup - .env 로드, 설정 검증, 로거 생성
func setup() (config.Config, *zap.Logger, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return config.Config{}, nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if lc.Format == "console" {
		logConfig = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	return logConfig.Build()
}
