package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/rsrank/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "PostgreSQL 저장소 관리",
}

var dbCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "PostgreSQL 연결 및 스키마 확인",
	Long: `데이터베이스 연결을 테스트하고 rs 스키마를 생성한 뒤 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 데이터베이스 연결 생성 및 Ping
- rs 스키마/테이블 생성 (없을 때만)
- Connection Pool 통계 표시

Example:
  go run ./cmd/rsrank db check
  go run ./cmd/rsrank db check --env production`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCheckCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	PrintHeader("Database Check")
	PrintKeyValue("ENV", cfg.Env, 12)
	PrintKeyValue("Database URL", maskPassword(cfg.Database.URL), 12)
	PrintSeparator()

	db, err := database.New(cfg)
	if errors.Is(err, database.ErrDisabled) {
		PrintInfo("DATABASE_URL not set: runs use the JSON snapshot under DATA_DIR")
		return nil
	}
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess("Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		PrintError(err.Error())
		return err
	}
	PrintSuccess("Schema rs ready")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("health check: %w", err)
	}

	fmt.Println("\n📊 Connection Pool Statistics:")
	PrintKeyValue("Response Time", status.ResponseTime.String(), 16)
	PrintKeyValue("Max Conns", fmt.Sprint(status.Stats.MaxConns), 16)
	PrintKeyValue("Total Conns", fmt.Sprint(status.Stats.TotalConns), 16)
	PrintKeyValue("Acquired Conns", fmt.Sprint(status.Stats.AcquiredConns), 16)
	PrintKeyValue("Idle Conns", fmt.Sprint(status.Stats.IdleConns), 16)
	PrintKeyValue("Acquire Count", fmt.Sprint(status.Stats.AcquireCount), 16)

	return nil
}

// maskPassword hides the password of a connection URL for display
func maskPassword(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	return u.Redacted()
}
