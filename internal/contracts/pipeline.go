package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭 라벨, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4
//   Data  Universe  Score  Rank  Report

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: 시세/프로필 수집
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageUniverse S1: 유니버스 필터 (history, volume, market cap, index membership)
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageScore S2: 벤치마크 대비 RS 점수 계산
	// 위치: internal/s2_rs/
	StageScore Stage = "S2_SCORE"

	// StageRank S3: 백분위 순위 및 표시 필터
	// 위치: internal/selection/
	StageRank Stage = "S3_RANK"

	// StageReport S4: CSV 출력
	// 위치: internal/report/
	StageReport Stage = "S4_REPORT"
)

// String returns the stage label
func (s Stage) String() string {
	return string(s)
}

// AllStages returns all stages in execution order
func AllStages() []Stage {
	return []Stage{StageData, StageUniverse, StageScore, StageRank, StageReport}
}
