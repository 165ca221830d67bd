package models

import "time"

const RecordReasonReport = "report"

const (
	EvaluationGood = "good"
	EvaluationBad  = "bad"
)

type Record struct {
	ID          uint64
	UserID      string
	Role        string
	CommodityID uint64
	Reward      int64
	Reason      string
	CreatedAt   time.Time
}

type RecordCreateInput struct {
	UserID      string
	Role        string
	CommodityID uint64
	Reward      int64
	Reason      string
}

// RecordStats is the raw aggregate the store computes for one user.
type RecordStats struct {
	RecordCount int64
	RewardSum   int64
	ReportCount int64
}

type Reputation struct {
	UserID      string
	RecordCount int64
	MeanReward  float64
	ReportCount int64
	Evaluation  string
}
