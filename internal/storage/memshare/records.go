package memshare

import (
	"context"

	"github.com/BearBump/ShareBox/internal/models"
)

func (s *Storage) AppendRecord(_ context.Context, in models.RecordCreateInput) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRecordID++
	r := &models.Record{
		ID:          s.nextRecordID,
		UserID:      in.UserID,
		Role:        in.Role,
		CommodityID: in.CommodityID,
		Reward:      in.Reward,
		Reason:      in.Reason,
		CreatedAt:   s.now(),
	}
	s.records = append(s.records, r)

	out := *r
	return &out, nil
}

func (s *Storage) ListRecords(_ context.Context, userID *string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Record{}
	for _, r := range s.records {
		if userID != nil && r.UserID != *userID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Storage) RecordStats(_ context.Context, userID string) (models.RecordStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st models.RecordStats
	for _, r := range s.records {
		if r.UserID != userID {
			continue
		}
		st.RecordCount++
		st.RewardSum += r.Reward
		if r.Reason == models.RecordReasonReport {
			st.ReportCount++
		}
	}
	return st, nil
}
