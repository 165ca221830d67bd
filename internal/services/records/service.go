package records

import (
	"context"
	"strings"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	AppendRecord(ctx context.Context, in models.RecordCreateInput) (*models.Record, error)
	ListRecords(ctx context.Context, userID *string) ([]*models.Record, error)
	RecordStats(ctx context.Context, userID string) (models.RecordStats, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append stores a reward or penalty entry. Records are never updated or deleted and may
// reference a commodity that no longer exists.
func (s *Service) Append(ctx context.Context, in models.RecordCreateInput) (*models.Record, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	switch {
	case in.UserID == "":
		return nil, errors.Wrap(models.ErrValidation, "userId is required")
	case strings.TrimSpace(in.Role) == "":
		return nil, errors.Wrap(models.ErrValidation, "role is required")
	case in.CommodityID == 0:
		return nil, errors.Wrap(models.ErrValidation, "commodityId is required")
	}
	return s.repo.AppendRecord(ctx, in)
}

func (s *Service) List(ctx context.Context, userID *string) ([]*models.Record, error) {
	return s.repo.ListRecords(ctx, userID)
}

// Reputation aggregates a user's records. A user is rated bad once reports exceed a tenth of
// all records.
func (s *Service) Reputation(ctx context.Context, userID string) (*models.Reputation, error) {
	st, err := s.repo.RecordStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Evaluate(userID, st)
}

// Evaluate turns raw record stats into a reputation. Zero records is ErrNotFound.
func Evaluate(userID string, st models.RecordStats) (*models.Reputation, error) {
	if st.RecordCount == 0 {
		return nil, errors.Wrapf(models.ErrNotFound, "no records for user %q", userID)
	}
	r := &models.Reputation{
		UserID:      userID,
		RecordCount: st.RecordCount,
		MeanReward:  float64(st.RewardSum) / float64(st.RecordCount),
		ReportCount: st.ReportCount,
		Evaluation:  models.EvaluationGood,
	}
	// reports > 10% of records, in integers
	if st.ReportCount*10 > st.RecordCount {
		r.Evaluation = models.EvaluationBad
	}
	return r, nil
}
