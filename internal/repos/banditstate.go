package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	"github.com/momentumhq/momentum-backend/internal/logger"
	"github.com/momentumhq/momentum-backend/internal/types"
)

// BanditStateRepo is the persistence facade for per-user arm
// posteriors. Get returns an empty map (never nil semantics beyond the
// zero map) when the user has no history; Save overwrites the full
// state, last write wins.
type BanditStateRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (bandit.UserState, error)
	Save(ctx context.Context, tx *gorm.DB, userID uuid.UUID, state bandit.UserState) error
}

type banditStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBanditStateRepo(db *gorm.DB, baseLog *logger.Logger) BanditStateRepo {
	repoLog := baseLog.With("repo", "BanditStateRepo")
	return &banditStateRepo{db: db, log: repoLog}
}

func (r *banditStateRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (bandit.UserState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []*types.BanditArmState
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	state := make(bandit.UserState, len(rows))
	for _, row := range rows {
		state[row.ArmID] = bandit.ArmState{
			Alpha:     row.Alpha,
			Beta:      row.Beta,
			Trials:    row.Trials,
			UpdatedAt: row.UpdatedAt,
		}
	}
	return state, nil
}

func (r *banditStateRepo) Save(ctx context.Context, tx *gorm.DB, userID uuid.UUID, state bandit.UserState) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(state) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]*types.BanditArmState, 0, len(state))
	for armID, st := range state {
		updatedAt := st.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		rows = append(rows, &types.BanditArmState{
			ID:        uuid.New(),
			UserID:    userID,
			ArmID:     armID,
			Alpha:     st.Alpha,
			Beta:      st.Beta,
			Trials:    st.Trials,
			CreatedAt: now,
			UpdatedAt: updatedAt,
		})
	}

	// Full-state overwrite per (user, arm).
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "arm_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"alpha", "beta", "trials", "updated_at",
			}),
		}).
		Create(&rows).Error
}
