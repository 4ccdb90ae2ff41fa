package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
)

// UserRepository 只读访问账号目录
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID 不存在时返回 gorm.ErrRecordNotFound
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user := new(model.User)
	if err := r.db.WithContext(ctx).First(user, id).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetByIDs 批量解析联系方式，缺失的 id 不出现在结果中
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	byID := make(map[int64]*model.User, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	var users []*model.User
	err := r.db.WithContext(ctx).
		Select("id", "display_name", "phone", "email", "role").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}
