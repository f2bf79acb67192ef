package repository

import (
	"context"
	"educonnect_backend/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据归账号服务所有，这里只读
type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// NamesByIDs 返回 ID 到姓名的映射，不存在的 ID 不出现在结果中
func (r *UserRepository) NamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var users []model.User
	if err := r.DB.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}
