package repository

import (
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type UserEntity struct {
	ID                int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name              string `gorm:"column:name;not null"`
	Email             string `gorm:"column:email;uniqueIndex;not null"`
	Role              int    `gorm:"column:role;not null;default:0"`
	WithdrawalPINHash string `gorm:"column:withdrawal_pin_hash"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:                e.ID,
		Name:              e.Name,
		Email:             e.Email,
		Role:              e.Role,
		WithdrawalPINHash: e.WithdrawalPINHash,
	}
}
