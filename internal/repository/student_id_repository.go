package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// StudentIDFunctionRepository 调用数据库端的学号生成函数
type StudentIDFunctionRepository struct {
	DB       *gorm.DB
	Function string
}

func NewStudentIDFunctionRepository(db *gorm.DB, function string) *StudentIDFunctionRepository {
	return &StudentIDFunctionRepository{DB: db, Function: function}
}

func (r *StudentIDFunctionRepository) Call(ctx context.Context, countryCode, stateCode string) (string, error) {
	if r.Function == "" {
		return "", errors.New("student id function not configured")
	}

	var id sql.NullString
	err := r.DB.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT %s(?, ?)", r.Function), countryCode, stateCode).
		Row().
		Scan(&id)
	if err != nil {
		return "", err
	}
	if !id.Valid {
		return "", errors.New("student id function returned null")
	}
	return id.String, nil
}
