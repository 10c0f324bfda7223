package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// emailの一意制約違反
var ErrDuplicateEmail = errors.New("email already used")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	//IDからユーザーを1件取得する。見つからなければ(nil, nil)。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを1件取得する。見つからなければ(nil, nil)。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//ユーザー情報の更新（アクティブ状態・最終ログインなど）
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを+1（強制ログアウト）
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
