package systembundle

import (
	"context"
	"errors"
	"time"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"onlab_backend/app/core"
)

var now = time.Now

// UpsertAccount creates the account of a whitelisted login or refreshes its
// name, role and last login.
func UpsertAccount(ormDB *gorm.DB, email, displayName, subject string, role core.Role) (*core.User, error) {
	email = core.NormalizeEmail(email)
	user := core.User{}
	err := ormDB.Where("email = ?", email).First(&user).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	user.Email = email
	if displayName != "" {
		user.DisplayName = displayName
	}
	if subject != "" {
		user.Subject = subject
	}
	user.Role = role
	user.IsActive = true
	user.LastLoginAt = core.NullTime{Time: now(), Valid: true}

	if _, err := user.Save(ormDB); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetAccountPassword gives the account of a whitelisted email a local
// password, creating the account when needed.
func SetAccountPassword(ormDB *gorm.DB, email, password string) (*core.User, error) {
	if password == "" {
		return nil, errors.New("password empty")
	}
	if err := core.ValidatePassword(password); err != nil {
		return nil, err
	}
	email = core.NormalizeEmail(email)
	role, err := ResolveRole(ormDB, email)
	if err != nil {
		return nil, err
	}

	user := core.User{}
	err = ormDB.Where("email = ?", email).First(&user).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}
	user.Email = email
	user.Role = role
	user.IsActive = true
	user.PasswordX = password
	if _, err := user.Save(ormDB); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateSession issues a token for user, stores it in the session table and
// in the session store.
func CreateSession(ctx context.Context, ormDB *gorm.DB, sessions core.SessionStore, user *core.User, userAgent string) (string, error) {
	session := SystemAccountsSession{
		AccountId:    user.ID,
		SessionToken: core.NewSessionToken(),
		LoginTime:    core.NullTime{Time: now(), Valid: true},
		UserAgent:    userAgent,
	}
	if err := ormDB.Set("gorm:save_associations", false).Create(&session).Error; err != nil {
		return "", err
	}

	user.Token = session.SessionToken
	user.PasswordX = ""
	if err := sessions.Set(ctx, session.SessionToken, *user); err != nil {
		return "", err
	}
	return session.SessionToken, nil
}

func DeleteSession(ctx context.Context, ormDB *gorm.DB, sessions core.SessionStore, token string) error {
	if err := sessions.Delete(ctx, token); err != nil {
		return err
	}
	return ormDB.Unscoped().Where("session_token = ?", token).Delete(&SystemAccountsSession{}).Error
}

// RevokeAccountSessions logs an account out everywhere.
func RevokeAccountSessions(ctx context.Context, ormDB *gorm.DB, sessions core.SessionStore, accountId uint) error {
	if err := sessions.DeleteUser(ctx, accountId); err != nil {
		return err
	}
	return ormDB.Unscoped().Where("account_id = ?", accountId).Delete(&SystemAccountsSession{}).Error
}

// RestoreSessions loads the stored sessions younger than ttl of active
// accounts into the session store and returns how many were restored.
func RestoreSessions(ctx context.Context, ormDB *gorm.DB, sessions core.SessionStore, ttl time.Duration) (int, error) {
	accountsSessions := SystemAccountsSessions{}
	db := ormDB.Preload("Account")
	if ttl > 0 {
		db = db.Where("login_time > ?", now().Add(-ttl))
	}
	if err := db.Find(&accountsSessions).Error; err != nil {
		return 0, err
	}

	restored := 0
	for _, session := range accountsSessions {
		if session.Account.ID == 0 || !session.Account.IsActive {
			continue
		}
		session.Account.Token = session.SessionToken
		if err := sessions.Set(ctx, session.SessionToken, session.Account); err != nil {
			return restored, err
		}
		restored++
	}
	core.Logger.Info("restored account sessions", zap.Int("count", restored))
	return restored, nil
}
