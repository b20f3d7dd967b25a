package systembundle

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/gorm"
	"github.com/tealeg/xlsx"

	"onlab_backend/app/core"
)

var (
	ErrNotWhitelisted = errors.New("email is not whitelisted")
	ErrSuperAdmin     = errors.New("super admins cannot be removed from the whitelist")
)

func IsSuperAdmin(email string) bool {
	email = core.NormalizeEmail(email)
	for _, admin := range core.Config.Auth.SuperAdminEmails {
		if core.NormalizeEmail(admin) == email {
			return true
		}
	}
	return false
}

func FindWhitelistEntry(ormDB *gorm.DB, email string) (*WhitelistEntry, error) {
	entry := WhitelistEntry{}
	if err := ormDB.Where("email = ?", core.NormalizeEmail(email)).First(&entry).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	entry.IsSuperAdmin = IsSuperAdmin(entry.Email)
	return &entry, nil
}

// ResolveRole returns the role an email logs in with. Configured super admins
// are always lab admins, everybody else needs a whitelist entry.
func ResolveRole(ormDB *gorm.DB, email string) (core.Role, error) {
	if IsSuperAdmin(email) {
		return core.RoleLabAdmin, nil
	}
	entry, err := FindWhitelistEntry(ormDB, email)
	if errors.Is(err, core.ErrNotFound) {
		return "", ErrNotWhitelisted
	}
	if err != nil {
		return "", err
	}
	return entry.Role, nil
}

func ListWhitelist(ormDB *gorm.DB) (WhitelistEntries, error) {
	entries := WhitelistEntries{}
	if err := ormDB.Order("email asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].IsSuperAdmin = IsSuperAdmin(entries[i].Email)
	}
	return entries, nil
}

// SaveWhitelistEntry adds the email or changes its role. When an existing
// account loses or gains a role its id is returned so its sessions can be revoked.
func SaveWhitelistEntry(ormDB *gorm.DB, entry *WhitelistEntry) (uint, error) {
	entry.Email = core.NormalizeEmail(entry.Email)
	if !entry.Validate() {
		return 0, fmt.Errorf("invalid whitelist entry %q", entry.Email)
	}

	existing := WhitelistEntry{}
	err := ormDB.Where("email = ?", entry.Email).First(&existing).Error
	switch {
	case gorm.IsRecordNotFoundError(err):
		entry.ID = 0
		if err := ormDB.Create(entry).Error; err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	default:
		entry.Model = existing.Model
		if err := ormDB.Model(&existing).Updates(map[string]interface{}{"role": entry.Role, "added_by": entry.AddedBy}).Error; err != nil {
			return 0, err
		}
	}
	entry.IsSuperAdmin = IsSuperAdmin(entry.Email)

	if entry.IsSuperAdmin {
		return 0, nil
	}
	user := core.User{}
	if err := ormDB.Where("email = ?", entry.Email).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, nil
		}
		return 0, err
	}
	if user.Role == entry.Role {
		return 0, nil
	}
	if err := ormDB.Model(&core.User{}).Where("id = ?", user.ID).UpdateColumn("role", entry.Role).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

// RemoveWhitelistEntry deletes the entry, deactivates the account and drops
// its stored sessions. The account id is returned, 0 when there is none.
func RemoveWhitelistEntry(ormDB *gorm.DB, email string) (uint, error) {
	email = core.NormalizeEmail(email)
	if IsSuperAdmin(email) {
		return 0, ErrSuperAdmin
	}
	if _, err := FindWhitelistEntry(ormDB, email); err != nil {
		return 0, err
	}

	tx := ormDB.Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	if err := tx.Unscoped().Where("email = ?", email).Delete(&WhitelistEntry{}).Error; err != nil {
		tx.Rollback()
		return 0, err
	}

	user := core.User{}
	err := tx.Where("email = ?", email).First(&user).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		tx.Rollback()
		return 0, err
	}
	if user.ID > 0 {
		if err := tx.Model(&core.User{}).Where("id = ?", user.ID).UpdateColumn("is_active", false).Error; err != nil {
			tx.Rollback()
			return 0, err
		}
		if err := tx.Unscoped().Where("account_id = ?", user.ID).Delete(&SystemAccountsSession{}).Error; err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

// ImportWhitelist reads the first sheet of a workbook with email and role
// columns. An empty role means sampler. The ids of accounts whose role changed
// are returned next to the result.
func ImportWhitelist(ormDB *gorm.DB, data []byte, addedBy string) (ImportResult, []uint, error) {
	result := ImportResult{Errors: ImportErrors{}}
	changed := []uint{}

	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return result, nil, fmt.Errorf("reading workbook: %w", err)
	}
	if len(file.Sheets) == 0 || len(file.Sheets[0].Rows) == 0 {
		return result, nil, errors.New("workbook is empty")
	}

	sheet := file.Sheets[0]
	headers := core.GetHeaderIndexes(sheet.Rows[0])
	if _, ok := headers[ImportColumn_Email]; !ok {
		return result, nil, fmt.Errorf("column %q missing", ImportColumn_Email)
	}

	for i, row := range sheet.Rows[1:] {
		rowNumber := i + 2
		if row == nil || core.IsEmptyExcelRow(row) {
			result.Skipped++
			continue
		}

		entry := WhitelistEntry{
			Email:   core.GetString(row, headers, ImportColumn_Email),
			Role:    core.Role(strings.ToLower(core.GetString(row, headers, ImportColumn_Role))),
			AddedBy: addedBy,
		}
		if entry.Role == "" {
			entry.Role = core.RoleSampler
		}

		accountId, err := SaveWhitelistEntry(ormDB, &entry)
		if err != nil {
			message := err.Error()
			if len(entry.Errors) > 0 {
				message = errorText(entry.Errors)
			}
			result.Errors = append(result.Errors, ImportError{RowNumber: rowNumber, Email: entry.Email, ErrorMessage: message})
			continue
		}
		if accountId > 0 {
			changed = append(changed, accountId)
		}
		result.Imported++
	}
	return result, changed, nil
}

func errorText(errs map[string]string) string {
	texts := []string{}
	for key, text := range errs {
		texts = append(texts, key+": "+text)
	}
	sort.Strings(texts)
	return strings.Join(texts, ", ")
}
