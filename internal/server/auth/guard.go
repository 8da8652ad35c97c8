package auth

import (
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// CheckAccountStatus rejects accounts that may not act even with a valid
// token. Checks run in a fixed order: enabled, locked, expired, credentials.
func CheckAccountStatus(u *models.User) error {
	switch {
	case !u.Enabled:
		return common.ErrAccountDisabled
	case !u.AccountNonLocked:
		return common.ErrAccountLocked
	case !u.AccountNonExpired:
		return common.ErrAccountExpired
	case !u.CredentialsNonExpired:
		return common.ErrCredentialsExpired
	}
	return nil
}
