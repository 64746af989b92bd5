package repo

import "gorm.io/gorm"

// GormRepo owns all reads and writes for users and the token ledger.
// Ledger mutations go through RevokeAll/RevokeOne/Record so the revoked
// flag stays monotonic.
type GormRepo struct {
	DB *gorm.DB
}
