package models

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `gorm:"not null"                 json:"role"`
}

// TokenKind distinguishes the two ledger entry flavors. The access and
// refresh halves of a pair are stored as two rows sharing a user id.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// TokenEntry is one row of the revocation ledger. Revoked is monotonic:
// it is only ever flipped from false to true.
type TokenEntry struct {
	ID      uint      `gorm:"primaryKey"      json:"id"`
	Token   string    `gorm:"unique;not null" json:"token"`
	Kind    TokenKind `gorm:"not null"        json:"kind"`
	UserID  uint      `gorm:"index;not null"  json:"user_id"`
	Revoked bool      `gorm:"default:false"   json:"revoked"`
}
