package models

import "time"

// Repository is the persisted repository record of one owner.
type Repository struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Owner         string    `gorm:"column:owner;type:varchar(191);not null;uniqueIndex:idx_repository_identity,priority:1" json:"owner"`
	MachineName   string    `gorm:"column:machine_name;type:varchar(191);not null;uniqueIndex:idx_repository_identity,priority:2" json:"machine_name"`
	Source        string    `gorm:"column:source;type:varchar(64);not null;uniqueIndex:idx_repository_identity,priority:3" json:"source"`
	Label         string    `gorm:"column:label;type:varchar(255)" json:"label"`
	Description   string    `gorm:"column:description;type:text" json:"description"`
	NumOpenIssues int       `gorm:"column:num_open_issues;not null;default:0" json:"num_open_issues"`
	URL           string    `gorm:"column:url;type:varchar(512);not null;index:idx_repository_url" json:"url"`
	Hash          string    `gorm:"column:hash;type:char(64);not null" json:"hash"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (Repository) TableName() string {
	return "repositories"
}

// OwnerURL is one URL declared on an owner's profile.
type OwnerURL struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Owner     string    `gorm:"column:owner;type:varchar(191);not null;index:idx_owner_url_position,priority:1" json:"owner"`
	Position  int       `gorm:"column:position;not null;index:idx_owner_url_position,priority:2" json:"position"`
	URL       string    `gorm:"column:url;type:varchar(512);not null" json:"url"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (OwnerURL) TableName() string {
	return "owner_urls"
}

// All returns every model of the feature, for migrations and schema checks.
func All() []any {
	return []any{&Repository{}, &OwnerURL{}}
}
