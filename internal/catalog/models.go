package catalog

import "time"

// Owner groups topics under one person, e.g. a lecturer. The reserved
// "default" owner always exists and collects topics whose owner was removed.
type Owner struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"not null" json:"name"`
	SortOrder int       `gorm:"default:0" json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// Topic is one ordered group of course materials.
type Topic struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"not null" json:"title"`
	SortOrder int        `gorm:"default:0" json:"sortOrder"`
	OwnerID   uint       `gorm:"index" json:"ownerId"`
	CreatedAt time.Time  `json:"createdAt"`
	Materials []Material `gorm:"constraint:OnDelete:CASCADE" json:"materials,omitempty"`
}

// Material is one promoted file: its metadata row always references a blob
// that was fully written to object storage before the row was created.
type Material struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TopicID     uint      `gorm:"not null;index" json:"topicId"`
	Title       string    `gorm:"not null" json:"title"`
	FileName    string    `gorm:"not null" json:"fileName"`
	ContentType string    `json:"contentType"`
	FileSize    int64     `json:"fileSize"`
	BlobURL     string    `gorm:"not null" json:"blobUrl"`
	IsPublic    bool      `gorm:"default:true" json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
}
