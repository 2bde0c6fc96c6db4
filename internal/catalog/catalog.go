package catalog

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultOwnerSlug identifies the reserved owner that collects orphaned
	// topics. It cannot be deleted and always sorts last.
	DefaultOwnerSlug = "default"

	defaultOwnerSortOrder = 999999

	// unsortedTopicTitle names the per-owner topic that receives materials
	// moved to an owner without picking a topic.
	unsortedTopicTitle = "Unsorted"
)

var (
	// ErrNotFound is returned when a referenced owner, topic or material row
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDefaultOwner is returned on attempts to delete the default owner.
	ErrDefaultOwner = errors.New("cannot delete default owner")
)

// Catalog persists owners, topics and materials.
type Catalog struct {
	db *gorm.DB
}

// New migrates the schema and seeds the default owner.
func New(db *gorm.DB) (*Catalog, error) {
	if err := db.AutoMigrate(&Owner{}, &Topic{}, &Material{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
	}

	// Seed the default owner; keep it sorted last even if an older row
	// carried a smaller sort order.
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"sort_order": defaultOwnerSortOrder}),
	}).Create(&Owner{
		Slug:      DefaultOwnerSlug,
		Name:      "General",
		SortOrder: defaultOwnerSortOrder,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to seed default owner: %w", err)
	}

	return &Catalog{db: db}, nil
}

// ListOwners returns all owners ordered by sort order, then id.
func (c *Catalog) ListOwners() ([]Owner, error) {
	var owners []Owner
	if err := c.db.Order("sort_order ASC, id ASC").Find(&owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

// CreateOwner inserts an owner. A blank slug gets an opaque generated one;
// re-using an existing slug updates that owner's name instead of failing.
func (c *Catalog) CreateOwner(slug, name string, sortOrder int) (*Owner, error) {
	if slug == "" {
		slug = "o" + strconv.FormatInt(time.Now().UnixMilli(), 36) + strconv.FormatInt(rand.Int63n(1<<20), 36)
	}
	owner := Owner{Slug: slug, Name: name, SortOrder: sortOrder}
	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&owner).Error
	if err != nil {
		return nil, err
	}
	// Re-read by slug so the upsert path returns the existing row's id.
	if err := c.db.Where("slug = ?", slug).First(&owner).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

// GetOwner returns an owner by id.
func (c *Catalog) GetOwner(id uint) (*Owner, error) {
	var owner Owner
	if err := c.db.First(&owner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &owner, nil
}

func (c *Catalog) getOwnerBySlug(slug string) (*Owner, error) {
	var owner Owner
	if err := c.db.Where("slug = ?", slug).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &owner, nil
}

// UpdateOwnerName renames an owner.
func (c *Catalog) UpdateOwnerName(id uint, name string) (*Owner, error) {
	owner, err := c.GetOwner(id)
	if err != nil {
		return nil, err
	}
	owner.Name = name
	if err := c.db.Model(owner).Update("name", name).Error; err != nil {
		return nil, err
	}
	return owner, nil
}

// DeleteOwner removes an owner after reassigning its topics to the default
// owner. The default owner itself is protected.
func (c *Catalog) DeleteOwner(id uint) error {
	def, err := c.getOwnerBySlug(DefaultOwnerSlug)
	if err != nil {
		return fmt.Errorf("default owner missing: %w", err)
	}
	if def.ID == id {
		return ErrDefaultOwner
	}
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Topic{}).Where("owner_id = ?", id).Update("owner_id", def.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&Owner{}, id).Error
	})
}

// ListTopicsWithMaterials returns the owner's topics ordered by sort order,
// each with its materials ordered by creation time. An unknown owner slug
// yields an empty list.
func (c *Catalog) ListTopicsWithMaterials(ownerSlug string) ([]Topic, error) {
	owner, err := c.getOwnerBySlug(ownerSlug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Topic{}, nil
		}
		return nil, err
	}
	topics := []Topic{}
	err = c.db.Where("owner_id = ?", owner.ID).
		Order("sort_order ASC, id ASC").
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// CreateTopic inserts a topic under the owner identified by slug.
func (c *Catalog) CreateTopic(title, ownerSlug string, sortOrder int) (*Topic, error) {
	owner, err := c.getOwnerBySlug(ownerSlug)
	if err != nil {
		return nil, err
	}
	topic := Topic{Title: title, SortOrder: sortOrder, OwnerID: owner.ID}
	if err := c.db.Create(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// TopicExists reports whether a topic row exists.
func (c *Catalog) TopicExists(id uint) (bool, error) {
	var count int64
	if err := c.db.Model(&Topic{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateTopicTitle renames a topic.
func (c *Catalog) UpdateTopicTitle(id uint, title string) (*Topic, error) {
	var topic Topic
	if err := c.db.First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	topic.Title = title
	if err := c.db.Model(&topic).Update("title", title).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// UpdateTopicOwner moves a topic under another owner.
func (c *Catalog) UpdateTopicOwner(topicID uint, ownerSlug string) error {
	owner, err := c.getOwnerBySlug(ownerSlug)
	if err != nil {
		return err
	}
	res := c.db.Model(&Topic{}).Where("id = ?", topicID).Update("owner_id", owner.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderTopics rewrites sort order from the position of each id in the
// given slice.
func (c *Catalog) ReorderTopics(ids []uint) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			if err := tx.Model(&Topic{}).Where("id = ?", id).Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTopic removes a topic and its material rows.
func (c *Catalog) DeleteTopic(id uint) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_id = ?", id).Delete(&Material{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Topic{}, id).Error
	})
}

// CreateMaterial records a promoted file under a topic. The topic must
// exist; the blob behind blobURL must already be fully written.
func (c *Catalog) CreateMaterial(m *Material) error {
	ok, err := c.TopicExists(m.TopicID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("topic %d: %w", m.TopicID, ErrNotFound)
	}
	if m.Title == "" {
		m.Title = m.FileName
	}
	m.IsPublic = true
	return c.db.Create(m).Error
}

// GetMaterial returns a material by id.
func (c *Catalog) GetMaterial(id uint) (*Material, error) {
	var m Material
	if err := c.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// DeleteMaterial removes a material row and returns the blob URL it
// referenced so the caller can attempt a best-effort blob delete.
func (c *Catalog) DeleteMaterial(id uint) (string, error) {
	m, err := c.GetMaterial(id)
	if err != nil {
		return "", err
	}
	if err := c.db.Delete(&Material{}, id).Error; err != nil {
		return "", err
	}
	return m.BlobURL, nil
}

// MoveMaterialToOwner reassigns a material to the owner's "Unsorted" topic,
// creating that topic if the owner does not have one yet.
func (c *Catalog) MoveMaterialToOwner(materialID uint, ownerSlug string) error {
	owner, err := c.getOwnerBySlug(ownerSlug)
	if err != nil {
		return err
	}
	var topic Topic
	err = c.db.Where("owner_id = ? AND title = ?", owner.ID, unsortedTopicTitle).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		topic = Topic{Title: unsortedTopicTitle, OwnerID: owner.ID}
		err = c.db.Create(&topic).Error
	}
	if err != nil {
		return err
	}
	res := c.db.Model(&Material{}).Where("id = ?", materialID).Update("topic_id", topic.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
