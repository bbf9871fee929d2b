package repository

import (
	"github.com/biblestudybuddy/studybuddy/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository instance
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(group *models.Group) error {
	return r.db.Create(group).Error
}

func (r *groupRepository) GetByID(id uint) (*models.Group, error) {
	var g models.Group
	if err := r.db.First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupRepository) GetByJoinCode(code string) (*models.Group, error) {
	var g models.Group
	if err := r.db.Where("join_code = ?", code).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupRepository) JoinCodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Group{}).Where("join_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) CountCreatedBy(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Group{}).Where("created_by = ?", userID).Count(&count).Error
	return count, err
}

// AddMember inserts the membership unless it already exists and reports
// whether a new row was written.
func (r *groupRepository) AddMember(userID, groupID uint) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "group_id"},
		},
		DoNothing: true,
	}).Create(&models.UserGroup{UserID: userID, GroupID: groupID})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *groupRepository) IsMember(userID, groupID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserGroup{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) GroupIDsForUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.UserGroup{}).
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	return ids, err
}

func (r *groupRepository) ListForUser(userID uint) ([]GroupWithStats, error) {
	var groups []models.Group
	err := r.db.
		Joins("JOIN user_groups ON user_groups.group_id = groups.id").
		Where("user_groups.user_id = ?", userID).
		Order("groups.created_at ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []GroupWithStats{}, nil
	}

	ids := make([]uint, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}

	var counts []struct {
		GroupID uint
		Total   int64
	}
	err = r.db.Model(&models.UserGroup{}).
		Select("group_id, COUNT(*) AS total").
		Where("group_id IN ?", ids).
		Group("group_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byGroup := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byGroup[c.GroupID] = c.Total
	}

	result := make([]GroupWithStats, 0, len(groups))
	for _, g := range groups {
		result = append(result, GroupWithStats{
			Group:     g,
			UserCount: byGroup[g.ID],
			IsCreator: g.CreatedBy == userID,
		})
	}
	return result, nil
}

func (r *groupRepository) Members(groupID uint) ([]GroupMember, error) {
	var members []GroupMember
	err := r.db.Table("user_groups").
		Select("users.id AS id, users.email AS email, users.created_at AS created_at").
		Joins("JOIN users ON users.id = user_groups.user_id").
		Where("user_groups.group_id = ?", groupID).
		Order("user_groups.id ASC").
		Scan(&members).Error
	return members, err
}
