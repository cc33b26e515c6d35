package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"lamarkesa/pkg/domain"
)

const migrateLockID int64 = 52815281

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ItemModel{}, &UserModel{}, &SettingsModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveItem stores or replaces an item.
func (s *GormStore) SaveItem(item domain.Item) error {
	model := itemToModel(item)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "category", "sku", "image"}),
	}).Create(&model).Error
}

// UpdateItem merges only the provided fields into an existing item.
func (s *GormStore) UpdateItem(id string, upd domain.ItemUpdate) error {
	updates := updateColumns(upd)
	if len(updates) == 0 {
		return nil
	}
	res := s.db.Model(&ItemModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// GetItem retrieves an item.
func (s *GormStore) GetItem(id string) (domain.Item, bool, error) {
	var model ItemModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Item{}, false, nil
		}
		return domain.Item{}, false, err
	}
	return itemFromModel(model), true, nil
}

// ListItems returns every item ordered by creation time, newest first.
func (s *GormStore) ListItems() ([]domain.Item, error) {
	var models []ItemModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Item, 0, len(models))
	for _, m := range models {
		res = append(res, itemFromModel(m))
	}
	return res, nil
}

// DeleteItem removes an item document.
func (s *GormStore) DeleteItem(id string) error {
	return s.db.Delete(&ItemModel{}, "id = ?", id).Error
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "display_name", "role", "status", "updated_at"}),
	}).Create(&model).Error
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserSettings loads the settings document for a user.
func (s *GormStore) GetUserSettings(userID string) (domain.UserSettings, bool, error) {
	var model SettingsModel
	if err := s.db.First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserSettings{}, false, nil
		}
		return domain.UserSettings{}, false, err
	}
	return settingsFromModel(model), true, nil
}

// SaveUserSettings merge-writes the given fields over the stored document,
// creating it when absent, and returns the merged result.
func (s *GormStore) SaveUserSettings(userID string, fields map[string]any) (domain.UserSettings, error) {
	var merged domain.UserSettings
	err := s.db.Transaction(func(tx *gorm.DB) error {
		data := map[string]any{}
		var model SettingsModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "user_id = ?", userID).Error
		switch err {
		case nil:
			if len(model.Data) > 0 {
				if err := json.Unmarshal(model.Data, &data); err != nil {
					return fmt.Errorf("decode settings: %w", err)
				}
			}
		case gorm.ErrRecordNotFound:
			// first write creates the document
		default:
			return err
		}
		for k, v := range fields {
			data[k] = v
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		model = SettingsModel{
			UserID:    userID,
			Data:      datatypes.JSON(raw),
			UpdatedAt: time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(&model).Error; err != nil {
			return err
		}
		merged = settingsFromModel(model)
		return nil
	})
	if err != nil {
		return domain.UserSettings{}, err
	}
	return merged, nil
}

func itemToModel(item domain.Item) ItemModel {
	return ItemModel{
		ID:        item.ID,
		Name:      item.Name,
		Price:     item.Price,
		Category:  item.Category,
		SKU:       item.SKU,
		Image:     item.Image,
		CreatedAt: item.CreatedAt,
	}
}

func itemFromModel(m ItemModel) domain.Item {
	return domain.Item{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		Category:  m.Category,
		SKU:       m.SKU,
		Image:     m.Image,
		CreatedAt: m.CreatedAt,
	}
}

func updateColumns(upd domain.ItemUpdate) map[string]any {
	updates := map[string]any{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Price != nil {
		updates["price"] = *upd.Price
	}
	if upd.Category != nil {
		updates["category"] = *upd.Category
	}
	if upd.SKU != nil {
		updates["sku"] = *upd.SKU
	}
	if upd.Image != nil {
		updates["image"] = *upd.Image
	}
	return updates
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Role:         string(u.Role),
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	status := domain.UserStatus(m.Status)
	if status == "" {
		status = domain.StatusActive
	}
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		DisplayName:  m.DisplayName,
		Role:         domain.UserRole(m.Role),
		Status:       status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func settingsFromModel(m SettingsModel) domain.UserSettings {
	data := map[string]any{}
	if len(m.Data) > 0 {
		_ = json.Unmarshal(m.Data, &data)
	}
	return settingsFromMap(data)
}

func settingsFromMap(data map[string]any) domain.UserSettings {
	settings := domain.DefaultUserSettings()
	if v, ok := data["openaiApiKey"].(string); ok {
		settings.OpenAIAPIKey = v
	}
	extra := map[string]any{}
	for k, v := range data {
		if k == "openaiApiKey" {
			continue
		}
		extra[k] = v
	}
	if len(extra) > 0 {
		settings.Extra = extra
	}
	return settings
}
