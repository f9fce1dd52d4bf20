package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cedana/cedana-spot/types"
	"github.com/glebarez/sqlite"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrEmptyID is returned by lookups given an empty id, which would otherwise
// match arbitrary rows.
var ErrEmptyID = errors.New("empty instance id")

type DB struct {
	logger *zerolog.Logger
	orm    *gorm.DB
}

// NewDB opens (and migrates) the sqlite ledger at path, creating the parent
// folder if needed.
func NewDB(path string, l *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create ledger folder: %w", err)
	}

	orm, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := orm.AutoMigrate(&types.SpotInstance{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{
		logger: l,
		orm:    orm,
	}, nil
}

// we want to include deleted instances in this call
func (db *DB) GetAllInstances() ([]types.SpotInstance, error) {
	var instances []types.SpotInstance
	result := db.orm.Unscoped().Order("id").Find(&instances)
	return instances, result.Error
}

func (db *DB) GetActiveInstances() ([]types.SpotInstance, error) {
	var instances []types.SpotInstance
	result := db.orm.Order("id").Find(&instances)
	return instances, result.Error
}

func (db *DB) GetInstancesByState(state types.InstanceState) ([]types.SpotInstance, error) {
	var instances []types.SpotInstance
	result := db.orm.Where("state = ?", state).Order("id").Find(&instances)
	return instances, result.Error
}

func (db *DB) GetInstanceByCedanaID(cid string) (*types.SpotInstance, error) {
	if cid == "" {
		return nil, ErrEmptyID
	}
	var instance types.SpotInstance
	result := db.orm.Where("cedana_id = ?", cid).First(&instance)
	if result.Error != nil {
		return nil, fmt.Errorf("could not find instance %s: %w", cid, result.Error)
	}
	return &instance, nil
}

func (db *DB) GetInstanceByProviderID(id string) (*types.SpotInstance, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	var instance types.SpotInstance
	result := db.orm.Where("allocated_id = ?", id).First(&instance)
	if result.Error != nil {
		return nil, fmt.Errorf("could not find instance %s: %w", id, result.Error)
	}
	return &instance, nil
}

func (db *DB) GetInstanceBySpotRequestID(id string) (*types.SpotInstance, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	var instance types.SpotInstance
	result := db.orm.Where("spot_request_id = ?", id).First(&instance)
	if result.Error != nil {
		return nil, fmt.Errorf("could not find spot request %s: %w", id, result.Error)
	}
	return &instance, nil
}

func (db *DB) CreateInstance(instance *types.SpotInstance) (*types.SpotInstance, error) {
	instance.CedanaID = xid.New().String()
	if db.logger != nil {
		db.logger.Info().Str("cedana_id", instance.CedanaID).Msg("recording spot instance")
	}
	if err := db.orm.Create(instance).Error; err != nil {
		return nil, err
	}
	return instance, nil
}

func (db *DB) UpdateInstance(instance *types.SpotInstance) error {
	if instance == nil {
		return nil
	}
	return db.orm.Model(instance).Updates(instance).Error
}

// we embed gorm.Model in the instance struct, so these are soft deletes!
func (db *DB) DeleteInstance(instance *types.SpotInstance) error {
	instance.State = types.StateDestroyed

	if err := db.UpdateInstance(instance); err != nil {
		return err
	}
	return db.orm.Delete(instance).Error
}
