package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/lol-pick/internal/engine"
)

type rosterRow struct {
	Key       string `gorm:"primaryKey;column:key"`
	Players   []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (rosterRow) TableName() string {
	return "rosters"
}

// Postgres stores rosters as jsonb rows, one per key.
type Postgres struct {
	db    *gorm.DB
	sqlDB *sql.DB
	pool  *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&rosterRow{}); err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("migrate rosters: %w", err)
	}

	return &Postgres{db: db, sqlDB: sqlDB, pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]engine.Player, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var row rosterRow
	err := p.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []engine.Player{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", key, err)
	}
	return decode(row.Players)
}

func (p *Postgres) Save(ctx context.Context, key string, players []engine.Player) error {
	row, err := newRosterRow(key, players, time.Now())
	if err != nil {
		return err
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"players", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save roster %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	err := p.sqlDB.Close()
	p.pool.Close()
	return err
}

func newRosterRow(key string, players []engine.Player, now time.Time) (rosterRow, error) {
	if err := checkKey(key); err != nil {
		return rosterRow{}, err
	}
	data, err := encode(players)
	if err != nil {
		return rosterRow{}, err
	}
	return rosterRow{Key: key, Players: data, UpdatedAt: now.UTC()}, nil
}
