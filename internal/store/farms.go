package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrFarmNotFound = errors.New("farm not found")

type Crop struct {
	Name         string     `json:"name"`
	Variety      string     `json:"variety,omitempty"`
	CurrentStage string     `json:"currentStage,omitempty"`
	PlantingDate *time.Time `json:"plantingDate,omitempty"`
	HarvestDate  *time.Time `json:"harvestDate,omitempty"`
}

type Farm struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	AreaAcres      *float64  `json:"areaAcres,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	SoilType       string    `json:"soilType,omitempty"`
	IrrigationType string    `json:"irrigationType,omitempty"`
	Active         bool      `json:"active"`
	Crops          []Crop    `json:"crops"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UpsertFarm inserts or replaces a farm and its ordered crop list. The first
// crop is the farm's primary crop.
func (s *Store) UpsertFarm(ctx context.Context, farm Farm) (Farm, error) {
	farm.ID = strings.TrimSpace(farm.ID)
	farm.Name = strings.TrimSpace(farm.Name)
	if farm.Name == "" {
		return Farm{}, fmt.Errorf("farm name is required")
	}
	if farm.ID == "" {
		farm.ID = "farm_" + uuid.NewString()
	}
	if farm.AreaAcres != nil && *farm.AreaAcres < 0.1 {
		return Farm{}, fmt.Errorf("farm area must be at least 0.1 acres")
	}
	nowUnix := s.now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Farm{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO farms (
			id, name, address, area_acres, latitude, longitude, soil_type, irrigation_type,
			active, created_at_unix, updated_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			area_acres = excluded.area_acres,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			soil_type = excluded.soil_type,
			irrigation_type = excluded.irrigation_type,
			updated_at_unix = excluded.updated_at_unix`,
		farm.ID,
		farm.Name,
		nullIfEmpty(strings.TrimSpace(farm.Address)),
		nullFloat(farm.AreaAcres),
		nullFloat(farm.Latitude),
		nullFloat(farm.Longitude),
		nullIfEmpty(strings.ToLower(strings.TrimSpace(farm.SoilType))),
		nullIfEmpty(strings.TrimSpace(farm.IrrigationType)),
		nowUnix,
		nowUnix,
	); err != nil {
		return Farm{}, fmt.Errorf("upsert farm: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM farm_crops WHERE farm_id = ?`, farm.ID); err != nil {
		return Farm{}, fmt.Errorf("clear farm crops: %w", err)
	}
	position := 0
	for _, crop := range farm.Crops {
		name := strings.TrimSpace(crop.Name)
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO farm_crops (
				farm_id, position, name, variety, current_stage, planting_date_unix, harvest_date_unix
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			farm.ID,
			position,
			name,
			nullIfEmpty(strings.TrimSpace(crop.Variety)),
			nullIfEmpty(strings.ToLower(strings.TrimSpace(crop.CurrentStage))),
			nullTimeUnix(crop.PlantingDate),
			nullTimeUnix(crop.HarvestDate),
		); err != nil {
			return Farm{}, fmt.Errorf("insert farm crop: %w", err)
		}
		position++
	}
	if err := tx.Commit(); err != nil {
		return Farm{}, fmt.Errorf("commit farm upsert: %w", err)
	}
	return s.GetFarm(ctx, farm.ID)
}

func (s *Store) GetFarm(ctx context.Context, id string) (Farm, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, address, area_acres, latitude, longitude, soil_type, irrigation_type,
			active, created_at_unix, updated_at_unix
		 FROM farms
		 WHERE id = ?`,
		strings.TrimSpace(id),
	)
	var (
		farm                         Farm
		address, soil, irrigation    sql.NullString
		area, latitude, longitude    sql.NullFloat64
		active                       int
		createdAtUnix, updatedAtUnix int64
	)
	if err := row.Scan(
		&farm.ID, &farm.Name, &address, &area, &latitude, &longitude, &soil, &irrigation,
		&active, &createdAtUnix, &updatedAtUnix,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Farm{}, ErrFarmNotFound
		}
		return Farm{}, fmt.Errorf("get farm: %w", err)
	}
	farm.Address = address.String
	farm.AreaAcres = floatPtr(area)
	farm.Latitude = floatPtr(latitude)
	farm.Longitude = floatPtr(longitude)
	farm.SoilType = soil.String
	farm.IrrigationType = irrigation.String
	farm.Active = active == 1
	farm.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	farm.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()

	crops, err := s.listFarmCrops(ctx, farm.ID)
	if err != nil {
		return Farm{}, err
	}
	farm.Crops = crops
	return farm, nil
}

func (s *Store) listFarmCrops(ctx context.Context, farmID string) ([]Crop, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name, variety, current_stage, planting_date_unix, harvest_date_unix
		 FROM farm_crops
		 WHERE farm_id = ?
		 ORDER BY position ASC`,
		farmID,
	)
	if err != nil {
		return nil, fmt.Errorf("list farm crops: %w", err)
	}
	defer rows.Close()

	crops := []Crop{}
	for rows.Next() {
		var (
			crop             Crop
			variety, stage   sql.NullString
			planted, harvest sql.NullInt64
		)
		if err := rows.Scan(&crop.Name, &variety, &stage, &planted, &harvest); err != nil {
			return nil, fmt.Errorf("scan farm crop: %w", err)
		}
		crop.Variety = variety.String
		crop.CurrentStage = stage.String
		crop.PlantingDate = timePtr(planted)
		crop.HarvestDate = timePtr(harvest)
		crops = append(crops, crop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate farm crops: %w", err)
	}
	return crops, nil
}

// ListFarmIDs returns active farms in creation order.
func (s *Store) ListFarmIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM farms WHERE active = 1 ORDER BY created_at_unix ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan farm id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate farms: %w", err)
	}
	return ids, nil
}
