package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dekarrin/rezi"
	"github.com/dekarrin/xmilesim/server/dao"
	"github.com/google/uuid"
)

// modelRecord is the REZI-encoded envelope stored in the models table's data
// column. Splitting it out from the indexed id/owner_id/created/modified
// columns keeps the schema queryable on ownership while still letting the
// document body grow without a migration.
type modelRecord struct {
	Name        string
	Description string
	Source      []byte
}

func NewModelsDBConn(file string) (*ModelsDB, error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, wrapDBError(err)
	}
	return newModelsDB(db)
}

func newModelsDB(db *sql.DB) (*ModelsDB, error) {
	repo := &ModelsDB{db: db}

	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS models (
		id TEXT NOT NULL PRIMARY KEY,
		owner_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	);`)
	if err != nil {
		return nil, wrapDBError(err)
	}

	return repo, nil
}

type ModelsDB struct {
	db *sql.DB
}

func (repo *ModelsDB) Create(ctx context.Context, m dao.Model) (dao.Model, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.Model{}, fmt.Errorf("could not generate ID: %w", err)
	}
	m.ID = newUUID
	m.Created = time.Now()
	m.Modified = m.Created

	encData, err := encodeModelRecord(m)
	if err != nil {
		return dao.Model{}, err
	}

	stmt, err := repo.db.Prepare(`INSERT INTO models (id, owner_id, data, created, modified) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return dao.Model{}, wrapDBError(err)
	}
	_, err = stmt.ExecContext(ctx, convertToDB_UUID(m.ID), convertToDB_UUID(m.OwnerID), encData, convertToDB_Time(m.Created), convertToDB_Time(m.Modified))
	if err != nil {
		return dao.Model{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, m.ID)
}

func (repo *ModelsDB) GetAll(ctx context.Context) ([]dao.Model, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, owner_id, data, created, modified FROM models;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	return scanModels(rows)
}

func (repo *ModelsDB) GetAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]dao.Model, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, owner_id, data, created, modified FROM models WHERE owner_id = ?;`, convertToDB_UUID(ownerID))
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	all, err := scanModels(rows)
	if err != nil {
		return nil, err
	}
	if len(all) < 1 {
		return nil, dao.ErrNotFound
	}
	return all, nil
}

func (repo *ModelsDB) GetByID(ctx context.Context, id uuid.UUID) (dao.Model, error) {
	row := repo.db.QueryRowContext(ctx, `SELECT owner_id, data, created, modified FROM models WHERE id = ?;`, convertToDB_UUID(id))

	var ownerID, data string
	var created, modified int64
	err := row.Scan(&ownerID, &data, &created, &modified)
	if err != nil {
		return dao.Model{}, wrapDBError(err)
	}

	return decodeModel(id, ownerID, data, created, modified)
}

func (repo *ModelsDB) Update(ctx context.Context, id uuid.UUID, m dao.Model) (dao.Model, error) {
	m.Modified = time.Now()

	encData, err := encodeModelRecord(m)
	if err != nil {
		return dao.Model{}, err
	}

	res, err := repo.db.ExecContext(ctx, `UPDATE models SET id=?, owner_id=?, data=?, created=?, modified=? WHERE id=?;`,
		convertToDB_UUID(m.ID),
		convertToDB_UUID(m.OwnerID),
		encData,
		convertToDB_Time(m.Created),
		convertToDB_Time(m.Modified),
		convertToDB_UUID(id),
	)
	if err != nil {
		return dao.Model{}, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return dao.Model{}, wrapDBError(err)
	}
	if rowsAff < 1 {
		return dao.Model{}, dao.ErrNotFound
	}

	return repo.GetByID(ctx, m.ID)
}

func (repo *ModelsDB) Delete(ctx context.Context, id uuid.UUID) (dao.Model, error) {
	curVal, err := repo.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, convertToDB_UUID(id))
	if err != nil {
		return curVal, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return curVal, wrapDBError(err)
	}
	if rowsAff < 1 {
		return curVal, dao.ErrNotFound
	}

	return curVal, nil
}

func (repo *ModelsDB) Close() error {
	return repo.db.Close()
}

func scanModels(rows *sql.Rows) ([]dao.Model, error) {
	var all []dao.Model

	for rows.Next() {
		var id, ownerID, data string
		var created, modified int64

		if err := rows.Scan(&id, &ownerID, &data, &created, &modified); err != nil {
			return nil, wrapDBError(err)
		}

		var idVal uuid.UUID
		if err := convertFromDB_UUID(id, &idVal); err != nil {
			return all, fmt.Errorf("stored model ID %q is invalid: %w", id, err)
		}

		m, err := decodeModel(idVal, ownerID, data, created, modified)
		if err != nil {
			return all, err
		}

		all = append(all, m)
	}

	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func encodeModelRecord(m dao.Model) (string, error) {
	rec := modelRecord{Name: m.Name, Description: m.Description, Source: m.Source}
	encoded := rezi.EncBinary(rec)
	return convertToDB_ByteSlice(encoded), nil
}

func decodeModel(id uuid.UUID, ownerID, data string, created, modified int64) (dao.Model, error) {
	m := dao.Model{ID: id}

	if err := convertFromDB_UUID(ownerID, &m.OwnerID); err != nil {
		return m, fmt.Errorf("stored owner ID %q is invalid: %w", ownerID, err)
	}

	var encoded []byte
	if err := convertFromDB_ByteSlice(data, &encoded); err != nil {
		return m, err
	}

	var rec modelRecord
	n, err := rezi.DecBinary(encoded, &rec)
	if err != nil {
		return m, fmt.Errorf("REZI decode model %s: %w", id, err)
	}
	if n != len(encoded) {
		return m, fmt.Errorf("REZI decoded byte count mismatch for model %s; only consumed %d/%d bytes", id, n, len(encoded))
	}

	m.Name = rec.Name
	m.Description = rec.Description
	m.Source = rec.Source

	if err := convertFromDB_Time(created, &m.Created); err != nil {
		return m, err
	}
	if err := convertFromDB_Time(modified, &m.Modified); err != nil {
		return m, err
	}

	return m, nil
}
