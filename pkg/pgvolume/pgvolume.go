// Package pgvolume stores volumes in postgres. Each volume has a row in the
// `volumes` table recording its size, and each written block is a row in
// the `blocks` table keyed by volume name and block number.
package pgvolume

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/lib/pq"
	blockio "github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

const (
	volumesTable = "volumes"
	blocksTable  = "blocks"

	// postgres' `unique_violation`
	uniqueViolation pq.ErrorCode = "23505"
)

var _ blockio.Volume = (*Volume)(nil)

type Volume struct {
	db   *sql.DB
	name string
	size Byte
}

// Ensure creates the tables if they don't already exist.
func Ensure(db *sql.DB) error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS "volumes" (
			"name" VARCHAR(64) NOT NULL,
			"size" BIGINT NOT NULL,
			PRIMARY KEY ("name"))`,
		`CREATE TABLE IF NOT EXISTS "blocks" (
			"volume" VARCHAR(64) NOT NULL REFERENCES "volumes" ("name") ON DELETE CASCADE,
			"block" BIGINT NOT NULL,
			"data" BYTEA NOT NULL,
			PRIMARY KEY ("volume", "block"))`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating postgres tables: %w", err)
		}
	}
	return nil
}

// Open registers the volume `name` with `size` bytes, or opens it with the
// size it was registered with if it already exists.
func Open(db *sql.DB, name string, size Byte) (*Volume, error) {
	if _, err := db.Exec(
		`INSERT INTO "volumes" ("name", "size") VALUES ($1, $2)`,
		name,
		int64(size),
	); err != nil {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
			return nil, fmt.Errorf("opening volume `%s`: %w", name, err)
		}

		var existing int64
		if err := db.QueryRow(
			`SELECT "size" FROM "volumes" WHERE "name"=$1`,
			name,
		).Scan(&existing); err != nil {
			return nil, fmt.Errorf("opening volume `%s`: %w", name, err)
		}
		size = Byte(existing)
	}
	return &Volume{db: db, name: name, size: size}, nil
}

// Delete removes the volume `name` and all of its blocks.
func Delete(db *sql.DB, name string) error {
	var dummy string
	if err := db.QueryRow(
		`DELETE FROM "volumes" WHERE "name"=$1 RETURNING 'dummy'`,
		name,
	).Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("deleting volume `%s`: %w", name, NotFoundErr)
		}
		return fmt.Errorf("deleting volume `%s`: %w", name, err)
	}
	return nil
}

func (v *Volume) Size() Byte { return v.size }

func (v *Volume) ReadAt(offset Byte, p []byte) error {
	if err := v.readAt(offset, p); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes from volume `%s` at offset `%d`: %w",
			len(p),
			v.name,
			offset,
			err,
		)
	}
	return nil
}

func (v *Volume) readAt(offset Byte, p []byte) error {
	if offset < 0 || offset+Byte(len(p)) > v.size {
		return io.ErrUnexpectedEOF
	}
	if len(p) < 1 {
		return nil
	}

	first := offset / BlockSize
	last := (offset + Byte(len(p)) - 1) / BlockSize
	rows, err := v.db.Query(
		`SELECT "block", "data" FROM "blocks"
			WHERE "volume"=$1 AND "block" BETWEEN $2 AND $3`,
		v.name,
		int64(first),
		int64(last),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	clear(p)
	for rows.Next() {
		var (
			block int64
			data  []byte
		)
		if err := rows.Scan(&block, &data); err != nil {
			return err
		}
		blockStart := Byte(block) * BlockSize
		begin := max(blockStart, offset)
		end := min(blockStart+Byte(len(data)), offset+Byte(len(p)))
		if begin < end {
			copy(p[begin-offset:end-offset], data[begin-blockStart:])
		}
	}
	return rows.Err()
}

// WriteAt rewrites every touched block in a single transaction.
func (v *Volume) WriteAt(offset Byte, p []byte) error {
	if err := v.writeAt(offset, p); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to volume `%s` at offset `%d`: %w",
			len(p),
			v.name,
			offset,
			err,
		)
	}
	return nil
}

func (v *Volume) writeAt(offset Byte, p []byte) error {
	if offset < 0 || offset+Byte(len(p)) > v.size {
		return io.ErrUnexpectedEOF
	}

	tx, err := v.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var begin Byte
	for begin < Byte(len(p)) {
		at := (offset + begin) % BlockSize
		length := min(Byte(len(p))-begin, BlockSize-at)
		block := int64((offset + begin) / BlockSize)

		data := make([]byte, BlockSize)
		if at != 0 || length != BlockSize {
			var existing []byte
			if err := tx.QueryRow(
				`SELECT "data" FROM "blocks"
					WHERE "volume"=$1 AND "block"=$2 FOR UPDATE`,
				v.name,
				block,
			).Scan(&existing); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("block `%d`: %w", block, err)
			}
			copy(data, existing)
		}
		copy(data[at:], p[begin:begin+length])

		if _, err := tx.Exec(
			`INSERT INTO "blocks" ("volume", "block", "data") VALUES ($1, $2, $3)
				ON CONFLICT ("volume", "block") DO UPDATE SET "data"=EXCLUDED."data"`,
			v.name,
			block,
			data,
		); err != nil {
			return fmt.Errorf("block `%d`: %w", block, err)
		}
		begin += length
	}
	return tx.Commit()
}

// Close closes the database handle.
func (v *Volume) Close() error { return v.db.Close() }
