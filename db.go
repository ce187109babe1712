package qoitool

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/qoitool/qoi"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ImageDB caches the result of decoding a file, keyed by the SHA-1 of its
// encoded bytes.
type ImageDB struct {
	db *sql.DB
}

// NewImageDB opens, creating if necessary, the sqlite database in file.
func NewImageDB(file string) (*ImageDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, channels INTEGER NOT NULL, colorspace INTEGER NOT NULL, pixels_crc INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}

	return &ImageDB{
		db: db,
	}, nil
}

// Close closes the database
func (db *ImageDB) Close() error {
	return db.db.Close()
}

// Lookup returns the descriptor and pixel CRC recorded for the file with the
// given SHA-1. ok is false if nothing is recorded.
func (db *ImageDB) Lookup(sha1 string) (desc qoi.Descriptor, crc uint32, ok bool, err error) {
	var colorspace uint8
	switch err := db.db.QueryRow("SELECT width, height, channels, colorspace, pixels_crc FROM image WHERE sha1 = ?", sha1).Scan(&desc.Width, &desc.Height, &desc.Channels, &colorspace, &crc); err {
	case sql.ErrNoRows:
		return qoi.Descriptor{}, 0, false, nil
	case nil:
		desc.Colorspace = qoi.Colorspace(colorspace)
		return desc, crc, true, nil
	default:
		return qoi.Descriptor{}, 0, false, err
	}
}

// Store records the descriptor and pixel CRC for the file with the given
// SHA-1, replacing anything already recorded.
func (db *ImageDB) Store(sha1 string, desc qoi.Descriptor, crc uint32) error {
	if _, err := db.db.Exec("INSERT OR REPLACE INTO image (sha1, width, height, channels, colorspace, pixels_crc) VALUES (?, ?, ?, ?, ?, ?)", sha1, desc.Width, desc.Height, desc.Channels, uint8(desc.Colorspace), crc); err != nil {
		return err
	}
	return nil
}

// Count returns the number of files recorded
func (db *ImageDB) Count() (int, error) {
	var n int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM image").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
