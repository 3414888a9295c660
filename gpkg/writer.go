// Package gpkg persists planned routes as GeoPackage feature layers: a
// line geometry with the {length, green_weight} attribute contract the
// routing core guarantees.
package gpkg

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	_ "github.com/mattn/go-sqlite3"
)

// gpkgApplicationID is "GPKG" as a big-endian uint32, required by the
// GeoPackage container spec.
const gpkgApplicationID = 0x47504B47

const gpkgUserVersion = 10300 // GeoPackage 1.3

// RouteRecord is one route feature: its geometry in the working CRS and
// the two aggregate attributes.
type RouteRecord struct {
	Geometry    orb.LineString
	Length      float64
	GreenWeight float64
}

// WriteRoute creates (or extends) a GeoPackage at path with a feature
// layer holding the route. srsID identifies the working reference system
// and srsDef is its proj4 definition, stored so GIS tools can georeference
// the layer.
func WriteRoute(path, layer string, rec RouteRecord, srsID int, srsDef string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open geopackage: %w", err)
	}
	defer db.Close()

	if err := initContainer(db); err != nil {
		return err
	}
	if err := registerLayer(db, layer, rec.Geometry, srsID, srsDef); err != nil {
		return err
	}

	blob, err := geometryBlob(rec.Geometry, srsID)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		fmt.Sprintf(`INSERT INTO %q (geom, length, green_weight) VALUES (?, ?, ?)`, layer),
		blob, rec.Length, rec.GreenWeight,
	)
	if err != nil {
		return fmt.Errorf("insert route feature: %w", err)
	}
	return nil
}

func initContainer(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA application_id = %d", gpkgApplicationID),
		fmt.Sprintf("PRAGMA user_version = %d", gpkgUserVersion),
		`CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		)`,
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys VALUES
			('Undefined Cartesian', -1, 'NONE', -1, 'undefined', NULL),
			('Undefined Geographic', 0, 'NONE', 0, 'undefined', NULL)`,
		`CREATE TABLE IF NOT EXISTS gpkg_contents (
			table_name TEXT NOT NULL PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
			srs_id INTEGER,
			CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		)`,
		`CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init geopackage container: %w", err)
		}
	}
	return nil
}

func registerLayer(db *sql.DB, layer string, line orb.LineString, srsID int, srsDef string) error {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys VALUES (?, ?, 'PROJ', ?, ?, NULL)`,
		fmt.Sprintf("srs %d", srsID), srsID, srsID, srsDef,
	)
	if err != nil {
		return fmt.Errorf("register srs %d: %w", srsID, err)
	}

	_, err = db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		fid INTEGER PRIMARY KEY AUTOINCREMENT,
		geom BLOB,
		length REAL,
		green_weight REAL
	)`, layer))
	if err != nil {
		return fmt.Errorf("create layer %s: %w", layer, err)
	}

	bound := line.Bound()
	_, err = db.Exec(
		`INSERT OR REPLACE INTO gpkg_contents
			(table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id)
			VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		layer, layer, bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1], srsID,
	)
	if err != nil {
		return fmt.Errorf("register contents: %w", err)
	}
	_, err = db.Exec(
		`INSERT OR REPLACE INTO gpkg_geometry_columns VALUES (?, 'geom', 'LINESTRING', ?, 0, 0)`,
		layer, srsID,
	)
	if err != nil {
		return fmt.Errorf("register geometry column: %w", err)
	}
	return nil
}

// geometryBlob encodes the GeoPackage geometry binary: the "GP" header
// (little-endian, no envelope) followed by standard WKB.
func geometryBlob(line orb.LineString, srsID int) ([]byte, error) {
	payload, err := wkb.Marshal(line)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteByte('G')
	buf.WriteByte('P')
	buf.WriteByte(0)    // version
	buf.WriteByte(0x01) // flags: little-endian, no envelope
	if err := binary.Write(&buf, binary.LittleEndian, int32(srsID)); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}
