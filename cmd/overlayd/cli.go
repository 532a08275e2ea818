package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creaselab/overlay/internal/database"
	"github.com/creaselab/overlay/internal/geo"
	"github.com/creaselab/overlay/internal/model"
	"github.com/creaselab/overlay/internal/storage/memory"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var db *gorm.DB

func connectDB() error {
	mgr := database.NewManager(zlog)
	if err := mgr.ConnectPostgres(); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db = mgr.DB
	return nil
}

// migrateBackups loads every backup .db file in the working directory into
// Postgres, renaming each file once its rows are committed.
func migrateBackups() error {
	sqlitePaths, err := database.GetBackupDBPaths(WorkDir)
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %w", err)
	}
	if len(sqlitePaths) == 0 {
		fmt.Println("No backup .db files found in ", WorkDir)
		return nil
	}

	pg := database.NewManager(zlog)
	if err := pg.ConnectPostgres(); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pg.Migrate(CurrentRecorderVersion); err != nil {
		return fmt.Errorf("failed to prepare postgres schema: %w", err)
	}

	tables := []struct {
		name string
	}{
		{"sessions"},
		{"annotations"},
		{"annotation_moves"},
		{"removal_events"},
		{"telemetry_events"},
		{"overlay_performances"},
	}

	migrated := make([]string, 0, len(sqlitePaths))
	for _, sqlitePath := range sqlitePaths {
		src := database.NewManager(zlog)
		if err := src.ConnectSqlite(sqlitePath); err != nil {
			return fmt.Errorf("error opening backup %s: %w", sqlitePath, err)
		}

		// transaction for Postgres so we can rollback on errors
		tx := pg.DB.Begin()
		for _, table := range tables {
			if err := migrateTable(src.DB, tx, table.name); err != nil {
				tx.Rollback()
				return fmt.Errorf("error migrating %s from %s: %w", table.name, sqlitePath, err)
			}
		}
		tx.Commit()

		if err := src.Close(); err != nil {
			fmt.Println("Error closing backup ", sqlitePath, ": ", err)
		}
		if err := os.Rename(sqlitePath, sqlitePath+".migrated"); err != nil {
			fmt.Println("Error renaming backup ", sqlitePath, ": ", err)
		}
		migrated = append(migrated, sqlitePath)
	}

	fmt.Println("Migrated ", len(migrated), " backups: ", migrated)
	fmt.Println("Delete the .migrated files to avoid future data duplication")
	return nil
}

// migrateTable copies one table's rows from a backup database into the
// Postgres transaction. Rows already present are skipped rather than
// duplicated.
func migrateTable(src, dst *gorm.DB, tableName string) error {
	rows := []map[string]any{}
	if err := src.Table(tableName).Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	fmt.Println("Inserting ", len(rows), " rows into ", tableName)
	return dst.Table(tableName).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(rows).Error
}

// getSessionExport writes stored sessions as gzipped JSON in the same shape
// the memory backend exports, so the review frontend reads both.
func getSessionExport(sessionIDs []string) error {
	if err := connectDB(); err != nil {
		return err
	}
	fmt.Println("Getting JSON for session IDs: ", sessionIDs)

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var sess model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&sess).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		export := memory.SessionExport{
			RecorderVersion: sess.RecorderVersion,
			SessionID:       sess.SessionUID,
			SourceURI:       sess.SourceURI,
			Title:           sess.Title,
			DurationSeconds: sess.DurationSeconds,
			FrameWidth:      sess.FrameWidth,
			FrameHeight:     sess.FrameHeight,
			Tag:             sess.Tag,
			Annotations:     []memory.AnnotationJSON{},
			Telemetry:       [][]any{},
		}

		// Bulk-fetch annotations and their history for this session
		annotations := []model.Annotation{}
		err = db.Model(&model.Annotation{}).
			Where("session_id = ?", sessionIDInt).
			Order("overlay_id ASC").
			Find(&annotations).Error
		if err != nil {
			return fmt.Errorf("error getting annotations: %w", err)
		}

		allMoves := []model.AnnotationMove{}
		err = db.Model(&model.AnnotationMove{}).
			Where("session_id = ?", sessionIDInt).
			Order("timestamp ASC").
			Find(&allMoves).Error
		if err != nil {
			return fmt.Errorf("error getting annotation moves: %w", err)
		}
		movesByAnnotation := map[uint][]model.AnnotationMove{}
		for _, mv := range allMoves {
			movesByAnnotation[mv.AnnotationID] = append(movesByAnnotation[mv.AnnotationID], mv)
		}

		for _, a := range annotations {
			mark := memory.AnnotationJSON{
				ID:        a.OverlayID,
				Kind:      a.Kind,
				Label:     a.Label,
				Timestamp: a.Timestamp,
				Removed:   a.IsDeleted,
			}

			if a.Kind == "line" {
				for _, p := range geo.PolylineFromGeom(a.Polyline) {
					mark.Points = append(mark.Points, [2]float64{p.X, p.Y})
				}
			} else {
				p := geo.PointFromGeom(a.Position)
				mark.Points = append(mark.Points, [2]float64{p.X, p.Y})
			}

			for _, mv := range movesByAnnotation[a.ID] {
				p := geo.PointFromGeom(mv.Position)
				mark.Moves = append(mark.Moves, []any{mv.Timestamp, p.X, p.Y})
			}

			export.Annotations = append(export.Annotations, mark)
		}

		telemetry := []model.TelemetryEvent{}
		err = db.Model(&model.TelemetryEvent{}).
			Where("session_id = ?", sessionIDInt).
			Order("playback_time ASC").
			Find(&telemetry).Error
		if err != nil {
			return fmt.Errorf("error getting telemetry: %w", err)
		}
		for _, ev := range telemetry {
			export.Telemetry = append(export.Telemetry, []any{
				ev.PlaybackTime,
				ev.PlayerFps,
				ev.DroppedFrames,
				ev.DecodeMs,
			})
		}

		fmt.Println("Got session data in ", time.Since(txStart))

		exportJSON, err := json.Marshal(export)
		if err != nil {
			return fmt.Errorf("error marshalling session data: %w", err)
		}

		fileName := fmt.Sprintf("%s_%s.json.gz", sess.Title, sess.StartTime.Format("20060102_150405"))
		fileName = strings.ReplaceAll(fileName, " ", "_")
		fileName = strings.ReplaceAll(fileName, ":", "_")
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}
		defer func() { _ = f.Close() }()

		gzWriter := gzip.NewWriter(f)
		defer func() { _ = gzWriter.Close() }()
		_, err = gzWriter.Write(exportJSON)
		if err != nil {
			return fmt.Errorf("error writing to gzip: %w", err)
		}

		fmt.Println("Wrote session data to ", fileName)
	}

	return nil
}

// reduceTelemetry thins stored telemetry to one sample in five per session
// and vacuums the tables to recover the space.
func reduceTelemetry(sessionIDs []string) error {
	if err := connectDB(); err != nil {
		return err
	}

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var sess model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&sess).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		samplesToDelete := []model.TelemetryEvent{}
		err = db.Model(&model.TelemetryEvent{}).Where(
			"session_id = ? AND id % 5 != 0",
			sess.ID,
		).Find(&samplesToDelete).Error
		if err != nil {
			return fmt.Errorf("error getting telemetry samples to delete: %w", err)
		}

		if len(samplesToDelete) == 0 {
			fmt.Println("No telemetry to delete for sessionId ", sessionID, ", checked in ", time.Since(txStart))
			continue
		}

		err = db.Delete(&samplesToDelete).Error
		if err != nil {
			return fmt.Errorf("error deleting telemetry samples: %w", err)
		}

		fmt.Println("Deleted ", len(samplesToDelete), " telemetry samples from sessionId ", sessionID, " in ", time.Since(txStart))
	}

	fmt.Println("Finished reducing telemetry, running VACUUM to recover space...")
	txStart := time.Now()
	tables := []string{}
	err := db.Raw(
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`,
	).Scan(&tables).Error
	if err != nil {
		return fmt.Errorf("error getting tables to vacuum: %w", err)
	}

	for _, table := range tables {
		err = db.Exec(fmt.Sprintf(`VACUUM (FULL) "%s"`, table)).Error
		if err != nil {
			return fmt.Errorf("error running VACUUM on table %s: %w", table, err)
		}
	}

	fmt.Println("Finished VACUUM in ", time.Since(txStart))
	return nil
}
