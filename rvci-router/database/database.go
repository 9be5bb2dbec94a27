package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Event represents one loggable lifecycle action of the router.
// High-frequency volume applications are deliberately not persisted.
type Event struct {
	Timestamp time.Time
	Source    string // serial port, device target, channel label
	Detail    string
	EventType string // LINK_UP, LINK_LOST, CONFIG_RELOAD, DEVICE_SWITCH, USER_COMMAND
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    source TEXT,
    detail TEXT,
    event_type TEXT NOT NULL
);`

// EventWriter is a long-running goroutine that listens for events and writes them to a daily SQLite database.
func EventWriter(ctx context.Context, wg *sync.WaitGroup, eventChan <-chan Event, logger *log.Logger) {
	defer wg.Done()
	logger.Println("Event Writer Goroutine Started.")
	dbConnections := make(map[string]*sql.DB)
	defer func() {
		for _, db := range dbConnections {
			db.Close()
		}
		logger.Println("Event Writer Goroutine Shutting Down.")
	}()

	writeEvent := func(event Event) {
		dateStr := event.Timestamp.Format("2006-01-02")
		db, ok := dbConnections[dateStr]
		if !ok {
			var err error
			fileName := fmt.Sprintf("rvci_events_%s.db", dateStr)
			db, err = sql.Open("sqlite", fileName)
			if err != nil {
				logger.Printf("ERROR: Could not open/create database %s: %v", fileName, err)
				return
			}
			dbConnections[dateStr] = db

			if _, err = db.Exec(createTableSQL); err != nil {
				logger.Printf("ERROR: Could not create table in %s: %v", fileName, err)
				db.Close()
				delete(dbConnections, dateStr)
				return
			}
			logger.Printf("Successfully opened and verified database: %s", fileName)
		}

		stmt, err := db.Prepare("INSERT INTO events(timestamp, source, detail, event_type) VALUES(?, ?, ?, ?)")
		if err != nil {
			logger.Printf("ERROR: Failed to prepare SQL statement: %v", err)
			return
		}
		defer stmt.Close()

		timestampStr := event.Timestamp.Format("2006-01-02 15:04:05.000")
		if _, err := stmt.Exec(timestampStr, event.Source, event.Detail, event.EventType); err != nil {
			logger.Printf("ERROR: Failed to insert event into database: %v", err)
		}
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok { // Channel has been closed from a clean shutdown
				return
			}
			writeEvent(event)

		case <-ctx.Done():
			logger.Println("Shutdown signal received. Writing remaining events to database...")
			for len(eventChan) > 0 {
				writeEvent(<-eventChan)
			}
			return
		}
	}
}
