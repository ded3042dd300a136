package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"emergency-triage-service/config"
	"emergency-triage-service/models"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

// Database represents the incident store connection. The triage engine
// treats it as an optional collaborator: a nil Database skips persistence
// and never blocks a verdict.
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new incident store connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval = 1 * time.Second
	for attempt := 0; attempt < 5; attempt++ {
		if err = db.Ping(); err == nil {
			break
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		time.Sleep(waitInterval)
		waitInterval *= 2
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// NewFromDB wraps an existing connection. Used by tests.
func NewFromDB(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// CreateIncidentsTable creates the incidents table if it doesn't exist
func (d *Database) CreateIncidentsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS incidents (
		incident_id VARCHAR(36) PRIMARY KEY,
		caller_id VARCHAR(255) NOT NULL,
		location VARCHAR(255),
		incident_type VARCHAR(255),
		number_of_victims INT DEFAULT 0,
		victim_condition VARCHAR(255),
		responder_needed VARCHAR(255),
		hazards TEXT,
		severity_score DECIMAL(3,1) NOT NULL,
		category VARCHAR(32) NOT NULL,
		dispatch_level VARCHAR(64) NOT NULL,
		briefing TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_caller_id (caller_id),
		INDEX idx_created_at (created_at)
	)`
	if _, err := d.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create incidents table: %w", err)
	}
	return nil
}

// SaveIncident inserts the incident created when dispatch was authorized
func (d *Database) SaveIncident(summary *models.DispatchSummary) error {
	query := `
	INSERT INTO incidents (
		incident_id, caller_id, location, incident_type, number_of_victims,
		victim_condition, responder_needed, hazards, severity_score,
		category, dispatch_level, briefing
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.Exec(query,
		summary.IncidentID,
		summary.CallerID,
		summary.Location,
		summary.IncidentType,
		summary.NumberOfVictims,
		summary.Condition,
		summary.ResponderNeeded,
		strings.Join(summary.Hazards, ", "),
		summary.SeverityScore,
		summary.Category,
		summary.DispatchLevel,
		summary.BriefingText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident %s: %w", summary.IncidentID, err)
	}
	return nil
}
