package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per recorded tracking session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			note TEXT NOT NULL DEFAULT '',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,

		// Session frames table - raw received hand frames, one row per hand
		`CREATE TABLE IF NOT EXISTS session_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			frame_timestamp REAL NOT NULL,
			hand_type TEXT NOT NULL CHECK(hand_type IN ('Left', 'Right')),
			landmarks TEXT NOT NULL
		)`,

		// Session angles table - derived actuation angles per frame
		`CREATE TABLE IF NOT EXISTS session_angles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			frame_timestamp REAL NOT NULL,
			hand_type TEXT NOT NULL,
			thumb INTEGER NOT NULL,
			index_finger INTEGER NOT NULL,
			middle INTEGER NOT NULL,
			ring INTEGER NOT NULL,
			pinky INTEGER NOT NULL,
			hand INTEGER NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_session_frames_session_id ON session_frames(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_session_angles_session_id ON session_angles(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
