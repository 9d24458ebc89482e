package store

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS videos (
        id            TEXT PRIMARY KEY,
        trip_id       TEXT NOT NULL,
        filename      TEXT NOT NULL,
        storage_path  TEXT NOT NULL,
        location_hint TEXT,
        status        TEXT NOT NULL,
        created_at    TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS video_jobs (
        id                  TEXT PRIMARY KEY,
        video_id            TEXT NOT NULL REFERENCES videos(id),
        status              TEXT NOT NULL,
        progress            INTEGER NOT NULL DEFAULT 0,
        error               TEXT,
        generative_used     INTEGER NOT NULL DEFAULT 0,
        generative_fallback TEXT,
        generative_prompt   TEXT,
        generative_output   TEXT,
        created_at          TEXT NOT NULL,
        updated_at          TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_video_jobs_status ON video_jobs(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_video_jobs_video ON video_jobs(video_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS video_transcripts (
        id         TEXT PRIMARY KEY,
        video_id   TEXT NOT NULL REFERENCES videos(id),
        segments   TEXT NOT NULL,
        created_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_video_transcripts_video ON video_transcripts(video_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS video_candidates (
        id                TEXT PRIMARY KEY,
        video_id          TEXT NOT NULL REFERENCES videos(id),
        name              TEXT NOT NULL,
        address_hint      TEXT,
        confidence        REAL NOT NULL,
        start_ms          INTEGER,
        end_ms            INTEGER,
        evidence          TEXT,
        extraction_method TEXT NOT NULL,
        latitude          REAL,
        longitude         REAL,
        places_query      TEXT,
        places_place_id   TEXT,
        places_name       TEXT,
        places_address    TEXT,
        places_raw        TEXT,
        places_failed     INTEGER NOT NULL DEFAULT 0,
        created_at        TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_video_candidates_video ON video_candidates(video_id, confidence DESC)`,
	`CREATE TABLE IF NOT EXISTS pins (
        id           TEXT PRIMARY KEY,
        trip_id      TEXT NOT NULL,
        candidate_id TEXT REFERENCES video_candidates(id) ON DELETE SET NULL,
        name         TEXT NOT NULL,
        address      TEXT,
        latitude     REAL NOT NULL,
        longitude    REAL NOT NULL,
        created_at   TEXT NOT NULL
    )`,
}
