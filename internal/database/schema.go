package database

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		session_token TEXT UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		user_id INTEGER NOT NULL REFERENCES users (id),
		friend_id INTEGER NOT NULL REFERENCES users (id),
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, friend_id),
		CHECK (user_id <> friend_id)
	)`,
	`CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users (id),
		filename TEXT NOT NULL UNIQUE,
		original_filename TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		upload_date TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_images_user_id ON images (user_id, upload_date)`,
	`CREATE TABLE IF NOT EXISTS image_permissions (
		image_id INTEGER NOT NULL REFERENCES images (id),
		user_id INTEGER NOT NULL REFERENCES users (id),
		created_at TIMESTAMP NOT NULL,
		downloaded BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (image_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_image_permissions_user ON image_permissions (user_id, downloaded)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		session_token TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		user_id BIGINT NOT NULL REFERENCES users (id),
		friend_id BIGINT NOT NULL REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, friend_id),
		CHECK (user_id <> friend_id)
	)`,
	`CREATE TABLE IF NOT EXISTS images (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id),
		filename TEXT NOT NULL UNIQUE,
		original_filename TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT '',
		size_bytes BIGINT NOT NULL DEFAULT 0,
		upload_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_images_user_id ON images (user_id, upload_date)`,
	`CREATE TABLE IF NOT EXISTS image_permissions (
		image_id BIGINT NOT NULL REFERENCES images (id),
		user_id BIGINT NOT NULL REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL,
		downloaded BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (image_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_image_permissions_user ON image_permissions (user_id, downloaded)`,
}
