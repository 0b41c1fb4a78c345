package postgres

// SQL for the snapshot document table. Content is JSONB so the
// write-if-changed comparison is structural, not byte-level.

const (
	// queryUpsertSnapshot writes a document only when its content differs
	// from what is stored. Rows affected = 0 therefore means "no change",
	// which keeps collector writes idempotent.
	queryUpsertSnapshot = `
		INSERT INTO snapshots (key, content, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET content = EXCLUDED.content, updated_at = NOW()
		WHERE snapshots.content IS DISTINCT FROM EXCLUDED.content
	`

	queryGetSnapshot = `
		SELECT content FROM snapshots WHERE key = $1
	`

	// queryListSnapshots matches the key itself and everything below it,
	// mirroring the filesystem repository's directory-prefix semantics.
	queryListSnapshots = `
		SELECT key FROM snapshots
		WHERE key = $1 OR key LIKE $1 || '/%'
		ORDER BY key ASC
	`

	queryListAllSnapshots = `
		SELECT key FROM snapshots ORDER BY key ASC
	`
)
