package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

// SQLiteStore is the durable ConversationRepository. It also persists
// the embedded law chunks so the in-memory vector store can be rebuilt
// at startup without re-embedding.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY,
        form_session TEXT, -- JSON, NULL when no session exists
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT, -- preserves insertion order
        id TEXT UNIQUE NOT NULL,
        conversation_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        intent TEXT,
        citations TEXT, -- JSON
        timestamp DATETIME NOT NULL,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id)
    );

    CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, seq);

    CREATE TABLE IF NOT EXISTS law_chunks (
        id TEXT PRIMARY KEY,
        content TEXT NOT NULL,
        metadata TEXT NOT NULL,  -- JSON
        embedding TEXT NOT NULL  -- JSON []float32
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*core.Conversation, error) {
	conv := &core.Conversation{ID: id}
	var formJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT form_session, created_at, updated_at FROM conversations WHERE id = ?", id).
		Scan(&formJSON, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	if formJSON.Valid && formJSON.String != "" {
		var session core.FormSession
		if err := json.Unmarshal([]byte(formJSON.String), &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal form session: %w", err)
		}
		conv.Form = &session
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, content, intent, citations, timestamp FROM messages WHERE conversation_id = ? ORDER BY seq ASC", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg core.Message
		var intent, citationsJSON sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &intent, &citationsJSON, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if intent.Valid {
			msg.Intent = core.Intent(intent.String)
		}
		if citationsJSON.Valid && citationsJSON.String != "" {
			if err := json.Unmarshal([]byte(citationsJSON.String), &msg.Citations); err != nil {
				s.logger.Warn("failed to unmarshal citations, dropping them",
					zap.String("message_id", msg.ID), zap.Error(err))
			}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return conv, nil
}

// Save upserts the aggregate row and appends any messages not yet
// stored. Messages are immutable, so existing rows are left untouched.
func (s *SQLiteStore) Save(ctx context.Context, conv *core.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var formJSON interface{}
	if conv.Form != nil {
		data, err := json.Marshal(conv.Form)
		if err != nil {
			return fmt.Errorf("failed to marshal form session: %w", err)
		}
		formJSON = string(data)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO conversations (id, form_session, created_at, updated_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET form_session = excluded.form_session, updated_at = excluded.updated_at`,
		conv.ID, formJSON, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	for _, msg := range conv.Messages {
		var citationsJSON interface{}
		if len(msg.Citations) > 0 {
			data, err := json.Marshal(msg.Citations)
			if err != nil {
				return fmt.Errorf("failed to marshal citations: %w", err)
			}
			citationsJSON = string(data)
		}
		_, err = tx.ExecContext(ctx, `
            INSERT OR IGNORE INTO messages (id, conversation_id, role, content, intent, citations, timestamp)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, conv.ID, msg.Role, msg.Content, nullableString(string(msg.Intent)), citationsJSON, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return tx.Commit()
}

// SaveChunks replaces the persisted law chunk index.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []core.DocumentChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM law_chunks"); err != nil {
		return fmt.Errorf("failed to clear law_chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO law_chunks (id, content, metadata, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		embedding, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.Content, string(metadata), string(embedding)); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

// AllChunks loads the persisted chunk index, embeddings included.
// Chunks whose embedding cannot be decoded are skipped with a warning
// rather than failing startup.
func (s *SQLiteStore) AllChunks(ctx context.Context) ([]core.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, content, metadata, embedding FROM law_chunks")
	if err != nil {
		return nil, fmt.Errorf("failed to query law_chunks: %w", err)
	}
	defer rows.Close()

	var chunks []core.DocumentChunk
	for rows.Next() {
		var chunk core.DocumentChunk
		var metadataJSON, embeddingJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Content, &metadataJSON, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			s.logger.Warn("failed to unmarshal chunk metadata, skipping chunk",
				zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &chunk.Embedding); err != nil || len(chunk.Embedding) == 0 {
			s.logger.Warn("chunk has no usable embedding, skipping",
				zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
