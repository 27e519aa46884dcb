package catalog

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateVideo(ctx context.Context, video *Video) error
	GetVideoByPath(ctx context.Context, path string) (*Video, error)
	GetVideoByTask(ctx context.Context, taskID string) (*Video, error)
	ListVideos(ctx context.Context) ([]*Video, error)
	CountVideos(ctx context.Context) (int, error)

	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, limit int) ([]*Task, error)
	UpdateTaskStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateTaskProgress(ctx context.Context, id string, progress, indexedFrames int) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateVideo(ctx context.Context, v *Video) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (id, task_id, path, filename, size, duration, fps, frame_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.TaskID, v.Path, v.Filename, v.Size, v.Duration, v.FPS, v.FrameCount, v.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVideoByPath(ctx context.Context, path string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, path, filename, size, duration, fps, frame_count, created_at
		FROM videos WHERE path = ?
	`, path)
	return r.scanVideo(row)
}

func (r *SQLiteRepository) GetVideoByTask(ctx context.Context, taskID string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, path, filename, size, duration, fps, frame_count, created_at
		FROM videos WHERE task_id = ?
	`, taskID)
	return r.scanVideo(row)
}

func (r *SQLiteRepository) scanVideo(row *sql.Row) (*Video, error) {
	var v Video
	var createdAt string

	err := row.Scan(&v.ID, &v.TaskID, &v.Path, &v.Filename, &v.Size, &v.Duration, &v.FPS, &v.FrameCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

func (r *SQLiteRepository) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, path, filename, size, duration, fps, frame_count, created_at
		FROM videos ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		var v Video
		var createdAt string
		if err := rows.Scan(&v.ID, &v.TaskID, &v.Path, &v.Filename, &v.Size, &v.Duration, &v.FPS, &v.FrameCount, &createdAt); err != nil {
			return nil, err
		}
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

func (r *SQLiteRepository) CountVideos(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, t *Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, type, status, video_path, progress, indexed_frames, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Type, t.Status, nullString(t.VideoPath), t.Progress, t.IndexedFrames, nullString(t.Error),
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, status, video_path, progress, indexed_frames, error, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	return r.scanTask(row)
}

func (r *SQLiteRepository) scanTask(row *sql.Row) (*Task, error) {
	var t Task
	var videoPath, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Type, &t.Status, &videoPath, &t.Progress, &t.IndexedFrames, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.VideoPath = videoPath.String
	t.Error = errMsg.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, status, video_path, progress, indexed_frames, error, created_at, updated_at
		FROM tasks ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		var videoPath, errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&t.ID, &t.Type, &t.Status, &videoPath, &t.Progress, &t.IndexedFrames, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.VideoPath = videoPath.String
		t.Error = errMsg.String
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteRepository) UpdateTaskStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateTaskProgress(ctx context.Context, id string, progress, indexedFrames int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET progress = ?, indexed_frames = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, indexedFrames, id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
