package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codecast/internal/domain"
	"codecast/internal/repository"
)

// GormRoomRepository is the MySQL implementation of RoomRepository. File and
// whiteboard collections live in JSON text columns, so sub-document updates
// are read-modify-write on the room row.
type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room %q: %w", roomID, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room %q: %w", room.RoomID, err)
	}
	return nil
}

func (r *GormRoomRepository) UpdateFileContent(ctx context.Context, roomID, fileID, content string) error {
	return r.mutateFiles(ctx, roomID, func(files domain.FileList) domain.FileList {
		for i := range files {
			if files[i].ID == fileID {
				files[i].Content = content
				break
			}
		}
		return files
	})
}

func (r *GormRoomRepository) AddFile(ctx context.Context, roomID string, file domain.File) error {
	return r.mutateFiles(ctx, roomID, func(files domain.FileList) domain.FileList {
		for i := range files {
			if files[i].ID == file.ID {
				files[i] = file
				return files
			}
		}
		return append(files, file)
	})
}

func (r *GormRoomRepository) ReplaceFile(ctx context.Context, roomID string, file domain.File) error {
	return r.mutateFiles(ctx, roomID, func(files domain.FileList) domain.FileList {
		for i := range files {
			if files[i].ID == file.ID {
				files[i] = file
				break
			}
		}
		return files
	})
}

func (r *GormRoomRepository) RenameFile(ctx context.Context, roomID, fileID, name string) error {
	return r.mutateFiles(ctx, roomID, func(files domain.FileList) domain.FileList {
		for i := range files {
			if files[i].ID == fileID {
				files[i].Name = name
				break
			}
		}
		return files
	})
}

func (r *GormRoomRepository) RemoveFile(ctx context.Context, roomID, fileID string) error {
	return r.mutateFiles(ctx, roomID, func(files domain.FileList) domain.FileList {
		kept := files[:0]
		for _, f := range files {
			if f.ID != fileID {
				kept = append(kept, f)
			}
		}
		return kept
	})
}

func (r *GormRoomRepository) ReplaceWhiteboard(ctx context.Context, roomID string, elements []domain.WhiteboardElement) error {
	if elements == nil {
		elements = []domain.WhiteboardElement{}
	}
	result := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Update("whiteboard_elements", domain.ElementList(elements))
	if result.Error != nil {
		return fmt.Errorf("gorm: replace whiteboard for room %q: %w", roomID, result.Error)
	}
	// Zero rows means an ephemeral room; the ghost write is a no-op.
	return nil
}

func (r *GormRoomRepository) TouchLastActive(ctx context.Context, roomID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Update("last_active", at)
	if result.Error != nil {
		return fmt.Errorf("gorm: touch last active for room %q: %w", roomID, result.Error)
	}
	return nil
}

// mutateFiles loads the room's file column, applies fn, and writes it back
// inside one transaction. The room row is read FOR UPDATE: the whole file
// collection travels as one column, and workers run concurrently, so an
// unlocked read-modify-write would let two tasks overwrite each other's
// files. Missing rooms are tolerated silently.
func (r *GormRoomRepository) mutateFiles(ctx context.Context, roomID string, fn func(domain.FileList) domain.FileList) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		room.Files = fn(room.Files)
		if room.Files == nil {
			room.Files = domain.FileList{}
		}
		return tx.Model(&domain.Room{}).
			Where("room_id = ?", roomID).
			Update("files", room.Files).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: mutate files for room %q: %w", roomID, err)
	}
	return nil
}
